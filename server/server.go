// Package server 通过 websocket 提供实时编辑会话，并通过 HTTP 提供导出下载与设计存取。
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/klauspost/compress/gzip"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/dsl"
	"github.com/ByLCY/signboard/export"
	"github.com/ByLCY/signboard/session"
	"github.com/ByLCY/signboard/settings"
	"github.com/ByLCY/signboard/store"
)

const maxDesignBytes = 1 << 20

// live 是一个已连接的会话。Session 本身不加锁，所有访问都经过 mu。
type live struct {
	mu sync.Mutex
	s  *session.Session
}

type Server struct {
	log      *log.Logger
	settings settings.Settings
	store    *store.Store
	baseDir  string

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*live
	seq      atomic.Uint64
}

// New 创建服务。db 可以为 nil，此时设计存取接口返回 503。
func New(st settings.Settings, db *store.Store, baseDir string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	buf := st.Server.ReadBufferSize * 1024
	return &Server{
		log:      logger,
		settings: st,
		store:    db,
		baseDir:  baseDir,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  buf,
			WriteBufferSize: buf,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		sessions: map[string]*live{},
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /v1/ws", s.handleWS)
	mux.HandleFunc("GET /v1/sessions/{id}/export", s.handleSessionExport)
	mux.HandleFunc("GET /v1/designs", s.handleListDesigns)
	mux.HandleFunc("POST /v1/designs", s.handleSaveDesign)
	mux.HandleFunc("GET /v1/designs/{name}", s.handleGetDesign)
	mux.HandleFunc("DELETE /v1/designs/{name}", s.handleDeleteDesign)
	mux.HandleFunc("GET /v1/designs/{name}/export", s.handleDesignExport)
	return mux
}

// ListenAndServe 监听 settings 中的地址，直到 ctx 结束。
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.settings.Server.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()
	s.log.Printf("listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// openSession 创建会话并加载资源。name 非空时从存储中读取设计。
func (s *Server) openSession(ctx context.Context, name string) (string, *live, error) {
	design := config.NewDesign("untitled")
	if name != "" {
		if s.store == nil {
			return "", nil, fmt.Errorf("design store disabled")
		}
		rec, err := s.store.Load(ctx, name)
		if err != nil {
			return "", nil, err
		}
		design = rec.Design
	}
	id := fmt.Sprintf("s%d", s.seq.Add(1))
	st := s.settings
	sess, err := session.New(id, design, session.Options{Logger: s.log, Settings: &st, BaseDir: s.baseDir})
	if err != nil {
		return "", nil, err
	}
	if err := sess.LoadAssets(); err != nil {
		s.log.Printf("session %s: %v", id, err)
	}
	l := &live{s: sess}
	s.mu.Lock()
	s.sessions[id] = l
	s.mu.Unlock()
	return id, l, nil
}

func (s *Server) closeSession(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

func (s *Server) lookup(id string) (*live, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.sessions[id]
	return l, ok
}

func (s *Server) handleSessionExport(rw http.ResponseWriter, r *http.Request) {
	l, ok := s.lookup(r.PathValue("id"))
	if !ok {
		http.Error(rw, "unknown session", http.StatusNotFound)
		return
	}
	l.mu.Lock()
	doc, err := l.s.Export()
	l.mu.Unlock()
	if errors.Is(err, export.ErrNothingToExport) {
		http.Error(rw, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeBlob(rw, r, doc.Name, doc.MIMEType, doc.Data)
}

func (s *Server) handleListDesigns(rw http.ResponseWriter, r *http.Request) {
	if !s.requireStore(rw) {
		return
	}
	list, err := s.store.List(r.Context())
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(rw, http.StatusOK, map[string]any{"designs": list})
}

// saveRequest 是 POST /v1/designs 的 JSON 请求体。
type saveRequest struct {
	Name string          `json:"name"`
	Form json.RawMessage `json:"form"`
}

// handleSaveDesign 接受描述文件源码（text/plain）或 {"name", "form"} JSON。
func (s *Server) handleSaveDesign(rw http.ResponseWriter, r *http.Request) {
	if !s.requireStore(rw) {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(rw, r.Body, maxDesignBytes))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusRequestEntityTooLarge)
		return
	}
	design, err := decodeDesign(r.Header.Get("Content-Type"), body)
	if err != nil {
		http.Error(rw, err.Error(), http.StatusBadRequest)
		return
	}
	if name := r.URL.Query().Get("name"); name != "" {
		design.Name = name
	}
	if design.Name == "" {
		http.Error(rw, "design name required", http.StatusBadRequest)
		return
	}
	if err := s.store.Save(r.Context(), design.Name, design); err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Printf("design %s saved (%d lines)", design.Name, len(design.Lines))
	writeJSONResponse(rw, http.StatusCreated, map[string]any{"name": design.Name})
}

func decodeDesign(contentType string, body []byte) (config.Design, error) {
	mt, _, _ := mime.ParseMediaType(contentType)
	if mt == "application/json" {
		var req saveRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return config.Design{}, err
		}
		form, err := session.ParseForm(req.Form)
		if err != nil {
			return config.Design{}, err
		}
		d := config.NewDesign(req.Name)
		d.Board, d.Lines, err = form.Config()
		return d, err
	}
	doc, err := dsl.ParseString(string(body))
	if err != nil {
		return config.Design{}, fmt.Errorf("解析描述文件失败: %w", err)
	}
	return config.FromDocument(doc, nil)
}

func (s *Server) handleGetDesign(rw http.ResponseWriter, r *http.Request) {
	if !s.requireStore(rw) {
		return
	}
	rec, err := s.store.Load(r.Context(), r.PathValue("name"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSONResponse(rw, http.StatusOK, map[string]any{
		"design":    rec.Design,
		"form":      session.FormFromDesign(rec.Design),
		"hasExport": rec.Export != nil,
		"updatedAt": rec.UpdatedAt,
	})
}

func (s *Server) handleDeleteDesign(rw http.ResponseWriter, r *http.Request) {
	if !s.requireStore(rw) {
		return
	}
	err := s.store.Delete(r.Context(), r.PathValue("name"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDesignExport(rw http.ResponseWriter, r *http.Request) {
	if !s.requireStore(rw) {
		return
	}
	rec, err := s.store.Load(r.Context(), r.PathValue("name"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(rw, err.Error(), http.StatusInternalServerError)
		return
	}
	if rec.Export == nil {
		http.Error(rw, "design has no export", http.StatusNotFound)
		return
	}
	writeBlob(rw, r, rec.ExportName, export.MIMEType, rec.Export)
}

func (s *Server) requireStore(rw http.ResponseWriter) bool {
	if s.store == nil {
		http.Error(rw, "design store disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// writeBlob 以附件形式返回二进制数据；客户端接受 gzip 时压缩传输。
func writeBlob(rw http.ResponseWriter, r *http.Request, name, mimeType string, data []byte) {
	h := rw.Header()
	h.Set("Content-Type", mimeType)
	h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	h.Add("Vary", "Accept-Encoding")
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		_, _ = rw.Write(data)
		return
	}
	h.Set("Content-Encoding", "gzip")
	zw := gzip.NewWriter(rw)
	_, _ = zw.Write(data)
	_ = zw.Close()
}

func writeJSONResponse(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
