package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/export"
	"github.com/ByLCY/signboard/session"
)

const readTimeout = 60 * time.Second

// handleWS 为每个连接创建一次编辑会话。?design=<name> 从存储中载入已保存的设计。
func (s *Server) handleWS(rw http.ResponseWriter, r *http.Request) {
	id, l, err := s.openSession(r.Context(), r.URL.Query().Get("design"))
	if err != nil {
		http.Error(rw, err.Error(), http.StatusNotFound)
		return
	}
	defer s.closeSession(id)

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		s.log.Printf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()
	if n := s.settings.Server.MaxMessageSize; n > 0 {
		conn.SetReadLimit(n)
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	out := make(chan []byte, 64)
	writeTimeout := time.Duration(s.settings.Server.WriteTimeoutMs) * time.Millisecond
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	send := func(msg OutMsg) {
		b, err := json.Marshal(msg)
		if err != nil {
			s.log.Printf("ws encode: %v", err)
			return
		}
		select {
		case out <- b:
		case <-ctx.Done():
		}
	}

	l.mu.Lock()
	st := l.s.State()
	l.mu.Unlock()
	send(OutMsg{Type: TypeState, State: &st})
	s.log.Printf("session %s connected", id)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			s.log.Printf("session %s closed: %v", id, err)
			return
		}
		var in InMsg
		if err := json.Unmarshal(msg, &in); err != nil {
			send(OutMsg{Type: TypeError, Error: "bad json", Code: "bad_request"})
			continue
		}
		for _, reply := range s.dispatch(ctx, id, l, in) {
			send(reply)
		}
	}
}

// dispatch 在会话锁内处理一条消息。除 pointer move 之外，每条消息都以一份最新状态结束。
func (s *Server) dispatch(ctx context.Context, id string, l *live, in InMsg) []OutMsg {
	l.mu.Lock()
	defer l.mu.Unlock()
	sess := l.s

	var (
		replies []OutMsg
		picked  string
		err     error
	)
	switch in.Type {
	case TypeForm:
		var form session.Form
		if form, err = session.ParseForm(in.Form); err == nil {
			err = sess.ApplyForm(form)
		}
	case TypeAddLine:
		_, err = sess.AddLine()
	case TypeUpdateLine:
		if in.Value == nil {
			err = fmt.Errorf("update_line 缺少 value")
			break
		}
		err = sess.UpdateLine(in.Line, *in.Value)
	case TypeRemoveLine:
		err = sess.RemoveLine(in.Line)
	case TypePointer:
		switch in.Phase {
		case PhaseDown:
			picked, err = sess.PointerDown(in.X, in.Y, in.Width, in.Height)
		case PhaseMove:
			err = sess.PointerMove(in.X, in.Y, in.Width, in.Height)
		case PhaseUp:
			sess.PointerUp()
		case PhaseLeave:
			sess.PointerLeave()
		default:
			err = fmt.Errorf("unknown pointer phase %q", in.Phase)
		}
	case TypeOrbit:
		sess.Orbit(in.DAzimuth, in.DElevation)
	case TypeReset:
		err = sess.Reset()
	case TypeExport:
		var doc *export.Document
		if doc, err = sess.Export(); err == nil {
			replies = append(replies, OutMsg{Type: TypeExported, Export: &ExportInfo{
				Name:      doc.Name,
				MIMEType:  doc.MIMEType,
				Triangles: doc.Triangles,
				Bytes:     len(doc.Data),
				URL:       "/v1/sessions/" + id + "/export",
			}})
		}
	case TypeSave:
		var name string
		if name, err = s.save(ctx, sess, in.Name); err == nil {
			replies = append(replies, OutMsg{Type: TypeSaved, Name: name})
		}
	default:
		err = fmt.Errorf("unknown message type %q", in.Type)
	}

	if err != nil {
		replies = append(replies, OutMsg{Type: TypeError, Error: err.Error(), Code: errorCode(err)})
	}
	st := sess.State()
	replies = append(replies, OutMsg{Type: TypeState, State: &st, Picked: picked})
	return replies
}

// save 保存当前设计；场景可导出时一并保存导出文件。
func (s *Server) save(ctx context.Context, sess *session.Session, name string) (string, error) {
	if s.store == nil {
		return "", fmt.Errorf("design store disabled")
	}
	d := sess.Design()
	if name != "" {
		d.Name = name
	}
	if d.Name == "" {
		return "", fmt.Errorf("design name required")
	}
	if err := s.store.Save(ctx, d.Name, d); err != nil {
		return "", err
	}
	doc, err := sess.Export()
	if errors.Is(err, export.ErrNothingToExport) {
		return d.Name, nil
	}
	if err != nil {
		return "", err
	}
	return d.Name, s.store.SaveExport(ctx, d.Name, doc)
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, export.ErrNothingToExport):
		return "nothing_to_export"
	case errors.Is(err, session.ErrUnknownLine):
		return "unknown_line"
	case errors.Is(err, config.ErrInvalidBoard), errors.Is(err, config.ErrInvalidLine):
		return "invalid_config"
	default:
		return "bad_request"
	}
}
