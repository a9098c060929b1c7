// Package session 把表单、资源缓存、布局引擎、场景注册表、拾取控制器与导出串联成一次编辑会话。
//
// Session 不加锁：同一时刻只能由一个 goroutine（一个事件循环）驱动。
package session

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ByLCY/signboard/assets"
	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/export"
	"github.com/ByLCY/signboard/fonts"
	"github.com/ByLCY/signboard/interact"
	"github.com/ByLCY/signboard/layout"
	"github.com/ByLCY/signboard/scene"
	"github.com/ByLCY/signboard/settings"
)

// ErrUnknownLine 表示行号超出范围（行号从 1 开始）。
var ErrUnknownLine = errors.New("session: unknown line")

// EmblemColor 是徽标在预览中的颜色；导出文件不含颜色。
var EmblemColor = config.Color{R: 212, G: 175, B: 55}

// Options 配置会话依赖。零值可用：使用默认设置、丢弃日志、创建独立的资源缓存。
type Options struct {
	Logger   *log.Logger
	Settings *settings.Settings
	Cache    *assets.Cache
	BaseDir  string // 解析字体与徽标相对路径的目录
}

type Session struct {
	id      string
	log     *log.Logger
	design  config.Design
	baseDir string

	cache      *assets.Cache
	engine     *layout.Engine
	reg        *scene.Registry
	ctl        *interact.Controller
	serializer export.Serializer
	last       *layout.Result
}

// New 创建会话。资源不会自动加载，需调用 LoadAssets 或 LoadFont/LoadEmblem。
func New(id string, design config.Design, opts Options) (*Session, error) {
	if err := design.Validate(); err != nil {
		return nil, err
	}
	st := settings.Default()
	if opts.Settings != nil {
		st = *opts.Settings
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cache := opts.Cache
	if cache == nil {
		cache = assets.NewCache(st.Geometry.FlattenTolerance)
	}
	engine, err := layout.NewEngine(layout.Options{Mesher: cache, TextDepth: st.Geometry.TextDepth})
	if err != nil {
		return nil, err
	}
	camera, err := interact.CameraFromSettings(st.Camera)
	if err != nil {
		return nil, err
	}
	reg := scene.NewRegistry()
	header := st.Export.Header
	if design.Meta.Title != "" {
		header = strings.TrimSpace(header + " " + design.Meta.Title)
	}
	return &Session{
		id:         id,
		log:        logger,
		design:     design.Clone(),
		baseDir:    opts.BaseDir,
		cache:      cache,
		engine:     engine,
		reg:        reg,
		ctl:        interact.NewController(reg, camera),
		serializer: export.Serializer{FileName: st.Export.FileName, Header: header},
	}, nil
}

func (s *Session) ID() string { return s.id }

// Design returns a copy of the current design.
func (s *Session) Design() config.Design { return s.design.Clone() }

func (s *Session) Registry() *scene.Registry { return s.reg }

func (s *Session) Controller() *interact.Controller { return s.ctl }

// Layout 返回最近一次成功重算的结果；字体未就绪前为 nil。
func (s *Session) Layout() *layout.Result { return s.last }

// Ready reports whether fonts are loaded and the scene has been laid out.
func (s *Session) Ready() bool { return s.last != nil }

// LoadAssets 加载描述中声明的全部字体与徽标。单个资源失败不会阻止其余资源加载。
// 未声明字体时加载内置默认字体。
func (s *Session) LoadAssets() error {
	var errs []error
	names := make([]string, 0, len(s.design.Fonts))
	for name := range s.design.Fonts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		data, err := s.readFont(s.design.Fonts[name].Src)
		if err == nil {
			err = s.cache.LoadFont(name, data)
		}
		if err != nil {
			s.log.Printf("字体 %s 加载失败: %v", name, err)
			errs = append(errs, err)
		}
	}
	if !s.cache.FontReady() {
		if err := s.cache.LoadBuiltinFont(fonts.Default, fonts.Default); err != nil {
			errs = append(errs, err)
		}
	}
	if id := s.design.DefaultFont; id != "" && s.cache.HasFont(id) {
		if err := s.cache.SetDefaultFont(id); err != nil {
			errs = append(errs, err)
		}
	}
	if !s.design.Emblem.Empty() {
		emblem, err := assets.LoadEmblem(s.design.Emblem, s.baseDir)
		if err != nil {
			s.log.Printf("徽标加载失败: %v", err)
			errs = append(errs, err)
		} else {
			s.cache.SetEmblem(emblem)
		}
	}
	if err := s.Recompute(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// LoadFont 注册字体数据并重算布局。
func (s *Session) LoadFont(id string, data []byte) error {
	if err := s.cache.LoadFont(id, data); err != nil {
		return err
	}
	s.log.Printf("字体 %s 已加载", id)
	return s.Recompute()
}

// LoadEmblem 按描述加载徽标并重算布局。
func (s *Session) LoadEmblem(src config.EmblemSource) error {
	emblem, err := assets.LoadEmblem(src, s.baseDir)
	if err != nil {
		return err
	}
	s.design.Emblem = src
	return s.SetEmblem(emblem)
}

// SetEmblem 使用已加载好的徽标并重算布局。
func (s *Session) SetEmblem(e *assets.Emblem) error {
	s.cache.SetEmblem(e)
	if e != nil {
		s.log.Printf("徽标 %s 已加载（%d 个部件）", e.Name, len(e.Parts))
	}
	return s.Recompute()
}

// Recompute 根据当前配置重算并同步场景。字体未就绪时静默返回。
func (s *Session) Recompute() error {
	res, err := s.engine.Recompute(s.design.Board, s.design.Lines, s.cache.EmblemReady(), s.cache.FontReady())
	if errors.Is(err, layout.ErrAssetNotReady) {
		return nil
	}
	if err != nil {
		return err
	}
	if pos := s.design.Emblem.Position; pos != nil {
		res.OverrideEmblem(*pos)
	}
	layout.Apply(res, s.reg, s.cache.Emblem().Solid(EmblemColor))
	s.last = res
	return nil
}

// SetBoard 更新板面并重算。
func (s *Session) SetBoard(b config.Board) error {
	if err := b.Validate(); err != nil {
		return err
	}
	s.design.Board = b
	return s.Recompute()
}

// ApplyForm 用表单快照替换板面与全部文字行。
func (s *Session) ApplyForm(f Form) error {
	board, lines, err := f.Config()
	if err != nil {
		return err
	}
	if len(lines) != len(s.design.Lines) {
		s.ctl.PointerUp()
	}
	s.design.Board = board
	s.design.Lines = lines
	return s.Recompute()
}

// Form returns the current form snapshot.
func (s *Session) Form() Form {
	return FormFromDesign(s.design)
}

// AddLine 追加一行默认文字，返回其行号。
func (s *Session) AddLine() (int, error) {
	s.design.Lines = append(s.design.Lines, config.NewLine())
	return len(s.design.Lines), s.Recompute()
}

// UpdateLine 替换第 n 行（从 1 开始）。
func (s *Session) UpdateLine(n int, l config.Line) error {
	if n < 1 || n > len(s.design.Lines) {
		return fmt.Errorf("%w: %d", ErrUnknownLine, n)
	}
	if err := l.Validate(); err != nil {
		return err
	}
	s.design.Lines[n-1] = l
	return s.Recompute()
}

// RemoveLine 删除第 n 行，之后的行号依次前移。正在进行的拖拽会被结束。
func (s *Session) RemoveLine(n int) error {
	if n < 1 || n > len(s.design.Lines) {
		return fmt.Errorf("%w: %d", ErrUnknownLine, n)
	}
	s.ctl.PointerUp()
	s.design.Lines = append(s.design.Lines[:n-1], s.design.Lines[n:]...)
	return s.Recompute()
}

// Reset 恢复默认板面与一行空文字，清空场景与拖拽状态；已加载的资源保留。
func (s *Session) Reset() error {
	s.ctl.PointerUp()
	s.reg.Clear()
	s.last = nil
	s.design.Board = config.DefaultBoard()
	s.design.Lines = []config.Line{config.NewLine()}
	s.design.Emblem.Position = nil
	return s.Recompute()
}

// PointerDown 处理像素坐标下的按下事件，返回被选中的实体 id。
func (s *Session) PointerDown(px, py, width, height float64) (string, error) {
	s.ctl.Camera().SetViewport(width, height)
	return s.ctl.PointerDown(interact.NDC(px, py, width, height))
}

// PointerMove 处理移动事件，并以本次事件的视口尺寸更新相机宽高比。
// 射线未命中约束平面时本帧不做任何事。
func (s *Session) PointerMove(px, py, width, height float64) error {
	s.ctl.Camera().SetViewport(width, height)
	err := s.ctl.PointerMove(interact.NDC(px, py, width, height))
	if errors.Is(err, interact.ErrPlaneMiss) {
		return nil
	}
	return err
}

func (s *Session) PointerUp() { s.ctl.PointerUp() }

func (s *Session) PointerLeave() { s.ctl.PointerLeave() }

// Orbit 旋转相机；拖拽期间返回 false。
func (s *Session) Orbit(dAzimuth, dElevation float64) bool {
	return s.ctl.Orbit(dAzimuth, dElevation)
}

// Export 导出当前场景。
func (s *Session) Export() (*export.Document, error) {
	doc, err := s.serializer.Export(s.reg)
	if err != nil {
		s.log.Printf("会话 %s 导出失败: %v", s.id, err)
		return nil, err
	}
	s.log.Printf("会话 %s 导出 %s（%d 个三角形）", s.id, doc.Name, doc.Triangles)
	return doc, nil
}

func (s *Session) readFont(src string) ([]byte, error) {
	if strings.HasPrefix(src, "builtin:") || strings.HasPrefix(src, "built-in:") {
		return fonts.Load(src)
	}
	p := src
	if s.baseDir != "" && !filepath.IsAbs(p) {
		p = filepath.Join(s.baseDir, p)
	}
	return os.ReadFile(p)
}
