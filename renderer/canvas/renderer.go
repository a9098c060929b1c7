package canvasrenderer

import (
	"bytes"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/fonts"
	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/layout"
	"github.com/ByLCY/signboard/renderer"
	"github.com/ByLCY/signboard/scene"
)

const (
	defaultScale  = 20.0 // 每个世界单位对应的毫米数
	defaultMargin = 10.0 // mm
	outlineWidth  = 0.2
)

// Renderer draws a front-view proof of the scene via github.com/tdewolff/canvas.
type Renderer struct {
	baseDir string
	scale   float64
	margin  float64

	fontMu         sync.Mutex
	fontFamilies   map[string]*canvas.FontFamily
	fallbackFamily *canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// Options configures the canvas renderer.
type Options struct {
	BaseDir string
	Scale   float64 // mm per world unit
	Margin  float64 // mm
}

// NewRenderer creates a renderer rooted at baseDir for resolving font files.
func NewRenderer(baseDir string) *Renderer { return NewRendererWithOptions(Options{BaseDir: baseDir}) }

// NewRendererWithOptions creates a renderer with explicit page scale and margin.
func NewRendererWithOptions(opts Options) *Renderer {
	r := &Renderer{
		baseDir:      opts.BaseDir,
		scale:        opts.Scale,
		margin:       opts.Margin,
		fontFamilies: map[string]*canvas.FontFamily{},
	}
	if r.scale <= 0 {
		r.scale = defaultScale
	}
	if r.margin < 0 {
		r.margin = 0
	} else if r.margin == 0 {
		r.margin = defaultMargin
	}
	return r
}

// page 把世界坐标（y 轴向上）映射到页面毫米坐标。canvas 默认坐标系同样是左下角为原点。
type page struct {
	origin r3.Vec
	scale  float64
	margin float64
	width  float64
	height float64
}

func (p page) x(wx float64) float64 { return (wx-p.origin.X)*p.scale + p.margin }
func (p page) y(wy float64) float64 { return (wy-p.origin.Y)*p.scale + p.margin }

// Render renders the proof into a PDF byte slice.
func (r *Renderer) Render(proof renderer.Proof) ([]byte, error) {
	if proof.Layout == nil {
		return nil, fmt.Errorf("渲染结果为空")
	}
	bounds := geom.EmptyBox()
	hasPlate := false
	for _, e := range proof.Entries {
		if e.Kind == scene.KindPlate {
			hasPlate = true
		}
		bounds = geom.UnionBox(bounds, e.WorldBounds())
	}
	if !hasPlate {
		return nil, fmt.Errorf("缺少可渲染的板面")
	}
	size := geom.BoxSize(bounds)
	pg := page{
		origin: bounds.Min,
		scale:  r.scale,
		margin: r.margin,
		width:  size.X*r.scale + 2*r.margin,
		height: size.Y*r.scale + 2*r.margin,
	}

	var buf bytes.Buffer
	writer := pdf.New(&buf, pg.width, pg.height, nil)
	r.applyMeta(writer, proof.Meta)

	c := canvas.New(pg.width, pg.height)
	ctx := canvas.NewContext(c)

	lines := map[string]layout.TextSlot{}
	for _, l := range proof.Layout.Lines {
		lines[l.ID] = l
	}
	// 先画板面作为背景，再画徽标与文字。
	for _, kind := range []scene.Kind{scene.KindPlate, scene.KindEmblem, scene.KindText} {
		for _, e := range proof.Entries {
			if e.Kind != kind {
				continue
			}
			var err error
			switch kind {
			case scene.KindPlate:
				r.drawPlate(ctx, pg, e)
			case scene.KindEmblem:
				r.drawSilhouette(ctx, pg, e)
			case scene.KindText:
				slot, ok := lines[e.ID]
				if !ok {
					err = fmt.Errorf("文字实体 %s 不在布局结果中", e.ID)
					break
				}
				err = r.drawText(ctx, pg, e, slot, proof)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	c.RenderTo(writer)

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("写入 PDF 失败: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) applyMeta(writer *pdf.PDF, meta config.Meta) {
	if writer == nil {
		return
	}
	writer.SetInfo(meta.Title, "signboard proof", "", meta.Author, "signboard")
}

func (r *Renderer) drawPlate(ctx *canvas.Context, pg page, e scene.Entry) {
	b := e.WorldBounds()
	size := geom.BoxSize(b)
	ctx.SetFillColor(colorFromConfig(e.Solid.Color))
	ctx.SetStrokeColor(canvas.Hex("#333333"))
	ctx.SetStrokeWidth(outlineWidth)
	ctx.DrawPath(pg.x(b.Min.X), pg.y(b.Min.Y), canvas.Rectangle(size.X*pg.scale, size.Y*pg.scale))
}

// drawSilhouette 把朝向观察者的三角形投影到 XY 平面后填充，得到徽标的正视轮廓。
func (r *Renderer) drawSilhouette(ctx *canvas.Context, pg page, e scene.Entry) {
	ctx.SetFillColor(colorFromConfig(e.Solid.Color))
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.SetStrokeWidth(0)
	p := &canvas.Path{}
	for _, tri := range e.WorldMesh().Triangles {
		if tri.Normal().Z <= 0 {
			continue
		}
		p.MoveTo(pg.x(tri[0].X), pg.y(tri[0].Y))
		p.LineTo(pg.x(tri[1].X), pg.y(tri[1].Y))
		p.LineTo(pg.x(tri[2].X), pg.y(tri[2].Y))
		p.Close()
	}
	if p.Empty() {
		return
	}
	ctx.DrawPath(0, 0, p)
}

// drawText 以实体的原点为基线、包围盒中心为水平中心绘制文字。
// 字号为世界单位，乘以页面比例得到 mm，再换算为 pt 创建字体面。
func (r *Renderer) drawText(ctx *canvas.Context, pg page, e scene.Entry, slot layout.TextSlot, proof renderer.Proof) error {
	scale := e.Transform.Scale
	if scale == 0 {
		scale = 1
	}
	name := slot.Font
	if _, ok := proof.Fonts[name]; !ok {
		name = proof.DefaultFont
	}
	face, err := r.fontFace(name, proof.Fonts, toPt(slot.Size*scale*pg.scale), e.Solid.Color)
	if err != nil {
		return err
	}
	centerX := geom.BoxCenter(e.WorldBounds()).X
	line := canvas.NewTextLine(face, slot.Text, canvas.Center)
	ctx.DrawText(pg.x(centerX), pg.y(e.Transform.Position.Y), line)
	return nil
}

func (r *Renderer) fontFace(name string, res map[string]config.FontResource, size float64, col config.Color) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily(name, res)
	if err != nil {
		return nil, err
	}
	return family.Face(size, colorFromConfig(col), canvas.FontRegular, canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily(name string, res map[string]config.FontResource) (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if family, ok := r.fontFamilies[name]; ok {
		return family, nil
	}
	font, ok := res[name]
	if !ok || name == "" {
		return r.fallback()
	}
	family := canvas.NewFontFamily(font.Name)
	if err := r.loadFontIntoFamily(family, font); err != nil {
		fallback, fbErr := r.fallback()
		if fbErr != nil {
			return nil, err
		}
		r.fontFamilies[name] = fallback
		return fallback, nil
	}
	r.fontFamilies[name] = family
	return family, nil
}

func (r *Renderer) loadFontIntoFamily(family *canvas.FontFamily, font config.FontResource) error {
	data, err := r.loadFontBytes(font)
	if err != nil {
		return err
	}
	return family.LoadFont(data, 0, canvas.FontRegular)
}

func (r *Renderer) loadFontBytes(font config.FontResource) ([]byte, error) {
	if font.Src == "" {
		return nil, fmt.Errorf("字体 %s 缺少 src", font.Name)
	}
	src := font.Src
	if strings.HasPrefix(src, "built-in:") || strings.HasPrefix(src, "builtin:") {
		return fonts.Load(src)
	}
	path := src
	if r.baseDir == "" && !filepath.IsAbs(path) {
		return nil, fmt.Errorf("未指定资源目录时不允许直接使用字体路径：%s（请改用 builtin:）", src)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.baseDir, path)
	}
	return os.ReadFile(path)
}

// fallback 在调用方持有 fontMu 时使用。
func (r *Renderer) fallback() (*canvas.FontFamily, error) {
	if r.fallbackFamily != nil {
		return r.fallbackFamily, nil
	}
	data, err := fonts.Load(fonts.Default)
	if err != nil {
		return nil, err
	}
	family := canvas.NewFontFamily("signboard-fallback")
	if err := family.LoadFont(data, 0, canvas.FontRegular); err != nil {
		return nil, err
	}
	r.fallbackFamily = family
	return family, nil
}

func colorFromConfig(c config.Color) color.Color {
	return canvas.RGBA(float64(c.R)/255.0, float64(c.G)/255.0, float64(c.B)/255.0, 1.0)
}

// toPt 把 mm 换算为 pt。
func toPt(mm float64) float64 { return mm * fonts.MmToPt }
