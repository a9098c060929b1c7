// Package config 定义招牌的结构化描述：板面、文字行、字体与徽标来源。
// 这些值由表单快照或描述文件构建，按值传入布局引擎；布局引擎从不直接读取界面。
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Color 采用 0-255 的 RGB 数值。
type Color struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// Hex returns the color as #RRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", clamp8(c.R), clamp8(c.G), clamp8(c.B))
}

// Black 是新增文字行的默认颜色。
var Black = Color{}

// Board 对应板面：宽、高（世界单位）与底色。
type Board struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  Color   `json:"color"`
}

// Line 是一行文字的配置。行的先后顺序决定自上而下的堆叠顺序。
type Line struct {
	Text  string  `json:"text"`
	Font  string  `json:"font"`
	Color Color   `json:"color"`
	Size  float64 `json:"size"`
}

// NewLine 返回新增行的默认值：空文字、字号 1、黑色、默认字体。
func NewLine() Line {
	return Line{Size: 1, Color: Black}
}

// Blank reports whether the line has no visible text. Blank lines keep their slot in the stack.
func (l Line) Blank() bool {
	return strings.TrimSpace(l.Text) == ""
}

// FontResource 描述字体资源。src 可以是文件路径或 builtin:<name>。
type FontResource struct {
	Name string `json:"name"`
	Src  string `json:"src"`
}

// EmblemSource 描述徽标资源与可选的摆放覆盖。
// Src 为 builtin:<name> 或 STL 文件；Parts 为组成同一徽标的多个 STL 部件。
type EmblemSource struct {
	Src      string   `json:"src,omitempty"`
	Parts    []string `json:"parts,omitempty"`
	Position *r3.Vec  `json:"position,omitempty"`
}

// Empty reports whether no emblem asset is configured.
func (e EmblemSource) Empty() bool {
	return e.Src == "" && len(e.Parts) == 0
}

// Meta 保存描述文件的元信息，写入导出文件头。
type Meta struct {
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// Design 是一块招牌的完整描述。
// DefaultFont 是未指定字体或字体未知时使用的字体资源名；为空时使用内置默认字体。
type Design struct {
	Name        string                  `json:"name"`
	Meta        Meta                    `json:"meta"`
	Board       Board                   `json:"board"`
	Lines       []Line                  `json:"lines"`
	Fonts       map[string]FontResource `json:"fonts,omitempty"`
	DefaultFont string                  `json:"defaultFont,omitempty"`
	Emblem      EmblemSource            `json:"emblem"`
}

// DefaultBoard 是新会话的板面。
func DefaultBoard() Board {
	return Board{Width: 10, Height: 3, Color: Color{R: 255, G: 255, B: 255}}
}

// NewDesign 返回一块带默认板面、一行空文字与内置徽标的招牌。
func NewDesign(name string) Design {
	return Design{
		Name:   name,
		Board:  DefaultBoard(),
		Lines:  []Line{NewLine()},
		Fonts:  map[string]FontResource{},
		Emblem: EmblemSource{Src: "builtin:badge"},
	}
}

var (
	// ErrInvalidBoard 表示板面尺寸不是正数。
	ErrInvalidBoard = errors.New("config: board width and height must be positive")
	// ErrInvalidLine 表示文字行字号不是正数。
	ErrInvalidLine = errors.New("config: line size must be positive")
	// ErrUnknownFont 表示默认字体没有在资源中声明。
	ErrUnknownFont = errors.New("config: default font not declared")
)

// Validate 检查板面尺寸与各行字号。空白行允许字号为 0，此时它只占用间距。
func (d Design) Validate() error {
	if err := d.Board.Validate(); err != nil {
		return err
	}
	if d.DefaultFont != "" {
		if _, ok := d.Fonts[d.DefaultFont]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFont, d.DefaultFont)
		}
	}
	for i, l := range d.Lines {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	return nil
}

// Validate checks that width and height are finite and positive.
func (b Board) Validate() error {
	if !(b.Width > 0) || !(b.Height > 0) || math.IsInf(b.Width, 0) || math.IsInf(b.Height, 0) {
		return fmt.Errorf("%w: %gx%g", ErrInvalidBoard, b.Width, b.Height)
	}
	return nil
}

// Validate checks that the line size is finite and positive; blank lines may have size 0.
func (l Line) Validate() error {
	if l.Size < 0 || (l.Size == 0 && !l.Blank()) || math.IsNaN(l.Size) || math.IsInf(l.Size, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidLine, l.Size)
	}
	return nil
}

// Clone returns a copy that shares no slices or maps with d.
func (d Design) Clone() Design {
	out := d
	out.Lines = append([]Line(nil), d.Lines...)
	out.Fonts = make(map[string]FontResource, len(d.Fonts))
	for k, v := range d.Fonts {
		out.Fonts[k] = v
	}
	out.Emblem.Parts = append([]string(nil), d.Emblem.Parts...)
	if d.Emblem.Position != nil {
		p := *d.Emblem.Position
		out.Emblem.Position = &p
	}
	return out
}

func clamp8(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
