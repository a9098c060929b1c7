package layout

// 该文件定义布局结果，供场景同步、预览渲染与调试 JSON 共用。

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/geom"
)

// 布局常量，单位均为世界单位。
const (
	PlateDepth   = 0.2
	PlateZ       = -0.5
	EmblemZ      = 0.0
	EmblemAnchor = 2.5 // 徽标水平锚点为 -width/EmblemAnchor
	TextZ        = -0.4
	TextDepth    = 0.2
	LineGap      = 0.5
)

// Result 是一次重算的完整输出。除网格外，所有字段都可以直接序列化为调试 JSON。
type Result struct {
	Board       config.Board `json:"board"`
	Plate       PlateSlot    `json:"plate"`
	Emblem      *EmblemSlot  `json:"emblem,omitempty"`
	Lines       []TextSlot   `json:"lines"`
	TotalHeight float64      `json:"totalHeight"`
}

// PlateSlot 是板面：一个 width×height×PlateDepth 的长方体。
type PlateSlot struct {
	Mesh      *geom.Mesh     `json:"-"`
	Transform geom.Transform `json:"transform"`
	Color     config.Color   `json:"color"`
}

// EmblemSlot 只记录徽标的摆放；几何来自资源缓存。
type EmblemSlot struct {
	Transform geom.Transform `json:"transform"`
}

// TextSlot 是一行文字的位置。空白行同样占用一个槽位，但 Mesh 为 nil。
type TextSlot struct {
	Index     int            `json:"index"`
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Font      string         `json:"font"`
	Size      float64        `json:"size"`
	Color     config.Color   `json:"color"`
	Center    float64        `json:"center"`
	Blank     bool           `json:"blank"`
	Mesh      *geom.Mesh     `json:"-"`
	Triangles int            `json:"triangles"`
	Transform geom.Transform `json:"transform"`
}

// Solids returns the non-blank text slots.
func (r *Result) Solids() []TextSlot {
	var out []TextSlot
	for _, l := range r.Lines {
		if !l.Blank {
			out = append(out, l)
		}
	}
	return out
}

// OverrideEmblem 用描述文件中指定的位置替换计算出的徽标锚点。
func (r *Result) OverrideEmblem(pos r3.Vec) {
	if r.Emblem != nil {
		r.Emblem.Transform.Position = pos
	}
}
