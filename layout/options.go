package layout

import "github.com/ByLCY/signboard/geom"

// Options 配置布局阶段所需的依赖，例如文字网格后端。
type Options struct {
	Mesher    TextMesher
	TextDepth float64 // <=0 时使用 TextDepth
}

// TextMesher 负责把一行文字生成可拉伸的实体网格。
// 网格的基线位于 y=0，厚度沿 +Z，从 z=0 到 z=depth。
type TextMesher interface {
	Mesh(fontID, text string, size, depth float64) (*geom.Mesh, error)
}
