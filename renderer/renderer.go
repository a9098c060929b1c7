package renderer

import (
	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/layout"
	"github.com/ByLCY/signboard/scene"
)

// Proof 是一次正视图校样所需的全部输入：布局结果提供文字内容与字体，
// 场景实体提供最终位置（包含拖拽后的覆盖）。
type Proof struct {
	Meta        config.Meta
	Fonts       map[string]config.FontResource
	DefaultFont string
	Layout      *layout.Result
	Entries     []scene.Entry
}

// Renderer 将校样输出为最终文件，例如 PDF。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(p Proof) ([]byte, error)
}
