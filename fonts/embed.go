package fonts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/go-fonts/latin-modern/lmsans10bold"
	"github.com/go-fonts/latin-modern/lmsans10regular"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

// Default 是未指定字体时使用的内置字体名。
const Default = "sans"

// Conversion constants between pt and mm; font faces are sized in pt while the scene works in mm.
const (
	PtToMm = 0.352777
	MmToPt = 1.0 / PtToMm
)

var builtin = map[string][]byte{
	"sans":      lmsans10regular.TTF,
	"sans-bold": lmsans10bold.TTF,
	"serif":     lmroman10regular.TTF,
	"go":        goregular.TTF,
	"go-bold":   gobold.TTF,
}

// Load 返回内置字体的字节数据，name 可写为 "builtin:sans"、"built-in:sans" 或直接 "sans"。
func Load(name string) ([]byte, error) {
	name = strings.TrimPrefix(strings.TrimPrefix(name, "built-in:"), "builtin:")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("未知的内置字体 %s（可用：%s）", name, strings.Join(Names(), ", "))
	}
	return data, nil
}

// Names 返回全部内置字体名，按字母序排列。
func Names() []string {
	out := make([]string, 0, len(builtin))
	for name := range builtin {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
