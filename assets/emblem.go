package assets

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/scene"
	"github.com/ByLCY/signboard/stl"
)

// Emblem 是由多个部件组成的徽标模型，部件坐标相对于徽标原点。
type Emblem struct {
	Name  string
	Parts []scene.Part
}

// Solid 返回可放入场景的徽标实体，部件与 e 共享且不可修改。
func (e *Emblem) Solid(col config.Color) *scene.Solid {
	if e == nil {
		return nil
	}
	return &scene.Solid{Kind: scene.KindEmblem, Parts: e.Parts, Color: col}
}

// Mesh 把所有部件合并为一个网格。
func (e *Emblem) Mesh() *geom.Mesh {
	out := &geom.Mesh{}
	if e == nil {
		return out
	}
	for _, p := range e.Parts {
		out.Append(p.Mesh)
	}
	return out
}

// TriangleCount returns the sum of all part triangle counts.
func (e *Emblem) TriangleCount() int {
	n := 0
	if e == nil {
		return 0
	}
	for _, p := range e.Parts {
		n += p.Mesh.TriangleCount()
	}
	return n
}

// PartIDs returns the ids of all parts in order.
func (e *Emblem) PartIDs() []string {
	if e == nil {
		return nil
	}
	ids := make([]string, len(e.Parts))
	for i, p := range e.Parts {
		ids[i] = p.ID
	}
	return ids
}

// LoadEmblem 按描述加载徽标。相对路径基于 baseDir 解析。
//
// 支持：
//   - builtin:<name>：内置徽标（见 Builtin）
//   - 单个 STL 文件
//   - 目录：目录下所有 .stl 文件按文件名排序作为部件
//   - parts 列表：每个 STL 文件为一个部件
func LoadEmblem(src config.EmblemSource, baseDir string) (*Emblem, error) {
	if strings.HasPrefix(src.Src, "builtin:") {
		return Builtin(strings.TrimPrefix(src.Src, "builtin:"))
	}
	paths := make([]string, 0, len(src.Parts)+1)
	if src.Src != "" {
		p := resolvePath(baseDir, src.Src)
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("读取徽标 %s 失败: %w", src.Src, err)
		}
		if info.IsDir() {
			matches, err := filepath.Glob(filepath.Join(p, "*.stl"))
			if err != nil {
				return nil, err
			}
			sort.Strings(matches)
			paths = append(paths, matches...)
		} else {
			paths = append(paths, p)
		}
	}
	for _, part := range src.Parts {
		paths = append(paths, resolvePath(baseDir, part))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("徽标未指定来源")
	}

	name := src.Src
	if name == "" {
		name = filepath.Base(paths[0])
	}
	emblem := &Emblem{Name: name}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("读取徽标部件 %s 失败: %w", p, err)
		}
		mesh, err := stl.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("解析徽标部件 %s 失败: %w", p, err)
		}
		emblem.Parts = append(emblem.Parts, scene.Part{ID: partID(len(emblem.Parts)), Mesh: mesh})
	}
	return emblem, nil
}

// Builtin 返回内置徽标。目前只有 badge：一块圆盘加一圈外环。
func Builtin(name string) (*Emblem, error) {
	switch name {
	case "badge":
		disc, err := geom.Extrude([]geom.Shape{{Outer: circle(1, 48)}}, 0.15)
		if err != nil {
			return nil, err
		}
		ring, err := geom.Extrude([]geom.Shape{{
			Outer: circle(1.25, 48),
			Holes: []geom.Contour{circle(1.05, 48).Reversed()},
		}}, 0.3)
		if err != nil {
			return nil, err
		}
		return &Emblem{
			Name: "builtin:badge",
			Parts: []scene.Part{
				{ID: partID(0), Mesh: disc},
				{ID: partID(1), Mesh: ring},
			},
		}, nil
	default:
		return nil, fmt.Errorf("未知的内置徽标 %q（可用：badge）", name)
	}
}

// FromMesh 用单个网格构造徽标，主要供测试与外部加载器使用。
func FromMesh(name string, m *geom.Mesh) *Emblem {
	return &Emblem{Name: name, Parts: []scene.Part{{ID: partID(0), Mesh: m}}}
}

func partID(i int) string {
	return fmt.Sprintf("%s/part-%d", scene.EmblemID, i)
}

func circle(r float64, n int) geom.Contour {
	c := make(geom.Contour, n)
	for i := range c {
		a := 2 * math.Pi * float64(i) / float64(n)
		c[i] = r2.Vec{X: r * math.Cos(a), Y: r * math.Sin(a)}
	}
	return c
}

func resolvePath(baseDir, p string) string {
	if baseDir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
