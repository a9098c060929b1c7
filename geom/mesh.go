// Package geom 提供招牌场景使用的三角网格、包围盒、拉伸与射线求交等几何基础。
//
// 所有坐标都以世界单位表示，网格以“三角形汤”形式保存：每个面独立持有三个顶点，
// 不做顶点共享，方便直接写出 STL。
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle 的三个顶点从外侧看按逆时针排列。
type Triangle [3]r3.Vec

// Normal 返回单位法向量；退化三角形返回零向量。
func (t Triangle) Normal() r3.Vec {
	n := r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0]))
	l := r3.Norm(n)
	if l == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/l, n)
}

// Transform 仅包含平移与统一缩放，足以覆盖招牌中的全部对象。
type Transform struct {
	Position r3.Vec  `json:"position"`
	Scale    float64 `json:"scale"`
}

// Identity 返回不平移、缩放为 1 的变换。
func Identity() Transform { return Transform{Scale: 1} }

// At 返回位于 p、缩放为 1 的变换。
func At(p r3.Vec) Transform { return Transform{Position: p, Scale: 1} }

// Apply 把局部坐标点变换到世界坐标。Scale 为 0 时按 1 处理。
func (t Transform) Apply(v r3.Vec) r3.Vec {
	s := t.Scale
	if s == 0 {
		s = 1
	}
	return r3.Add(r3.Scale(s, v), t.Position)
}

// Mesh 是一组独立三角形。
type Mesh struct {
	Triangles []Triangle `json:"-"`
}

// NewMesh 以给定三角形创建网格，切片会被复制。
func NewMesh(tris []Triangle) *Mesh {
	out := make([]Triangle, len(tris))
	copy(out, tris)
	return &Mesh{Triangles: out}
}

// TriangleCount returns the number of faces.
func (m *Mesh) TriangleCount() int {
	if m == nil {
		return 0
	}
	return len(m.Triangles)
}

// IsEmpty reports whether the mesh has no faces.
func (m *Mesh) IsEmpty() bool { return m.TriangleCount() == 0 }

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	if m == nil {
		return &Mesh{}
	}
	return NewMesh(m.Triangles)
}

// Append 把 other 的三角形追加到 m。
func (m *Mesh) Append(other *Mesh) {
	if other == nil {
		return
	}
	m.Triangles = append(m.Triangles, other.Triangles...)
}

// Transformed 返回烘焙了变换的新网格，原网格不变。
func (m *Mesh) Transformed(t Transform) *Mesh {
	out := &Mesh{Triangles: make([]Triangle, m.TriangleCount())}
	for i, tri := range m.Triangles {
		out.Triangles[i] = Triangle{t.Apply(tri[0]), t.Apply(tri[1]), t.Apply(tri[2])}
	}
	return out
}

// Translate 原地平移所有顶点。
func (m *Mesh) Translate(d r3.Vec) {
	for i := range m.Triangles {
		for j := range m.Triangles[i] {
			m.Triangles[i][j] = r3.Add(m.Triangles[i][j], d)
		}
	}
}

// Bounds 返回网格的轴对齐包围盒；空网格返回 EmptyBox。
func (m *Mesh) Bounds() r3.Box {
	b := EmptyBox()
	if m == nil {
		return b
	}
	for _, tri := range m.Triangles {
		for _, v := range tri {
			b = ExpandBox(b, v)
		}
	}
	return b
}

// EmptyBox 返回 Min=+Inf、Max=-Inf 的包围盒，任何点都可以扩展它。
func EmptyBox() r3.Box {
	inf := math.Inf(1)
	return r3.Box{
		Min: r3.Vec{X: inf, Y: inf, Z: inf},
		Max: r3.Vec{X: -inf, Y: -inf, Z: -inf},
	}
}

// BoxEmpty reports whether b contains no point.
func BoxEmpty(b r3.Box) bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// ExpandBox 返回同时包含 b 与 v 的包围盒。
func ExpandBox(b r3.Box, v r3.Vec) r3.Box {
	b.Min = r3.Vec{X: math.Min(b.Min.X, v.X), Y: math.Min(b.Min.Y, v.Y), Z: math.Min(b.Min.Z, v.Z)}
	b.Max = r3.Vec{X: math.Max(b.Max.X, v.X), Y: math.Max(b.Max.Y, v.Y), Z: math.Max(b.Max.Z, v.Z)}
	return b
}

// UnionBox 返回包含 a 与 b 的包围盒。
func UnionBox(a, b r3.Box) r3.Box {
	if BoxEmpty(b) {
		return a
	}
	return ExpandBox(ExpandBox(a, b.Min), b.Max)
}

// BoxCenter returns the midpoint of b.
func BoxCenter(b r3.Box) r3.Vec {
	return r3.Scale(0.5, r3.Add(b.Min, b.Max))
}

// BoxSize returns Max-Min.
func BoxSize(b r3.Box) r3.Vec {
	return r3.Sub(b.Max, b.Min)
}

// TransformBox 对包围盒的两个角应用变换（仅平移与正缩放，因此结果仍是轴对齐的）。
func TransformBox(b r3.Box, t Transform) r3.Box {
	if BoxEmpty(b) {
		return b
	}
	return ExpandBox(ExpandBox(EmptyBox(), t.Apply(b.Min)), t.Apply(b.Max))
}
