package geom

import "gonum.org/v1/gonum/spatial/r3"

// NewBox 创建以原点为中心、尺寸为 w×h×d 的长方体，共 12 个三角形，法线朝外。
func NewBox(w, h, d float64) *Mesh {
	x, y, z := w/2, h/2, d/2
	v := func(sx, sy, sz float64) r3.Vec { return r3.Vec{X: sx * x, Y: sy * y, Z: sz * z} }

	// 每个面按从外侧看逆时针的四个角给出。
	faces := [6][4]r3.Vec{
		{v(-1, -1, 1), v(1, -1, 1), v(1, 1, 1), v(-1, 1, 1)},     // +Z
		{v(1, -1, -1), v(-1, -1, -1), v(-1, 1, -1), v(1, 1, -1)}, // -Z
		{v(1, -1, 1), v(1, -1, -1), v(1, 1, -1), v(1, 1, 1)},     // +X
		{v(-1, -1, -1), v(-1, -1, 1), v(-1, 1, 1), v(-1, 1, -1)}, // -X
		{v(-1, 1, 1), v(1, 1, 1), v(1, 1, -1), v(-1, 1, -1)},     // +Y
		{v(-1, -1, -1), v(1, -1, -1), v(1, -1, 1), v(-1, -1, 1)}, // -Y
	}
	m := &Mesh{Triangles: make([]Triangle, 0, 12)}
	for _, f := range faces {
		m.Triangles = append(m.Triangles,
			Triangle{f[0], f[1], f[2]},
			Triangle{f[0], f[2], f[3]},
		)
	}
	return m
}
