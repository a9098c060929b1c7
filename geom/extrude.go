package geom

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Extrude 把平面图形沿 +Z 拉伸 depth，背面位于 z=0，正面位于 z=depth。
// 外轮廓需为逆时针、孔洞为顺时针（Classify 的输出满足这一点）。
func Extrude(shapes []Shape, depth float64) (*Mesh, error) {
	if depth <= 0 {
		return nil, fmt.Errorf("geom: extrude depth must be positive, got %g", depth)
	}
	m := &Mesh{}
	for i, s := range shapes {
		caps, err := Triangulate(s)
		if err != nil {
			return nil, fmt.Errorf("geom: shape %d: %w", i, err)
		}
		for _, t := range caps {
			m.Triangles = append(m.Triangles,
				Triangle{lift(t[0], depth), lift(t[1], depth), lift(t[2], depth)},
				Triangle{lift(t[0], 0), lift(t[2], 0), lift(t[1], 0)},
			)
		}
		walls(m, orient(s.Outer, true), depth)
		for _, h := range s.Holes {
			walls(m, orient(h, false), depth)
		}
	}
	return m, nil
}

// walls 为轮廓的每条边生成两个侧面三角形。沿轮廓前进方向，材料位于左侧，法线指向右侧。
func walls(m *Mesh, c Contour, depth float64) {
	c = c.Clean()
	for i := range c {
		p, q := c[i], c[(i+1)%len(c)]
		p0, q0 := lift(p, 0), lift(q, 0)
		p1, q1 := lift(p, depth), lift(q, depth)
		m.Triangles = append(m.Triangles,
			Triangle{p0, q0, q1},
			Triangle{p0, q1, p1},
		)
	}
}

func orient(c Contour, ccw bool) Contour {
	if (c.SignedArea() > 0) != ccw {
		return c.Reversed()
	}
	return c
}

func lift(p r2.Vec, z float64) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: z}
}
