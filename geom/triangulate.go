package geom

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r2"
)

// Contour 是一个闭合多边形轮廓，首尾不重复。
type Contour []r2.Vec

// Shape 是一个外轮廓及其内部的孔洞。
type Shape struct {
	Outer Contour
	Holes []Contour
}

// ErrDegenerate 表示轮廓顶点不足以构成多边形。
var ErrDegenerate = errors.New("geom: degenerate contour")

const areaEpsilon = 1e-12

// SignedArea 返回轮廓的有向面积，逆时针为正。
func (c Contour) SignedArea() float64 {
	var a float64
	for i := range c {
		p, q := c[i], c[(i+1)%len(c)]
		a += p.X*q.Y - q.X*p.Y
	}
	return a / 2
}

// Reversed returns a copy with the opposite winding.
func (c Contour) Reversed() Contour {
	out := make(Contour, len(c))
	for i, p := range c {
		out[len(c)-1-i] = p
	}
	return out
}

// Contains 使用奇偶规则判断点是否在轮廓内部。
func (c Contour) Contains(p r2.Vec) bool {
	inside := false
	for i, j := 0, len(c)-1; i < len(c); j, i = i, i+1 {
		a, b := c[i], c[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// Clean 去掉相邻重复点与共线点。
func (c Contour) Clean() Contour {
	out := make(Contour, 0, len(c))
	for _, p := range c {
		if len(out) > 0 && samePoint(out[len(out)-1], p) {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && samePoint(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	changed := true
	for changed && len(out) >= 3 {
		changed = false
		for i := 0; i < len(out) && len(out) >= 3; i++ {
			prev := out[(i+len(out)-1)%len(out)]
			next := out[(i+1)%len(out)]
			if math.Abs(cross(prev, out[i], next)) < areaEpsilon {
				out = append(out[:i], out[i+1:]...)
				changed = true
				i--
			}
		}
	}
	return out
}

// Classify 按嵌套深度把一组轮廓分成外轮廓与孔洞：偶数深度为外轮廓，奇数深度为其直接父轮廓的孔洞。
// 返回的外轮廓为逆时针，孔洞为顺时针，与字体文件中的原始方向无关。
func Classify(contours []Contour) []Shape {
	var cs []Contour
	for _, c := range contours {
		c = c.Clean()
		if len(c) >= 3 && math.Abs(c.SignedArea()) > areaEpsilon {
			cs = append(cs, c)
		}
	}
	depth := make([]int, len(cs))
	parent := make([]int, len(cs))
	for i := range cs {
		parent[i] = -1
		bestArea := math.Inf(1)
		for j := range cs {
			if i == j || !cs[j].Contains(cs[i][0]) {
				continue
			}
			depth[i]++
			if a := math.Abs(cs[j].SignedArea()); a < bestArea {
				bestArea, parent[i] = a, j
			}
		}
	}

	index := map[int]int{}
	var shapes []Shape
	for i, c := range cs {
		if depth[i]%2 != 0 {
			continue
		}
		if c.SignedArea() < 0 {
			c = c.Reversed()
		}
		index[i] = len(shapes)
		shapes = append(shapes, Shape{Outer: c})
	}
	for i, c := range cs {
		if depth[i]%2 == 0 {
			continue
		}
		si, ok := index[parent[i]]
		if !ok {
			continue
		}
		if c.SignedArea() > 0 {
			c = c.Reversed()
		}
		shapes[si].Holes = append(shapes[si].Holes, c)
	}
	return shapes
}

// Triangulate 对带孔多边形做耳切剖分。孔洞先通过桥接边并入外轮廓，再对得到的简单多边形剖分。
// 输出三角形均为逆时针。
func Triangulate(s Shape) ([][3]r2.Vec, error) {
	outer := s.Outer.Clean()
	if len(outer) < 3 {
		return nil, ErrDegenerate
	}
	if outer.SignedArea() < 0 {
		outer = outer.Reversed()
	}
	poly := outer
	holes := make([]Contour, 0, len(s.Holes))
	for _, h := range s.Holes {
		h = h.Clean()
		if len(h) < 3 {
			continue
		}
		if h.SignedArea() > 0 {
			h = h.Reversed()
		}
		holes = append(holes, h)
	}
	sort.SliceStable(holes, func(i, j int) bool {
		return holes[i][maxXIndex(holes[i])].X > holes[j][maxXIndex(holes[j])].X
	})
	for _, h := range holes {
		poly = bridgeHole(poly, h)
	}
	return earClip(poly), nil
}

func bridgeHole(poly, hole Contour) Contour {
	mi := maxXIndex(hole)
	m := hole[mi]

	// 向 +X 方向投射水平射线，找到最近的相交边。
	bestX := math.Inf(1)
	pi := -1
	for i := range poly {
		a, b := poly[i], poly[(i+1)%len(poly)]
		if a.Y == b.Y || m.Y < math.Min(a.Y, b.Y) || m.Y > math.Max(a.Y, b.Y) {
			continue
		}
		x := a.X + (m.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		if x < m.X || x >= bestX {
			continue
		}
		bestX = x
		if a.X > b.X {
			pi = i
		} else {
			pi = (i + 1) % len(poly)
		}
	}
	if pi < 0 {
		pi = nearestIndex(poly, m)
	} else {
		hit := r2.Vec{X: bestX, Y: m.Y}
		p := poly[pi]
		bestAngle := math.Inf(1)
		degenerate := math.Abs(cross(m, hit, p)) < areaEpsilon
		for i, q := range poly {
			if degenerate || i == pi || samePoint(q, p) || !inTriangle(m, hit, p, q) {
				continue
			}
			d := r2.Vec{X: q.X - m.X, Y: q.Y - m.Y}
			angle := math.Abs(math.Atan2(d.Y, d.X))
			if angle < bestAngle {
				bestAngle, pi = angle, i
			}
		}
	}

	out := make(Contour, 0, len(poly)+len(hole)+2)
	out = append(out, poly[:pi+1]...)
	for k := 0; k <= len(hole); k++ {
		out = append(out, hole[(mi+k)%len(hole)])
	}
	out = append(out, poly[pi])
	out = append(out, poly[pi+1:]...)
	return out
}

func earClip(poly Contour) [][3]r2.Vec {
	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}
	tris := make([][3]r2.Vec, 0, len(poly)-2)
	guard := 0
	for len(idx) > 3 {
		n := len(idx)
		clipped := false
		for i := 0; i < n; i++ {
			a, b, c := poly[idx[(i+n-1)%n]], poly[idx[i]], poly[idx[(i+1)%n]]
			if cross(a, b, c) <= areaEpsilon {
				continue
			}
			if !isEar(poly, idx, a, b, c) {
				continue
			}
			tris = append(tris, [3]r2.Vec{a, b, c})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// 自相交或数值问题导致找不到耳朵：丢弃一个顶点以保证终止。
			guard++
			if guard > len(poly) {
				break
			}
			a, b, c := poly[idx[n-1]], poly[idx[0]], poly[idx[1]]
			if cross(a, b, c) > areaEpsilon {
				tris = append(tris, [3]r2.Vec{a, b, c})
			}
			idx = idx[1:]
		}
	}
	if len(idx) == 3 {
		a, b, c := poly[idx[0]], poly[idx[1]], poly[idx[2]]
		if cross(a, b, c) > areaEpsilon {
			tris = append(tris, [3]r2.Vec{a, b, c})
		}
	}
	return tris
}

func isEar(poly Contour, idx []int, a, b, c r2.Vec) bool {
	for _, j := range idx {
		p := poly[j]
		if samePoint(p, a) || samePoint(p, b) || samePoint(p, c) {
			continue
		}
		if inTriangle(a, b, c, p) {
			return false
		}
	}
	return true
}

func inTriangle(a, b, c, p r2.Vec) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

func cross(o, a, b r2.Vec) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

func samePoint(a, b r2.Vec) bool {
	return math.Abs(a.X-b.X) < 1e-12 && math.Abs(a.Y-b.Y) < 1e-12
}

func maxXIndex(c Contour) int {
	best := 0
	for i, p := range c {
		if p.X > c[best].X {
			best = i
		}
	}
	return best
}

func nearestIndex(c Contour, p r2.Vec) int {
	best, bestD := 0, math.Inf(1)
	for i, q := range c {
		dx, dy := q.X-p.X, q.Y-p.Y
		if d := dx*dx + dy*dy; d < bestD && q.X >= p.X {
			best, bestD = i, d
		}
	}
	return best
}
