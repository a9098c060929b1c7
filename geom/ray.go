package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const rayEpsilon = 1e-9

// Ray 是从 Origin 出发、方向为 Dir（单位向量）的半直线。
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec
}

// NewRay 归一化方向后返回射线。
func NewRay(origin, dir r3.Vec) Ray {
	return Ray{Origin: origin, Dir: r3.Unit(dir)}
}

// At returns Origin + t*Dir.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// Plane 满足 Normal·p + Offset = 0。
type Plane struct {
	Normal r3.Vec
	Offset float64
}

// PlaneThrough 返回法线为 normal 且经过 point 的平面。
func PlaneThrough(normal, point r3.Vec) Plane {
	n := r3.Unit(normal)
	return Plane{Normal: n, Offset: -r3.Dot(n, point)}
}

// Distance returns the signed distance from p to the plane.
func (p Plane) Distance(v r3.Vec) float64 {
	return r3.Dot(p.Normal, v) + p.Offset
}

// IntersectPlane 返回射线与平面的交点。射线与平面平行或交点在射线起点之后时返回 false。
func (r Ray) IntersectPlane(p Plane) (r3.Vec, bool) {
	denom := r3.Dot(p.Normal, r.Dir)
	if math.Abs(denom) < rayEpsilon {
		if math.Abs(p.Distance(r.Origin)) < rayEpsilon {
			return r.Origin, true
		}
		return r3.Vec{}, false
	}
	t := -p.Distance(r.Origin) / denom
	if t < 0 {
		return r3.Vec{}, false
	}
	return r.At(t), true
}

// IntersectTriangle 使用 Möller–Trumbore 算法求交，双面检测，返回沿射线的距离。
func (r Ray) IntersectTriangle(tri Triangle) (float64, bool) {
	e1 := r3.Sub(tri[1], tri[0])
	e2 := r3.Sub(tri[2], tri[0])
	p := r3.Cross(r.Dir, e2)
	det := r3.Dot(e1, p)
	if math.Abs(det) < rayEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := r3.Sub(r.Origin, tri[0])
	u := r3.Dot(s, p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := r3.Cross(s, e1)
	v := r3.Dot(r.Dir, q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := r3.Dot(e2, q) * inv
	if t < rayEpsilon {
		return 0, false
	}
	return t, true
}

// IntersectBox 使用 slab 方法判断射线是否穿过包围盒，用于三角形求交前的快速剔除。
func (r Ray) IntersectBox(b r3.Box) bool {
	if BoxEmpty(b) {
		return false
	}
	tmin, tmax := math.Inf(-1), math.Inf(1)
	axes := [3][2]float64{
		{r.Origin.X, r.Dir.X},
		{r.Origin.Y, r.Dir.Y},
		{r.Origin.Z, r.Dir.Z},
	}
	mins := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	maxs := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	for i, a := range axes {
		o, d := a[0], a[1]
		if math.Abs(d) < rayEpsilon {
			if o < mins[i] || o > maxs[i] {
				return false
			}
			continue
		}
		t1 := (mins[i] - o) / d
		t2 := (maxs[i] - o) / d
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return false
		}
	}
	return tmax >= 0
}

// NearestHit 返回射线与网格（已烘焙到世界坐标）最近交点的距离。
func (r Ray) NearestHit(m *Mesh) (float64, bool) {
	if m.IsEmpty() || !r.IntersectBox(m.Bounds()) {
		return 0, false
	}
	best, found := math.Inf(1), false
	for _, tri := range m.Triangles {
		if t, ok := r.IntersectTriangle(tri); ok && t < best {
			best, found = t, true
		}
	}
	return best, found
}
