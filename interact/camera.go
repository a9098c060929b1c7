// Package interact 实现拾取与拖拽：把指针坐标转换为拾取射线，
// 命中可拖拽实体后在约束平面上移动它，并直接写回场景注册表。
package interact

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/settings"
)

// Camera 是围绕 Target 旋转的透视相机。FOV 为垂直视角（度）。
type Camera struct {
	Position r3.Vec
	Target   r3.Vec
	Up       r3.Vec
	FOV      float64
	Aspect   float64
	Near     float64
	Far      float64
}

// DefaultCamera 返回位于 (0,5,20)、看向 (0,3,0)、视角 75° 的相机。
func DefaultCamera() *Camera {
	return &Camera{
		Position: r3.Vec{Y: 5, Z: 20},
		Target:   r3.Vec{Y: 3},
		Up:       r3.Vec{Y: 1},
		FOV:      75,
		Aspect:   1,
		Near:     0.1,
		Far:      1000,
	}
}

// CameraFromSettings 用 settings.Camera 构造相机。
func CameraFromSettings(s settings.Camera) (*Camera, error) {
	if len(s.Position) != 3 || len(s.Target) != 3 {
		return nil, fmt.Errorf("interact: camera position/target need 3 components")
	}
	c := DefaultCamera()
	c.Position = r3.Vec{X: s.Position[0], Y: s.Position[1], Z: s.Position[2]}
	c.Target = r3.Vec{X: s.Target[0], Y: s.Target[1], Z: s.Target[2]}
	if s.FOV > 0 {
		c.FOV = s.FOV
	}
	if s.Near > 0 {
		c.Near = s.Near
	}
	if s.Far > c.Near {
		c.Far = s.Far
	}
	return c, nil
}

// SetViewport 根据视口像素尺寸更新宽高比。
func (c *Camera) SetViewport(width, height float64) {
	if width > 0 && height > 0 {
		c.Aspect = width / height
	}
}

// ViewAxis 返回从目标指向相机的单位向量，即拖拽约束平面的法线。
func (c *Camera) ViewAxis() r3.Vec {
	return r3.Unit(r3.Sub(c.Position, c.Target))
}

// NDC 把像素坐标（原点在左上角）换算为标准化设备坐标，x、y 范围均为 [-1, 1]，y 向上。
func NDC(px, py, width, height float64) r2.Vec {
	return r2.Vec{
		X: px/width*2 - 1,
		Y: -(py/height*2 - 1),
	}
}

// Ray 返回经过标准化设备坐标 ndc 的拾取射线，起点为相机位置。
func (c *Camera) Ray(ndc r2.Vec) (geom.Ray, error) {
	far, err := c.Unproject(r3.Vec{X: ndc.X, Y: ndc.Y, Z: 1})
	if err != nil {
		return geom.Ray{}, err
	}
	return geom.NewRay(c.Position, r3.Sub(far, c.Position)), nil
}

// Unproject 把裁剪空间中的点（z=-1 为近平面，z=1 为远平面）变换回世界坐标。
func (c *Camera) Unproject(ndc r3.Vec) (r3.Vec, error) {
	var vp, inv mat.Dense
	vp.Mul(c.projection(), c.view())
	if err := inv.Inverse(&vp); err != nil {
		return r3.Vec{}, fmt.Errorf("interact: camera matrix not invertible: %w", err)
	}
	var out mat.VecDense
	out.MulVec(&inv, mat.NewVecDense(4, []float64{ndc.X, ndc.Y, ndc.Z, 1}))
	w := out.AtVec(3)
	if w == 0 {
		return r3.Vec{}, fmt.Errorf("interact: degenerate unprojection")
	}
	return r3.Vec{X: out.AtVec(0) / w, Y: out.AtVec(1) / w, Z: out.AtVec(2) / w}, nil
}

// Project 把世界坐标投影到标准化设备坐标，是 Ray 的逆操作。
func (c *Camera) Project(world r3.Vec) r2.Vec {
	var vp mat.Dense
	vp.Mul(c.projection(), c.view())
	var out mat.VecDense
	out.MulVec(&vp, mat.NewVecDense(4, []float64{world.X, world.Y, world.Z, 1}))
	w := out.AtVec(3)
	return r2.Vec{X: out.AtVec(0) / w, Y: out.AtVec(1) / w}
}

// Orbit 绕目标点旋转相机，角度为弧度。仰角限制在 (-π/2, π/2) 之内。
func (c *Camera) Orbit(dAzimuth, dElevation float64) {
	offset := r3.Sub(c.Position, c.Target)
	radius := r3.Norm(offset)
	if radius == 0 {
		return
	}
	azimuth := math.Atan2(offset.X, offset.Z) + dAzimuth
	elevation := math.Asin(offset.Y/radius) + dElevation
	limit := math.Pi/2 - 1e-3
	elevation = math.Max(-limit, math.Min(limit, elevation))
	c.Position = r3.Add(c.Target, r3.Vec{
		X: radius * math.Cos(elevation) * math.Sin(azimuth),
		Y: radius * math.Sin(elevation),
		Z: radius * math.Cos(elevation) * math.Cos(azimuth),
	})
}

func (c *Camera) view() *mat.Dense {
	f := r3.Unit(r3.Sub(c.Target, c.Position))
	s := r3.Unit(r3.Cross(f, c.Up))
	u := r3.Cross(s, f)
	e := c.Position
	return mat.NewDense(4, 4, []float64{
		s.X, s.Y, s.Z, -r3.Dot(s, e),
		u.X, u.Y, u.Z, -r3.Dot(u, e),
		-f.X, -f.Y, -f.Z, r3.Dot(f, e),
		0, 0, 0, 1,
	})
}

func (c *Camera) projection() *mat.Dense {
	fy := 1 / math.Tan(c.FOV*math.Pi/360)
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	n, f := c.Near, c.Far
	return mat.NewDense(4, 4, []float64{
		fy / aspect, 0, 0, 0,
		0, fy, 0, 0,
		0, 0, (f + n) / (n - f), 2 * f * n / (n - f),
		0, 0, -1, 0,
	})
}
