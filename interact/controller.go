package interact

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/scene"
)

// ErrPlaneMiss 表示本帧的拾取射线与约束平面没有交点；拖拽状态保持不变。
var ErrPlaneMiss = errors.New("interact: pick ray misses the drag plane")

// State 是控制器的状态。
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

type dragSession struct {
	target string
	offset r3.Vec
	plane  geom.Plane
}

// Hit 是一次拾取的结果：被命中的图元、它所属的可拖拽实体以及沿射线的距离。
type Hit struct {
	ID        string
	Primitive string
	Distance  float64
}

// Controller 处理指针事件。板面永远不可拖拽；文字按叶子实体命中，
// 徽标的任一部件命中都解析为徽标本身。
type Controller struct {
	reg    *scene.Registry
	camera *Camera
	state  State
	drag   *dragSession
}

func NewController(reg *scene.Registry, camera *Camera) *Controller {
	if camera == nil {
		camera = DefaultCamera()
	}
	return &Controller{reg: reg, camera: camera}
}

// Camera returns the controller's camera.
func (c *Controller) Camera() *Camera { return c.camera }

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Target 返回正在拖拽的实体 id；空闲时为空串。
func (c *Controller) Target() string {
	if c.drag == nil {
		return ""
	}
	return c.drag.target
}

// Pick 返回射线上最近的可拖拽实体。
func (c *Controller) Pick(ray geom.Ray) (Hit, bool) {
	best := Hit{Distance: math.Inf(1)}
	found := false
	for _, e := range c.reg.All() {
		if e.Kind == scene.KindPlate {
			continue
		}
		for _, prim := range e.Solid.Primitives(e.ID) {
			t, ok := ray.NearestHit(prim.Mesh.Transformed(e.Transform))
			if !ok || t >= best.Distance {
				continue
			}
			owner, ok := c.reg.Owner(prim.ID)
			if !ok {
				continue
			}
			best, found = Hit{ID: owner, Primitive: prim.ID, Distance: t}, true
		}
	}
	return best, found
}

// PointerDown 在命中可拖拽实体时进入拖拽状态，返回被选中的实体 id；未命中时返回空串。
// 约束平面的法线为相机视轴，经过实体当前位置。
func (c *Controller) PointerDown(ndc r2.Vec) (string, error) {
	if c.state == Dragging {
		c.PointerUp()
	}
	ray, err := c.camera.Ray(ndc)
	if err != nil {
		return "", err
	}
	hit, ok := c.Pick(ray)
	if !ok {
		return "", nil
	}
	entry, ok := c.reg.Get(hit.ID)
	if !ok {
		return "", fmt.Errorf("%w: %s", scene.ErrUnknownEntry, hit.ID)
	}
	plane := geom.PlaneThrough(c.camera.ViewAxis(), entry.Transform.Position)
	point, ok := ray.IntersectPlane(plane)
	if !ok {
		return "", ErrPlaneMiss
	}
	c.drag = &dragSession{
		target: hit.ID,
		offset: r3.Sub(point, entry.Transform.Position),
		plane:  plane,
	}
	c.state = Dragging
	return hit.ID, nil
}

// PointerMove 在拖拽中把目标移动到 射线∩平面 - 抓取偏移，绕过布局直接写入注册表。
// 空闲时不做任何事。目标在拖拽期间被移除（例如行被删除）时结束拖拽。
func (c *Controller) PointerMove(ndc r2.Vec) error {
	if c.state != Dragging {
		return nil
	}
	ray, err := c.camera.Ray(ndc)
	if err != nil {
		return err
	}
	point, ok := ray.IntersectPlane(c.drag.plane)
	if !ok {
		return ErrPlaneMiss
	}
	if err := c.reg.SetPosition(c.drag.target, r3.Sub(point, c.drag.offset)); err != nil {
		c.PointerUp()
		return err
	}
	return nil
}

// PointerUp 结束拖拽，不改变任何变换。
func (c *Controller) PointerUp() {
	c.state = Idle
	c.drag = nil
}

// PointerLeave 与 PointerUp 相同：指针离开视口时结束拖拽。
func (c *Controller) PointerLeave() {
	c.PointerUp()
}

// Orbit 旋转相机；拖拽期间相机旋转被挂起，返回 false。
func (c *Controller) Orbit(dAzimuth, dElevation float64) bool {
	if c.state == Dragging {
		return false
	}
	c.camera.Orbit(dAzimuth, dElevation)
	return true
}
