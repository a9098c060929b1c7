package interact

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/scene"
	"github.com/ByLCY/signboard/settings"
)

// frontCamera 位于 z=20 正对原点。
func frontCamera() *Camera {
	c := DefaultCamera()
	c.Position = r3.Vec{Z: 20}
	c.Target = r3.Vec{}
	return c
}

func vecNear(t *testing.T, want, got r3.Vec) {
	t.Helper()
	if r3.Norm(r3.Sub(want, got)) > 1e-6 {
		t.Fatalf("want %+v, got %+v", want, got)
	}
}

func TestNDC(t *testing.T) {
	assert.Equal(t, r2.Vec{X: -1, Y: 1}, NDC(0, 0, 800, 600))
	assert.Equal(t, r2.Vec{X: 0, Y: 0}, NDC(400, 300, 800, 600))
	assert.Equal(t, r2.Vec{X: 1, Y: -1}, NDC(800, 600, 800, 600))
}

func TestCenterRayLooksAtTarget(t *testing.T) {
	c := DefaultCamera()
	c.SetViewport(1280, 720)
	ray, err := c.Ray(r2.Vec{})
	require.NoError(t, err)
	vecNear(t, c.Position, ray.Origin)
	vecNear(t, r3.Unit(r3.Sub(c.Target, c.Position)), ray.Dir)
}

func TestRayMatchesFieldOfView(t *testing.T) {
	c := frontCamera()
	c.FOV = 90
	ray, err := c.Ray(r2.Vec{Y: 1})
	require.NoError(t, err)
	// 垂直视角 90°：屏幕上边缘的射线与视轴成 45°
	assert.InDelta(t, math.Pi/4, math.Acos(-ray.Dir.Z), 1e-6)
	assert.Greater(t, ray.Dir.Y, 0.0)
}

func TestProjectInvertsRay(t *testing.T) {
	c := DefaultCamera()
	c.SetViewport(800, 600)
	p := r3.Vec{X: -2, Y: 1.5, Z: 0.3}
	ray, err := c.Ray(c.Project(p))
	require.NoError(t, err)
	// p 应位于射线上
	along := r3.Dot(r3.Sub(p, ray.Origin), ray.Dir)
	vecNear(t, p, ray.At(along))
}

func TestCameraFromSettings(t *testing.T) {
	c, err := CameraFromSettings(settings.Default().Camera)
	require.NoError(t, err)
	assert.Equal(t, DefaultCamera().Position, c.Position)
	assert.Equal(t, 75.0, c.FOV)

	_, err = CameraFromSettings(settings.Camera{Position: []float64{1}})
	assert.Error(t, err)
}

func TestOrbitKeepsDistance(t *testing.T) {
	c := DefaultCamera()
	before := r3.Norm(r3.Sub(c.Position, c.Target))
	c.Orbit(0.7, 0.3)
	assert.InDelta(t, before, r3.Norm(r3.Sub(c.Position, c.Target)), 1e-9)
	c.Orbit(0, 10)
	assert.Less(t, c.ViewAxis().Y, 1.0)
}

func newScene() *scene.Registry {
	reg := scene.NewRegistry()
	reg.Upsert(scene.PlateID, &scene.Solid{Kind: scene.KindPlate, Mesh: geom.NewBox(20, 10, 0.2)}, geom.At(r3.Vec{Z: -0.5}))
	return reg
}

func emblemSolid() *scene.Solid {
	return &scene.Solid{Kind: scene.KindEmblem, Parts: []scene.Part{
		{ID: "emblem/part-0", Mesh: geom.NewBox(0.5, 0.5, 0.1)},
		{ID: "emblem/part-1", Mesh: geom.NewBox(3, 3, 0.2)},
	}}
}

func TestPickPrefersNearestAlongRay(t *testing.T) {
	reg := newScene()
	reg.Upsert(scene.EmblemID, emblemSolid(), geom.At(r3.Vec{}))
	reg.Upsert(scene.TextID(1), &scene.Solid{Kind: scene.KindText, Mesh: geom.NewBox(2, 1, 0.2)}, geom.At(r3.Vec{Z: 1}))
	ctl := NewController(reg, frontCamera())

	ray, err := ctl.Camera().Ray(r2.Vec{})
	require.NoError(t, err)
	hit, ok := ctl.Pick(ray)
	require.True(t, ok)
	assert.Equal(t, scene.TextID(1), hit.ID)

	// 文字移到徽标后方后，应命中徽标
	require.NoError(t, reg.SetPosition(scene.TextID(1), r3.Vec{Z: -0.3}))
	hit, ok = ctl.Pick(ray)
	require.True(t, ok)
	assert.Equal(t, scene.EmblemID, hit.ID)
	assert.Equal(t, "emblem/part-1", hit.Primitive)
}

func TestPickResolvesAnyPartToEmblemRoot(t *testing.T) {
	reg := newScene()
	reg.Upsert(scene.EmblemID, emblemSolid(), geom.At(r3.Vec{X: 4}))
	ctl := NewController(reg, frontCamera())

	// 徽标中心处两个部件重叠
	ray := geom.NewRay(r3.Vec{X: 4, Z: 20}, r3.Vec{Z: -1})
	hit, ok := ctl.Pick(ray)
	require.True(t, ok)
	assert.Equal(t, scene.EmblemID, hit.ID)

	ray = geom.NewRay(r3.Vec{X: 5.2, Z: 20}, r3.Vec{Z: -1})
	hit, ok = ctl.Pick(ray)
	require.True(t, ok)
	assert.Equal(t, scene.EmblemID, hit.ID)
	assert.Equal(t, "emblem/part-1", hit.Primitive)
}

func TestPlateIsNeverDraggable(t *testing.T) {
	reg := newScene()
	ctl := NewController(reg, frontCamera())
	id, err := ctl.PointerDown(r2.Vec{})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, Idle, ctl.State())
}

func TestDragMovesAlongViewPlane(t *testing.T) {
	reg := newScene()
	reg.Upsert(scene.TextID(1), &scene.Solid{Kind: scene.KindText, Mesh: geom.NewBox(4, 2, 0.2)}, geom.At(r3.Vec{}))
	cam := frontCamera()
	ctl := NewController(reg, cam)

	down := r2.Vec{X: 0.02, Y: 0.01}
	id, err := ctl.PointerDown(down)
	require.NoError(t, err)
	require.Equal(t, scene.TextID(1), id)
	assert.Equal(t, Dragging, ctl.State())
	assert.Equal(t, scene.TextID(1), ctl.Target())

	plane := geom.PlaneThrough(cam.ViewAxis(), r3.Vec{})
	grabRay, _ := cam.Ray(down)
	grab, _ := grabRay.IntersectPlane(plane)

	move := r2.Vec{X: 0.2, Y: -0.1}
	require.NoError(t, ctl.PointerMove(move))
	moveRay, _ := cam.Ray(move)
	to, _ := moveRay.IntersectPlane(plane)

	e, _ := reg.Get(scene.TextID(1))
	vecNear(t, r3.Sub(to, grab), e.Transform.Position)
	assert.InDelta(t, 0, e.Transform.Position.Z, 1e-9)
	assert.True(t, e.Dragged)

	ctl.PointerUp()
	assert.Equal(t, Idle, ctl.State())
	require.NoError(t, ctl.PointerMove(r2.Vec{X: 0.5}))
	after, _ := reg.Get(scene.TextID(1))
	assert.Equal(t, e.Transform, after.Transform)
}

func TestOrbitSuspendedWhileDragging(t *testing.T) {
	reg := newScene()
	reg.Upsert(scene.TextID(1), &scene.Solid{Kind: scene.KindText, Mesh: geom.NewBox(4, 2, 0.2)}, geom.At(r3.Vec{}))
	ctl := NewController(reg, frontCamera())

	_, err := ctl.PointerDown(r2.Vec{})
	require.NoError(t, err)
	before := ctl.Camera().Position
	assert.False(t, ctl.Orbit(0.5, 0))
	assert.Equal(t, before, ctl.Camera().Position)

	ctl.PointerLeave()
	assert.True(t, ctl.Orbit(0.5, 0))
	assert.NotEqual(t, before, ctl.Camera().Position)
}

func TestPlaneMissIsNoOp(t *testing.T) {
	reg := newScene()
	reg.Upsert(scene.TextID(1), &scene.Solid{Kind: scene.KindText, Mesh: geom.NewBox(4, 2, 0.2)}, geom.At(r3.Vec{}))
	ctl := NewController(reg, frontCamera())
	_, err := ctl.PointerDown(r2.Vec{})
	require.NoError(t, err)

	// 与视线平行的平面
	ctl.drag.plane = geom.PlaneThrough(r3.Vec{X: 1}, r3.Vec{X: 100})
	before, _ := reg.Get(scene.TextID(1))
	err = ctl.PointerMove(r2.Vec{})
	assert.True(t, errors.Is(err, ErrPlaneMiss))
	assert.Equal(t, Dragging, ctl.State())
	after, _ := reg.Get(scene.TextID(1))
	assert.Equal(t, before.Transform, after.Transform)
}

func TestTargetRemovedDuringDrag(t *testing.T) {
	reg := newScene()
	reg.Upsert(scene.TextID(1), &scene.Solid{Kind: scene.KindText, Mesh: geom.NewBox(4, 2, 0.2)}, geom.At(r3.Vec{}))
	ctl := NewController(reg, frontCamera())
	_, err := ctl.PointerDown(r2.Vec{})
	require.NoError(t, err)

	reg.Remove(scene.TextID(1))
	err = ctl.PointerMove(r2.Vec{X: 0.1})
	assert.ErrorIs(t, err, scene.ErrUnknownEntry)
	assert.Equal(t, Idle, ctl.State())
}
