package export

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/scene"
	"github.com/ByLCY/signboard/stl"
)

func fullScene() *scene.Registry {
	reg := scene.NewRegistry()
	reg.Upsert(scene.PlateID, &scene.Solid{Kind: scene.KindPlate, Mesh: geom.NewBox(10, 3, 0.2)}, geom.At(r3.Vec{Y: 1.5, Z: -0.5}))
	reg.Upsert(scene.EmblemID, &scene.Solid{Kind: scene.KindEmblem, Parts: []scene.Part{
		{ID: "emblem/part-0", Mesh: geom.NewBox(1, 1, 0.1)},
		{ID: "emblem/part-1", Mesh: geom.NewBox(1.2, 1.2, 0.2)},
	}}, geom.Transform{Position: r3.Vec{X: -4, Y: 0.75}, Scale: 2})
	reg.Upsert(scene.TextID(1), &scene.Solid{Kind: scene.KindText, Mesh: geom.NewBox(3, 1, 0.2)}, geom.At(r3.Vec{Y: 1}))
	return reg
}

func TestExportRequiresAllSolids(t *testing.T) {
	s := Serializer{}
	cases := map[string]func(*scene.Registry){
		"no plate":  func(r *scene.Registry) { r.Remove(scene.PlateID) },
		"no emblem": func(r *scene.Registry) { r.Remove(scene.EmblemID) },
		"no text":   func(r *scene.Registry) { r.Remove(scene.TextID(1)) },
	}
	for name, mutate := range cases {
		reg := fullScene()
		mutate(reg)
		doc, err := s.Export(reg)
		if !errors.Is(err, ErrNothingToExport) {
			t.Fatalf("%s: expected ErrNothingToExport, got %v", name, err)
		}
		if doc != nil {
			t.Fatalf("%s: partial document produced", name)
		}
	}
	if _, err := s.Export(nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("nil registry: %v", err)
	}
}

func TestExportProducesBinarySTL(t *testing.T) {
	reg := fullScene()
	doc, err := Serializer{Header: "signboard"}.Export(reg)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.Name != "signboard_design.stl" || doc.MIMEType != "application/octet-stream" {
		t.Fatalf("unexpected document naming %q %q", doc.Name, doc.MIMEType)
	}
	want := 0
	for _, e := range reg.All() {
		want += e.Solid.TriangleCount()
	}
	n, err := stl.TriangleCount(doc.Data)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n < want || doc.Triangles != n {
		t.Fatalf("triangle count %d (doc %d), want >= %d", n, doc.Triangles, want)
	}
	if len(doc.Data) != 84+50*n {
		t.Fatalf("unexpected size %d", len(doc.Data))
	}
}

func TestExportKeepsDisplayedTransforms(t *testing.T) {
	reg := fullScene()
	if err := reg.SetPosition(scene.TextID(1), r3.Vec{X: 7, Y: 2}); err != nil {
		t.Fatalf("drag: %v", err)
	}
	doc, err := Serializer{}.Export(reg)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	mesh, err := stl.Decode(doc.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	b := mesh.Bounds()
	// 拖拽后的文字右边缘位于 7+1.5；放大两倍的徽标左边缘位于 -4-1.2
	if b.Max.X < 8.5-1e-4 || b.Min.X > -5.2+1e-4 {
		t.Fatalf("exported bounds ignore transforms: %+v", b)
	}

	// 导出是深拷贝：场景中的网格不受影响
	e, _ := reg.Get(scene.TextID(1))
	if got := e.Solid.Mesh.Bounds().Max.X; got != 1.5 {
		t.Fatalf("source mesh mutated: %g", got)
	}
}
