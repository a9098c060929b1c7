package scene

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/geom"
)

func textSolid() *Solid {
	return &Solid{Kind: KindText, Mesh: geom.NewBox(1, 1, 0.2)}
}

func emblemSolid() *Solid {
	return &Solid{Kind: KindEmblem, Parts: []Part{
		{ID: "emblem/part-0", Mesh: geom.NewBox(1, 1, 1)},
		{ID: "emblem/part-1", Mesh: geom.NewBox(2, 2, 0.1)},
	}}
}

func ids(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

func TestAllIsOrdered(t *testing.T) {
	r := NewRegistry()
	r.Upsert(TextID(10), textSolid(), geom.Identity())
	r.Upsert(TextID(2), textSolid(), geom.Identity())
	r.Upsert(EmblemID, emblemSolid(), geom.Identity())
	r.Upsert(PlateID, &Solid{Kind: KindPlate, Mesh: geom.NewBox(10, 3, 0.2)}, geom.Identity())

	got := ids(r.All())
	want := []string{"plate", "emblem", "text-line-2", "text-line-10"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order mismatch: got %v, want %v", got, want)
		}
	}
	if r.TextCount() != 2 {
		t.Fatalf("expected 2 text entries, got %d", r.TextCount())
	}
}

func TestOwnerResolvesPartsToRoot(t *testing.T) {
	r := NewRegistry()
	r.Upsert(EmblemID, emblemSolid(), geom.Identity())
	r.Upsert(TextID(1), textSolid(), geom.Identity())

	for _, part := range []string{"emblem/part-0", "emblem/part-1"} {
		if owner, ok := r.Owner(part); !ok || owner != EmblemID {
			t.Fatalf("part %s resolved to %q", part, owner)
		}
	}
	if owner, ok := r.Owner(TextID(1)); !ok || owner != TextID(1) {
		t.Fatalf("text leaf resolved to %q", owner)
	}

	r.Upsert(EmblemID, &Solid{Kind: KindEmblem, Parts: []Part{{ID: "emblem/part-0", Mesh: geom.NewBox(1, 1, 1)}}}, geom.Identity())
	if _, ok := r.Owner("emblem/part-1"); ok {
		t.Fatalf("stale part still resolves after replacement")
	}
	r.Remove(EmblemID)
	if _, ok := r.Owner("emblem/part-0"); ok {
		t.Fatalf("part resolves after removal")
	}
}

func TestSetPositionMarksDragged(t *testing.T) {
	r := NewRegistry()
	r.Upsert(TextID(1), textSolid(), geom.At(r3.Vec{Y: 1}))
	if err := r.SetPosition(TextID(1), r3.Vec{X: 2, Y: 3}); err != nil {
		t.Fatalf("set position: %v", err)
	}
	e, _ := r.Get(TextID(1))
	if !e.Dragged || e.Transform.Position != (r3.Vec{X: 2, Y: 3}) {
		t.Fatalf("unexpected entry %+v", e)
	}

	r.Upsert(TextID(1), textSolid(), geom.At(r3.Vec{Y: 1}))
	e, _ = r.Get(TextID(1))
	if e.Dragged || e.Transform.Position.X != 0 {
		t.Fatalf("upsert should reset drag state, got %+v", e)
	}

	if err := r.SetPosition("nope", r3.Vec{}); !errors.Is(err, ErrUnknownEntry) {
		t.Fatalf("expected ErrUnknownEntry, got %v", err)
	}
}

func TestReconcileTextRemovesStale(t *testing.T) {
	r := NewRegistry()
	r.Upsert(PlateID, &Solid{Kind: KindPlate, Mesh: geom.NewBox(1, 1, 1)}, geom.Identity())
	for i := 1; i <= 4; i++ {
		r.Upsert(TextID(i), textSolid(), geom.Identity())
	}
	removed := r.ReconcileText([]string{TextID(1), TextID(3)})
	if len(removed) != 2 || removed[0] != TextID(2) || removed[1] != TextID(4) {
		t.Fatalf("unexpected removed ids %v", removed)
	}
	if !r.Has(PlateID) || r.Len() != 3 {
		t.Fatalf("reconcile must only touch text entries, have %v", ids(r.All()))
	}
	if _, ok := r.Owner(TextID(2)); ok {
		t.Fatalf("removed text still has an owner entry")
	}
}

func TestWorldMeshIsDeepCopy(t *testing.T) {
	r := NewRegistry()
	solid := textSolid()
	r.Upsert(TextID(1), solid, geom.Transform{Position: r3.Vec{X: 5}, Scale: 2})
	e, _ := r.Get(TextID(1))
	world := e.WorldMesh()
	world.Translate(r3.Vec{X: 100})

	b := solid.Mesh.Bounds()
	if b.Min.X != -0.5 {
		t.Fatalf("source mesh mutated: %+v", b)
	}
	wb := e.WorldBounds()
	if wb.Min.X != 4 || wb.Max.X != 6 {
		t.Fatalf("unexpected world bounds %+v", wb)
	}
}

func TestTextLineParsing(t *testing.T) {
	if n, ok := TextLine("text-line-7"); !ok || n != 7 {
		t.Fatalf("got %d %v", n, ok)
	}
	for _, bad := range []string{"plate", "text-line-0", "text-line-x"} {
		if _, ok := TextLine(bad); ok {
			t.Fatalf("%s should not parse", bad)
		}
	}
}
