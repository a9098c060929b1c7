package stl

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/ByLCY/signboard/geom"
)

func TestEncodeLayout(t *testing.T) {
	m := geom.NewBox(1, 2, 3)
	data, err := Marshal(m, "signboard")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := 80 + 4 + 50*12; len(data) != want {
		t.Fatalf("expected %d bytes, got %d", want, len(data))
	}
	if !strings.HasPrefix(string(data[:80]), "signboard") {
		t.Fatalf("header not written: %q", data[:16])
	}
	n, err := TriangleCount(data)
	if err != nil || n != 12 {
		t.Fatalf("expected 12 triangles, got %d (%v)", n, err)
	}
	// 第一个面的法线与属性字段
	nz := math.Float32frombits(binary.LittleEndian.Uint32(data[84+8:]))
	if nz != 1 {
		t.Fatalf("expected +Z normal on first face, got %g", nz)
	}
	if attr := binary.LittleEndian.Uint16(data[84+48:]); attr != 0 {
		t.Fatalf("attribute must be zero, got %d", attr)
	}
}

func TestDecodeBinaryRoundTrip(t *testing.T) {
	m := geom.NewBox(2, 2, 2)
	data, err := Marshal(m, "solid but actually binary")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TriangleCount() != 12 {
		t.Fatalf("expected 12 triangles, got %d", got.TriangleCount())
	}
	if b := got.Bounds(); b.Min.X != -1 || b.Max.Z != 1 {
		t.Fatalf("unexpected bounds %+v", b)
	}
}

func TestDecodeTruncated(t *testing.T) {
	data, _ := Marshal(geom.NewBox(1, 1, 1), "")
	if _, err := Decode(data[:len(data)-10]); err == nil {
		t.Fatalf("expected error for truncated data")
	}
}

func TestDecodeASCII(t *testing.T) {
	src := `solid tri
  facet normal 0 0 1
    outer loop
      vertex 0 0 0
      vertex 1 0 0
      vertex 0 1 0
    endloop
  endfacet
endsolid tri
`
	m, err := Decode([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.TriangleCount() != 1 {
		t.Fatalf("expected 1 triangle, got %d", m.TriangleCount())
	}
	if n := m.Triangles[0].Normal(); n.Z != 1 {
		t.Fatalf("unexpected normal %+v", n)
	}
}
