package session

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/export"
	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/scene"
	"github.com/ByLCY/signboard/stl"
)

const viewW, viewH = 1200.0, 800.0

func newSession(t *testing.T, lines ...string) *Session {
	t.Helper()
	d := config.NewDesign("test")
	d.Lines = nil
	for _, text := range lines {
		l := config.NewLine()
		l.Text = text
		d.Lines = append(d.Lines, l)
	}
	s, err := New("s1", d, Options{})
	require.NoError(t, err)
	require.NoError(t, s.LoadAssets())
	return s
}

// pixelOf 返回实体包围盒中心在 viewW×viewH 视口中的像素坐标。
func pixelOf(t *testing.T, s *Session, id string) (float64, float64) {
	t.Helper()
	s.Controller().Camera().SetViewport(viewW, viewH)
	e, ok := s.Registry().Get(id)
	require.True(t, ok, id)
	ndc := s.Controller().Camera().Project(geom.BoxCenter(e.WorldBounds()))
	return (ndc.X + 1) / 2 * viewW, (1 - ndc.Y) / 2 * viewH
}

func TestRecomputeBeforeAssetsIsSilent(t *testing.T) {
	s, err := New("s0", config.NewDesign("x"), Options{})
	require.NoError(t, err)
	require.NoError(t, s.Recompute())
	assert.False(t, s.Ready())
	assert.Zero(t, s.Registry().Len())

	_, err = s.Export()
	assert.ErrorIs(t, err, export.ErrNothingToExport)
}

func TestExportGating(t *testing.T) {
	s := newSession(t, "", "   ")
	require.True(t, s.Ready())
	assert.True(t, s.Registry().Has(scene.PlateID))
	assert.True(t, s.Registry().Has(scene.EmblemID))

	_, err := s.Export()
	require.True(t, errors.Is(err, export.ErrNothingToExport))

	require.NoError(t, s.UpdateLine(2, config.Line{Text: "Open", Size: 1}))
	doc, err := s.Export()
	require.NoError(t, err)

	want := 0
	for _, e := range s.Registry().All() {
		want += e.Solid.TriangleCount()
	}
	n, err := stl.TriangleCount(doc.Data)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, want)
	assert.Equal(t, "signboard_design.stl", doc.Name)
}

func TestAddAndRemoveLines(t *testing.T) {
	s := newSession(t, "One", "Two", "Three")
	require.Equal(t, 3, s.Registry().TextCount())

	n, err := s.AddLine()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 3, s.Registry().TextCount(), "新行为空白，不生成实体")

	require.NoError(t, s.RemoveLine(2))
	d := s.Design()
	require.Len(t, d.Lines, 3)
	assert.Equal(t, "Three", d.Lines[1].Text)
	assert.Equal(t, 2, s.Registry().TextCount())
	assert.True(t, s.Registry().Has(scene.TextID(2)))
	assert.False(t, s.Registry().Has(scene.TextID(3)))

	assert.ErrorIs(t, s.RemoveLine(9), ErrUnknownLine)
	assert.ErrorIs(t, s.UpdateLine(0, config.NewLine()), ErrUnknownLine)
}

func TestApplyForm(t *testing.T) {
	s := newSession(t, "Old")
	f, err := ParseForm([]byte(`{
	  "board": {"width": 14, "height": 5, "color": "#336699"},
	  "lines": [{"text": "Fresh", "color": "#fff", "size": 1.4}, {"text": "Bread"}]
	}`))
	require.NoError(t, err)
	require.NoError(t, s.ApplyForm(f))

	d := s.Design()
	assert.Equal(t, 14.0, d.Board.Width)
	assert.Equal(t, config.Color{R: 0x33, G: 0x66, B: 0x99}, d.Board.Color)
	require.Len(t, d.Lines, 2)
	assert.Equal(t, 1.0, d.Lines[1].Size)
	assert.Equal(t, config.Color{R: 255, G: 255, B: 255}, d.Lines[0].Color)

	e, _ := s.Registry().Get(scene.EmblemID)
	assert.InDelta(t, -14/2.5, e.Transform.Position.X, 1e-9)
	assert.Equal(t, 2, s.Registry().TextCount())
}

func TestParseFormRejectsInvalid(t *testing.T) {
	for _, raw := range []string{
		`{"board": {"width": -1, "height": 2}, "lines": []}`,
		`{"board": {"width": 1, "height": 2, "color": "red"}, "lines": []}`,
		`{"board": {"width": 1, "height": 2}, "lines": [{"size": -2}]}`,
		`{"board": {"width": 1, "height": 2}}`,
		`not json`,
	} {
		_, err := ParseForm([]byte(raw))
		assert.Error(t, err, raw)
	}
}

func TestDragThenEditThroughSession(t *testing.T) {
	s := newSession(t, "I", "Other")
	laid, _ := s.Registry().Get(scene.TextID(1))

	px, py := pixelOf(t, s, scene.TextID(1))
	id, err := s.PointerDown(px, py, viewW, viewH)
	require.NoError(t, err)
	require.Equal(t, scene.TextID(1), id)
	assert.False(t, s.Orbit(0.2, 0))

	require.NoError(t, s.PointerMove(px+60, py+20, viewW, viewH))
	s.PointerUp()
	dragged, _ := s.Registry().Get(scene.TextID(1))
	require.True(t, dragged.Dragged)
	assert.NotEqual(t, laid.Transform.Position, dragged.Transform.Position)
	assert.Equal(t, scene.TextID(1), s.State().Entries[2].ID)

	require.NoError(t, s.UpdateLine(2, config.Line{Text: "Edited", Size: 1}))
	after, _ := s.Registry().Get(scene.TextID(1))
	assert.False(t, after.Dragged)
	assert.Equal(t, laid.Transform, after.Transform)
}

func TestDragEmblemPersistsAcrossEdits(t *testing.T) {
	s := newSession(t, "Shop")
	px, py := pixelOf(t, s, scene.EmblemID)
	id, err := s.PointerDown(px, py, viewW, viewH)
	require.NoError(t, err)
	require.Equal(t, scene.EmblemID, id)
	require.NoError(t, s.PointerMove(px-30, py, viewW, viewH))
	s.PointerLeave()
	moved, _ := s.Registry().Get(scene.EmblemID)

	require.NoError(t, s.UpdateLine(1, config.Line{Text: "Shop 2", Size: 1.2}))
	after, _ := s.Registry().Get(scene.EmblemID)
	assert.Equal(t, moved.Transform.Position, after.Transform.Position)

	doc, err := s.Export()
	require.NoError(t, err)
	assert.Greater(t, doc.Triangles, 0)
}

func TestReset(t *testing.T) {
	s := newSession(t, "A", "B")
	require.NoError(t, s.SetBoard(config.Board{Width: 20, Height: 6}))
	require.NoError(t, s.Reset())

	d := s.Design()
	assert.Equal(t, config.DefaultBoard(), d.Board)
	require.Len(t, d.Lines, 1)
	assert.True(t, d.Lines[0].Blank())
	assert.Zero(t, s.Registry().TextCount())
	assert.True(t, s.Registry().Has(scene.PlateID))

	assert.Error(t, s.SetBoard(config.Board{Width: 0, Height: 1}))
}

func TestStateSnapshot(t *testing.T) {
	s := newSession(t, "Hi")
	st := s.State()
	assert.True(t, st.Ready)
	assert.Equal(t, "s1", st.ID)
	require.Len(t, st.Entries, 3)
	assert.Equal(t, "plate", st.Entries[0].Kind)
	assert.Equal(t, "emblem", st.Entries[1].Kind)
	assert.Equal(t, "text", st.Entries[2].Kind)
	assert.Equal(t, 1.0, st.Entries[1].Scale)
	assert.Len(t, st.Form.Lines, 1)
}

func TestPointerEventsTrackViewport(t *testing.T) {
	s := newSession(t, "Shop")
	cam := s.Controller().Camera()
	require.NoError(t, s.PointerMove(10, 10, 800, 400))
	assert.InDelta(t, 2.0, cam.Aspect, 1e-12)

	// 相机宽高比过期时，按下事件仍按本次视口命中徽标
	const w, h = 1000.0, 500.0
	cam.SetViewport(w, h)
	ndc := cam.Project(geom.BoxCenter(mustBounds(t, s, scene.EmblemID)))
	cam.SetViewport(1, 1)
	id, err := s.PointerDown((ndc.X+1)/2*w, (1-ndc.Y)/2*h, w, h)
	require.NoError(t, err)
	assert.Equal(t, scene.EmblemID, id)
}

func mustBounds(t *testing.T, s *Session, id string) r3.Box {
	t.Helper()
	e, ok := s.Registry().Get(id)
	require.True(t, ok, id)
	return e.WorldBounds()
}

func TestDefaultFontFromDesign(t *testing.T) {
	d := config.NewDesign("fonts")
	d.Fonts["Body"] = config.FontResource{Name: "Body", Src: "builtin:sans"}
	d.Fonts["Title"] = config.FontResource{Name: "Title", Src: "builtin:serif"}
	d.DefaultFont = "Title"
	s, err := New("f", d, Options{})
	require.NoError(t, err)
	require.NoError(t, s.LoadAssets())
	assert.Equal(t, "Title", s.cache.DefaultFont())

	d.DefaultFont = "Missing"
	_, err = New("g", d, Options{})
	assert.ErrorIs(t, err, config.ErrUnknownFont)
}

func TestUpdateLineRejectsInfiniteSize(t *testing.T) {
	s := newSession(t, "A")
	err := s.UpdateLine(1, config.Line{Text: "B", Size: math.Inf(1)})
	assert.ErrorIs(t, err, config.ErrInvalidLine)
	assert.Equal(t, "A", s.Design().Lines[0].Text)
}
