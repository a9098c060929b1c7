package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/export"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "signboard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	d := config.NewDesign("bakery")
	d.Meta.Title = "Corner Bakery"
	d.Lines = []config.Line{{Text: "Fresh", Size: 1.2, Color: config.Color{R: 10}}}
	d.Emblem.Position = &r3.Vec{X: -3, Y: 1}
	require.NoError(t, s.Save(ctx, "bakery", d))

	rec, err := s.Load(ctx, "bakery")
	require.NoError(t, err)
	assert.Equal(t, d.Lines, rec.Design.Lines)
	assert.Equal(t, d.Board, rec.Design.Board)
	require.NotNil(t, rec.Design.Emblem.Position)
	assert.Equal(t, -3.0, rec.Design.Emblem.Position.X)
	assert.Nil(t, rec.Export)

	_, err = s.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveExportCompresses(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "a", config.NewDesign("a")))

	data := bytes.Repeat([]byte{1, 2, 3, 4, 0, 0, 0, 0}, 4096)
	doc := &export.Document{Name: export.FileName, Data: data, Triangles: 12}
	require.NoError(t, s.SaveExport(ctx, "a", doc))

	rec, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, data, rec.Export)
	assert.Equal(t, export.FileName, rec.ExportName)
	assert.Equal(t, 12, rec.Triangles)

	var stored int
	require.NoError(t, s.db.QueryRow(`SELECT length(export_zst) FROM designs WHERE name='a'`).Scan(&stored))
	assert.Less(t, stored, len(data))

	assert.ErrorIs(t, s.SaveExport(ctx, "nope", doc), ErrNotFound)
}

func TestListAndDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	for _, name := range []string{"one", "two"} {
		require.NoError(t, s.Save(ctx, name, config.NewDesign(name)))
	}
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	require.NoError(t, s.Delete(ctx, "one"))
	assert.ErrorIs(t, s.Delete(ctx, "one"), ErrNotFound)
	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "two", list[0].Name)
	assert.False(t, list[0].HasExport)
}
