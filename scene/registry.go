// Package scene 保存场景中每个逻辑对象（板面、徽标、各行文字）的实体与当前变换。
// 布局重算与拖拽都只通过 Registry 修改场景；渲染与导出只读取它。
//
// Registry 不加锁，只能由单个事件循环使用。
package scene

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/geom"
)

const (
	PlateID  = "plate"
	EmblemID = "emblem"

	textPrefix = "text-line-"
)

// ErrUnknownEntry 表示 id 不在场景中。
var ErrUnknownEntry = errors.New("scene: unknown entry")

// TextID returns the registry id of the 1-based line index.
func TextID(line int) string {
	return textPrefix + strconv.Itoa(line)
}

// TextLine parses a text id back to its 1-based line index.
func TextLine(id string) (int, bool) {
	if !strings.HasPrefix(id, textPrefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, textPrefix))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Kind 区分实体类型。
type Kind int

const (
	KindPlate Kind = iota
	KindEmblem
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindPlate:
		return "plate"
	case KindEmblem:
		return "emblem"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// MarshalText lets Kind appear as a string in JSON.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Part 是组合实体（徽标）的一个子网格，ID 在整个场景内唯一。
type Part struct {
	ID   string
	Mesh *geom.Mesh
}

// Solid 是一旦构建就不再修改的几何与材质。Mesh 与 Parts 二选一：徽标使用 Parts。
type Solid struct {
	Kind  Kind
	Mesh  *geom.Mesh
	Parts []Part
	Color config.Color
}

// Primitives 返回参与拾取的图元；单网格实体返回一个以 owner 为 ID 的图元。
func (s *Solid) Primitives(owner string) []Part {
	if s == nil {
		return nil
	}
	if len(s.Parts) > 0 {
		return s.Parts
	}
	return []Part{{ID: owner, Mesh: s.Mesh}}
}

// LocalMesh 返回局部坐标下的合并网格（副本）。
func (s *Solid) LocalMesh() *geom.Mesh {
	out := &geom.Mesh{}
	if s == nil {
		return out
	}
	out.Append(s.Mesh)
	for _, p := range s.Parts {
		out.Append(p.Mesh)
	}
	return out
}

// TriangleCount returns the number of triangles across the mesh and all parts.
func (s *Solid) TriangleCount() int {
	if s == nil {
		return 0
	}
	n := s.Mesh.TriangleCount()
	for _, p := range s.Parts {
		n += p.Mesh.TriangleCount()
	}
	return n
}

// Entry 是注册表中的一项：实体、变换以及是否被拖拽覆盖过位置。
type Entry struct {
	ID        string         `json:"id"`
	Kind      Kind           `json:"kind"`
	Solid     *Solid         `json:"-"`
	Transform geom.Transform `json:"transform"`
	Dragged   bool           `json:"dragged"`
}

// WorldMesh 返回应用变换后的网格深拷贝。
func (e Entry) WorldMesh() *geom.Mesh {
	return e.Solid.LocalMesh().Transformed(e.Transform)
}

// WorldBounds returns the bounding box of the entry in world space.
func (e Entry) WorldBounds() r3.Box {
	return geom.TransformBox(e.Solid.LocalMesh().Bounds(), e.Transform)
}

// Registry 把逻辑 id 映射到场景实体，并维护图元到所属实体的反向索引。
type Registry struct {
	entries map[string]*Entry
	owners  map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		entries: map[string]*Entry{},
		owners:  map[string]string{},
	}
}

// Upsert 创建或替换 id 对应的实体与变换，拖拽标记随之清除。
func (r *Registry) Upsert(id string, solid *Solid, t geom.Transform) {
	if solid == nil {
		r.Remove(id)
		return
	}
	r.dropOwners(id)
	if t.Scale == 0 {
		t.Scale = 1
	}
	r.entries[id] = &Entry{ID: id, Kind: solid.Kind, Solid: solid, Transform: t}
	for _, p := range solid.Primitives(id) {
		r.owners[p.ID] = id
	}
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id string) (Entry, bool) {
	e, ok := r.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Has reports whether id is present.
func (r *Registry) Has(id string) bool {
	_, ok := r.entries[id]
	return ok
}

// Remove 删除实体及其图元索引；id 不存在时不做任何事。
func (r *Registry) Remove(id string) {
	if _, ok := r.entries[id]; !ok {
		return
	}
	r.dropOwners(id)
	delete(r.entries, id)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.entries = map[string]*Entry{}
	r.owners = map[string]string{}
}

// SetPosition 直接写入位置并标记为拖拽覆盖，不经过布局。
func (r *Registry) SetPosition(id string, pos r3.Vec) error {
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
	}
	e.Transform.Position = pos
	e.Dragged = true
	return nil
}

// Owner 把图元 id 解析为拥有它的实体 id。
func (r *Registry) Owner(primitiveID string) (string, bool) {
	id, ok := r.owners[primitiveID]
	return id, ok
}

// ReconcileText 删除所有不在 keep 中的文字行实体，返回被删除的 id。
// 布局在插入新的文字实体之前调用它，保证不会残留孤立实体。
func (r *Registry) ReconcileText(keep []string) []string {
	want := make(map[string]bool, len(keep))
	for _, id := range keep {
		want[id] = true
	}
	var removed []string
	for id, e := range r.entries {
		if e.Kind == KindText && !want[id] {
			removed = append(removed, id)
		}
	}
	sort.Slice(removed, func(i, j int) bool { return less(removed[i], removed[j]) })
	for _, id := range removed {
		r.Remove(id)
	}
	return removed
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// TextCount returns the number of text entries.
func (r *Registry) TextCount() int {
	n := 0
	for _, e := range r.entries {
		if e.Kind == KindText {
			n++
		}
	}
	return n
}

// All 按 plate、emblem、text-line-1..N 的顺序返回所有实体的副本。
func (r *Registry) All() []Entry {
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].ID, out[j].ID) })
	return out
}

func (r *Registry) dropOwners(id string) {
	for p, owner := range r.owners {
		if owner == id {
			delete(r.owners, p)
		}
	}
}

func rank(id string) (int, int) {
	switch id {
	case PlateID:
		return 0, 0
	case EmblemID:
		return 1, 0
	}
	if n, ok := TextLine(id); ok {
		return 2, n
	}
	return 3, 0
}

func less(a, b string) bool {
	ra, na := rank(a)
	rb, nb := rank(b)
	if ra != rb {
		return ra < rb
	}
	if na != nb {
		return na < nb
	}
	return a < b
}
