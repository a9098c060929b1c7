package session

import (
	"github.com/ByLCY/signboard/scene"
)

// State 是会话的可序列化快照，供客户端渲染当前场景。
type State struct {
	ID       string       `json:"id"`
	Ready    bool         `json:"ready"`
	Dragging string       `json:"dragging,omitempty"`
	Form     Form         `json:"form"`
	Entries  []EntryState `json:"entries"`
}

// EntryState 描述场景中的一个实体。
type EntryState struct {
	ID        string     `json:"id"`
	Kind      string     `json:"kind"`
	Position  [3]float64 `json:"position"`
	Scale     float64    `json:"scale"`
	Dragged   bool       `json:"dragged"`
	Triangles int        `json:"triangles"`
	Color     string     `json:"color"`
}

// State returns a snapshot of the session.
func (s *Session) State() State {
	st := State{
		ID:       s.id,
		Ready:    s.Ready(),
		Dragging: s.ctl.Target(),
		Form:     s.Form(),
	}
	for _, e := range s.reg.All() {
		st.Entries = append(st.Entries, entryState(e))
	}
	return st
}

func entryState(e scene.Entry) EntryState {
	p := e.Transform.Position
	return EntryState{
		ID:        e.ID,
		Kind:      e.Kind.String(),
		Position:  [3]float64{p.X, p.Y, p.Z},
		Scale:     e.Transform.Scale,
		Dragged:   e.Dragged,
		Triangles: e.Solid.TriangleCount(),
		Color:     e.Solid.Color.Hex(),
	}
}
