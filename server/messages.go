package server

import (
	"encoding/json"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/session"
)

// 客户端 → 服务端消息类型。
const (
	TypeForm       = "form"
	TypeAddLine    = "add_line"
	TypeUpdateLine = "update_line"
	TypeRemoveLine = "remove_line"
	TypePointer    = "pointer"
	TypeOrbit      = "orbit"
	TypeReset      = "reset"
	TypeExport     = "export"
	TypeSave       = "save"
)

// 服务端 → 客户端消息类型。
const (
	TypeState    = "state"
	TypeExported = "exported"
	TypeSaved    = "saved"
	TypeError    = "error"
)

// Pointer phases.
const (
	PhaseDown  = "down"
	PhaseMove  = "move"
	PhaseUp    = "up"
	PhaseLeave = "leave"
)

// InMsg 是客户端发来的一条消息，按 Type 使用其中的字段。
type InMsg struct {
	Type string          `json:"type"`
	Form json.RawMessage `json:"form,omitempty"`
	Line int             `json:"line,omitempty"`

	Value *config.Line `json:"value,omitempty"`

	Phase  string  `json:"phase,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`

	DAzimuth   float64 `json:"dAzimuth,omitempty"`
	DElevation float64 `json:"dElevation,omitempty"`

	Name string `json:"name,omitempty"`
}

// OutMsg 是服务端的回复。
type OutMsg struct {
	Type   string         `json:"type"`
	State  *session.State `json:"state,omitempty"`
	Picked string         `json:"picked,omitempty"`
	Export *ExportInfo    `json:"export,omitempty"`
	Name   string         `json:"name,omitempty"`
	Error  string         `json:"error,omitempty"`
	Code   string         `json:"code,omitempty"`
}

// ExportInfo 告诉客户端到哪里下载导出文件。
type ExportInfo struct {
	Name      string `json:"name"`
	MIMEType  string `json:"mimeType"`
	Triangles int    `json:"triangles"`
	Bytes     int    `json:"bytes"`
	URL       string `json:"url"`
}
