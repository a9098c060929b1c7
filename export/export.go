// Package export 把场景中当前可见的板面、徽标与文字合并为一个网格并输出二进制 STL。
package export

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/scene"
	"github.com/ByLCY/signboard/stl"
)

const (
	FileName = "signboard_design.stl"
	MIMEType = "application/octet-stream"
)

// ErrNothingToExport 表示场景缺少板面、徽标或文字，不会产生任何输出。
var ErrNothingToExport = errors.New("export: nothing to export")

// Document 是一次导出的结果。
type Document struct {
	Name      string
	MIMEType  string
	Data      []byte
	Triangles int
}

// Serializer 从注册表生成导出文件。
type Serializer struct {
	FileName string
	Header   string
}

// Combine 深拷贝板面、徽标（保持显示时的位置与缩放）以及全部文字（含拖拽偏移），
// 合并为世界坐标下的一个网格。
func (s Serializer) Combine(reg *scene.Registry) (*geom.Mesh, error) {
	if reg == nil {
		return nil, ErrNothingToExport
	}
	if _, ok := reg.Get(scene.PlateID); !ok {
		return nil, fmt.Errorf("%w: 缺少板面", ErrNothingToExport)
	}
	if _, ok := reg.Get(scene.EmblemID); !ok {
		return nil, fmt.Errorf("%w: 缺少徽标", ErrNothingToExport)
	}
	if reg.TextCount() == 0 {
		return nil, fmt.Errorf("%w: 没有文字", ErrNothingToExport)
	}
	out := &geom.Mesh{}
	for _, e := range reg.All() {
		out.Append(e.WorldMesh())
	}
	return out, nil
}

// Export 生成二进制 STL；前置条件不满足时返回 ErrNothingToExport，且不产生部分输出。
func (s Serializer) Export(reg *scene.Registry) (*Document, error) {
	mesh, err := s.Combine(reg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := stl.Encode(&buf, mesh, s.Header); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	name := s.FileName
	if name == "" {
		name = FileName
	}
	return &Document{
		Name:      name,
		MIMEType:  MIMEType,
		Data:      buf.Bytes(),
		Triangles: mesh.TriangleCount(),
	}, nil
}
