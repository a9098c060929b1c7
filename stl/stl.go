// Package stl 读写 STL 三角网格文件。写出只支持二进制格式；读取同时支持二进制与 ASCII。
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/geom"
)

const (
	headerSize   = 80
	triangleSize = 50
)

// ErrTruncated 表示二进制 STL 的三角形数量与实际数据长度不符。
var ErrTruncated = errors.New("stl: truncated binary data")

// Encode 把网格写成二进制 STL。header 超过 80 字节会被截断，不足补零。
// 每个面写出独立的三个顶点与面法线，属性字段固定为 0。
func Encode(w io.Writer, m *geom.Mesh, header string) error {
	bw := bufio.NewWriter(w)
	var head [headerSize]byte
	copy(head[:], header)
	if _, err := bw.Write(head[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(m.TriangleCount())); err != nil {
		return err
	}
	var rec [triangleSize]byte
	for _, tri := range m.Triangles {
		n := tri.Normal()
		putVec(rec[0:12], n)
		putVec(rec[12:24], tri[0])
		putVec(rec[24:36], tri[1])
		putVec(rec[36:48], tri[2])
		rec[48], rec[49] = 0, 0
		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Marshal 是 Encode 的便捷形式。
func Marshal(m *geom.Mesh, header string) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(headerSize + 4 + triangleSize*m.TriangleCount())
	if err := Encode(&buf, m, header); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TriangleCount 读取二进制 STL 头部记录的三角形数量。
func TriangleCount(data []byte) (int, error) {
	if len(data) < headerSize+4 {
		return 0, ErrTruncated
	}
	return int(binary.LittleEndian.Uint32(data[headerSize:])), nil
}

// Decode 解析 STL 数据。以 "solid" 开头且长度与二进制布局不符时按 ASCII 解析。
func Decode(data []byte) (*geom.Mesh, error) {
	if isBinary(data) {
		return decodeBinary(data)
	}
	return decodeASCII(data)
}

func isBinary(data []byte) bool {
	if len(data) < headerSize+4 {
		return false
	}
	n := int(binary.LittleEndian.Uint32(data[headerSize:]))
	if len(data) == headerSize+4+n*triangleSize {
		return true
	}
	return !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), []byte("solid"))
}

func decodeBinary(data []byte) (*geom.Mesh, error) {
	n, err := TriangleCount(data)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize+4+n*triangleSize {
		return nil, ErrTruncated
	}
	m := &geom.Mesh{Triangles: make([]geom.Triangle, n)}
	off := headerSize + 4
	for i := 0; i < n; i++ {
		rec := data[off : off+triangleSize]
		m.Triangles[i] = geom.Triangle{getVec(rec[12:24]), getVec(rec[24:36]), getVec(rec[36:48])}
		off += triangleSize
	}
	return m, nil
}

func decodeASCII(data []byte) (*geom.Mesh, error) {
	m := &geom.Mesh{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	var verts []r3.Vec
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "vertex":
			if len(fields) != 4 {
				return nil, fmt.Errorf("stl: line %d: vertex needs 3 coordinates", line)
			}
			var xyz [3]float64
			for i := range xyz {
				f, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return nil, fmt.Errorf("stl: line %d: %w", line, err)
				}
				xyz[i] = f
			}
			verts = append(verts, r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]})
		case "endfacet":
			if len(verts) != 3 {
				return nil, fmt.Errorf("stl: line %d: facet has %d vertices", line, len(verts))
			}
			m.Triangles = append(m.Triangles, geom.Triangle{verts[0], verts[1], verts[2]})
			verts = verts[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("stl: no facets found")
	}
	return m, nil
}

func putVec(b []byte, v r3.Vec) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(v.X)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(v.Y)))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(float32(v.Z)))
}

func getVec(b []byte) r3.Vec {
	return r3.Vec{
		X: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[0:]))),
		Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[4:]))),
		Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(b[8:]))),
	}
}
