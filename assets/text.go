package assets

import (
	"fmt"
	"math"
	"strings"

	"github.com/tdewolff/canvas"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/ByLCY/signboard/fonts"
	"github.com/ByLCY/signboard/geom"
)

// outline 返回文字的字形轮廓，基线位于 y=0。
var outline = func(face *canvas.FontFace, text string) (*canvas.Path, error) {
	p, _, err := face.ToPath(text)
	return p, err
}

// Mesh 生成拉伸文字网格：字形轮廓高 size 个世界单位（1 em = size），沿 +Z 拉伸 depth。
// 基线位于 y=0，字形起点位于 x=0。文字按原样排版，连续空格保留；空白文字返回空网格。
// 返回的网格归调用方所有。
func (c *Cache) Mesh(fontID, text string, size, depth float64) (*geom.Mesh, error) {
	if strings.TrimSpace(text) == "" {
		return &geom.Mesh{}, nil
	}
	if !(size > 0) {
		return nil, fmt.Errorf("assets: text size must be positive, got %g", size)
	}
	family, gen, err := c.family(fontID)
	if err != nil {
		return nil, err
	}
	key := meshKey{generation: gen, font: fontID, text: text, size: size, depth: depth}
	if m, ok := c.cached(key); ok {
		return m.Clone(), nil
	}

	face := family.Face(size*fonts.MmToPt, canvas.Black, canvas.FontRegular, canvas.FontNormal)
	path, err := outline(face, text)
	if err != nil {
		return nil, fmt.Errorf("文字 %q 生成轮廓失败: %w", text, err)
	}
	contours := flatten(path, c.tolerance)
	mesh, err := geom.Extrude(geom.Classify(contours), depth)
	if err != nil {
		return nil, fmt.Errorf("文字 %q 生成网格失败: %w", text, err)
	}
	c.store(key, mesh)
	return mesh.Clone(), nil
}

// flatten 用 canvas 把曲线展开为折线（偏差不超过 tolerance），再拆成闭合轮廓。
// 面积过小的轮廓（例如字形中的重复点）被丢弃。
func flatten(p *canvas.Path, tolerance float64) []geom.Contour {
	if p == nil {
		return nil
	}
	var (
		out     []geom.Contour
		current geom.Contour
	)
	flush := func() {
		current = current.Clean()
		if len(current) >= 3 && math.Abs(current.SignedArea()) > 1e-9 {
			out = append(out, current)
		}
		current = nil
	}
	scanner := p.Flatten(tolerance).Scanner()
	for scanner.Scan() {
		end := toVec(scanner.End())
		switch scanner.Cmd() {
		case canvas.MoveToCmd:
			flush()
			current = geom.Contour{end}
		case canvas.LineToCmd:
			current = append(current, end)
		case canvas.CloseCmd:
			flush()
		}
	}
	flush()
	return out
}

func toVec(p canvas.Point) r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}
