package config

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/binding"
	"github.com/ByLCY/signboard/dsl"
)

// FromDocument 把描述文件的语法树转换为 Design。data 用于替换文字中的 ${...} 占位符，可以为 nil。
func FromDocument(doc *dsl.Document, data any) (Design, error) {
	if doc == nil {
		return Design{}, fmt.Errorf("描述文件为空")
	}
	design := NewDesign(doc.Name)
	design.Lines = nil

	colors := map[string]Color{}
	var declared []string
	for _, section := range doc.Sections {
		if section.Resources == nil || section.Resources.Block == nil {
			continue
		}
		for _, stmt := range section.Resources.Block.Statements {
			if a := stmt.Assignment; a != nil && strings.ToLower(a.Key) == "default" {
				design.DefaultFont = valueToString(a.Value)
				continue
			}
			if stmt.Command == nil {
				continue
			}
			switch stmt.Command.Name {
			case "font":
				font := parseFontResource(stmt.Command)
				if font.Name != "" {
					design.Fonts[font.Name] = font
					declared = append(declared, font.Name)
				}
			case "color":
				name, value := parseColorResource(stmt.Command)
				if name == "" || value == "" {
					continue
				}
				c, err := ParseColor(value)
				if err != nil {
					return Design{}, fmt.Errorf("颜色 %s: %w", name, err)
				}
				colors[name] = c
			}
		}
	}

	// 未显式指定 default 时，第一个声明的字体作为默认字体。
	if design.DefaultFont == "" && len(declared) > 0 {
		design.DefaultFont = declared[0]
	}

	for _, section := range doc.Sections {
		switch {
		case section.Meta != nil:
			design.Meta = parseMeta(section.Meta.Block)
		case section.Board != nil:
			board, err := parseBoard(section.Board.Block, colors)
			if err != nil {
				return Design{}, err
			}
			design.Board = board
		case section.Emblem != nil:
			emblem, err := parseEmblem(section.Emblem.Block)
			if err != nil {
				return Design{}, err
			}
			design.Emblem = emblem
		case section.Line != nil:
			line, err := parseLine(section.Line, colors, data)
			if err != nil {
				return Design{}, fmt.Errorf("第 %d 行文字: %w", len(design.Lines)+1, err)
			}
			design.Lines = append(design.Lines, line)
		}
	}

	if err := design.Validate(); err != nil {
		return Design{}, err
	}
	return design, nil
}

func parseMeta(block *dsl.Block) Meta {
	var meta Meta
	for _, stmt := range statements(block) {
		if stmt.Assignment == nil {
			continue
		}
		switch strings.ToLower(stmt.Assignment.Key) {
		case "title":
			meta.Title = valueToString(stmt.Assignment.Value)
		case "author":
			meta.Author = valueToString(stmt.Assignment.Value)
		}
	}
	return meta
}

func parseBoard(block *dsl.Block, colors map[string]Color) (Board, error) {
	board := DefaultBoard()
	for _, stmt := range statements(block) {
		if stmt.Assignment == nil {
			continue
		}
		raw := valueToString(stmt.Assignment.Value)
		switch strings.ToLower(stmt.Assignment.Key) {
		case "width":
			w, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Board{}, fmt.Errorf("板面宽度 %q 无法解析: %w", raw, err)
			}
			board.Width = w
		case "height":
			h, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Board{}, fmt.Errorf("板面高度 %q 无法解析: %w", raw, err)
			}
			board.Height = h
		case "color":
			c, err := resolveColor(raw, colors)
			if err != nil {
				return Board{}, err
			}
			board.Color = c
		}
	}
	return board, nil
}

func parseEmblem(block *dsl.Block) (EmblemSource, error) {
	var src EmblemSource
	for _, stmt := range statements(block) {
		if stmt.Assignment == nil {
			continue
		}
		switch strings.ToLower(stmt.Assignment.Key) {
		case "src":
			src.Src = valueToString(stmt.Assignment.Value)
		case "parts":
			src.Parts = valueToStringSlice(stmt.Assignment.Value)
		case "position":
			vals := valueToStringSlice(stmt.Assignment.Value)
			if len(vals) != 3 {
				return EmblemSource{}, fmt.Errorf("徽标 position 需要 3 个数值，实际 %d 个", len(vals))
			}
			var xyz [3]float64
			for i, v := range vals {
				f, err := strconv.ParseFloat(v, 64)
				if err != nil {
					return EmblemSource{}, fmt.Errorf("徽标 position %q 无法解析: %w", v, err)
				}
				xyz[i] = f
			}
			src.Position = &r3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		}
	}
	return src, nil
}

// parseLine 解析 `line [字体] [size N] [color C] [font F] { "文字" }`。
func parseLine(sec *dsl.LineSection, colors map[string]Color, data any) (Line, error) {
	line := NewLine()
	font, attrs := parseArgs(sec.Args)
	line.Font = font
	if f, ok := attrs["font"]; ok {
		line.Font = f
	}
	if v, ok := attrs["size"]; ok {
		size, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Line{}, fmt.Errorf("字号 %q 无法解析: %w", v, err)
		}
		line.Size = size
	}
	if v, ok := attrs["color"]; ok {
		c, err := resolveColor(v, colors)
		if err != nil {
			return Line{}, err
		}
		line.Color = c
	}
	line.Text = binding.Interpolate(extractText(sec.Block), data)
	return line, nil
}

var lineKeys = map[string]bool{"size": true, "color": true, "font": true}

func parseArgs(args []*dsl.Lexeme) (string, map[string]string) {
	attrs := map[string]string{}
	cursor := 0
	var font string
	if len(args) > 0 && args[0].Type == "Ident" && !lineKeys[args[0].Value] {
		font = args[0].Value
		cursor = 1
	}
	for cursor < len(args)-1 {
		attrs[args[cursor].Value] = args[cursor+1].Value
		cursor += 2
	}
	return font, attrs
}

func parseFontResource(cmd *dsl.Command) FontResource {
	if len(cmd.Args) == 0 {
		return FontResource{}
	}
	font := FontResource{Name: cmd.Args[0].Value}
	for _, stmt := range statements(cmd.Block) {
		if stmt.Assignment != nil && stmt.Assignment.Key == "src" {
			font.Src = valueToString(stmt.Assignment.Value)
		}
	}
	if font.Src == "" {
		font.Src = "builtin:" + font.Name
	}
	return font
}

func parseColorResource(cmd *dsl.Command) (string, string) {
	if len(cmd.Args) == 0 {
		return "", ""
	}
	name := cmd.Args[0].Value
	value := ""
	if len(cmd.Args) > 1 {
		value = cmd.Args[len(cmd.Args)-1].Value
	}
	return name, value
}

func resolveColor(value string, colors map[string]Color) (Color, error) {
	if c, ok := colors[value]; ok {
		return c, nil
	}
	return ParseColor(value)
}

// ParseColor 解析 #RGB 或 #RRGGBB。
func ParseColor(value string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(hex) == 3 {
		hex = strings.Repeat(hex[0:1], 2) + strings.Repeat(hex[1:2], 2) + strings.Repeat(hex[2:3], 2)
	}
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析", value)
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("颜色值 %s 无法解析: %w", value, err)
	}
	return Color{R: int(n >> 16 & 0xFF), G: int(n >> 8 & 0xFF), B: int(n & 0xFF)}, nil
}

func statements(block *dsl.Block) []*dsl.Statement {
	if block == nil {
		return nil
	}
	return block.Statements
}

func extractText(block *dsl.Block) string {
	var builder strings.Builder
	for _, stmt := range statements(block) {
		if stmt.Text != nil {
			builder.WriteString(string(stmt.Text.Value))
		}
	}
	return builder.String()
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		var builder strings.Builder
		for _, part := range val.Expr.Parts {
			builder.WriteString(part.Value)
		}
		return builder.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
