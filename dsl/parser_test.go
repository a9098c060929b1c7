package dsl_test

import (
	"strings"
	"testing"

	"github.com/ByLCY/signboard/dsl"
)

const sampleSign = `
sign Bakery v1 {
  meta {
    title: "Corner Bakery"
  }

  resources {
    font Body {
      src: "builtin:sans"
    }
    color Gold = #FFD700
  }

  board {
    width: 12
    height: 4
    color: #1E3A8A
  }

  emblem {
    src: "builtin:badge"
    position: [-4.8, 1, 0]
  }

  line Body size 1.2 color Gold { "Hello, ${shop.name}!" }
  line Body size 1 { "" }
  line { "Since 1999" }
}
`

func TestParseDocument(t *testing.T) {
	doc, err := dsl.ParseString(sampleSign)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.Name != "Bakery" || doc.Version != "v1" {
		t.Fatalf("unexpected header %s %s", doc.Name, doc.Version)
	}

	var kinds []string
	for _, s := range doc.Sections {
		kinds = append(kinds, s.Kind())
	}
	if got := strings.Join(kinds, ","); got != "meta,resources,board,emblem,line,line,line" {
		t.Fatalf("unexpected section order: %s", got)
	}

	board := doc.Sections[2].Board
	if len(board.Block.Statements) != 3 {
		t.Fatalf("board statements: %+v", board.Block.Statements)
	}
	width := board.Block.Statements[0].Assignment
	if width == nil || width.Key != "width" || width.Value.Number == nil || *width.Value.Number != "12" {
		t.Fatalf("unexpected width assignment: %+v", board.Block.Statements[0])
	}
	color := board.Block.Statements[2].Assignment
	if color == nil || color.Value.Color == nil || *color.Value.Color != "#1E3A8A" {
		t.Fatalf("unexpected color assignment: %+v", board.Block.Statements[2])
	}

	emblem := doc.Sections[3].Emblem
	pos := emblem.Block.Statements[1].Assignment
	if pos == nil || pos.Value.Array == nil || len(pos.Value.Array.Values) != 3 {
		t.Fatalf("emblem position not parsed as array: %+v", emblem.Block.Statements[1])
	}
	if got := *pos.Value.Array.Values[0].Number; got != "-4.8" {
		t.Fatalf("expected -4.8, got %s", got)
	}

	first := doc.Sections[4].Line
	if len(first.Args) != 5 {
		t.Fatalf("expected 5 line args, got %d", len(first.Args))
	}
	if first.Args[0].Value != "Body" || first.Args[2].Value != "1.2" {
		t.Fatalf("unexpected line args: %+v", first.Args)
	}
	text := first.Block.Statements[0].Text
	if text == nil || string(text.Value) != "Hello, ${shop.name}!" {
		t.Fatalf("unexpected line text: %+v", first.Block.Statements[0])
	}

	blank := doc.Sections[5].Line
	if string(blank.Block.Statements[0].Text.Value) != "" {
		t.Fatalf("expected blank text")
	}
	if len(doc.Sections[6].Line.Args) != 0 {
		t.Fatalf("expected bare line without args")
	}
}

func TestParseResources(t *testing.T) {
	doc, err := dsl.ParseString(sampleSign)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	res := doc.Sections[1].Resources
	if len(res.Block.Statements) != 2 {
		t.Fatalf("expected 2 resource statements, got %d", len(res.Block.Statements))
	}
	font := res.Block.Statements[0].Command
	if font == nil || font.Name != "font" || font.Block == nil {
		t.Fatalf("unexpected font command: %+v", res.Block.Statements[0])
	}
	src := font.Block.Statements[0].Assignment
	if src == nil || string(*src.Value.String) != "builtin:sans" {
		t.Fatalf("unexpected font src: %+v", font.Block.Statements[0])
	}
	color := res.Block.Statements[1].Command
	if color == nil || len(color.Args) != 3 || color.Args[2].Value != "#FFD700" {
		t.Fatalf("unexpected color command: %+v", res.Block.Statements[1])
	}
}

func TestParseRejectsUnknownSection(t *testing.T) {
	if _, err := dsl.ParseString(`sign X v1 { footer { } }`); err == nil {
		t.Fatalf("expected parse error for unknown section")
	}
}
