package session

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ByLCY/signboard/config"
)

//go:embed form.schema.json
var formSchemaJSON string

var formSchema = jsonschema.MustCompileString("form.schema.json", formSchemaJSON)

// Form 是表单的一次完整快照：板面与按顺序排列的文字行。颜色为 #RRGGBB。
type Form struct {
	Board FormBoard  `json:"board"`
	Lines []FormLine `json:"lines"`
}

type FormBoard struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Color  string  `json:"color,omitempty"`
}

type FormLine struct {
	Text  string   `json:"text"`
	Font  string   `json:"font,omitempty"`
	Color string   `json:"color,omitempty"`
	Size  *float64 `json:"size,omitempty"`
}

// ParseForm 按 JSON Schema 校验后解码表单。
func ParseForm(data []byte) (Form, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Form{}, fmt.Errorf("表单不是合法的 JSON: %w", err)
	}
	if err := formSchema.Validate(raw); err != nil {
		return Form{}, fmt.Errorf("表单校验失败: %w", err)
	}
	var f Form
	if err := json.Unmarshal(data, &f); err != nil {
		return Form{}, err
	}
	return f, nil
}

// Config 把表单转换为布局输入。省略的颜色为黑色（板面为白色），省略的字号为 1。
func (f Form) Config() (config.Board, []config.Line, error) {
	board := config.DefaultBoard()
	board.Width, board.Height = f.Board.Width, f.Board.Height
	if f.Board.Color != "" {
		c, err := config.ParseColor(f.Board.Color)
		if err != nil {
			return config.Board{}, nil, err
		}
		board.Color = c
	}
	if err := board.Validate(); err != nil {
		return config.Board{}, nil, err
	}

	lines := make([]config.Line, len(f.Lines))
	for i, fl := range f.Lines {
		l := config.NewLine()
		l.Text, l.Font = fl.Text, fl.Font
		if fl.Size != nil {
			l.Size = *fl.Size
		}
		if fl.Color != "" {
			c, err := config.ParseColor(fl.Color)
			if err != nil {
				return config.Board{}, nil, fmt.Errorf("第 %d 行文字: %w", i+1, err)
			}
			l.Color = c
		}
		if err := l.Validate(); err != nil {
			return config.Board{}, nil, fmt.Errorf("第 %d 行文字: %w", i+1, err)
		}
		lines[i] = l
	}
	return board, lines, nil
}

// FormFromDesign 把招牌描述转换回表单快照。
func FormFromDesign(d config.Design) Form {
	f := Form{
		Board: FormBoard{Width: d.Board.Width, Height: d.Board.Height, Color: d.Board.Color.Hex()},
		Lines: make([]FormLine, len(d.Lines)),
	}
	for i, l := range d.Lines {
		size := l.Size
		f.Lines[i] = FormLine{Text: l.Text, Font: l.Font, Color: l.Color.Hex(), Size: &size}
	}
	return f
}
