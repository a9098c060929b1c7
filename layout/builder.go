package layout

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/geom"
	"github.com/ByLCY/signboard/scene"
)

// ErrAssetNotReady 表示字体尚未加载，没有可布局的内容。调用方应静默忽略。
var ErrAssetNotReady = errors.New("layout: font asset not ready")

// Engine 把招牌配置转换为各实体的位置。除文字网格后端外不持有任何状态，
// 同样的输入总是得到同样的输出。
type Engine struct {
	opts Options
}

func NewEngine(opts Options) (*Engine, error) {
	if opts.Mesher == nil {
		return nil, fmt.Errorf("layout: 缺少文字网格后端 TextMesher")
	}
	if opts.TextDepth <= 0 {
		opts.TextDepth = TextDepth
	}
	return &Engine{opts: opts}, nil
}

// Recompute 根据板面与文字行计算板面、徽标与文字的位置。
// fontAvailable 为 false 时返回 ErrAssetNotReady；emblemAvailable 为 false 时结果中没有徽标槽位。
func (e *Engine) Recompute(board config.Board, lines []config.Line, emblemAvailable, fontAvailable bool) (*Result, error) {
	if !fontAvailable {
		return nil, ErrAssetNotReady
	}
	if err := board.Validate(); err != nil {
		return nil, err
	}

	res := &Result{
		Board: board,
		Plate: PlateSlot{
			Mesh:      geom.NewBox(board.Width, board.Height, PlateDepth),
			Transform: geom.At(r3.Vec{Y: board.Height / 2, Z: PlateZ}),
			Color:     board.Color,
		},
	}
	if emblemAvailable {
		res.Emblem = &EmblemSlot{Transform: geom.At(r3.Vec{
			X: -board.Width / EmblemAnchor,
			Y: board.Height / 4,
			Z: EmblemZ,
		})}
	}

	sizes := make([]float64, len(lines))
	for i, l := range lines {
		sizes[i] = l.Size
	}
	centers, total := Centers(sizes)
	res.TotalHeight = total

	midY := board.Height / 2
	res.Lines = make([]TextSlot, len(lines))
	for i, l := range lines {
		slot := TextSlot{
			Index:  i + 1,
			ID:     scene.TextID(i + 1),
			Text:   l.Text,
			Font:   l.Font,
			Size:   l.Size,
			Color:  l.Color,
			Center: centers[i],
			Blank:  l.Blank(),
		}
		if !slot.Blank {
			if err := l.Validate(); err != nil {
				return nil, fmt.Errorf("第 %d 行文字: %w", i+1, err)
			}
			mesh, err := e.opts.Mesher.Mesh(l.Font, l.Text, l.Size, e.opts.TextDepth)
			if err != nil {
				return nil, fmt.Errorf("第 %d 行文字: %w", i+1, err)
			}
			if mesh.IsEmpty() {
				slot.Blank = true
			} else {
				b := mesh.Bounds()
				slot.Mesh = mesh
				slot.Triangles = mesh.TriangleCount()
				// 以自身包围盒水平居中；基线落在槽位中心。
				slot.Transform = geom.At(r3.Vec{
					X: -(b.Min.X + b.Max.X) / 2,
					Y: midY + centers[i],
					Z: TextZ,
				})
			}
		}
		res.Lines[i] = slot
	}
	return res, nil
}

// Centers 计算每行相对于板面垂直中心的中心位置。
// total = Σs + (N-1)*LineGap，c1 = total/2 - s1/2，c(i+1) = c(i) - (s(i)/2 + s(i+1)/2 + LineGap)。
// 空白行（字号可为 0）同样参与计算。
func Centers(sizes []float64) ([]float64, float64) {
	if len(sizes) == 0 {
		return nil, 0
	}
	total := float64(len(sizes)-1) * LineGap
	for _, s := range sizes {
		total += s
	}
	centers := make([]float64, len(sizes))
	centers[0] = total/2 - sizes[0]/2
	for i := 1; i < len(sizes); i++ {
		centers[i] = centers[i-1] - (sizes[i-1]/2 + sizes[i]/2 + LineGap)
	}
	return centers, total
}

// Apply 把重算结果同步到场景：替换板面，放置徽标，删除过期的文字行后重建全部文字实体。
// 被拖拽过的徽标保留其位置；文字实体每次都会重建，拖拽偏移随之丢失。
// emblem 为 nil 或结果中没有徽标槽位时，场景中的徽标被移除。
func Apply(res *Result, reg *scene.Registry, emblem *scene.Solid) {
	if res == nil || reg == nil {
		return
	}
	reg.Upsert(scene.PlateID, &scene.Solid{
		Kind:  scene.KindPlate,
		Mesh:  res.Plate.Mesh,
		Color: res.Plate.Color,
	}, res.Plate.Transform)

	if res.Emblem != nil && emblem != nil {
		t := res.Emblem.Transform
		prev, ok := reg.Get(scene.EmblemID)
		dragged := ok && prev.Dragged
		if dragged {
			t.Position = prev.Transform.Position
		}
		reg.Upsert(scene.EmblemID, emblem, t)
		if dragged {
			_ = reg.SetPosition(scene.EmblemID, t.Position)
		}
	} else {
		reg.Remove(scene.EmblemID)
	}

	solids := res.Solids()
	keep := make([]string, len(solids))
	for i, s := range solids {
		keep[i] = s.ID
	}
	reg.ReconcileText(keep)
	for _, s := range solids {
		reg.Upsert(s.ID, &scene.Solid{Kind: scene.KindText, Mesh: s.Mesh, Color: s.Color}, s.Transform)
	}
}
