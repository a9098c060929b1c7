package layout

import (
	"encoding/json"
	"os"

	"github.com/ByLCY/signboard/scene"
)

type debugDump struct {
	Layout *Result       `json:"layout"`
	Scene  []scene.Entry `json:"scene,omitempty"`
}

// WriteDebugJSON 将布局结果与当前场景（含拖拽标记）输出为 JSON，便于调试或可视化。
func WriteDebugJSON(res *Result, entries []scene.Entry, path string) error {
	if res == nil {
		return nil
	}
	data, err := json.MarshalIndent(debugDump{Layout: res, Scene: entries}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
