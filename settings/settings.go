// Package settings 读取 settings.yaml：相机、几何精度、导出与服务端参数。
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	Camera   Camera   `yaml:"camera"`
	Geometry Geometry `yaml:"geometry"`
	Export   Export   `yaml:"export"`
	Server   Server   `yaml:"server"`
	Store    Store    `yaml:"store"`
}

// Camera 对应透视相机。Position 与 Target 为 [x, y, z]。
type Camera struct {
	Position []float64 `yaml:"position"`
	Target   []float64 `yaml:"target"`
	FOV      float64   `yaml:"fov"`
	Near     float64   `yaml:"near"`
	Far      float64   `yaml:"far"`
}

type Geometry struct {
	// FlattenTolerance 是曲线展开为折线时允许的最大偏差（世界单位）。
	FlattenTolerance float64 `yaml:"flatten_tolerance"`
	TextDepth        float64 `yaml:"text_depth"`
}

type Export struct {
	FileName string `yaml:"file_name"`
	Header   string `yaml:"header"`
}

type Server struct {
	Addr           string `yaml:"addr"`
	ReadBufferSize int    `yaml:"read_buffer_size"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	MaxMessageSize int64  `yaml:"max_message_size"`
}

type Store struct {
	Path string `yaml:"path"`
}

// Default 返回未提供 settings.yaml 时使用的参数。
func Default() Settings {
	return Settings{
		Camera: Camera{
			Position: []float64{0, 5, 20},
			Target:   []float64{0, 3, 0},
			FOV:      75,
			Near:     0.1,
			Far:      1000,
		},
		Geometry: Geometry{FlattenTolerance: 0.005, TextDepth: 0.2},
		Export:   Export{FileName: "signboard_design.stl", Header: "signboard"},
		Server: Server{
			Addr:           ":8080",
			ReadBufferSize: 8,
			WriteTimeoutMs: 2000,
			MaxMessageSize: 1 << 20,
		},
		Store: Store{Path: "signboard.db"},
	}
}

// Load 读取 path 并以 Default 为底覆盖其中出现的字段；文件不存在时直接返回默认值。
func Load(path string) (Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("settings.yaml: %w", err)
	}
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("settings.yaml: %w", err)
	}
	return s, nil
}

// Validate 检查相机向量长度与几何参数。
func (s Settings) Validate() error {
	if len(s.Camera.Position) != 3 || len(s.Camera.Target) != 3 {
		return fmt.Errorf("camera position/target 需要 3 个分量")
	}
	if !(s.Camera.FOV > 0 && s.Camera.FOV < 180) {
		return fmt.Errorf("camera fov %g 超出范围", s.Camera.FOV)
	}
	if !(s.Camera.Near > 0) || s.Camera.Far <= s.Camera.Near {
		return fmt.Errorf("camera near/far 无效: %g/%g", s.Camera.Near, s.Camera.Far)
	}
	if !(s.Geometry.FlattenTolerance > 0) {
		return fmt.Errorf("geometry flatten_tolerance 必须为正数")
	}
	if !(s.Geometry.TextDepth > 0) {
		return fmt.Errorf("geometry text_depth 必须为正数")
	}
	return nil
}
