package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ByLCY/signboard/config"
	"github.com/ByLCY/signboard/dsl"
	"github.com/ByLCY/signboard/layout"
	"github.com/ByLCY/signboard/renderer"
	canvasrenderer "github.com/ByLCY/signboard/renderer/canvas"
	"github.com/ByLCY/signboard/server"
	"github.com/ByLCY/signboard/session"
	"github.com/ByLCY/signboard/settings"
	"github.com/ByLCY/signboard/store"
)

func main() {
	input := flag.String("in", "", "招牌描述文件路径（.sign）")
	output := flag.String("out", "", "STL 输出路径，默认使用设置中的文件名")
	preview := flag.String("preview", "", "正视图 PDF 校样输出路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	dataJSON := flag.String("data", "", "绑定到描述文件的 JSON 数据")
	settingsPath := flag.String("settings", "settings.yaml", "YAML 设置文件，不存在时使用默认值")
	serve := flag.String("serve", "", "以服务模式监听该地址，例如 :8080")
	flag.Parse()

	logger := log.New(os.Stdout, "[signboard] ", log.LstdFlags|log.Lmicroseconds)
	st, err := settings.Load(*settingsPath)
	if err != nil {
		logger.Fatalf("读取设置失败: %v", err)
	}

	if *serve != "" {
		st.Server.Addr = *serve
		if err := runServer(st, logger); err != nil {
			logger.Fatalf("服务退出: %v", err)
		}
		return
	}

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}
	var inputData any
	if *dataJSON != "" {
		if err := json.Unmarshal([]byte(*dataJSON), &inputData); err != nil {
			logger.Fatalf("解析 data JSON 失败: %v", err)
		}
	}
	if *output == "" {
		*output = st.Export.FileName
	}

	r := canvasrenderer.NewRenderer(filepath.Dir(*input))
	if err := run(runOptions{
		Input:    *input,
		Output:   *output,
		Preview:  *preview,
		Debug:    *debug,
		Data:     inputData,
		Settings: st,
		Renderer: r,
		Logger:   logger,
	}); err != nil {
		logger.Fatalf("生成失败: %v", err)
	}
	fmt.Printf("已生成 STL：%s\n", *output)
}

type runOptions struct {
	Input    string
	Output   string
	Preview  string
	Debug    string
	Data     any
	Settings settings.Settings
	Renderer renderer.Renderer
	Logger   *log.Logger
}

// run 串联解析、布局、导出与校样渲染。
func run(opts runOptions) error {
	file, err := os.Open(opts.Input)
	if err != nil {
		return fmt.Errorf("无法打开描述文件 %s: %w", opts.Input, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return fmt.Errorf("解析描述文件失败: %w", err)
	}
	design, err := config.FromDocument(doc, opts.Data)
	if err != nil {
		return fmt.Errorf("描述文件无效: %w", err)
	}

	sess, err := session.New(design.Name, design, session.Options{
		Logger:   opts.Logger,
		Settings: &opts.Settings,
		BaseDir:  filepath.Dir(opts.Input),
	})
	if err != nil {
		return err
	}
	if err := sess.LoadAssets(); err != nil {
		return fmt.Errorf("加载资源失败: %w", err)
	}

	if opts.Debug != "" {
		if err := writeDebug(sess.Layout(), sess, opts.Debug); err != nil {
			return err
		}
	}

	exported, err := sess.Export()
	if err != nil {
		return fmt.Errorf("导出失败: %w", err)
	}
	if err := writeFile(opts.Output, exported.Data); err != nil {
		return fmt.Errorf("写入 STL 文件失败: %w", err)
	}

	if opts.Preview != "" {
		if opts.Renderer == nil {
			return fmt.Errorf("renderer 不能为空")
		}
		pdfBytes, err := opts.Renderer.Render(renderer.Proof{
			Meta:        design.Meta,
			Fonts:       design.Fonts,
			DefaultFont: design.DefaultFont,
			Layout:      sess.Layout(),
			Entries:     sess.Registry().All(),
		})
		if err != nil {
			return fmt.Errorf("渲染 PDF 失败: %w", err)
		}
		if err := writeFile(opts.Preview, pdfBytes); err != nil {
			return fmt.Errorf("写入 PDF 文件失败: %w", err)
		}
	}
	return nil
}

func runServer(st settings.Settings, logger *log.Logger) error {
	db, err := store.Open(st.Store.Path)
	if err != nil {
		return fmt.Errorf("打开设计库失败: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(st, db, ".", logger).ListenAndServe(ctx)
}

func writeDebug(result *layout.Result, sess *session.Session, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(result, sess.Registry().All(), debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
