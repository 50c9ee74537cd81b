package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/nirvana-analytics/healthreport/dsl"
	"github.com/nirvana-analytics/healthreport/layout"
	"github.com/nirvana-analytics/healthreport/report"
	"github.com/nirvana-analytics/healthreport/server"
)

func main() {
	input := flag.String("in", "", "DSL 模板路径，留空使用内置健康报告模板")
	dataPath := flag.String("data", "", "报告请求 JSON 文件路径")
	sourcePath := flag.String("source", "", "附加原始报告文本文件路径")
	narrativePath := flag.String("narrative", "", "综合分析 Markdown 文件路径")
	output := flag.String("out", "output/health-report.pdf", "PDF 输出路径")
	debug := flag.String("debug", "", "布局调试 JSON 输出路径")
	serve := flag.String("serve", "", "以 HTTP 服务方式运行的监听地址，例如 :8080")
	narrativeTimeout := flag.Duration("narrative-timeout", 60*time.Second, "获取综合分析文本的超时时间")
	flag.Parse()

	tmpl, err := loadTemplate(*input)
	if err != nil {
		log.Fatalf("加载模板失败: %v", err)
	}
	gen := report.NewGenerator(tmpl, nil)
	gen.NarrativeTimeout = *narrativeTimeout

	if *serve != "" {
		if err := listen(*serve, gen); err != nil {
			log.Fatalf("HTTP 服务异常退出: %v", err)
		}
		return
	}

	if *dataPath == "" {
		log.Fatalf("缺少 -data 请求文件")
	}
	if err := run(gen, *dataPath, *sourcePath, *narrativePath, *output, *debug); err != nil {
		log.Fatalf("生成 PDF 失败: %v", err)
	}
	fmt.Printf("已生成 PDF：%s\n", *output)
}

func loadTemplate(path string) (*dsl.Document, error) {
	if path == "" {
		return report.DefaultTemplate()
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法打开 DSL 文件 %s: %w", path, err)
	}
	defer file.Close()

	doc, err := dsl.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("解析 DSL 失败: %w", err)
	}
	return doc, nil
}

// run 读取请求，生成报告并写出 PDF 与可选的调试 JSON。
func run(gen *report.Generator, dataPath, sourcePath, narrativePath, outputPath, debugPath string) error {
	raw, err := os.ReadFile(dataPath)
	if err != nil {
		return fmt.Errorf("读取请求文件失败: %w", err)
	}
	var req report.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("解析请求 JSON 失败: %w", err)
	}
	if sourcePath != "" {
		text, err := os.ReadFile(sourcePath)
		if err != nil {
			return fmt.Errorf("读取原始报告失败: %w", err)
		}
		req.SourceText = string(text)
	}
	if narrativePath != "" {
		text, err := os.ReadFile(narrativePath)
		if err != nil {
			return fmt.Errorf("读取综合分析失败: %w", err)
		}
		req.Narrative = string(text)
	}

	rep, err := gen.Generate(context.Background(), req)
	if err != nil {
		return err
	}

	if debugPath != "" {
		if err := writeDebug(rep.Document, debugPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(outputPath, rep.PDF, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}
	return nil
}

func writeDebug(doc *layout.Document, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(doc, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func listen(addr string, gen *report.Generator) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(gen),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Printf("health report service listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
