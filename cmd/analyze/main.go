package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"doc-analyzer/internal/bootstrap"
	"doc-analyzer/internal/extract"
	"doc-analyzer/internal/pipeline"
	"doc-analyzer/internal/shared/config"
	"doc-analyzer/internal/shared/metrics"
	"doc-analyzer/internal/shared/telemetry"
)

type runner interface {
	Run(ctx context.Context, inputPath string) (pipeline.Report, error)
}

func main() {
	fs := pflag.NewFlagSet("analyze", pflag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: analyze [flags] <document>")
		fs.PrintDefaults()
	}
	config.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.ValidateAnalysis(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry.SetOutput(os.Stderr)

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	code := execute(ctx, app.Runner(), fs.Arg(0), os.Stdout)
	flushMetrics(app.Metrics, cfg.MetricsTextfile)
	os.Exit(code)
}

// execute runs one analysis and prints the extracted segments as JSON.
func execute(ctx context.Context, r runner, inputPath string, stdout io.Writer) int {
	report, err := r.Run(ctx, inputPath)
	if err != nil {
		fields := map[string]any{"input": inputPath, "error": err}
		var stageErr *pipeline.StageError
		if errors.As(err, &stageErr) {
			fields["stage"] = stageErr.Stage
		}
		if report.JobID != "" {
			fields["job_id"] = report.JobID
		}
		telemetry.Error("run.failed", fields)
		telemetry.Error("run.failed.detail", map[string]any{"detail": fmt.Sprintf("%+v", err)})
		return 1
	}

	telemetry.Info("run.completed", map[string]any{
		"input":    inputPath,
		"job_id":   report.JobID,
		"status":   string(report.Status),
		"output":   report.OutputPath,
		"segments": len(report.Segments),
	})

	if err := writeSegments(stdout, report.Segments); err != nil {
		telemetry.Error("run.print_failed", map[string]any{"error": err})
		return 1
	}
	return 0
}

func writeSegments(w io.Writer, segments []extract.Segment) error {
	if segments == nil {
		segments = []extract.Segment{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(segments)
}

func flushMetrics(rec *metrics.Recorder, path string) {
	if path == "" {
		return
	}
	if err := rec.WriteTextfile(path); err != nil {
		telemetry.Warn("metrics.write_failed", map[string]any{"path": path, "error": err})
	}
}
