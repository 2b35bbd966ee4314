package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"doc-analyzer/internal/bootstrap"
	"doc-analyzer/internal/shared/config"
	"doc-analyzer/internal/shared/telemetry"
)

func main() {
	fs := pflag.NewFlagSet("provision", pflag.ExitOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telemetry.SetOutput(os.Stderr)

	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	res, err := app.Provisioner().Provision(ctx, app.ProvisionRequest())
	if err != nil {
		telemetry.Error("provision.failed", map[string]any{"error": err, "region": app.AWS.Region})
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("print resources: %v", err)
	}
}
