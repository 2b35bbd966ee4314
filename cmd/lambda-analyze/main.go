package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-analyze

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"doc-analyzer/internal/bootstrap"
	"doc-analyzer/internal/pipeline"
	"doc-analyzer/internal/shared/config"
	"doc-analyzer/internal/shared/telemetry"
)

var (
	initOnce sync.Once
	initErr  error
	runner   storedRunner
)

type storedRunner interface {
	RunStored(ctx context.Context, bucket, key string) (pipeline.Report, error)
}

func initApp() {
	cfg, err := config.Load(nil)
	if err != nil {
		initErr = err
		return
	}
	app, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		initErr = err
		return
	}
	runner = app.Runner()
}

func handler(ctx context.Context, event events.S3Event) error {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		return initErr
	}
	return processRecords(ctx, runner, event)
}

// processRecords analyzes each created object in order. Objects under the
// result prefix are skipped so the handler does not trigger on its own output.
func processRecords(ctx context.Context, r storedRunner, event events.S3Event) error {
	var errs []error
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.URLDecodedKey
		if key == "" {
			key = record.S3.Object.Key
		}
		if pipeline.IsResultKey(key) {
			continue
		}

		report, err := r.RunStored(ctx, bucket, key)
		if err != nil {
			telemetry.Error("lambda.analyze_failed", map[string]any{
				"bucket": bucket,
				"key":    key,
				"job_id": report.JobID,
				"error":  err,
			})
			errs = append(errs, fmt.Errorf("%s/%s: %w", bucket, key, err))
			continue
		}
		telemetry.Info("lambda.analyze_completed", map[string]any{
			"bucket":   bucket,
			"key":      key,
			"job_id":   report.JobID,
			"status":   string(report.Status),
			"result":   report.OutputPath,
			"segments": len(report.Segments),
		})
	}
	return errors.Join(errs...)
}

func main() {
	lambda.Start(handler)
}
