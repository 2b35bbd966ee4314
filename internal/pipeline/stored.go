package pipeline

import (
	"context"
	"path"
	"strings"

	"doc-analyzer/internal/extract"
	"doc-analyzer/internal/resultfile"
)

// ResultPrefix is where RunStored writes results inside the source bucket.
const ResultPrefix = "results/"

// ResultKey returns the object key RunStored uses for the result of key.
func ResultKey(key string) string {
	return path.Join(ResultPrefix, strings.TrimLeft(key, "/")) + ".json"
}

// IsResultKey reports whether key lies under ResultPrefix, directly or below a
// storage prefix, so event handlers can ignore the objects they wrote themselves.
func IsResultKey(key string) bool {
	key = strings.TrimLeft(key, "/")
	return strings.HasPrefix(key, ResultPrefix) || strings.Contains(key, "/"+ResultPrefix)
}

// RunStored analyzes a document that is already in bucket and stores the
// pretty-printed result next to it under ResultKey(key).
func (r *Runner) RunStored(ctx context.Context, bucket, key string) (Report, error) {
	report := Report{OutputPath: ResultKey(key)}

	result, err := r.analyze(ctx, bucket, key, &report)
	if err != nil {
		return report, err
	}

	data, err := resultfile.Encode(result, resultfile.FormatJSON)
	if err != nil {
		return report, r.fail(StageWrite, err)
	}
	receipt, err := r.Uploader.Upload(ctx, bucket, report.OutputPath, data)
	if err != nil {
		return report, r.fail(StageWrite, err)
	}
	report.Receipt = receipt
	report.OutputPath = receipt.Key

	report.Segments = extract.Segments(result)
	r.Metrics.AddSegments(len(report.Segments))
	return report, nil
}
