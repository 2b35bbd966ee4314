package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/textract"

	"doc-analyzer/internal/analysis"
	"doc-analyzer/internal/document"
	"doc-analyzer/internal/export"
	"doc-analyzer/internal/extract"
	"doc-analyzer/internal/resultfile"
	"doc-analyzer/internal/shared/metrics"
	"doc-analyzer/internal/shared/storage/object"
	"doc-analyzer/internal/shared/telemetry"
	"doc-analyzer/internal/shared/util"
)

// Stage names used in errors, logs and metrics.
const (
	StageRead    = "read"
	StageInspect = "inspect"
	StageUpload  = "upload"
	StageSubmit  = "submit"
	StagePoll    = "poll"
	StageWrite   = "write"
	StageExport  = "export"
)

// Submitter starts an analysis job.
type Submitter interface {
	Submit(ctx context.Context, req analysis.JobRequest) (string, error)
}

// Poller waits for a job to leave the in-progress state and gathers all result pages.
type Poller interface {
	Poll(ctx context.Context, jobID string) (*textract.GetDocumentAnalysisOutput, error)
	CollectPages(ctx context.Context, jobID string, first *textract.GetDocumentAnalysisOutput) (*textract.GetDocumentAnalysisOutput, error)
}

// Settings are the resolved configuration values a run depends on.
type Settings struct {
	Bucket           string
	TopicARN         string
	RoleARN          string
	OutputPath       string
	SegmentsXLSXPath string
}

// Report summarizes a completed run.
type Report struct {
	JobID      string
	Status     analysis.Status
	Document   document.Info
	Receipt    object.Receipt
	OutputPath string
	Segments   []extract.Segment
}

// StageError identifies the step of the run that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Stage + " failed"
	}
	return e.Stage + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() error { return e.Err }

// Runner executes upload, submission, polling and extraction for one document.
type Runner struct {
	Uploader  object.Uploader
	Submitter Submitter
	Poller    Poller
	Settings  Settings
	Metrics   *metrics.Recorder

	readFile func(string) ([]byte, error)
}

// Run processes the document at inputPath. Steps run in order and the first
// failure aborts the run; the result file is only written once the job is terminal.
func (r *Runner) Run(ctx context.Context, inputPath string) (Report, error) {
	readFile := r.readFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	data, err := readFile(inputPath)
	if err != nil {
		return Report{}, r.fail(StageRead, fmt.Errorf("read input %s: %w", inputPath, err))
	}
	key, err := util.ObjectKeyForPath(inputPath)
	if err != nil {
		return Report{}, r.fail(StageRead, fmt.Errorf("object key for %s: %w", inputPath, err))
	}

	info, err := document.Inspect(key, data)
	if err != nil {
		return Report{}, r.fail(StageInspect, err)
	}
	report := Report{Document: info, OutputPath: r.Settings.OutputPath}

	receipt, err := r.Uploader.Upload(ctx, r.Settings.Bucket, key, data)
	if err != nil {
		return report, r.fail(StageUpload, err)
	}
	r.Metrics.IncUploads()
	report.Receipt = receipt
	telemetry.Info("document.uploaded", map[string]any{
		"bucket": receipt.Bucket,
		"key":    receipt.Key,
		"bytes":  receipt.Size,
		"mime":   info.MimeType,
		"pages":  info.Pages,
	})

	result, err := r.analyze(ctx, r.Settings.Bucket, receipt.Key, &report)
	if err != nil {
		return report, err
	}

	if err := resultfile.Write(r.Settings.OutputPath, result); err != nil {
		return report, r.fail(StageWrite, err)
	}

	report.Segments = extract.Segments(result)
	r.Metrics.AddSegments(len(report.Segments))

	if path := r.Settings.SegmentsXLSXPath; path != "" {
		if err := export.WriteSegmentsXLSX(path, report.JobID, report.Segments); err != nil {
			return report, r.fail(StageExport, err)
		}
	}
	return report, nil
}

// analyze submits the stored object, waits for the job and gathers every result page.
func (r *Runner) analyze(ctx context.Context, bucket, key string, report *Report) (analysis.Result, error) {
	jobID, err := r.Submitter.Submit(ctx, analysis.JobRequest{
		Bucket:   bucket,
		Key:      key,
		TopicARN: r.Settings.TopicARN,
		RoleARN:  r.Settings.RoleARN,
	})
	if err != nil {
		return analysis.Result{}, r.fail(StageSubmit, err)
	}
	report.JobID = jobID
	telemetry.Info("analysis.submitted", map[string]any{"job_id": jobID, "bucket": bucket, "key": key})

	terminal, err := r.Poller.Poll(ctx, jobID)
	if err != nil {
		return analysis.Result{}, r.fail(StagePoll, err)
	}
	full, err := r.Poller.CollectPages(ctx, jobID, terminal)
	if err != nil {
		return analysis.Result{}, r.fail(StagePoll, err)
	}

	result := analysis.FromOutput(jobID, full)
	report.Status = result.JobStatus
	telemetry.Info("analysis.finished", map[string]any{
		"job_id": jobID,
		"status": string(result.JobStatus),
		"blocks": len(result.Blocks),
	})
	if result.JobStatus != analysis.StatusSucceeded {
		telemetry.Warn("analysis.not_succeeded", map[string]any{
			"job_id":         jobID,
			"status":         string(result.JobStatus),
			"status_message": result.StatusMessage,
		})
	}
	return result, nil
}

func (r *Runner) fail(stage string, err error) error {
	r.Metrics.IncFailure(stage)
	return &StageError{Stage: stage, Err: err}
}
