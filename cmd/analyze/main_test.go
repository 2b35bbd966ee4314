package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"doc-analyzer/internal/analysis"
	"doc-analyzer/internal/extract"
	"doc-analyzer/internal/pipeline"
	"doc-analyzer/internal/shared/telemetry"
)

type fakeRunner struct {
	report pipeline.Report
	err    error
	input  string
}

func (f *fakeRunner) Run(ctx context.Context, inputPath string) (pipeline.Report, error) {
	_ = ctx
	f.input = inputPath
	return f.report, f.err
}

func TestExecutePrintsSegments(t *testing.T) {
	var logs bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&logs))

	r := &fakeRunner{report: pipeline.Report{
		JobID:  "job-123",
		Status: analysis.StatusSucceeded,
		Segments: []extract.Segment{
			{Type: "PAGE", Text: ""},
			{Type: "LINE", Text: "Total"},
		},
	}}
	var out bytes.Buffer

	if code := execute(context.Background(), r, "statement.pdf", &out); code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if r.input != "statement.pdf" {
		t.Fatalf("runner input = %q", r.input)
	}

	var got []extract.Segment
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode stdout: %v", err)
	}
	if len(got) != 2 || got[1] != (extract.Segment{Type: "LINE", Text: "Total"}) {
		t.Fatalf("unexpected segments: %+v", got)
	}
	if !strings.Contains(logs.String(), `"msg":"run.completed"`) {
		t.Fatalf("missing completion log: %s", logs.String())
	}
}

func TestExecuteReportsStageOnFailure(t *testing.T) {
	var logs bytes.Buffer
	t.Cleanup(telemetry.SetOutput(&logs))

	r := &fakeRunner{
		report: pipeline.Report{JobID: "job-9"},
		err:    &pipeline.StageError{Stage: pipeline.StagePoll, Err: errors.New("throttled")},
	}
	var out bytes.Buffer

	if code := execute(context.Background(), r, "statement.pdf", &out); code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if out.Len() != 0 {
		t.Fatalf("expected no stdout on failure, got %q", out.String())
	}

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected failure and detail lines, got %d: %s", len(lines), logs.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "run.failed" || entry["stage"] != pipeline.StagePoll || entry["job_id"] != "job-9" {
		t.Fatalf("unexpected failure entry: %v", entry)
	}
	if !strings.Contains(lines[1], "throttled") {
		t.Fatalf("detail line missing cause: %s", lines[1])
	}
}

func TestWriteSegmentsEmptyIsArray(t *testing.T) {
	var out bytes.Buffer
	if err := writeSegments(&out, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != "[]" {
		t.Fatalf("got %q, want []", out.String())
	}
}
