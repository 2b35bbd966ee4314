package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-analyzer/internal/analysis"
	"doc-analyzer/internal/document/documenttest"
	"doc-analyzer/internal/resultfile"
	"doc-analyzer/internal/shared/config"
	"doc-analyzer/internal/shared/metrics"
	"doc-analyzer/internal/shared/storage/object"
)

type uploadCall struct {
	bucket string
	key    string
	size   int
}

type fakeUploader struct {
	calls []uploadCall
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, bucket, key string, data []byte) (object.Receipt, error) {
	_ = ctx
	f.calls = append(f.calls, uploadCall{bucket: bucket, key: key, size: len(data)})
	if f.err != nil {
		return object.Receipt{}, f.err
	}
	return object.Receipt{Bucket: bucket, Key: key, Size: int64(len(data))}, nil
}

// fakeTextract scripts status responses and records every call.
type fakeTextract struct {
	mu       sync.Mutex
	jobID    string
	statuses []*textract.GetDocumentAnalysisOutput
	starts   []*textract.StartDocumentAnalysisInput
	gets     []*textract.GetDocumentAnalysisInput
	startErr error
}

func (f *fakeTextract) StartDocumentAnalysis(ctx context.Context, params *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error) {
	_ = ctx
	_ = optFns
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, params)
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &textract.StartDocumentAnalysisOutput{JobId: aws.String(f.jobID)}, nil
}

func (f *fakeTextract) GetDocumentAnalysis(ctx context.Context, params *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error) {
	_ = ctx
	_ = optFns
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, params)
	idx := len(f.gets) - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	return f.statuses[idx], nil
}

func noWait(ctx context.Context, d time.Duration) error {
	_ = ctx
	_ = d
	return nil
}

func terminalBlocks() []types.Block {
	return []types.Block{
		{Id: aws.String("p1"), BlockType: types.BlockTypePage, Page: aws.Int32(1)},
		{Id: aws.String("l1"), BlockType: types.BlockTypeLine, Text: aws.String("Statement of account"), Page: aws.Int32(1)},
		{Id: aws.String("w1"), BlockType: types.BlockTypeWord, Text: aws.String("Statement"), Page: aws.Int32(1)},
		{Id: aws.String("t1"), BlockType: types.BlockTypeTable, Page: aws.Int32(1)},
	}
}

func newRunner(t *testing.T, up *fakeUploader, tx *fakeTextract, settings Settings) *Runner {
	t.Helper()
	rec := metrics.New()
	return &Runner{
		Uploader:  up,
		Submitter: analysis.NewSubmitter(tx, rec),
		Poller:    analysis.NewPoller(tx, analysis.WithWaitFunc(noWait), analysis.WithMetrics(rec)),
		Settings:  settings,
		Metrics:   rec,
	}
}

func writeInput(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRunEndToEnd(t *testing.T) {
	input := writeInput(t, "statement.pdf", documenttest.PDF(1))
	output := filepath.Join(t.TempDir(), "analysis.json")
	xlsx := filepath.Join(t.TempDir(), "segments.xlsx")

	up := &fakeUploader{}
	tx := &fakeTextract{
		jobID: "job-123",
		statuses: []*textract.GetDocumentAnalysisOutput{
			{JobStatus: types.JobStatusInProgress},
			{JobStatus: types.JobStatusSucceeded, Blocks: terminalBlocks(), DocumentMetadata: &types.DocumentMetadata{Pages: aws.Int32(1)}},
		},
	}
	runner := newRunner(t, up, tx, Settings{
		Bucket: "b", TopicARN: "t", RoleARN: "r", OutputPath: output, SegmentsXLSXPath: xlsx,
	})

	report, err := runner.Run(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, up.calls, 1)
	assert.Equal(t, "b", up.calls[0].bucket)
	assert.Equal(t, "statement.pdf", up.calls[0].key)

	require.Len(t, tx.starts, 1)
	assert.Equal(t, "statement.pdf", aws.ToString(tx.starts[0].DocumentLocation.S3Object.Name))
	assert.Equal(t, "b", aws.ToString(tx.starts[0].DocumentLocation.S3Object.Bucket))
	assert.Len(t, tx.gets, 2)

	assert.Equal(t, "job-123", report.JobID)
	assert.Equal(t, analysis.StatusSucceeded, report.Status)
	assert.Equal(t, 1, report.Document.Pages)

	saved, err := resultfile.Read(output)
	require.NoError(t, err)
	assert.Equal(t, "job-123", saved.JobID)
	assert.Equal(t, analysis.StatusSucceeded, saved.JobStatus)
	assert.Len(t, saved.Blocks, 4)
	assert.Len(t, report.Segments, len(saved.Blocks))
	assert.Equal(t, "LINE", report.Segments[1].Type)
	assert.Equal(t, "Statement of account", report.Segments[1].Text)
	assert.Empty(t, report.Segments[3].Text)

	_, err = os.Stat(xlsx)
	assert.NoError(t, err)
}

func TestRunFailedJobStillWritesResult(t *testing.T) {
	input := writeInput(t, "statement.pdf", documenttest.PDF(1))
	output := filepath.Join(t.TempDir(), "analysis.json")
	tx := &fakeTextract{
		jobID:    "job-9",
		statuses: []*textract.GetDocumentAnalysisOutput{{JobStatus: types.JobStatusFailed, StatusMessage: aws.String("unsupported document")}},
	}

	report, err := newRunner(t, &fakeUploader{}, tx, Settings{Bucket: "b", TopicARN: "t", RoleARN: "r", OutputPath: output}).Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, analysis.StatusFailed, report.Status)
	assert.Empty(t, report.Segments)

	saved, err := resultfile.Read(output)
	require.NoError(t, err)
	assert.Equal(t, "unsupported document", saved.StatusMessage)
}

func TestRunMissingTopicStopsBeforeSubmit(t *testing.T) {
	input := writeInput(t, "statement.pdf", documenttest.PDF(1))
	output := filepath.Join(t.TempDir(), "analysis.json")
	tx := &fakeTextract{jobID: "job-1"}

	_, err := newRunner(t, &fakeUploader{}, tx, Settings{Bucket: "b", RoleARN: "r", OutputPath: output}).Run(context.Background(), input)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageSubmit, stageErr.Stage)
	assert.True(t, config.IsMissing(err))
	assert.Empty(t, tx.starts)
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "result must not be written")
}

func TestRunUploadFailureAborts(t *testing.T) {
	input := writeInput(t, "statement.pdf", documenttest.PDF(1))
	boom := errors.New("connection reset")
	tx := &fakeTextract{jobID: "job-1"}

	_, err := newRunner(t, &fakeUploader{err: boom}, tx, Settings{Bucket: "b", TopicARN: "t", RoleARN: "r", OutputPath: "unused.json"}).Run(context.Background(), input)

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, tx.starts)
}

func TestRunMissingInputFile(t *testing.T) {
	up := &fakeUploader{}

	_, err := newRunner(t, up, &fakeTextract{}, Settings{Bucket: "b"}).Run(context.Background(), filepath.Join(t.TempDir(), "absent.pdf"))

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageRead, stageErr.Stage)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Empty(t, up.calls)
}

func TestRunRejectsUnsupportedDocument(t *testing.T) {
	input := writeInput(t, "notes.txt", []byte("plain text is not analyzable"))
	up := &fakeUploader{}

	_, err := newRunner(t, up, &fakeTextract{}, Settings{Bucket: "b", TopicARN: "t", RoleARN: "r"}).Run(context.Background(), input)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageInspect, stageErr.Stage)
	assert.Empty(t, up.calls)
}

func TestRunUploadsBaseNameWithInnerDots(t *testing.T) {
	input := writeInput(t, "statement..v2.pdf", documenttest.PDF(1))
	output := filepath.Join(t.TempDir(), "analysis.json")

	up := &fakeUploader{}
	tx := &fakeTextract{
		jobID:    "job-2",
		statuses: []*textract.GetDocumentAnalysisOutput{{JobStatus: types.JobStatusSucceeded, Blocks: terminalBlocks()}},
	}

	report, err := newRunner(t, up, tx, Settings{Bucket: "b", TopicARN: "t", RoleARN: "r", OutputPath: output}).Run(context.Background(), input)
	require.NoError(t, err)

	require.Len(t, up.calls, 1)
	assert.Equal(t, "statement..v2.pdf", up.calls[0].key)
	assert.Equal(t, "statement..v2.pdf", aws.ToString(tx.starts[0].DocumentLocation.S3Object.Name))
	assert.Equal(t, "job-2", report.JobID)
}

func TestRunUploadsPDFWithTrailingBytes(t *testing.T) {
	data := append(documenttest.PDF(1), []byte("\n% scanner footer\n")...)
	input := writeInput(t, "scan.pdf", data)
	output := filepath.Join(t.TempDir(), "analysis.json")

	up := &fakeUploader{}
	tx := &fakeTextract{
		jobID:    "job-3",
		statuses: []*textract.GetDocumentAnalysisOutput{{JobStatus: types.JobStatusSucceeded, Blocks: terminalBlocks()}},
	}

	_, err := newRunner(t, up, tx, Settings{Bucket: "b", TopicARN: "t", RoleARN: "r", OutputPath: output}).Run(context.Background(), input)
	require.NoError(t, err)
	require.Len(t, up.calls, 1)
	assert.Equal(t, len(data), up.calls[0].size)
}
