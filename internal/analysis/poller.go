package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"doc-analyzer/internal/shared/metrics"
	"doc-analyzer/internal/shared/telemetry"
)

const DefaultPollInterval = 10 * time.Second

// StatusAPI is the subset of the Textract client used to read job status and results.
type StatusAPI interface {
	GetDocumentAnalysis(ctx context.Context, params *textract.GetDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.GetDocumentAnalysisOutput, error)
}

// Poller waits for analysis jobs by re-querying their status at a fixed interval.
type Poller struct {
	client   StatusAPI
	interval time.Duration
	timeout  time.Duration
	metrics  *metrics.Recorder

	wait func(ctx context.Context, d time.Duration) error
	now  func() time.Time
}

// PollerOption customizes a Poller.
type PollerOption func(*Poller)

// WithInterval sets the delay between status queries.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithTimeout bounds the total wait. Zero or negative leaves the wait unbounded.
func WithTimeout(d time.Duration) PollerOption {
	return func(p *Poller) { p.timeout = d }
}

// WithMetrics records status queries and job duration.
func WithMetrics(rec *metrics.Recorder) PollerOption {
	return func(p *Poller) { p.metrics = rec }
}

// WithWaitFunc replaces the delay between queries.
func WithWaitFunc(wait func(ctx context.Context, d time.Duration) error) PollerOption {
	return func(p *Poller) {
		if wait != nil {
			p.wait = wait
		}
	}
}

func NewPoller(client StatusAPI, opts ...PollerOption) *Poller {
	p := &Poller{
		client:   client,
		interval: DefaultPollInterval,
		wait:     sleep,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Poll queries the job until its status is no longer IN_PROGRESS and returns that
// response as received. The first query is issued immediately. Success and failure
// statuses are not distinguished here.
func (p *Poller) Poll(ctx context.Context, jobID string) (*textract.GetDocumentAnalysisOutput, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, ErrMissingJobID
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, p.timeout, ErrPollTimeout)
		defer cancel()
	}

	started := p.now()
	for attempt := 1; ; attempt++ {
		out, err := p.client.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId: aws.String(jobID),
		})
		if err != nil {
			return nil, fmt.Errorf("get document analysis job=%s attempt=%d: %w", jobID, attempt, causeOr(ctx, err))
		}
		p.metrics.ObserveStatus(string(out.JobStatus))

		if Status(out.JobStatus).Terminal() {
			p.metrics.ObserveJobDuration(p.now().Sub(started))
			return out, nil
		}

		telemetry.Info("analysis.poll.in_progress", map[string]any{
			"job_id":  jobID,
			"attempt": attempt,
			"wait_ms": p.interval.Milliseconds(),
		})
		if err := p.wait(ctx, p.interval); err != nil {
			return nil, fmt.Errorf("wait for job=%s: %w", jobID, causeOr(ctx, err))
		}
	}
}

// CollectPages follows NextToken from a terminal response and returns a copy of
// first with the blocks and warnings of every page appended in order.
func (p *Poller) CollectPages(ctx context.Context, jobID string, first *textract.GetDocumentAnalysisOutput) (*textract.GetDocumentAnalysisOutput, error) {
	if first == nil {
		return nil, errors.New("collect pages: nil response")
	}
	merged := *first
	merged.Blocks = append([]types.Block(nil), first.Blocks...)
	merged.Warnings = append([]types.Warning(nil), first.Warnings...)

	token := aws.ToString(first.NextToken)
	for page := 2; token != ""; page++ {
		out, err := p.client.GetDocumentAnalysis(ctx, &textract.GetDocumentAnalysisInput{
			JobId:     aws.String(jobID),
			NextToken: aws.String(token),
		})
		if err != nil {
			return nil, fmt.Errorf("get document analysis job=%s page=%d: %w", jobID, page, err)
		}
		merged.Blocks = append(merged.Blocks, out.Blocks...)
		merged.Warnings = append(merged.Warnings, out.Warnings...)
		token = aws.ToString(out.NextToken)
	}
	merged.NextToken = nil
	return &merged, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// causeOr prefers the context cause (e.g. ErrPollTimeout) once the context is done.
func causeOr(ctx context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(err, cause) {
		return errors.Join(cause, err)
	}
	return err
}
