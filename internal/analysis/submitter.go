package analysis

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"doc-analyzer/internal/shared/config"
	"doc-analyzer/internal/shared/metrics"
	"doc-analyzer/internal/shared/util"
)

// StartAPI is the subset of the Textract client used to start jobs.
type StartAPI interface {
	StartDocumentAnalysis(ctx context.Context, params *textract.StartDocumentAnalysisInput, optFns ...func(*textract.Options)) (*textract.StartDocumentAnalysisOutput, error)
}

// FeatureTypes are requested for every job.
var FeatureTypes = []types.FeatureType{types.FeatureTypeTables, types.FeatureTypeForms}

// JobRequest identifies a stored document and the channel the service notifies on completion.
type JobRequest struct {
	Bucket   string
	Key      string
	TopicARN string
	RoleARN  string
}

// Submitter starts asynchronous document analysis jobs.
type Submitter struct {
	client  StartAPI
	metrics *metrics.Recorder
}

func NewSubmitter(client StartAPI, rec *metrics.Recorder) *Submitter {
	return &Submitter{client: client, metrics: rec}
}

// Submit starts analysis of the object at req.Bucket/req.Key and returns the job id.
func (s *Submitter) Submit(ctx context.Context, req JobRequest) (string, error) {
	if strings.TrimSpace(req.Bucket) == "" {
		return "", config.Missing("bucket name")
	}
	if strings.TrimSpace(req.TopicARN) == "" {
		return "", config.Missing("topic ARN")
	}
	if strings.TrimSpace(req.RoleARN) == "" {
		return "", config.Missing("role ARN")
	}

	input := &textract.StartDocumentAnalysisInput{
		DocumentLocation: &types.DocumentLocation{
			S3Object: &types.S3Object{
				Bucket: aws.String(req.Bucket),
				Name:   aws.String(req.Key),
			},
		},
		FeatureTypes: append([]types.FeatureType(nil), FeatureTypes...),
		NotificationChannel: &types.NotificationChannel{
			SNSTopicArn: aws.String(req.TopicARN),
			RoleArn:     aws.String(req.RoleARN),
		},
	}
	if tag := util.JobTag(path.Base(req.Key)); tag != "" {
		input.JobTag = aws.String(tag)
	}

	out, err := s.client.StartDocumentAnalysis(ctx, input)
	if err != nil {
		return "", fmt.Errorf("start document analysis bucket=%s key=%s: %w", req.Bucket, req.Key, err)
	}
	jobID := strings.TrimSpace(aws.ToString(out.JobId))
	if jobID == "" {
		return "", fmt.Errorf("start document analysis bucket=%s key=%s: %w", req.Bucket, req.Key, ErrMissingJobID)
	}
	s.metrics.IncSubmissions()
	return jobID, nil
}
