package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/textract"

	"doc-analyzer/internal/analysis"
	"doc-analyzer/internal/pipeline"
	"doc-analyzer/internal/provision"
	"doc-analyzer/internal/shared/config"
	"doc-analyzer/internal/shared/metrics"
	s3store "doc-analyzer/internal/shared/storage/object/s3"
)

// App holds the AWS clients and shared dependencies for one process.
type App struct {
	Config   config.Config
	AWS      aws.Config
	S3       *s3.Client
	Textract *textract.Client
	SNS      *sns.Client
	SQS      *sqs.Client
	Metrics  *metrics.Recorder
}

// Build loads AWS credentials for cfg.Region and constructs the service clients.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	region := cfg.Region
	if region == "" {
		region = config.DefaultRegion
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return FromAWSConfig(cfg, awsCfg), nil
}

// FromAWSConfig wires an App from an already loaded aws.Config.
func FromAWSConfig(cfg config.Config, awsCfg aws.Config) *App {
	return &App{
		Config:   cfg,
		AWS:      awsCfg,
		S3:       s3.NewFromConfig(awsCfg),
		Textract: textract.NewFromConfig(awsCfg),
		SNS:      sns.NewFromConfig(awsCfg),
		SQS:      sqs.NewFromConfig(awsCfg),
		Metrics:  metrics.New(),
	}
}

// Runner returns the analysis pipeline configured from App.Config.
func (a *App) Runner() *pipeline.Runner {
	return &pipeline.Runner{
		Uploader:  s3store.New(a.S3, a.Config.S3Prefix, a.Config.SSEKMSKeyID),
		Submitter: analysis.NewSubmitter(a.Textract, a.Metrics),
		Poller: analysis.NewPoller(a.Textract,
			analysis.WithInterval(a.Config.PollInterval),
			analysis.WithTimeout(a.Config.PollTimeout),
			analysis.WithMetrics(a.Metrics),
		),
		Settings: pipeline.Settings{
			Bucket:           a.Config.BucketName,
			TopicARN:         a.Config.TopicARN,
			RoleARN:          a.Config.RoleARN,
			OutputPath:       a.Config.OutputPath,
			SegmentsXLSXPath: a.Config.SegmentsXLSXPath,
		},
		Metrics: a.Metrics,
	}
}

// Provisioner returns the bucket/topic/queue provisioner for App's region.
func (a *App) Provisioner() *provision.Provisioner {
	return provision.New(a.S3, a.SNS, a.SQS, a.AWS.Region)
}

// ProvisionRequest builds the provisioning request from App.Config.
func (a *App) ProvisionRequest() provision.Request {
	return provision.Request{
		BucketBase: a.Config.BucketBaseName,
		TopicName:  a.Config.TopicName,
		QueueName:  a.Config.QueueName,
	}
}
