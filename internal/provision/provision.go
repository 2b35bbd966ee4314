package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"doc-analyzer/internal/shared/config"
	"doc-analyzer/internal/shared/telemetry"
)

const (
	maxBucketNameLen = 63
	// us-east-1 rejects an explicit location constraint.
	defaultS3Region = "us-east-1"
)

type S3API interface {
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

type SNSAPI interface {
	ListTopics(ctx context.Context, params *sns.ListTopicsInput, optFns ...func(*sns.Options)) (*sns.ListTopicsOutput, error)
	CreateTopic(ctx context.Context, params *sns.CreateTopicInput, optFns ...func(*sns.Options)) (*sns.CreateTopicOutput, error)
	DeleteTopic(ctx context.Context, params *sns.DeleteTopicInput, optFns ...func(*sns.Options)) (*sns.DeleteTopicOutput, error)
}

type SQSAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	CreateQueue(ctx context.Context, params *sqs.CreateQueueInput, optFns ...func(*sqs.Options)) (*sqs.CreateQueueOutput, error)
	GetQueueAttributes(ctx context.Context, params *sqs.GetQueueAttributesInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueAttributesOutput, error)
	DeleteQueue(ctx context.Context, params *sqs.DeleteQueueInput, optFns ...func(*sqs.Options)) (*sqs.DeleteQueueOutput, error)
}

// Request names the resources to provision.
type Request struct {
	BucketBase string
	TopicName  string
	QueueName  string
}

// Resources describes what Provision created or found. The bucket name carries a
// random suffix and must be copied into configuration by the caller.
type Resources struct {
	BucketName   string `json:"bucketName"`
	TopicARN     string `json:"topicArn"`
	TopicCreated bool   `json:"topicCreated"`
	QueueURL     string `json:"queueUrl"`
	QueueARN     string `json:"queueArn"`
	QueueCreated bool   `json:"queueCreated"`
}

// Provisioner creates the bucket, topic and queue the analysis flow relies on.
type Provisioner struct {
	s3     S3API
	sns    SNSAPI
	sqs    SQSAPI
	region string
	newID  func() string
}

func New(s3Client S3API, snsClient SNSAPI, sqsClient SQSAPI, region string) *Provisioner {
	return &Provisioner{
		s3:     s3Client,
		sns:    snsClient,
		sqs:    sqsClient,
		region: strings.TrimSpace(region),
		newID:  uuid.NewString,
	}
}

// Provision creates a uniquely named private bucket and reuses or creates the
// topic and queue by name. If a step fails, everything created by this call is
// removed in reverse order; pre-existing topics and queues are left alone.
func (p *Provisioner) Provision(ctx context.Context, req Request) (res Resources, err error) {
	if strings.TrimSpace(req.BucketBase) == "" {
		return Resources{}, config.Missing("bucket base name")
	}
	if strings.TrimSpace(req.TopicName) == "" {
		return Resources{}, config.Missing("topic name")
	}
	if strings.TrimSpace(req.QueueName) == "" {
		return Resources{}, config.Missing("queue name")
	}

	var undo []undoStep
	defer func() {
		if err != nil {
			err = p.rollback(ctx, undo, err)
			res = Resources{}
		}
	}()

	res.BucketName = BucketName(req.BucketBase, p.newID())
	if err := p.createBucket(ctx, res.BucketName); err != nil {
		return res, err
	}
	undo = append(undo, undoStep{name: "bucket " + res.BucketName, fn: func(ctx context.Context) error {
		_, err := p.s3.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(res.BucketName)})
		return err
	}})

	res.TopicARN, res.TopicCreated, err = p.ensureTopic(ctx, req.TopicName)
	if err != nil {
		return res, err
	}
	if res.TopicCreated {
		topicARN := res.TopicARN
		undo = append(undo, undoStep{name: "topic " + topicARN, fn: func(ctx context.Context) error {
			_, err := p.sns.DeleteTopic(ctx, &sns.DeleteTopicInput{TopicArn: aws.String(topicARN)})
			return err
		}})
	}

	res.QueueURL, res.QueueCreated, err = p.ensureQueue(ctx, req.QueueName)
	if err != nil {
		return res, err
	}
	if res.QueueCreated {
		queueURL := res.QueueURL
		undo = append(undo, undoStep{name: "queue " + queueURL, fn: func(ctx context.Context) error {
			_, err := p.sqs.DeleteQueue(ctx, &sqs.DeleteQueueInput{QueueUrl: aws.String(queueURL)})
			return err
		}})
	}

	res.QueueARN, err = p.queueARN(ctx, res.QueueURL)
	if err != nil {
		return res, err
	}
	return res, nil
}

func (p *Provisioner) createBucket(ctx context.Context, name string) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(name),
		ACL:    s3types.BucketCannedACLPrivate,
	}
	if p.region != "" && p.region != defaultS3Region {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(p.region),
		}
	}
	if _, err := p.s3.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("s3 create bucket %s: %w", name, err)
	}
	return nil
}

func (p *Provisioner) ensureTopic(ctx context.Context, name string) (string, bool, error) {
	suffix := ":" + name
	var token *string
	for {
		out, err := p.sns.ListTopics(ctx, &sns.ListTopicsInput{NextToken: token})
		if err != nil {
			return "", false, fmt.Errorf("sns list topics: %w", err)
		}
		for _, t := range out.Topics {
			if arn := aws.ToString(t.TopicArn); strings.HasSuffix(arn, suffix) {
				return arn, false, nil
			}
		}
		if aws.ToString(out.NextToken) == "" {
			break
		}
		token = out.NextToken
	}

	out, err := p.sns.CreateTopic(ctx, &sns.CreateTopicInput{Name: aws.String(name)})
	if err != nil {
		return "", false, fmt.Errorf("sns create topic %s: %w", name, err)
	}
	return aws.ToString(out.TopicArn), true, nil
}

func (p *Provisioner) ensureQueue(ctx context.Context, name string) (string, bool, error) {
	existing, err := p.sqs.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(name)})
	if err == nil {
		return aws.ToString(existing.QueueUrl), false, nil
	}
	var notFound *sqstypes.QueueDoesNotExist
	if !errors.As(err, &notFound) {
		return "", false, fmt.Errorf("sqs get queue url %s: %w", name, err)
	}

	out, err := p.sqs.CreateQueue(ctx, &sqs.CreateQueueInput{QueueName: aws.String(name)})
	if err != nil {
		return "", false, fmt.Errorf("sqs create queue %s: %w", name, err)
	}
	return aws.ToString(out.QueueUrl), true, nil
}

func (p *Provisioner) queueARN(ctx context.Context, queueURL string) (string, error) {
	out, err := p.sqs.GetQueueAttributes(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(queueURL),
		AttributeNames: []sqstypes.QueueAttributeName{sqstypes.QueueAttributeNameQueueArn},
	})
	if err != nil {
		return "", fmt.Errorf("sqs get queue attributes %s: %w", queueURL, err)
	}
	return out.Attributes[string(sqstypes.QueueAttributeNameQueueArn)], nil
}

type undoStep struct {
	name string
	fn   func(ctx context.Context) error
}

// rollback runs undo steps newest first. It keeps going after a failed step so
// as little as possible is left behind; failures are joined to cause.
func (p *Provisioner) rollback(ctx context.Context, steps []undoStep, cause error) error {
	ctx = context.WithoutCancel(ctx)
	errs := []error{cause}
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if err := step.fn(ctx); err != nil {
			telemetry.Error("provision.rollback_failed", map[string]any{"resource": step.name, "error": err})
			errs = append(errs, fmt.Errorf("rollback %s: %w", step.name, err))
			continue
		}
		telemetry.Info("provision.rolled_back", map[string]any{"resource": step.name})
	}
	return errors.Join(errs...)
}

// BucketName appends id to base, lowercased and trimmed so the result fits the
// 63 character bucket name limit.
func BucketName(base, id string) string {
	base = strings.Trim(strings.ToLower(strings.TrimSpace(base)), "-.")
	id = strings.ToLower(id)
	if room := maxBucketNameLen - len(id) - 1; len(base) > room {
		base = strings.TrimRight(base[:max(room, 0)], "-.")
	}
	if base == "" {
		return id
	}
	return base + "-" + id
}
