package config

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultRegion         = "us-east-1"
	DefaultBucketBaseName = "textract-bucket"
	DefaultTopicName      = "textract-topic"
	DefaultQueueName      = "textract-queue"
	DefaultOutputPath     = "analysis.json"
	DefaultPollInterval   = 10 * time.Second
	DefaultPollTimeout    = time.Hour
)

// Config holds runner configuration. It is read once at startup and not mutated afterwards.
type Config struct {
	Region     string
	BucketName string
	TopicARN   string
	RoleARN    string
	QueueURL   string

	S3Prefix    string
	SSEKMSKeyID string

	OutputPath       string
	SegmentsXLSXPath string
	MetricsTextfile  string

	PollInterval time.Duration
	PollTimeout  time.Duration

	BucketBaseName string
	TopicName      string
	QueueName      string

	Env string
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"region":        "aws_region",
	"bucket":        "aws_bucket_name",
	"topic-arn":     "aws_topic_arn",
	"role-arn":      "aws_role_arn",
	"output":        "output_path",
	"segments-xlsx": "segments_xlsx_path",
	"metrics-file":  "metrics_textfile",
	"poll-interval": "poll_interval",
	"poll-timeout":  "poll_timeout",
	"bucket-base":   "aws_bucket_base_name",
	"topic-name":    "aws_topic_name",
	"queue-name":    "aws_queue_name",
}

// RegisterFlags adds the overridable settings to fs. Flags left unset fall
// through to the environment, the optional config files, then defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("region", "", "AWS region")
	fs.String("bucket", "", "S3 bucket holding uploaded documents")
	fs.String("topic-arn", "", "SNS topic ARN for completion notifications")
	fs.String("role-arn", "", "IAM role ARN the analysis service assumes to publish")
	fs.String("output", "", "path of the analysis result file (.json, .yaml)")
	fs.String("segments-xlsx", "", "optional XLSX export of extracted segments")
	fs.String("metrics-file", "", "optional Prometheus textfile for run metrics")
	fs.Duration("poll-interval", 0, "delay between job status checks")
	fs.Duration("poll-timeout", 0, "overall wait limit for the analysis job (0 disables)")
	fs.String("bucket-base", "", "base name for a provisioned bucket")
	fs.String("topic-name", "", "name of the provisioned SNS topic")
	fs.String("queue-name", "", "name of the provisioned SQS queue")
}

// Load reads configuration from defaults, optional config.yaml/.env files in the
// working directory, environment variables and the given flags (may be nil).
func Load(fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	if err := mergeDotEnv(v, ".env"); err != nil {
		return Config{}, err
	}

	if fs != nil {
		for name, key := range flagKeys {
			f := fs.Lookup(name)
			if f == nil || !f.Changed {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	return Config{
		Region:           trimmed(v, "aws_region"),
		BucketName:       trimmed(v, "aws_bucket_name"),
		TopicARN:         trimmed(v, "aws_topic_arn"),
		RoleARN:          trimmed(v, "aws_role_arn"),
		QueueURL:         trimmed(v, "aws_queue_url"),
		S3Prefix:         trimmed(v, "s3_prefix"),
		SSEKMSKeyID:      trimmed(v, "sse_kms_key_id"),
		OutputPath:       trimmed(v, "output_path"),
		SegmentsXLSXPath: trimmed(v, "segments_xlsx_path"),
		MetricsTextfile:  trimmed(v, "metrics_textfile"),
		PollInterval:     v.GetDuration("poll_interval"),
		PollTimeout:      v.GetDuration("poll_timeout"),
		BucketBaseName:   trimmed(v, "aws_bucket_base_name"),
		TopicName:        trimmed(v, "aws_topic_name"),
		QueueName:        trimmed(v, "aws_queue_name"),
		Env:              normalizeEnv(v.GetString("env")),
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws_region", DefaultRegion)
	v.SetDefault("aws_bucket_name", "")
	v.SetDefault("aws_topic_arn", "")
	v.SetDefault("aws_role_arn", "")
	v.SetDefault("aws_queue_url", "")
	v.SetDefault("s3_prefix", "")
	v.SetDefault("sse_kms_key_id", "")
	v.SetDefault("output_path", DefaultOutputPath)
	v.SetDefault("segments_xlsx_path", "")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("poll_timeout", DefaultPollTimeout)
	v.SetDefault("aws_bucket_base_name", DefaultBucketBaseName)
	v.SetDefault("aws_topic_name", DefaultTopicName)
	v.SetDefault("aws_queue_name", DefaultQueueName)
	v.SetDefault("env", "dev")
}

// mergeDotEnv layers KEY=VALUE pairs from path over config.yaml and beneath the
// environment. A missing file is not an error.
func mergeDotEnv(v *viper.Viper, path string) error {
	env := viper.New()
	env.SetConfigFile(path)
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		if isNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := v.MergeConfigMap(env.AllSettings()); err != nil {
		return fmt.Errorf("merge %s: %w", path, err)
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func trimmed(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	default:
		return "dev"
	}
}

// analysisRequirements lists the settings an analysis run cannot start without.
type analysisRequirements struct {
	Region     string `validate:"required" label:"region"`
	BucketName string `validate:"required" label:"bucket name"`
	TopicARN   string `validate:"required" label:"topic ARN"`
	RoleARN    string `validate:"required" label:"role ARN"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("label")
	})
	return v
}

// ValidateAnalysis reports every missing setting required by an analysis run in a
// single MissingFieldError.
func (c Config) ValidateAnalysis() error {
	req := analysisRequirements{
		Region:     c.Region,
		BucketName: c.BucketName,
		TopicARN:   c.TopicARN,
		RoleARN:    c.RoleARN,
	}
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &MissingFieldError{Fields: fields}
}
