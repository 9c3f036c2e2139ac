package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"acvcharts/internal/core"
	"acvcharts/internal/records"
)

// Config locates the records object and the AWS credentials to read it with.
// Empty Region and Profile fall back to the default credential chain.
type Config struct {
	Bucket  string
	Key     string
	Region  string
	Profile string
}

type objectGetter interface {
	GetObject(ctx context.Context, params *awss3.GetObjectInput, optFns ...func(*awss3.Options)) (*awss3.GetObjectOutput, error)
}

// Source reads a JSON array of records stored as a single S3 object.
type Source struct {
	client objectGetter
	bucket string
	key    string
}

var _ records.Source = (*Source)(nil)

func New(ctx context.Context, cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("missing S3 bucket")
	}
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, errors.New("missing S3 key")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config for profile %s: %w", cfg.Profile, err)
	}

	return newSource(awss3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Key), nil
}

func newSource(client objectGetter, bucket, key string) *Source {
	return &Source{client: client, bucket: bucket, key: key}
}

func (s *Source) Name() string {
	return "s3://" + s.bucket + "/" + s.key
}

// LoadRecords implements records.Source.
func (s *Source) LoadRecords(ctx context.Context) ([]core.RawRecord, error) {
	out, err := s.client.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", s.Name(), err)
	}
	defer out.Body.Close()

	recs, err := core.DecodeRecords(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return recs, nil
}
