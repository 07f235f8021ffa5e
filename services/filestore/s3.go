package filestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
)

// Putter is the part of the S3 client the store needs.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Store struct {
	client  Putter
	bucket  string
	baseURL string
}

var _ certificate.FileStore = (*s3Store)(nil)

// NewS3Store returns a store writing to conf.Bucket.
// A custom conf.Endpoint (eg: LocalStack, MinIO) switches the client to path-style addressing.
func NewS3Store(ctx context.Context, conf core.StorageConfig) (*s3Store, error) {
	if conf.Bucket == "" {
		return nil, errors.New("storage bucket is required for the s3 driver")
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(conf.Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := conf.BaseURL
	if baseURL == "" || strings.HasPrefix(baseURL, "http://localhost") {
		if conf.Endpoint != "" {
			baseURL = strings.TrimSuffix(conf.Endpoint, "/") + "/" + conf.Bucket
		} else {
			baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", conf.Bucket, conf.Region)
		}
	}
	return NewS3StoreWithClient(client, conf.Bucket, baseURL), nil
}

func NewS3StoreWithClient(client Putter, bucket, baseURL string) *s3Store {
	return &s3Store{client: client, bucket: bucket, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *s3Store) Save(ctx context.Context, key string, file certificate.File) (string, error) {
	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file.Content,
		ContentType: aws.String(contentType),
		Metadata:    map[string]string{"filename": file.Name},
	})
	if err != nil {
		return "", errors.Wrapf(err, "putting s3://%s/%s", s.bucket, key)
	}
	return s.baseURL + "/" + key, nil
}
