package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/postleo/riftinsights/internal/inference"
)

// DefaultPrefix is the key prefix trained artifacts live under.
const DefaultPrefix = "models"

// GetObjectAPI is the part of *s3.Client the store needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store resolves artifacts from <bucket>/<prefix>/<name>.json.
type S3Store struct {
	client GetObjectAPI
	bucket string
	prefix string
	logger *zap.SugaredLogger
}

func NewS3Store(client GetObjectAPI, bucket string, logger *zap.Logger) *S3Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: DefaultPrefix,
		logger: logger.Sugar(),
	}
}

func (s *S3Store) Key(name string) string {
	return path.Join(s.prefix, name+".json")
}

func (s *S3Store) Resolve(ctx context.Context, name string) (inference.Artifact, error) {
	key := s.Key(name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, inference.ErrArtifactNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	s.logger.Debugw("Resolved artifact", "bucket", s.bucket, "key", key)
	return a, nil
}
