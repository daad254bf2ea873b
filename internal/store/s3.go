package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const archivePrefix = "raw-matches"

// S3Archive stores raw match JSON at raw-matches/<puuid>/<year>/<matchId>.json.
type S3Archive struct {
	client S3API
	bucket string
}

func NewS3Archive(client S3API, bucket string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket}
}

func ArchiveKey(puuid string, year int, matchID string) string {
	return seasonPrefix(puuid, year) + matchID + ".json"
}

func seasonPrefix(puuid string, year int) string {
	return archivePrefix + "/" + puuid + "/" + strconv.Itoa(year) + "/"
}

// Put writes one match and returns its key. Existing objects are overwritten.
func (a *S3Archive) Put(ctx context.Context, puuid string, year int, matchID string, raw []byte) (string, error) {
	key := ArchiveKey(puuid, year, matchID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"player_puuid": puuid,
			"match_id":     matchID,
			"collected_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return key, nil
}

// List returns the sorted keys archived for one player and year.
func (a *S3Archive) List(ctx context.Context, puuid string, year int) ([]string, error) {
	prefix := seasonPrefix(puuid, year)
	p := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})

	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, ".json") {
				keys = append(keys, key)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Get reads one archived object, returning ErrNotFound when it is missing.
func (a *S3Archive) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}
