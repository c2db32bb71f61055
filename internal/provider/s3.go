package provider

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Lister lists objects in an S3 bucket using the ListObjectsV2 API
type s3Lister struct {
	client s3.ListObjectsV2APIClient
	bucket string
}

var _ Lister = (*s3Lister)(nil)

// NewS3Lister creates a lister over the given bucket using ambient AWS
// credentials
func NewS3Lister(ctx context.Context, bucket string) (Lister, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return NewS3ListerWithClient(s3.NewFromConfig(cfg), bucket), nil
}

// NewS3ListerWithClient creates a lister over the given bucket using the
// provided client
func NewS3ListerWithClient(client s3.ListObjectsV2APIClient, bucket string) Lister {
	return &s3Lister{client: client, bucket: bucket}
}

// List returns a descriptor for every object under the given key prefix.
// Zero-byte directory markers are not files and are excluded.
func (l *s3Lister) List(ctx context.Context, prefix string) ([]FileInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(l.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(l.bucket),
		Prefix: aws.String(prefix),
	})

	var files []FileInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", l.bucket, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			info := FileInfo{
				Name: path.Base(key),
				Path: path.Dir(key),
				Size: aws.ToInt64(obj.Size),
			}
			if obj.LastModified != nil {
				info.Time = obj.LastModified.UnixMilli()
			}
			files = append(files, info)
		}
	}
	return files, nil
}
