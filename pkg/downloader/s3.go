package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DefaultS3Endpoint serves the eodata bucket for s3:// product hrefs.
const DefaultS3Endpoint = "https://eodata.dataspace.copernicus.eu"

const defaultS3Region = "default"

// S3Getter is the subset of *s3.Client used for s3:// hrefs.
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// newS3Client builds a client from the default AWS credential chain pointed at
// endpoint with path-style addressing.
func newS3Client(ctx context.Context, endpoint string) (S3Getter, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(defaultS3Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func (d *Downloader) openS3(ctx context.Context, u *url.URL) (io.ReadCloser, int64, error) {
	getter := d.s3
	if getter == nil {
		var err error
		if getter, err = newS3Client(ctx, d.s3Endpoint); err != nil {
			return nil, 0, err
		}
	}

	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	d.logger.Debug("download from s3", "bucket", bucket, "key", key)

	out, err := getter.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isTimeout(err) {
			return nil, 0, fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, 0, fmt.Errorf("%w: s3://%s/%s: %w", ErrTransport, bucket, key, err)
	}

	total := int64(-1)
	if out.ContentLength != nil {
		total = *out.ContentLength
	}
	return out.Body, total, nil
}
