package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"
)

// DefaultKey is the inventory object name published by USGS.
const DefaultKey = "inventory_product_list.zip"

// CopyAPI is the subset of the S3 client used by Copier.
type CopyAPI interface {
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Config names the USGS source object and the local catalog copy.
type Config struct {
	SourceBucket string
	SourceKey    string
	DestBucket   string
	DestKey      string
}

// Validate validates the configuration and sets defaults.
func (c *Config) Validate() error {
	if c.SourceKey == "" {
		c.SourceKey = DefaultKey
	}

	if c.DestKey == "" {
		c.DestKey = c.SourceKey
	}

	if c.SourceBucket == "" {
		return errors.New("source_bucket is required")
	}

	if c.DestBucket == "" {
		return errors.New("dest_bucket is required")
	}

	return nil
}

// Result describes the copied object.
type Result struct {
	ETag         string
	LastModified time.Time
}

// Copier refreshes the catalog bucket's copy of the inventory. The USGS
// bucket is requester-pays.
type Copier struct {
	log    logrus.FieldLogger
	cfg    Config
	client CopyAPI
}

// NewCopier creates a Copier.
func NewCopier(log logrus.FieldLogger, cfg Config, client CopyAPI) *Copier {
	return &Copier{
		log:    log.WithField("component", "inventory"),
		cfg:    cfg,
		client: client,
	}
}

// Sync copies the source object over the destination.
func (c *Copier) Sync(ctx context.Context) (Result, error) {
	start := time.Now()

	out, err := c.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:       aws.String(c.cfg.DestBucket),
		Key:          aws.String(c.cfg.DestKey),
		CopySource:   aws.String(CopySource(c.cfg.SourceBucket, c.cfg.SourceKey)),
		RequestPayer: types.RequestPayerRequester,
	})
	if err != nil {
		return Result{}, fmt.Errorf(
			"copy s3://%s/%s to s3://%s/%s: %w",
			c.cfg.SourceBucket, c.cfg.SourceKey, c.cfg.DestBucket, c.cfg.DestKey, err,
		)
	}

	var res Result
	if out.CopyObjectResult != nil {
		res.ETag = aws.ToString(out.CopyObjectResult.ETag)
		res.LastModified = aws.ToTime(out.CopyObjectResult.LastModified)
	}

	c.log.WithFields(logrus.Fields{
		"source":   fmt.Sprintf("s3://%s/%s", c.cfg.SourceBucket, c.cfg.SourceKey),
		"dest":     fmt.Sprintf("s3://%s/%s", c.cfg.DestBucket, c.cfg.DestKey),
		"etag":     res.ETag,
		"duration": time.Since(start),
	}).Info("Synced inventory")

	return res, nil
}

// CopySource renders the URL-encoded bucket/key pair CopyObject expects.
func CopySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}

	return bucket + "/" + strings.Join(segments, "/")
}
