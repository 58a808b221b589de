//nolint:tagliatelle // message keys are consumed by downstream subscribers.
package publish

//go:generate mockgen -package mocks -destination mocks/mock_publisher.go github.com/ethpandaops/landsat-historic/internal/publish Publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/sirupsen/logrus"
)

// ErrPublishFailure is returned when a message could not be delivered.
var ErrPublishFailure = errors.New("publish failure")

// Message announces one historic granule.
type Message struct {
	LandsatProductID string `json:"landsat_product_id"`
	S3Location       string `json:"s3_location"`
}

// Publisher delivers messages to a topic.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// SNSAPI is the subset of the SNS client used by SNSPublisher.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Config configures the publisher.
type Config struct {
	TopicARN string
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.TopicARN == "" {
		return errors.New("topic_arn is required")
	}

	return nil
}

// SNSPublisher publishes JSON messages to an SNS topic. Delivery is not
// retried; callers treat any failure as fatal for the run.
type SNSPublisher struct {
	log    logrus.FieldLogger
	cfg    Config
	client SNSAPI
}

// NewSNSPublisher creates an SNS publisher.
func NewSNSPublisher(log logrus.FieldLogger, cfg Config, client SNSAPI) *SNSPublisher {
	return &SNSPublisher{
		log:    log.WithField("component", "publisher"),
		cfg:    cfg,
		client: client,
	}
}

// Publish sends msg to the configured topic.
func (p *SNSPublisher) Publish(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode message: %w", ErrPublishFailure, err)
	}

	out, err := p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.cfg.TopicARN),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailure, msg.LandsatProductID, err)
	}

	p.log.WithFields(logrus.Fields{
		"product_id": msg.LandsatProductID,
		"message_id": aws.ToString(out.MessageId),
	}).Debug("Published granule")

	return nil
}

// Compile-time interface compliance check.
var _ Publisher = (*SNSPublisher)(nil)
