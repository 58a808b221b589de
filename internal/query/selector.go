package query

//go:generate mockgen -package mocks -destination mocks/mock_selector.go github.com/ethpandaops/landsat-historic/internal/query Selector

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/landsat-historic/internal/dispatch"
)

// ErrIncompleteResult is returned when the result stream closes before the
// End event, which means S3 did not deliver the whole result.
var ErrIncompleteResult = errors.New("select result ended without end event")

// Selector runs the filter query for a window and streams the results.
type Selector interface {
	Select(ctx context.Context, start, end string) (dispatch.EventStream, error)
}

// S3API is the subset of the S3 client used by S3Selector.
type S3API interface {
	SelectObjectContent(
		ctx context.Context,
		params *s3.SelectObjectContentInput,
		optFns ...func(*s3.Options),
	) (*s3.SelectObjectContentOutput, error)
}

// Config identifies the inventory object and the query filters.
type Config struct {
	Bucket  string
	Key     string
	Filters Filters
}

// S3Selector queries the gzipped inventory document with S3 Select.
type S3Selector struct {
	log    logrus.FieldLogger
	cfg    Config
	client S3API
}

// NewS3Selector creates an S3Selector.
func NewS3Selector(log logrus.FieldLogger, cfg Config, client S3API) *S3Selector {
	cfg.Filters = cfg.Filters.WithDefaults()

	return &S3Selector{
		log:    log.WithField("component", "selector"),
		cfg:    cfg,
		client: client,
	}
}

// Input builds the SelectObjectContent request for [start, end].
func (s *S3Selector) Input(start, end string) *s3.SelectObjectContentInput {
	return &s3.SelectObjectContentInput{
		Bucket:         aws.String(s.cfg.Bucket),
		Key:            aws.String(s.cfg.Key),
		Expression:     aws.String(s.cfg.Filters.Expression(start, end)),
		ExpressionType: types.ExpressionTypeSql,
		InputSerialization: &types.InputSerialization{
			CompressionType: types.CompressionTypeGzip,
			JSON:            &types.JSONInput{Type: types.JSONTypeDocument},
		},
		OutputSerialization: &types.OutputSerialization{
			JSON: &types.JSONOutput{RecordDelimiter: aws.String("\n")},
		},
	}
}

// Select starts the query. The caller must Close the returned stream.
func (s *S3Selector) Select(ctx context.Context, start, end string) (dispatch.EventStream, error) {
	in := s.Input(start, end)

	s.log.WithFields(logrus.Fields{
		"bucket":     s.cfg.Bucket,
		"key":        s.cfg.Key,
		"expression": aws.ToString(in.Expression),
	}).Debug("Starting select")

	out, err := s.client.SelectObjectContent(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("select object content s3://%s/%s: %w", s.cfg.Bucket, s.cfg.Key, err)
	}

	stream := out.GetStream()
	if stream == nil {
		return nil, fmt.Errorf("select object content s3://%s/%s: response has no event stream", s.cfg.Bucket, s.cfg.Key)
	}

	return NewEventStream(stream), nil
}

// EventReader is the shape of the SDK's select event stream.
type EventReader interface {
	Events() <-chan types.SelectObjectContentEventStream
	Close() error
	Err() error
}

type eventStream struct {
	reader EventReader
	ended  bool
}

// NewEventStream adapts an S3 Select event reader. Progress and
// continuation events are dropped.
func NewEventStream(reader EventReader) dispatch.EventStream {
	return &eventStream{reader: reader}
}

func (s *eventStream) Next(ctx context.Context) (dispatch.Event, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev, ok := <-s.reader.Events():
			if !ok {
				if err := s.reader.Err(); err != nil {
					return nil, fmt.Errorf("select event stream: %w", err)
				}

				if !s.ended {
					return nil, ErrIncompleteResult
				}

				return nil, io.EOF
			}

			switch v := ev.(type) {
			case *types.SelectObjectContentEventStreamMemberRecords:
				return dispatch.RecordsEvent{Payload: v.Value.Payload}, nil
			case *types.SelectObjectContentEventStreamMemberStats:
				if v.Value.Details == nil {
					continue
				}

				return dispatch.StatsEvent{
					BytesScanned:   aws.ToInt64(v.Value.Details.BytesScanned),
					BytesProcessed: aws.ToInt64(v.Value.Details.BytesProcessed),
					BytesReturned:  aws.ToInt64(v.Value.Details.BytesReturned),
				}, nil
			case *types.SelectObjectContentEventStreamMemberEnd:
				s.ended = true
			}
		}
	}
}

func (s *eventStream) Close() error {
	return s.reader.Close()
}

// Compile-time interface compliance checks.
var (
	_ Selector             = (*S3Selector)(nil)
	_ dispatch.EventStream = (*eventStream)(nil)
)
