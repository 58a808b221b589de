package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/sirupsen/logrus"
)

// Compile-time interface compliance check.
var _ Store = (*SSMStore)(nil)

// SSMAPI is the subset of the SSM client used by SSMStore.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// SSMStore keeps checkpoints in SSM Parameter Store String parameters.
//
// Parameter Store has no conditional write for existing parameters, so
// CompareAndSwap is a read-compare-write. Creation of an absent parameter is
// atomic (Overwrite=false). Pair this backend with the leader lock when more
// than one scheduler may run.
type SSMStore struct {
	log    logrus.FieldLogger
	client SSMAPI
}

// NewSSMStore creates an SSM-backed checkpoint store.
func NewSSMStore(log logrus.FieldLogger, client SSMAPI) *SSMStore {
	return &SSMStore{
		log:    log.WithField("component", "checkpoint_ssm"),
		client: client,
	}
}

// Get reads the parameter value.
func (s *SSMStore) Get(ctx context.Context, name string) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name: aws.String(name),
	})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}

		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}

	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return aws.ToString(out.Parameter.Value), nil
}

// Put overwrites the parameter value.
func (s *SSMStore) Put(ctx context.Context, name, value string) error {
	return s.put(ctx, name, value, true)
}

// CompareAndSwap writes value when the current parameter equals expected.
func (s *SSMStore) CompareAndSwap(ctx context.Context, name, expected, value string) (bool, error) {
	current, err := s.Get(ctx, name)

	switch {
	case errors.Is(err, ErrNotFound):
		if expected != "" {
			return false, nil
		}

		err = s.put(ctx, name, value, false)

		var exists *ssmtypes.ParameterAlreadyExists
		if errors.As(err, &exists) {
			return false, nil
		}

		return err == nil, err
	case err != nil:
		return false, err
	}

	if current != expected {
		s.log.WithFields(logrus.Fields{
			"name":     name,
			"expected": expected,
			"current":  current,
		}).Warn("Checkpoint changed since it was read")

		return false, nil
	}

	if err := s.put(ctx, name, value, true); err != nil {
		return false, err
	}

	return true, nil
}

func (s *SSMStore) put(ctx context.Context, name, value string, overwrite bool) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(name),
		Value:     aws.String(value),
		Type:      ssmtypes.ParameterTypeString,
		Overwrite: aws.Bool(overwrite),
	})
	if err != nil {
		return fmt.Errorf("put parameter %s: %w", name, err)
	}

	s.log.WithFields(logrus.Fields{
		"name":  name,
		"value": value,
	}).Debug("Stored checkpoint parameter")

	return nil
}
