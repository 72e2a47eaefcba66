// internal/intake/dispatch/sns.go
package dispatch

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"

	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/internal/models"
)

// SNSAPI is the slice of the SNS client the invoker needs.
type SNSAPI interface {
	Publish(ctx context.Context, input *sns.PublishInput) (*sns.PublishOutput, error)
}

// SNSInvoker submits payloads by publishing to the processing topic the
// function already subscribes to. SNS performs its own fan-out, so only
// the inner message is published, not the record wrapper.
type SNSInvoker struct {
	client   SNSAPI
	topicARN string
	envelope *EnvelopeBuilder
}

func NewSNSInvoker(client SNSAPI, topicARN string, envelope *EnvelopeBuilder) *SNSInvoker {
	return &SNSInvoker{client: client, topicARN: topicARN, envelope: envelope}
}

func (s *SNSInvoker) Invoke(ctx context.Context, payload models.InvocationPayload) error {
	msg, err := s.envelope.Message(ctx, payload)
	if err != nil {
		return err
	}

	_, err = s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(msg)),
	})
	if err != nil {
		return classifySNSError(ctx, err)
	}
	return nil
}

func classifySNSError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewDispatchTimeoutError(err)
	}

	var throttled *snstypes.ThrottledException
	if errors.As(err, &throttled) {
		return apperrors.NewThrottledError(err)
	}
	var invalid *snstypes.InvalidParameterException
	if errors.As(err, &invalid) {
		return apperrors.NewPayloadRejectedError(err.Error())
	}
	var denied *snstypes.AuthorizationErrorException
	if errors.As(err, &denied) {
		return apperrors.NewAuthorizationDeniedError(err.Error())
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "Throttling" {
		return apperrors.NewThrottledError(err)
	}

	return apperrors.NewDispatchUnavailableError(err)
}
