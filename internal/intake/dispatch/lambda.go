// internal/intake/dispatch/lambda.go
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/smithy-go"

	apperrors "reprocess-intake/internal/common/errors"
	"reprocess-intake/internal/models"
)

// LambdaAPI is the slice of the Lambda client the invoker needs.
type LambdaAPI interface {
	Invoke(ctx context.Context, input *lambda.InvokeInput) (*lambda.InvokeOutput, error)
}

// LambdaInvoker submits payloads by invoking the processing function
// asynchronously (InvocationType=Event), one call per payload.
type LambdaInvoker struct {
	client       LambdaAPI
	functionName string
	envelope     *EnvelopeBuilder
}

func NewLambdaInvoker(client LambdaAPI, functionName string, envelope *EnvelopeBuilder) *LambdaInvoker {
	return &LambdaInvoker{client: client, functionName: functionName, envelope: envelope}
}

func (l *LambdaInvoker) Invoke(ctx context.Context, payload models.InvocationPayload) error {
	body, err := l.envelope.Envelope(ctx, payload)
	if err != nil {
		return err
	}

	out, err := l.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(l.functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        body,
	})
	if err != nil {
		return classifyLambdaError(ctx, err)
	}

	// Async invokes answer 202; anything else without an explicit
	// malformed-payload marker is treated as transient.
	if out.StatusCode != 202 {
		return apperrors.NewDispatchUnavailableError(
			fmt.Errorf("unexpected status code %d from %s", out.StatusCode, l.functionName))
	}
	if out.FunctionError != nil {
		return apperrors.NewDispatchUnavailableError(
			fmt.Errorf("function error from %s: %s", l.functionName, *out.FunctionError))
	}
	return nil
}

func classifyLambdaError(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewDispatchTimeoutError(err)
	}

	var tooMany *lambdatypes.TooManyRequestsException
	if errors.As(err, &tooMany) {
		return apperrors.NewThrottledError(err)
	}
	var badContent *lambdatypes.InvalidRequestContentException
	if errors.As(err, &badContent) {
		return apperrors.NewPayloadRejectedError(err.Error())
	}
	var tooLarge *lambdatypes.RequestTooLargeException
	if errors.As(err, &tooLarge) {
		return apperrors.NewPayloadRejectedError(err.Error())
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDeniedException", "UnauthorizedException":
			return apperrors.NewAuthorizationDeniedError(err.Error())
		case "ResourceNotFoundException":
			return apperrors.NewPayloadRejectedError(err.Error())
		}
	}

	return apperrors.NewDispatchUnavailableError(err)
}
