// internal/intake/notify/notify_test.go
package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/models"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func testReport() *models.SubmissionReport {
	return &models.SubmissionReport{
		SubmissionID: "9f2c1e7a",
		Submitter:    "volker-h",
		Timestamp:    "20240115093045",
		Items: []models.ItemReport{
			{
				Index:        0,
				Status:       models.ItemProcessed,
				CanonicalKey: "2024/01/request_volker-h_20240115093045.json",
				Dispatches: []models.DispatchResult{
					{Payload: models.InvocationPayload{Instrument: "meddea", Date: "20240105"}, Status: models.DispatchAccepted, Attempts: 1},
					{Payload: models.InvocationPayload{Instrument: "meddea", Date: "20240106"}, Status: models.DispatchFailed, Attempts: 3, Error: "throttled"},
				},
			},
			{
				Index:  1,
				Status: models.ItemValidationFailed,
			},
		},
	}
}

func TestSendReport(t *testing.T) {
	fake := &fakeSES{}
	n := New(fake, "swsoc@example.com", []string{"ops@example.com"}, logger.NewTestLogger(t))

	require.NoError(t, n.SendReport(context.Background(), testReport()))
	require.NotNil(t, fake.input)

	assert.Equal(t, "swsoc@example.com", aws.ToString(fake.input.Source))
	assert.Equal(t, []string{"ops@example.com"}, fake.input.Destination.ToAddresses)

	subject := aws.ToString(fake.input.Message.Subject.Data)
	assert.Contains(t, subject, "9f2c1e7a")
	assert.Contains(t, subject, "1 accepted, 1 failed")

	body := aws.ToString(fake.input.Message.Body.Text.Data)
	assert.Contains(t, body, "2024/01/request_volker-h_20240115093045.json")
	// Only the problem payloads are itemized.
	assert.Contains(t, body, "meddea/20240106")
	assert.NotContains(t, body, "meddea/20240105:")
}

func TestSendReport_DeliveryFailure(t *testing.T) {
	fake := &fakeSES{err: errors.New("ses unavailable")}
	n := New(fake, "swsoc@example.com", []string{"ops@example.com"}, logger.NewTestLogger(t))

	err := n.SendReport(context.Background(), testReport())
	assert.Error(t, err)
}
