// internal/intake/notify/notify.go
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"reprocess-intake/internal/common/logger"
	"reprocess-intake/internal/models"
)

// EmailAPI is the slice of the SES client the notifier needs.
type EmailAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput) (*ses.SendEmailOutput, error)
}

// Notifier mails the submission summary to the operations list once a
// run completes. Best-effort: a delivery failure is logged, never
// propagated into the submission outcome.
type Notifier struct {
	client     EmailAPI
	from       string
	recipients []string
	logger     logger.Logger
}

func New(client EmailAPI, from string, recipients []string, log logger.Logger) *Notifier {
	return &Notifier{
		client:     client,
		from:       from,
		recipients: recipients,
		logger:     log.WithFields(map[string]interface{}{"component": "notify"}),
	}
}

// SendReport mails a plain-text summary of the submission report.
func (n *Notifier) SendReport(ctx context.Context, report *models.SubmissionReport) error {
	subject := fmt.Sprintf("[reprocess-intake] submission %s by %s: %d accepted, %d failed",
		report.SubmissionID, report.Submitter, report.Accepted(), report.Failed())

	body := renderSummary(report)

	_, err := n.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: n.recipients,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body)},
			},
		},
		Source: aws.String(n.from),
	})
	if err != nil {
		n.logger.Error("report notification failed", map[string]interface{}{
			"submissionId": report.SubmissionID,
			"error":        err.Error(),
		})
		return err
	}

	n.logger.Info("report notification sent", map[string]interface{}{
		"submissionId": report.SubmissionID,
		"recipients":   len(n.recipients),
	})
	return nil
}

func renderSummary(report *models.SubmissionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Submission %s\n", report.SubmissionID)
	fmt.Fprintf(&b, "Submitter: %s at %s\n\n", report.Submitter, report.Timestamp)

	for _, item := range report.Items {
		fmt.Fprintf(&b, "Item %d: %s", item.Index, item.Status)
		if item.CanonicalKey != "" {
			fmt.Fprintf(&b, " (%s)", item.CanonicalKey)
		}
		b.WriteString("\n")
		for _, ve := range item.ValidationErrors {
			fmt.Fprintf(&b, "  - %s\n", ve.String())
		}
		if item.Error != "" {
			fmt.Fprintf(&b, "  - %s\n", item.Error)
		}
		for _, d := range item.Dispatches {
			if d.Status != models.DispatchAccepted {
				fmt.Fprintf(&b, "  - payload %s: %s after %d attempt(s): %s\n",
					payloadLabel(d.Payload), d.Status, d.Attempts, d.Error)
			}
		}
	}

	fmt.Fprintf(&b, "\nPayloads accepted: %d, not accepted: %d\n", report.Accepted(), report.Failed())
	return b.String()
}

func payloadLabel(p models.InvocationPayload) string {
	if p.Filename != "" {
		return p.Filename
	}
	return fmt.Sprintf("%s/%s", p.Instrument, p.Date)
}
