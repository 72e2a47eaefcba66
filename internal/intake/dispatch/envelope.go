// internal/intake/dispatch/envelope.go
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"reprocess-intake/internal/catalog"
	"reprocess-intake/internal/models"
)

// The processing function is normally triggered by S3 object
// notifications relayed through SNS, so manual reprocessing invocations
// reproduce that event shape: an S3 record wrapped in an SNS record.

type s3Event struct {
	Records []s3Record `json:"Records"`
}

type s3Record struct {
	S3 struct {
		Bucket struct {
			Name string `json:"name"`
		} `json:"bucket"`
		Object struct {
			Key string `json:"key"`
		} `json:"object"`
	} `json:"s3"`
}

type snsEvent struct {
	Records []snsRecord `json:"Records"`
}

type snsRecord struct {
	Sns struct {
		Message string `json:"Message"`
	} `json:"Sns"`
}

// EnvelopeBuilder produces the invocation body for one payload. Filename
// payloads are resolved through the catalog to the stored object they
// target; date payloads carry the reprocessing directive itself.
type EnvelopeBuilder struct {
	Catalog catalog.Catalog // nil when no file index is available
}

// Message returns the inner message: either an S3 event for a resolved
// file, or the payload document for date-targeted reprocessing.
func (b *EnvelopeBuilder) Message(ctx context.Context, payload models.InvocationPayload) ([]byte, error) {
	if payload.Filename != "" && b.Catalog != nil {
		ref, err := b.Catalog.FindFile(ctx, payload.Filename, payload.UseDev)
		if err != nil {
			return nil, err
		}
		var ev s3Event
		ev.Records = make([]s3Record, 1)
		ev.Records[0].S3.Bucket.Name = ref.Bucket
		ev.Records[0].S3.Object.Key = ref.Key
		return json.Marshal(ev)
	}
	return json.Marshal(payload)
}

// Envelope wraps the inner message in the SNS record structure the
// processing function unwraps.
func (b *EnvelopeBuilder) Envelope(ctx context.Context, payload models.InvocationPayload) ([]byte, error) {
	msg, err := b.Message(ctx, payload)
	if err != nil {
		return nil, err
	}
	var ev snsEvent
	ev.Records = make([]snsRecord, 1)
	ev.Records[0].Sns.Message = string(msg)
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode sns envelope: %w", err)
	}
	return body, nil
}
