// Package queue provides the SQS-based producer that dispatches
// critical-pest notification payloads to the downstream delivery worker
// (SMS/email fan-out is out of process). The producer only exposes the
// signal; delivery, retries, and channel selection belong to the worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"cropguard/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// PestAlertMessage is the payload sent to the notification queue for a
// critical pest detection. AnalyzedAt is the delivery-side idempotency key:
// the worker must not send twice for the same analyzed_at.
type PestAlertMessage struct {
	MessageID        string    `json:"message_id"`
	FarmID           string    `json:"farm_id"`
	RuleID           string    `json:"rule_id"`
	Title            string    `json:"title"`
	Message          string    `json:"message"`
	InfestationLevel string    `json:"infestation_level"`
	AnalyzedAt       time.Time `json:"analyzed_at"`
	DispatchedAt     time.Time `json:"dispatched_at"`
}

// Dispatcher publishes PestAlertMessages to the notification queue.
type Dispatcher struct {
	client   SQSSender
	queueURL string
	clock    types.Clock
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher for the given queue URL.
func NewDispatcher(client SQSSender, queueURL string, clock types.Clock, logger *slog.Logger) *Dispatcher {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: client, queueURL: queueURL, clock: clock, logger: logger}
}

var _ types.NotificationDispatcher = (*Dispatcher)(nil)

// DispatchCriticalPest enqueues one critical-pest notification. The
// message attributes carry the rule ID and analyzed_at so the worker can
// dedup without parsing the body.
func (d *Dispatcher) DispatchCriticalPest(ctx context.Context, farmID string, rec types.Recommendation, report types.PestReport) error {
	level := ""
	if report.InfestationLevel != nil {
		level = string(*report.InfestationLevel)
	}

	msg := PestAlertMessage{
		MessageID:        uuid.New().String(),
		FarmID:           farmID,
		RuleID:           rec.ID,
		Title:            rec.Title,
		Message:          fmt.Sprintf("URGENT: %s", rec.Message),
		InfestationLevel: level,
		AnalyzedAt:       report.AnalyzedAt,
		DispatchedAt:     d.clock.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal pest alert message", err)
	}

	_, err = d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqsTypes.MessageAttributeValue{
			"rule_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(rec.ID),
			},
			"analyzed_at": {
				DataType:    aws.String("String"),
				StringValue: aws.String(report.AnalyzedAt.UTC().Format(time.RFC3339Nano)),
			},
		},
	})
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamQueue, "failed to enqueue pest alert", err)
	}

	d.logger.Info("critical pest notification dispatched",
		"farm_id", farmID,
		"analyzed_at", report.AnalyzedAt,
	)
	return nil
}
