package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueSink publishes alerts as JSON to an SQS queue for downstream
// webhook consumers.
type QueueSink struct {
	client   sqsAPI
	queueURL string
}

// NewQueueSink returns nil when the queue is not configured.
func NewQueueSink(client sqsAPI, queueURL string) *QueueSink {
	if client == nil || queueURL == "" {
		return nil
	}
	return &QueueSink{client: client, queueURL: queueURL}
}

func (q *QueueSink) Kind() string { return "queue" }

func (q *QueueSink) Notify(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("notify: encode alert: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {DataType: aws.String("String"), StringValue: aws.String("appointment.created")},
		},
	})
	if err != nil {
		return fmt.Errorf("notify: failed to send SQS message: %w", err)
	}
	return nil
}
