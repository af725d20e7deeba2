package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/voltflow/charge-orchestrator/internal/awsx"
)

// QueueAPI is the slice of the SQS client the publisher needs.
type QueueAPI interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, opts ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends status-change events to one queue.
type SQSPublisher struct {
	client   QueueAPI
	queueURL string
	logger   *zap.Logger
}

func NewSQSPublisher(client QueueAPI, queueURL string, logger *zap.Logger) *SQSPublisher {
	return &SQSPublisher{client: client, queueURL: queueURL, logger: logger}
}

func (p *SQSPublisher) Publish(ctx context.Context, ev StatusChangeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}

	err = awsx.Do(ctx, "send_message", p.logger, func(callCtx context.Context) error {
		_, sendErr := p.client.SendMessage(callCtx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]sqstypes.MessageAttributeValue{
				"OrderId": {
					DataType:    aws.String("String"),
					StringValue: aws.String(ev.OrderID),
				},
				"Status": {
					DataType:    aws.String("String"),
					StringValue: aws.String(ev.Status),
				},
			},
		})
		return sendErr
	})
	if err != nil {
		return fmt.Errorf("send status message for %s: %w", ev.OrderID, err)
	}

	p.logger.Debug("published status change",
		zap.String("charger_id", ev.OrderID),
		zap.String("status", ev.Status))
	return nil
}
