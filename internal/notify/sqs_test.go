package notify

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

type mockQueue struct {
	sendFn func(context.Context, *sqs.SendMessageInput) (*sqs.SendMessageOutput, error)
}

func (m *mockQueue) SendMessage(ctx context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if m.sendFn != nil {
		return m.sendFn(ctx, in)
	}
	return &sqs.SendMessageOutput{}, nil
}

func TestNewStatusChangeEvent_TimestampShape(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 123456000, time.FixedZone("CET", 3600))
	ev := NewStatusChangeEvent("c1", "charging", now)

	if ev.OrderID != "c1" {
		t.Fatalf("unexpected order id: %s", ev.OrderID)
	}
	if ev.Status != "charging" {
		t.Fatalf("unexpected status: %s", ev.Status)
	}
	if ev.Timestamp != "2026-03-14T08:26:53.123456Z" {
		t.Fatalf("unexpected timestamp: %s", ev.Timestamp)
	}
}

func TestSQSPublisher_SendsBodyAndAttributes(t *testing.T) {
	var got *sqs.SendMessageInput
	q := &mockQueue{
		sendFn: func(_ context.Context, in *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
			got = in
			return &sqs.SendMessageOutput{}, nil
		},
	}

	p := NewSQSPublisher(q, "https://sqs.test/queue", zap.NewNop())
	ev := NewStatusChangeEvent("c1", "charging", time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC))
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if aws.ToString(got.QueueUrl) != "https://sqs.test/queue" {
		t.Fatalf("unexpected queue url: %s", aws.ToString(got.QueueUrl))
	}
	wantBody := `{"order_id":"c1","status":"charging","timestamp":"2026-03-14T09:00:00.000000Z"}`
	if aws.ToString(got.MessageBody) != wantBody {
		t.Fatalf("unexpected body: %s", aws.ToString(got.MessageBody))
	}
	orderAttr, ok := got.MessageAttributes["OrderId"]
	if !ok || aws.ToString(orderAttr.StringValue) != "c1" || aws.ToString(orderAttr.DataType) != "String" {
		t.Fatalf("unexpected OrderId attribute: %+v", orderAttr)
	}
	statusAttr, ok := got.MessageAttributes["Status"]
	if !ok || aws.ToString(statusAttr.StringValue) != "charging" {
		t.Fatalf("unexpected Status attribute: %+v", statusAttr)
	}
}

func TestSQSPublisher_SendFailurePropagates(t *testing.T) {
	q := &mockQueue{
		sendFn: func(_ context.Context, _ *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "nope"}
		},
	}

	p := NewSQSPublisher(q, "https://sqs.test/queue", zap.NewNop())
	ev := NewStatusChangeEvent("c1", "charging", time.Now())
	if err := p.Publish(context.Background(), ev); err == nil {
		t.Fatal("expected error")
	}
}
