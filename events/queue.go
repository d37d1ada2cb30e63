package events

import (
	"context"
	"errors"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
)

type enqueuer interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// QueuePublisher writes activities to an Azure Storage queue.
type QueuePublisher struct {
	queue enqueuer
}

func queueClient(connStr, name string) (*azqueue.QueueClient, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	return azqueue.NewQueueClientFromConnectionString(connStr, name, &opts)
}

// NewQueuePublisher creates a publisher for the named queue.
func NewQueuePublisher(connStr, name string) (*QueuePublisher, error) {
	q, err := queueClient(connStr, name)
	if err != nil {
		return nil, err
	}
	return &QueuePublisher{queue: q}, nil
}

// Publish enqueues payload as one message.
func (p *QueuePublisher) Publish(ctx context.Context, payload []byte) error {
	_, err := p.queue.EnqueueMessage(ctx, string(payload), nil)
	return err
}

// CreateQueue creates the named queue, ignoring an existing one.
func CreateQueue(ctx context.Context, connStr, name string) error {
	q, err := queueClient(connStr, name)
	if err != nil {
		return err
	}
	if _, err := q.Create(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	return nil
}
