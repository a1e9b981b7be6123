package jobs

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"
)

const TaskRecommendationEmail = "email:recommendations"

const (
	QueueEmail   = "email"
	QueueDefault = "default"
)

type RecommendationEmailPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
}

// Enqueuer is satisfied by *asynq.Client
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewRecommendationEmailTask builds the task sent when an order completes.
// The order id doubles as the task id so a repeated notification is dropped.
func NewRecommendationEmailTask(p RecommendationEmailPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal recommendation email payload: %w", err)
	}
	opts := []asynq.Option{
		asynq.Queue(QueueEmail),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	}
	if p.OrderID != "" {
		opts = append(opts, asynq.TaskID("order:"+p.OrderID))
	}
	return asynq.NewTask(TaskRecommendationEmail, b, opts...), nil
}
