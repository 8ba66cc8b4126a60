package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Task types
const (
	TaskIngestInbox        = "ingest:inbox"
	TaskCalculateEmissions = "emissions:calculate"
	TaskGenerateReport     = "report:generate"
)

// Payload is the body of every pipeline task. Chain makes a finished step
// enqueue the next one.
type Payload struct {
	CompanyID uuid.UUID `json:"company_id"`
	Period    string    `json:"period,omitempty"`
	Chain     bool      `json:"chain,omitempty"`
}

// Enqueuer is the part of AsynqClient used by handlers and the HTTP API
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func newTask(taskType string, p Payload, maxRetry int) (*asynq.Task, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, body, asynq.MaxRetry(maxRetry)), nil
}

// NewIngestInboxTask builds an inbox ingestion task
func NewIngestInboxTask(p Payload, maxRetry int) (*asynq.Task, error) {
	return newTask(TaskIngestInbox, p, maxRetry)
}

// NewCalculateEmissionsTask builds an emissions calculation task
func NewCalculateEmissionsTask(p Payload, maxRetry int) (*asynq.Task, error) {
	return newTask(TaskCalculateEmissions, p, maxRetry)
}

// NewGenerateReportTask builds a report generation task
func NewGenerateReportTask(p Payload, maxRetry int) (*asynq.Task, error) {
	return newTask(TaskGenerateReport, p, maxRetry)
}

// ParsePayload decodes a task body. A payload without a company is rejected.
func ParsePayload(t *asynq.Task) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %w", t.Type(), err)
	}
	if p.CompanyID == uuid.Nil {
		return p, fmt.Errorf("invalid %s payload: company_id is required", t.Type())
	}
	return p, nil
}

// Dispatcher starts pipeline runs on the queue
type Dispatcher struct {
	enqueuer Enqueuer
	maxRetry int
}

// NewDispatcher creates a dispatcher over an enqueuer
func NewDispatcher(enqueuer Enqueuer, maxRetry int) *Dispatcher {
	return &Dispatcher{enqueuer: enqueuer, maxRetry: maxRetry}
}

// EnqueuePipeline enqueues the inbox ingestion of a company with chaining on,
// so emissions and the report follow once it succeeds. It returns the task id.
func (d *Dispatcher) EnqueuePipeline(ctx context.Context, companyID uuid.UUID, period string) (string, error) {
	task, err := NewIngestInboxTask(Payload{CompanyID: companyID, Period: period, Chain: true}, d.maxRetry)
	if err != nil {
		return "", err
	}
	info, err := d.enqueuer.EnqueueContext(ctx, task, asynq.Queue(QueueCritical))
	if err != nil {
		return "", fmt.Errorf("failed to enqueue pipeline: %w", err)
	}
	return info.ID, nil
}
