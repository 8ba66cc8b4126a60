package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandroruanova/esg-pipeline/internal/core/services/classification"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/emissions"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/ingestion"
	"github.com/alejandroruanova/esg-pipeline/internal/core/services/reporting"
	apperrors "github.com/alejandroruanova/esg-pipeline/internal/pkg/errors"
	"github.com/alejandroruanova/esg-pipeline/internal/pkg/logger"
)

type recordingEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (r *recordingEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueCritical, Type: task.Type()}, nil
}

type stubIngester struct {
	calls int
	err   error
}

func (s *stubIngester) IngestInbox(ctx context.Context, companyID uuid.UUID) ([]ingestion.InboxResult, error) {
	s.calls++
	return []ingestion.InboxResult{{Path: "inbox/fibu.csv"}}, s.err
}

type stubMapper struct {
	opts []classification.Options
}

func (s *stubMapper) MapAccounts(ctx context.Context, companyID uuid.UUID, opts classification.Options) (*classification.Summary, error) {
	s.opts = append(s.opts, opts)
	return &classification.Summary{Mapped: 2}, nil
}

type stubCalculator struct {
	period string
	err    error
}

func (s *stubCalculator) Calculate(ctx context.Context, companyID uuid.UUID, period string) (*emissions.Summary, error) {
	s.period = period
	if s.err != nil {
		return nil, s.err
	}
	return &emissions.Summary{CompanyID: companyID, Period: "2024", TotalTCO2e: 1.5}, nil
}

type stubGenerator struct {
	outputDir string
}

func (s *stubGenerator) Generate(ctx context.Context, companyID uuid.UUID, outputDir string) (*reporting.Report, error) {
	s.outputDir = outputDir
	return &reporting.Report{Path: outputDir + "/report.xlsx", Version: 1}, nil
}

func TestParsePayload(t *testing.T) {
	id := uuid.New()
	task, err := NewCalculateEmissionsTask(Payload{CompanyID: id, Period: "2024"}, 3)
	require.NoError(t, err)
	assert.Equal(t, TaskCalculateEmissions, task.Type())
	assert.JSONEq(t, `{"company_id":"`+id.String()+`","period":"2024"}`, string(task.Payload()))

	p, err := ParsePayload(task)
	require.NoError(t, err)
	assert.Equal(t, id, p.CompanyID)
	assert.Equal(t, "2024", p.Period)
	assert.False(t, p.Chain)

	_, err = ParsePayload(asynq.NewTask(TaskGenerateReport, []byte(`{}`)))
	assert.Error(t, err)

	_, err = ParsePayload(asynq.NewTask(TaskGenerateReport, []byte(`not json`)))
	assert.Error(t, err)
}

func TestDispatcher_EnqueuePipeline(t *testing.T) {
	enq := &recordingEnqueuer{}
	d := NewDispatcher(enq, 3)

	id, err := d.EnqueuePipeline(context.Background(), uuid.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "task-1", id)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskIngestInbox, enq.tasks[0].Type())

	p, err := ParsePayload(enq.tasks[0])
	require.NoError(t, err)
	assert.True(t, p.Chain)

	enq.err = errors.New("redis down")
	_, err = d.EnqueuePipeline(context.Background(), uuid.New(), "")
	assert.Error(t, err)
}

func TestHandlers_ChainedRun(t *testing.T) {
	enq := &recordingEnqueuer{}
	ing := &stubIngester{}
	mapper := &stubMapper{}
	calc := &stubCalculator{}
	gen := &stubGenerator{}

	h := NewHandlers(HandlersConfig{
		Ingester:   ing,
		Mapper:     mapper,
		Calculator: calc,
		Generator:  gen,
		Enqueuer:   enq,
		OutputDir:  "out",
		MaxRetry:   1,
	}, logger.Discard())

	ctx := context.Background()
	first, err := NewIngestInboxTask(Payload{CompanyID: uuid.New(), Period: "2024-03", Chain: true}, 1)
	require.NoError(t, err)

	require.NoError(t, h.HandleIngestInbox(ctx, first))
	assert.Equal(t, 1, ing.calls)
	require.Len(t, mapper.opts, 1)
	assert.Equal(t, classification.ModeAuto, mapper.opts[0].Mode)
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskCalculateEmissions, enq.tasks[0].Type())

	require.NoError(t, h.HandleCalculateEmissions(ctx, enq.tasks[0]))
	assert.Equal(t, "2024-03", calc.period)
	require.Len(t, enq.tasks, 2)
	assert.Equal(t, TaskGenerateReport, enq.tasks[1].Type())

	require.NoError(t, h.HandleGenerateReport(ctx, enq.tasks[1]))
	assert.Equal(t, "out", gen.outputDir)
	assert.Len(t, enq.tasks, 2)
}

func TestHandlers_UnchainedStopsAfterStep(t *testing.T) {
	enq := &recordingEnqueuer{}
	mapper := &stubMapper{}
	h := NewHandlers(HandlersConfig{
		Ingester:   &stubIngester{},
		Mapper:     mapper,
		Calculator: &stubCalculator{},
		Enqueuer:   enq,
	}, logger.Discard())

	task, err := NewIngestInboxTask(Payload{CompanyID: uuid.New()}, 1)
	require.NoError(t, err)
	require.NoError(t, h.HandleIngestInbox(context.Background(), task))

	task, err = NewCalculateEmissionsTask(Payload{CompanyID: uuid.New()}, 1)
	require.NoError(t, err)
	require.NoError(t, h.HandleCalculateEmissions(context.Background(), task))

	assert.Empty(t, mapper.opts)
	assert.Empty(t, enq.tasks)
}

func TestHandlers_PreconditionsSkipRetry(t *testing.T) {
	calc := &stubCalculator{err: apperrors.ErrNoMappings}
	h := NewHandlers(HandlersConfig{Calculator: calc}, logger.Discard())

	task, err := NewCalculateEmissionsTask(Payload{CompanyID: uuid.New()}, 1)
	require.NoError(t, err)

	err = h.HandleCalculateEmissions(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	calc.err = errors.New("database is locked")
	err = h.HandleCalculateEmissions(context.Background(), task)
	require.Error(t, err)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlers_BadPayloadSkipsRetry(t *testing.T) {
	h := NewHandlers(HandlersConfig{}, logger.Discard())
	err := h.HandleGenerateReport(context.Background(), asynq.NewTask(TaskGenerateReport, []byte(`{}`)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandlers_EnqueueFailureIsQueueError(t *testing.T) {
	enq := &recordingEnqueuer{err: errors.New("redis down")}
	h := NewHandlers(HandlersConfig{Calculator: &stubCalculator{}, Enqueuer: enq}, logger.Discard())

	task, err := NewCalculateEmissionsTask(Payload{CompanyID: uuid.New(), Chain: true}, 1)
	require.NoError(t, err)

	err = h.HandleCalculateEmissions(context.Background(), task)
	appErr, ok := apperrors.GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeQueueError, appErr.Code)
}
