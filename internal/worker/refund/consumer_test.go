package refund

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/broker/rabbitmq"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/process_refund"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
)

// fakeAcknowledger запоминает, как было подтверждено сообщение
type fakeAcknowledger struct {
	mu      sync.Mutex
	acked   []uint64
	nacked  []uint64
	requeue []bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, tag)
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacked = append(f.nacked, tag)
	f.requeue = append(f.requeue, requeue)
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

type mockProcessor struct {
	mock.Mock
}

func (m *mockProcessor) Execute(ctx context.Context, task domain.RefundTask) (*process_refund.Response, error) {
	args := m.Called(ctx, task)
	if resp, ok := args.Get(0).(*process_refund.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishRefund(ctx context.Context, task domain.RefundTask) error {
	return m.Called(ctx, task).Error(0)
}

func (m *mockPublisher) PublishRefundAttempt(ctx context.Context, task domain.RefundTask, attempt int) error {
	return m.Called(ctx, task, attempt).Error(0)
}

type recordingMetrics struct {
	mu        sync.Mutex
	processed map[string]int
	published map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{processed: make(map[string]int), published: make(map[string]int)}
}

func (m *recordingMetrics) RefundProcessed(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.processed[outcome]++
}

func (m *recordingMetrics) RefundPublished(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[source]++
}

type channelSource struct {
	ch chan amqp.Delivery
}

func (s *channelSource) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return s.ch, nil
}

var task = domain.RefundTask{
	RegistrationID: 10,
	RegistrationNo: "R-10",
	TransactionNo:  "TXN-10",
	Amount:         1500,
	PatientID:      3,
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, attempt int) amqp.Delivery {
	t.Helper()

	body, err := json.Marshal(task)
	require.NoError(t, err)

	headers := amqp.Table{}
	if attempt > 0 {
		headers[rabbitmq.AttemptHeader] = int32(attempt)
	}

	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		MessageId:    fmt.Sprintf("msg-%d", tag),
		Headers:      headers,
		Body:         body,
	}
}

func newTestConsumer(processor Processor, publisher RefundPublisher, metrics Metrics) *Consumer {
	return NewConsumer(nil, processor, publisher, metrics, 1, 3, logger.NewDiscard())
}

func TestConsumer_Handle(t *testing.T) {
	tests := []struct {
		name          string
		attempt       int
		resp          *process_refund.Response
		processErr    error
		publishErr    error
		expectPublish bool
		wantAcked     bool
		wantRequeue   *bool
		wantOutcome   string
	}{
		{
			name:        "refunded",
			resp:        &process_refund.Response{Outcome: process_refund.OutcomeRefunded},
			wantAcked:   true,
			wantOutcome: outcomeOK,
		},
		{
			name:        "already refunded",
			resp:        &process_refund.Response{Outcome: process_refund.OutcomeSkipped},
			wantAcked:   true,
			wantOutcome: outcomeSkipped,
		},
		{
			name:        "terminal",
			processErr:  fmt.Errorf("%w: gateway rejected", process_refund.ErrTerminal),
			wantRequeue: ptrBool(false),
			wantOutcome: outcomeDeadLetter,
		},
		{
			name:          "retryable",
			attempt:       1,
			processErr:    fmt.Errorf("%w: gateway down", process_refund.ErrRetryable),
			expectPublish: true,
			wantAcked:     true,
			wantOutcome:   outcomeRetry,
		},
		{
			name:        "attempts exhausted",
			attempt:     3,
			processErr:  fmt.Errorf("%w: gateway down", process_refund.ErrRetryable),
			wantRequeue: ptrBool(false),
			wantOutcome: outcomeDeadLetter,
		},
		{
			name:          "republish failed",
			attempt:       2,
			processErr:    fmt.Errorf("%w: gateway down", process_refund.ErrRetryable),
			publishErr:    errors.New("channel closed"),
			expectPublish: true,
			wantRequeue:   ptrBool(true),
			wantOutcome:   outcomeRequeued,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			processor := &mockProcessor{}
			processor.On("Execute", mock.Anything, task).Return(tt.resp, tt.processErr).Once()

			publisher := &mockPublisher{}
			if tt.expectPublish {
				attempt := tt.attempt
				if attempt < 1 {
					attempt = 1
				}
				publisher.On("PublishRefundAttempt", mock.Anything, task, attempt+1).Return(tt.publishErr).Once()
			}

			metrics := newRecordingMetrics()
			ack := &fakeAcknowledger{}

			newTestConsumer(processor, publisher, metrics).handle(context.Background(), delivery(t, ack, 7, tt.attempt))

			if tt.wantAcked {
				assert.Equal(t, []uint64{7}, ack.acked)
				assert.Empty(t, ack.nacked)
			} else {
				assert.Empty(t, ack.acked)
			}
			if tt.wantRequeue != nil {
				require.Len(t, ack.nacked, 1)
				assert.Equal(t, *tt.wantRequeue, ack.requeue[0])
			}

			assert.Equal(t, 1, metrics.processed[tt.wantOutcome])
			processor.AssertExpectations(t)
			publisher.AssertExpectations(t)
		})
	}
}

func TestConsumer_Handle_MalformedMessage(t *testing.T) {
	processor := &mockProcessor{}
	metrics := newRecordingMetrics()
	ack := &fakeAcknowledger{}

	d := amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("{not json")}
	newTestConsumer(processor, &mockPublisher{}, metrics).handle(context.Background(), d)

	assert.Equal(t, []uint64{1}, ack.nacked)
	assert.Equal(t, []bool{false}, ack.requeue)
	assert.Equal(t, 1, metrics.processed[outcomeDeadLetter])
	processor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestConsumer_Run(t *testing.T) {
	source := &channelSource{ch: make(chan amqp.Delivery, 5)}
	ack := &fakeAcknowledger{}
	for i := 1; i <= 5; i++ {
		source.ch <- delivery(t, ack, uint64(i), 0)
	}
	close(source.ch)

	processor := &mockProcessor{}
	processor.On("Execute", mock.Anything, task).
		Return(&process_refund.Response{Outcome: process_refund.OutcomeRefunded}, nil)

	consumer := NewConsumer(source, processor, &mockPublisher{}, nil, 3, 3, logger.NewDiscard())

	done := make(chan error, 1)
	go func() { done <- consumer.Run(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after the delivery channel was closed")
	}

	assert.Len(t, ack.acked, 5)
	processor.AssertNumberOfCalls(t, "Execute", 5)
}

func ptrBool(v bool) *bool {
	return &v
}
