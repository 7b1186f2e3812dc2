package refund

import (
	"context"
	"encoding/json"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/broker/rabbitmq"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/process_refund"
)

const (
	DefaultWorkers     = 4
	DefaultMaxAttempts = 5

	outcomeOK         = "ok"
	outcomeSkipped    = "skipped"
	outcomeRetry      = "retry"
	outcomeDeadLetter = "dead_letter"
	outcomeRequeued   = "requeued"

	publishSourceRetry = "retry"
)

// Consumer читает очередь возвратов пулом воркеров
// Терминальные ошибки уходят в dead-letter, временные переопубликовываются с attempt+1 до maxAttempts
type Consumer struct {
	source      DeliverySource
	processor   Processor
	publisher   RefundPublisher
	metrics     Metrics
	workers     int
	maxAttempts int
	logger      Logger
}

// NewConsumer создает consumer очереди возвратов
func NewConsumer(
	source DeliverySource,
	processor Processor,
	publisher RefundPublisher,
	metrics Metrics,
	workers int,
	maxAttempts int,
	logger Logger,
) *Consumer {
	if metrics == nil {
		metrics = discardMetrics{}
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Consumer{
		source:      source,
		processor:   processor,
		publisher:   publisher,
		metrics:     metrics,
		workers:     workers,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// Run обрабатывает сообщения до отмены ctx или закрытия канала доставки
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.source.Deliveries(ctx)
	if err != nil {
		return err
	}

	c.logger.Info("RefundConsumer: started, workers=%d, maxAttempts=%d", c.workers, c.maxAttempts)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.work(ctx, deliveries)
		}()
	}
	wg.Wait()

	c.logger.Info("RefundConsumer: stopped")
	return nil
}

func (c *Consumer) work(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			c.handle(ctx, d)
		}
	}
}

// handle обрабатывает одно сообщение и подтверждает его ровно один раз
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var task domain.RefundTask
	if err := json.Unmarshal(d.Body, &task); err != nil {
		c.logger.Error("RefundConsumer: malformed message id=%s: %v", d.MessageId, err)
		c.deadLetter(d)
		return
	}

	attempt := rabbitmq.AttemptFromHeaders(d.Headers)

	resp, err := c.processor.Execute(ctx, task)
	if err == nil {
		c.ack(d)
		if resp != nil && resp.Outcome == process_refund.OutcomeSkipped {
			c.metrics.RefundProcessed(outcomeSkipped)
			return
		}
		c.metrics.RefundProcessed(outcomeOK)
		return
	}

	if process_refund.IsTerminal(err) {
		c.logger.Error("RefundConsumer: registration=%d failed permanently: %v", task.RegistrationID, err)
		c.deadLetter(d)
		return
	}

	if attempt >= c.maxAttempts {
		c.logger.Error("RefundConsumer: registration=%d failed after %d attempts: %v", task.RegistrationID, attempt, err)
		c.deadLetter(d)
		return
	}

	if pubErr := c.publisher.PublishRefundAttempt(ctx, task, attempt+1); pubErr != nil {
		c.logger.Error("RefundConsumer: failed to republish registration=%d: %v", task.RegistrationID, pubErr)
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("RefundConsumer: failed to nack message id=%s: %v", d.MessageId, nackErr)
		}
		c.metrics.RefundProcessed(outcomeRequeued)
		return
	}

	c.logger.Warn("RefundConsumer: registration=%d will be retried, attempt=%d: %v", task.RegistrationID, attempt+1, err)
	c.ack(d)
	c.metrics.RefundPublished(publishSourceRetry)
	c.metrics.RefundProcessed(outcomeRetry)
}

func (c *Consumer) ack(d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		c.logger.Error("RefundConsumer: failed to ack message id=%s: %v", d.MessageId, err)
	}
}

func (c *Consumer) deadLetter(d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		c.logger.Error("RefundConsumer: failed to nack message id=%s: %v", d.MessageId, err)
	}
	c.metrics.RefundProcessed(outcomeDeadLetter)
}
