package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// MandatoryPublisher публикация JSON-сообщений с подтверждением маршрутизации
type MandatoryPublisher interface {
	PublishMandatoryJSON(ctx context.Context, exchange, key string, v any, headers amqp.Table) error
}

// RefundPublisher отправляет задачи возврата в refund exchange
type RefundPublisher struct {
	publisher MandatoryPublisher
	topology  RefundTopology
}

// NewRefundPublisher создает издателя задач возврата
func NewRefundPublisher(publisher MandatoryPublisher, topology RefundTopology) *RefundPublisher {
	return &RefundPublisher{publisher: publisher, topology: topology}
}

// PublishRefund публикует первую попытку задачи возврата
func (r *RefundPublisher) PublishRefund(ctx context.Context, task domain.RefundTask) error {
	return r.PublishRefundAttempt(ctx, task, 1)
}

// PublishRefundAttempt публикует задачу с указанным номером попытки
// nil означает, что брокер подтвердил и маршрутизировал сообщение в очередь
func (r *RefundPublisher) PublishRefundAttempt(ctx context.Context, task domain.RefundTask, attempt int) error {
	headers := amqp.Table{AttemptHeader: int32(atLeastOne(attempt))}
	return r.publisher.PublishMandatoryJSON(ctx, r.topology.Exchange, r.topology.RoutingKey, task, headers)
}
