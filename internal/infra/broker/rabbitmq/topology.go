package rabbitmq

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Имена по умолчанию для очереди возвратов
const (
	DefaultRefundExchange   = "refund.exchange"
	DefaultRefundQueue      = "refund.queue"
	DefaultRefundRoutingKey = "refund.task"
	DefaultRefundDLX        = "refund.dlx"
	DefaultRefundDLQ        = "refund.dlq"
)

// AttemptHeader заголовок с номером попытки обработки задачи
const AttemptHeader = "x-attempt"

// Declarer часть *amqp.Channel, нужная для объявления топологии
type Declarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// RefundTopology exchange и очереди возвратов
// Сообщения, отклонённые без requeue или пролежавшие дольше MessageTTL, уходят в DeadLetterQueue
type RefundTopology struct {
	Exchange           string
	Queue              string
	RoutingKey         string
	DeadLetterExchange string
	DeadLetterQueue    string
	MessageTTL         time.Duration
}

// DefaultRefundTopology топология с именами по умолчанию
func DefaultRefundTopology(ttl time.Duration) RefundTopology {
	return RefundTopology{
		Exchange:           DefaultRefundExchange,
		Queue:              DefaultRefundQueue,
		RoutingKey:         DefaultRefundRoutingKey,
		DeadLetterExchange: DefaultRefundDLX,
		DeadLetterQueue:    DefaultRefundDLQ,
		MessageTTL:         ttl,
	}
}

// QueueArgs аргументы основной очереди
func (t RefundTopology) QueueArgs() amqp.Table {
	args := amqp.Table{
		"x-dead-letter-exchange":    t.DeadLetterExchange,
		"x-dead-letter-routing-key": t.RoutingKey,
	}
	if t.MessageTTL > 0 {
		args["x-message-ttl"] = t.MessageTTL.Milliseconds()
	}
	return args
}

// DeclareRefundTopology объявляет direct exchange, очередь с DLX и dead-letter очередь
func DeclareRefundTopology(ch Declarer, t RefundTopology) error {
	if err := ch.ExchangeDeclare(t.DeadLetterExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%w: declare dlx %s: %v", ErrDeclare, t.DeadLetterExchange, err)
	}
	if _, err := ch.QueueDeclare(t.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%w: declare dlq %s: %v", ErrDeclare, t.DeadLetterQueue, err)
	}
	if err := ch.QueueBind(t.DeadLetterQueue, t.RoutingKey, t.DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("%w: bind dlq %s: %v", ErrDeclare, t.DeadLetterQueue, err)
	}

	if err := ch.ExchangeDeclare(t.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%w: declare exchange %s: %v", ErrDeclare, t.Exchange, err)
	}
	if _, err := ch.QueueDeclare(t.Queue, true, false, false, false, t.QueueArgs()); err != nil {
		return fmt.Errorf("%w: declare queue %s: %v", ErrDeclare, t.Queue, err)
	}
	if err := ch.QueueBind(t.Queue, t.RoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("%w: bind queue %s: %v", ErrDeclare, t.Queue, err)
	}

	return nil
}

// DeclareTopicExchange объявляет durable topic exchange (события уведомлений)
func DeclareTopicExchange(ch Declarer, name string) error {
	if err := ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("%w: declare exchange %s: %v", ErrDeclare, name, err)
	}
	return nil
}

// AttemptFromHeaders читает номер попытки; отсутствующий или некорректный заголовок означает первую попытку
func AttemptFromHeaders(headers amqp.Table) int {
	switch v := headers[AttemptHeader].(type) {
	case int:
		return atLeastOne(v)
	case int32:
		return atLeastOne(int(v))
	case int64:
		return atLeastOne(int(v))
	case int16:
		return atLeastOne(int(v))
	default:
		return 1
	}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
