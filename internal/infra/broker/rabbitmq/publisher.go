package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// returnsBuffer ёмкость канала возвратов; публикации сериализованы, поэтому хватает небольшого буфера
const returnsBuffer = 16

// confirmation подтверждение брокера для одной публикации
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// publishChannel канал в режиме publisher confirms
type publishChannel interface {
	Declarer
	publishConfirmed(ctx context.Context, exchange, key string, mandatory bool, msg amqp.Publishing) (confirmation, error)
	Close() error
}

// amqpChannel адаптер *amqp.Channel к publishChannel
type amqpChannel struct {
	*amqp.Channel
}

func (c amqpChannel) publishConfirmed(ctx context.Context, exchange, key string, mandatory bool, msg amqp.Publishing) (confirmation, error) {
	deferred, err := c.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, false, msg)
	if err != nil {
		return nil, err
	}
	return deferred, nil
}

// Publisher публикует JSON-сообщения в один канал и ждёт подтверждения брокера
// Канал amqp не потокобезопасен, поэтому публикации сериализуются мьютексом
type Publisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	ch      publishChannel
	returns <-chan amqp.Return
}

// NewPublisher подключается к брокеру, открывает канал и включает режим подтверждений
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrConnect, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: open channel: %v", ErrConnect, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: enable publisher confirms: %v", ErrConnect, err)
	}
	returns := ch.NotifyReturn(make(chan amqp.Return, returnsBuffer))

	return &Publisher{conn: conn, ch: amqpChannel{Channel: ch}, returns: returns}, nil
}

// Setup выполняет объявления топологии на канале издателя
func (p *Publisher) Setup(fn func(ch Declarer) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return fn(p.ch)
}

// PublishJSON публикует persistent сообщение и ждёт ack брокера
// Сообщение без подходящей очереди молча отбрасывается брокером
func (p *Publisher) PublishJSON(ctx context.Context, exchange, key string, v any, headers amqp.Table) error {
	return p.publish(ctx, exchange, key, false, v, headers)
}

// PublishMandatoryJSON как PublishJSON, но сообщение, которое некуда маршрутизировать, считается ошибкой
func (p *Publisher) PublishMandatoryJSON(ctx context.Context, exchange, key string, v any, headers amqp.Table) error {
	return p.publish(ctx, exchange, key, true, v, headers)
}

func (p *Publisher) publish(ctx context.Context, exchange, key string, mandatory bool, v any, headers amqp.Table) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPublish, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Headers:      headers,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	confirm, err := p.ch.publishConfirmed(ctx, exchange, key, mandatory, msg)
	if err != nil {
		return fmt.Errorf("%w: exchange=%s key=%s: %v", ErrPublish, exchange, key, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: exchange=%s key=%s: wait confirm: %v", ErrPublish, exchange, key, err)
	}
	if !acked {
		return fmt.Errorf("%w: exchange=%s key=%s: broker nacked message", ErrPublish, exchange, key)
	}

	// basic.return приходит раньше basic.ack, поэтому к этому моменту он уже в канале
	if p.wasReturned(msg.MessageId) {
		return fmt.Errorf("%w: exchange=%s key=%s: message is unroutable", ErrPublish, exchange, key)
	}

	return nil
}

// wasReturned вычитывает накопленные возвраты и ищет среди них сообщение
func (p *Publisher) wasReturned(messageID string) bool {
	found := false
	for {
		select {
		case ret, ok := <-p.returns:
			if !ok {
				return found
			}
			if ret.MessageId == messageID {
				found = true
			}
		default:
			return found
		}
	}
}

// Close закрывает канал и соединение
func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
