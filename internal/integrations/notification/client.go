package notification

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// DefaultSendTimeout ограничение на отправку одного события
const DefaultSendTimeout = 5 * time.Second

// Sender транспорт событий
type Sender interface {
	Send(ctx context.Context, event Event) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Client уведомляет о событиях записи
// Ошибки отправки логируются и не возвращаются: уведомление не влияет на результат операции
type Client struct {
	sender  Sender
	timeout time.Duration
	log     Logger
}

// NewClient создает новый экземпляр клиента уведомлений
func NewClient(sender Sender, timeout time.Duration, log Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Client{sender: sender, timeout: timeout, log: log}
}

// RegistrationCreated уведомляет о новой записи
func (c *Client) RegistrationCreated(ctx context.Context, reg *domain.Registration) {
	c.send(ctx, KeyRegistrationCreated, reg)
}

// RegistrationCancelled уведомляет об отмене записи
func (c *Client) RegistrationCancelled(ctx context.Context, reg *domain.Registration) {
	c.send(ctx, KeyRegistrationCancelled, reg)
}

// RefundSucceeded уведомляет о завершённом возврате
func (c *Client) RefundSucceeded(ctx context.Context, reg *domain.Registration) {
	c.send(ctx, KeyRefundSucceeded, reg)
}

func (c *Client) send(ctx context.Context, key string, reg *domain.Registration) {
	// отмена запроса клиента не должна обрывать уже закоммиченное уведомление
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	if err := c.sender.Send(sendCtx, NewEvent(key, reg, time.Now())); err != nil {
		c.log.Error("Notification: failed to send event=%s for registration=%d: %v", key, reg.ID, err)
		return
	}

	c.log.Info("Notification: sent event=%s for registration=%d", key, reg.ID)
}
