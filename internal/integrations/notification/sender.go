package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// JSONPublisher публикация JSON-сообщений в брокер
type JSONPublisher interface {
	PublishJSON(ctx context.Context, exchange, key string, v any, headers amqp.Table) error
}

// BrokerSender публикует события в topic exchange
type BrokerSender struct {
	publisher JSONPublisher
	exchange  string
}

// NewBrokerSender создает отправителя событий через брокер
func NewBrokerSender(publisher JSONPublisher, exchange string) *BrokerSender {
	return &BrokerSender{publisher: publisher, exchange: exchange}
}

// Send публикует событие с routing key = имя события
func (s *BrokerSender) Send(ctx context.Context, event Event) error {
	return s.publisher.PublishJSON(ctx, s.exchange, event.Event, event, nil)
}

// WebhookSender отправляет события POST-запросом во внешний сервис уведомлений
type WebhookSender struct {
	url        string
	httpClient *http.Client
}

// NewWebhookSender создает отправителя событий через HTTP
func NewWebhookSender(url string, timeout time.Duration) *WebhookSender {
	return &WebhookSender{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Send отправляет событие; любой ответ кроме 2xx считается ошибкой
func (s *WebhookSender) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal event: %v", ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event", event.Event)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(respBody))
	}

	return nil
}

// LogSender пишет события в лог (уведомления выключены)
type LogSender struct {
	logger Logger
}

// NewLogSender создает отправителя, который только логирует события
func NewLogSender(logger Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send логирует событие
func (s *LogSender) Send(ctx context.Context, event Event) error {
	s.logger.Info("Notification: event=%s registration=%d patient=%d", event.Event, event.RegistrationID, event.PatientID)
	return nil
}
