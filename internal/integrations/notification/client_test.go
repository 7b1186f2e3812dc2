package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
)

type recordingSender struct {
	events []Event
	err    error
}

func (s *recordingSender) Send(ctx context.Context, event Event) error {
	s.events = append(s.events, event)
	return s.err
}

func registration() *domain.Registration {
	return &domain.Registration{
		ID:             42,
		RegistrationNo: "20261017093000123456",
		PatientID:      7,
		ScheduleID:     3,
		QueueNumber:    2,
		Fee:            5000,
		Status:         domain.RegistrationCancelled,
		PaymentStatus:  domain.PaymentRefunding,
	}
}

func TestClient_SendsEvents(t *testing.T) {
	sender := &recordingSender{}
	client := NewClient(sender, time.Second, logger.NewDiscard())

	client.RegistrationCreated(context.Background(), registration())
	client.RegistrationCancelled(context.Background(), registration())
	client.RefundSucceeded(context.Background(), registration())

	require.Len(t, sender.events, 3)
	assert.Equal(t, KeyRegistrationCreated, sender.events[0].Event)
	assert.Equal(t, KeyRegistrationCancelled, sender.events[1].Event)
	assert.Equal(t, KeyRefundSucceeded, sender.events[2].Event)
	assert.Equal(t, "refunding", sender.events[1].PaymentStatus)
	assert.Equal(t, int64(5000), sender.events[2].Amount)
}

func TestClient_SwallowsErrors(t *testing.T) {
	sender := &recordingSender{err: errors.New("broker down")}
	client := NewClient(sender, time.Second, logger.NewDiscard())

	assert.NotPanics(t, func() {
		client.RegistrationCreated(context.Background(), registration())
	})
	assert.Len(t, sender.events, 1)
}

func TestClient_IgnoresCallerCancellation(t *testing.T) {
	sender := &ctxSender{}
	client := NewClient(sender, time.Second, logger.NewDiscard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client.RegistrationCancelled(ctx, registration())

	assert.NoError(t, sender.ctxErr)
}

type ctxSender struct {
	ctxErr error
}

func (s *ctxSender) Send(ctx context.Context, event Event) error {
	s.ctxErr = ctx.Err()
	return nil
}

func TestWebhookSender(t *testing.T) {
	var received Event
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, KeyRefundSucceeded, r.Header.Get("X-Event"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewWebhookSender(server.URL, time.Second)
	err := sender.Send(context.Background(), NewEvent(KeyRefundSucceeded, registration(), time.Now()))

	require.NoError(t, err)
	assert.Equal(t, int64(42), received.RegistrationID)
}

func TestWebhookSender_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewWebhookSender(server.URL, time.Second).Send(context.Background(), Event{Event: KeyRegistrationCreated})

	assert.ErrorIs(t, err, ErrInvalidResponse)
}

type fakePublisher struct {
	exchange string
	key      string
}

func (p *fakePublisher) PublishJSON(ctx context.Context, exchange, key string, v any, headers amqp.Table) error {
	p.exchange = exchange
	p.key = key
	return nil
}

func TestBrokerSender(t *testing.T) {
	pub := &fakePublisher{}

	err := NewBrokerSender(pub, "notification.exchange").Send(context.Background(), Event{Event: KeyRegistrationCreated})

	require.NoError(t, err)
	assert.Equal(t, "notification.exchange", pub.exchange)
	assert.Equal(t, KeyRegistrationCreated, pub.key)
}
