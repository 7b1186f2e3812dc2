package rabbitmq

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

type declaredQueue struct {
	name string
	args amqp.Table
}

type fakeDeclarer struct {
	exchanges map[string]string
	queues    []declaredQueue
	bindings  []string
	failOn    string
}

func newFakeDeclarer() *fakeDeclarer {
	return &fakeDeclarer{exchanges: make(map[string]string)}
}

func (f *fakeDeclarer) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	if name == f.failOn {
		return errors.New("channel closed")
	}
	f.exchanges[name] = kind
	return nil
}

func (f *fakeDeclarer) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	f.queues = append(f.queues, declaredQueue{name: name, args: args})
	return amqp.Queue{Name: name}, nil
}

func (f *fakeDeclarer) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	f.bindings = append(f.bindings, exchange+"->"+name+":"+key)
	return nil
}

func TestDeclareRefundTopology(t *testing.T) {
	ch := newFakeDeclarer()

	err := DeclareRefundTopology(ch, DefaultRefundTopology(10*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, amqp.ExchangeDirect, ch.exchanges["refund.exchange"])
	assert.Equal(t, amqp.ExchangeDirect, ch.exchanges["refund.dlx"])
	assert.Contains(t, ch.bindings, "refund.exchange->refund.queue:refund.task")
	assert.Contains(t, ch.bindings, "refund.dlx->refund.dlq:refund.task")

	var mainArgs amqp.Table
	for _, q := range ch.queues {
		if q.name == "refund.queue" {
			mainArgs = q.args
		}
	}
	require.NotNil(t, mainArgs)
	assert.Equal(t, "refund.dlx", mainArgs["x-dead-letter-exchange"])
	assert.Equal(t, int64(600000), mainArgs["x-message-ttl"])
}

func TestDeclareRefundTopology_Error(t *testing.T) {
	ch := newFakeDeclarer()
	ch.failOn = "refund.dlx"

	err := DeclareRefundTopology(ch, DefaultRefundTopology(0))

	assert.ErrorIs(t, err, ErrDeclare)
}

func TestRefundTopology_NoTTL(t *testing.T) {
	args := DefaultRefundTopology(0).QueueArgs()

	_, ok := args["x-message-ttl"]
	assert.False(t, ok)
}

func TestAttemptFromHeaders(t *testing.T) {
	tests := []struct {
		name    string
		headers amqp.Table
		want    int
	}{
		{name: "missing", headers: nil, want: 1},
		{name: "int32", headers: amqp.Table{AttemptHeader: int32(3)}, want: 3},
		{name: "int64", headers: amqp.Table{AttemptHeader: int64(2)}, want: 2},
		{name: "zero", headers: amqp.Table{AttemptHeader: int32(0)}, want: 1},
		{name: "string", headers: amqp.Table{AttemptHeader: "5"}, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttemptFromHeaders(tt.headers))
		})
	}
}

type recordedPublish struct {
	exchange string
	key      string
	body     any
	headers  amqp.Table
}

type fakePublisher struct {
	published []recordedPublish
}

func (f *fakePublisher) PublishMandatoryJSON(ctx context.Context, exchange, key string, v any, headers amqp.Table) error {
	f.published = append(f.published, recordedPublish{exchange: exchange, key: key, body: v, headers: headers})
	return nil
}

func TestRefundPublisher(t *testing.T) {
	pub := &fakePublisher{}
	refunds := NewRefundPublisher(pub, DefaultRefundTopology(time.Minute))
	task := domain.RefundTask{RegistrationID: 42, RegistrationNo: "R1", TransactionNo: "TXN", Amount: 5000, PatientID: 7}

	require.NoError(t, refunds.PublishRefund(context.Background(), task))
	require.NoError(t, refunds.PublishRefundAttempt(context.Background(), task, 3))

	require.Len(t, pub.published, 2)
	assert.Equal(t, "refund.exchange", pub.published[0].exchange)
	assert.Equal(t, "refund.task", pub.published[0].key)
	assert.Equal(t, task, pub.published[0].body)
	assert.Equal(t, 1, AttemptFromHeaders(pub.published[0].headers))
	assert.Equal(t, 3, AttemptFromHeaders(pub.published[1].headers))
}

type fakeConfirmation struct {
	acked bool
	err   error
}

func (c fakeConfirmation) WaitContext(ctx context.Context) (bool, error) {
	return c.acked, c.err
}

// fakeChannel имитирует канал в режиме подтверждений; returnUnroutable кладёт basic.return до ack
type fakeChannel struct {
	*fakeDeclarer
	confirm          fakeConfirmation
	publishErr       error
	returnUnroutable bool
	returns          chan amqp.Return
	mandatory        []bool
}

func (c *fakeChannel) publishConfirmed(ctx context.Context, exchange, key string, mandatory bool, msg amqp.Publishing) (confirmation, error) {
	c.mandatory = append(c.mandatory, mandatory)
	if c.publishErr != nil {
		return nil, c.publishErr
	}
	if c.returnUnroutable && mandatory {
		c.returns <- amqp.Return{MessageId: msg.MessageId, ReplyCode: 312, ReplyText: "NO_ROUTE"}
	}
	return c.confirm, nil
}

func (c *fakeChannel) Close() error { return nil }

func newTestPublisher(ch *fakeChannel) *Publisher {
	ch.fakeDeclarer = newFakeDeclarer()
	ch.returns = make(chan amqp.Return, returnsBuffer)
	return &Publisher{ch: ch, returns: ch.returns}
}

func TestPublisher_PublishMandatoryJSON(t *testing.T) {
	tests := []struct {
		name    string
		channel *fakeChannel
		wantErr string
	}{
		{name: "acked", channel: &fakeChannel{confirm: fakeConfirmation{acked: true}}},
		{name: "nacked", channel: &fakeChannel{confirm: fakeConfirmation{acked: false}}, wantErr: "nacked"},
		{name: "confirm wait failed", channel: &fakeChannel{confirm: fakeConfirmation{err: context.DeadlineExceeded}}, wantErr: "wait confirm"},
		{name: "unroutable", channel: &fakeChannel{confirm: fakeConfirmation{acked: true}, returnUnroutable: true}, wantErr: "unroutable"},
		{name: "channel closed", channel: &fakeChannel{publishErr: amqp.ErrClosed}, wantErr: "channel/connection is not open"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := newTestPublisher(tt.channel)

			err := pub.PublishMandatoryJSON(context.Background(), "refund.exchange", "refund.task", map[string]int{"id": 1}, nil)

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrPublish)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
			assert.Equal(t, []bool{true}, tt.channel.mandatory)
		})
	}
}

// Старый возврат другого сообщения не превращает следующую публикацию в ошибку
func TestPublisher_IgnoresForeignReturns(t *testing.T) {
	ch := &fakeChannel{confirm: fakeConfirmation{acked: true}}
	pub := newTestPublisher(ch)
	ch.returns <- amqp.Return{MessageId: "someone-else"}

	err := pub.PublishMandatoryJSON(context.Background(), "refund.exchange", "refund.task", "x", nil)

	assert.NoError(t, err)
	assert.Empty(t, ch.returns)
}

func TestPublisher_PublishJSONIsNotMandatory(t *testing.T) {
	ch := &fakeChannel{confirm: fakeConfirmation{acked: true}, returnUnroutable: true}
	pub := newTestPublisher(ch)

	err := pub.PublishJSON(context.Background(), "notification.exchange", "registration.created", "x", nil)

	assert.NoError(t, err)
	assert.Equal(t, []bool{false}, ch.mandatory)
}

// Задача, которую брокер не подтвердил, не считается опубликованной
func TestRefundPublisher_ConfirmFailure(t *testing.T) {
	ch := &fakeChannel{confirm: fakeConfirmation{acked: false}}
	refunds := NewRefundPublisher(newTestPublisher(ch), DefaultRefundTopology(time.Minute))

	err := refunds.PublishRefund(context.Background(), domain.RefundTask{RegistrationID: 1, RegistrationNo: "R1", Amount: 100})

	assert.ErrorIs(t, err, ErrPublish)
}
