package paymentgateway

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSimulatedDelay задержка имитации вызова шлюза
const DefaultSimulatedDelay = 3 * time.Second

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// Simulated шлюз для локального запуска: ждёт delay и с вероятностью failureRate отвечает недоступностью
// Повторный возврат той же транзакции возвращает прежний результат
type Simulated struct {
	delay       time.Duration
	failureRate float64
	logger      Logger

	mu       sync.Mutex
	rnd      *rand.Rand
	refunded map[string]string
}

// NewSimulated создает имитацию шлюза
func NewSimulated(delay time.Duration, failureRate float64, logger Logger) *Simulated {
	if delay < 0 {
		delay = 0
	}
	return &Simulated{
		delay:       delay,
		failureRate: failureRate,
		logger:      logger,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		refunded:    make(map[string]string),
	}
}

// Refund имитирует возврат
func (s *Simulated) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-timer.C:
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.refunded[req.TransactionNo]; ok {
		s.logger.Info("Simulated.Refund: transaction=%s already refunded, refund=%s", req.TransactionNo, id)
		return &RefundResult{RefundID: id}, nil
	}

	if s.failureRate > 0 && s.rnd.Float64() < s.failureRate {
		s.logger.Warn("Simulated.Refund: simulated outage for transaction=%s", req.TransactionNo)
		return nil, ErrUnavailable
	}

	id := "rfnd_" + uuid.NewString()
	s.refunded[req.TransactionNo] = id

	s.logger.Info("Simulated.Refund: refunded transaction=%s amount=%d refund=%s", req.TransactionNo, req.Amount, id)
	return &RefundResult{RefundID: id}, nil
}
