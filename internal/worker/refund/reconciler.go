package refund

import (
	"context"
	"time"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

const (
	DefaultReconcileInterval = time.Minute
	DefaultStuckAfter        = 2 * time.Minute
	DefaultReconcileBatch    = 100

	publishSourceReconcile = "reconcile"
)

// Reconciler переопубликовывает возвраты, задача которых не дошла до брокера после отмены
type Reconciler struct {
	registrationRepo RegistrationRepository
	paymentRepo      PaymentRepository
	publisher        RefundPublisher
	metrics          Metrics
	interval         time.Duration
	stuckAfter       time.Duration
	batchSize        int
	timeProvider     TimeProvider
	logger           Logger
}

// NewReconciler создает reconciler
func NewReconciler(
	registrationRepo RegistrationRepository,
	paymentRepo PaymentRepository,
	publisher RefundPublisher,
	metrics Metrics,
	interval time.Duration,
	stuckAfter time.Duration,
	logger Logger,
) *Reconciler {
	if metrics == nil {
		metrics = discardMetrics{}
	}
	if interval <= 0 {
		interval = DefaultReconcileInterval
	}
	if stuckAfter <= 0 {
		stuckAfter = DefaultStuckAfter
	}

	return &Reconciler{
		registrationRepo: registrationRepo,
		paymentRepo:      paymentRepo,
		publisher:        publisher,
		metrics:          metrics,
		interval:         interval,
		stuckAfter:       stuckAfter,
		batchSize:        DefaultReconcileBatch,
		timeProvider:     &RealTimeProvider{},
		logger:           logger,
	}
}

// Run запускает RunOnce каждые interval до отмены ctx
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("RefundReconciler: started, interval=%s, stuckAfter=%s", r.interval, r.stuckAfter)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("RefundReconciler: stopped")
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("RefundReconciler: run failed: %v", err)
			}
		}
	}
}

// RunOnce публикует зависшие возвраты одной пачкой и возвращает число опубликованных
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	now := r.timeProvider.Now()

	stuck, err := r.registrationRepo.GetUnpublishedRefunds(ctx, now.Add(-r.stuckAfter), r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	r.logger.Warn("RefundReconciler: found %d unpublished refunds", len(stuck))

	published := 0
	for _, reg := range stuck {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if r.republish(ctx, reg) {
			published++
		}
	}

	r.logger.Info("RefundReconciler: republished %d of %d refunds", published, len(stuck))
	return published, nil
}

func (r *Reconciler) republish(ctx context.Context, reg *domain.Registration) bool {
	payment, err := r.paymentRepo.GetByRegistrationID(ctx, reg.ID)
	if err != nil {
		r.logger.Error("RefundReconciler: failed to get payment for registration=%d: %v", reg.ID, err)
		return false
	}

	if err := r.publisher.PublishRefund(ctx, domain.NewRefundTask(reg, payment)); err != nil {
		r.logger.Error("RefundReconciler: failed to publish refund for registration=%d: %v", reg.ID, err)
		return false
	}
	r.metrics.RefundPublished(publishSourceReconcile)

	if err := r.registrationRepo.MarkRefundPublished(ctx, reg.ID, r.timeProvider.Now()); err != nil {
		r.logger.Warn("RefundReconciler: failed to mark refund published for registration=%d: %v", reg.ID, err)
	}

	return true
}
