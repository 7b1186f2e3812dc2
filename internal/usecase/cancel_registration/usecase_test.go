package cancel_registration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/paymentgateway"
	"github.com/m04kA/SMC-AppointmentService/internal/service/allocator"
	"github.com/m04kA/SMC-AppointmentService/internal/usecase/process_refund"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) RegistrationCancelled(ctx context.Context, reg *domain.Registration) {
	m.Called(ctx, reg)
}

type fakeRefunds struct {
	mu    sync.Mutex
	err   error
	tasks []domain.RefundTask
}

func (f *fakeRefunds) PublishRefund(ctx context.Context, task domain.RefundTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type countingMetrics struct {
	mu        sync.Mutex
	published map[string]int
}

func (m *countingMetrics) RefundPublished(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[source]++
}

type fixedTime struct {
	now time.Time
}

func (f fixedTime) Now() time.Time { return f.now }

type fixture struct {
	uc       *UseCase
	store    *memory.Store
	alloc    *allocator.Service
	schedule *domain.Schedule
	refunds  *fakeRefunds
	notifier *mockNotifier
	metrics  *countingMetrics
}

func setup(t *testing.T, seats int) *fixture {
	t.Helper()

	store := memory.NewStore()
	schedule := store.AddSchedule(domain.Schedule{
		DoctorID:       7,
		DepartmentID:   2,
		ScheduleDate:   domain.CalendarDate(time.Now().AddDate(0, 0, 2)),
		Period:         domain.PeriodAfternoon,
		TotalSeats:     seats,
		RemainingSeats: seats,
		Fee:            3000,
		Status:         domain.ScheduleBookable,
	})

	log := logger.NewDiscard()
	alloc := allocator.NewService(store.Schedules(), store.Registrations(), store, nil, log)

	notifier := &mockNotifier{}
	notifier.On("RegistrationCancelled", mock.Anything, mock.Anything).Maybe()

	refunds := &fakeRefunds{}
	metrics := &countingMetrics{published: make(map[string]int)}

	uc := NewUseCase(store.Registrations(), store.Payments(), alloc, refunds, notifier, metrics, store, log)
	uc.timeProvider = fixedTime{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}

	return &fixture{
		uc:       uc,
		store:    store,
		alloc:    alloc,
		schedule: schedule,
		refunds:  refunds,
		notifier: notifier,
		metrics:  metrics,
	}
}

// book занимает место и создаёт запись; paid добавляет платёж
func (f *fixture) book(t *testing.T, patientID int64, paid bool) *domain.Registration {
	t.Helper()

	ctx := context.Background()
	var created *domain.Registration

	err := f.store.Do(ctx, func(txCtx context.Context) error {
		reservation, err := f.alloc.ReserveSeat(txCtx, f.schedule.ID)
		if err != nil {
			return err
		}

		reg := &domain.Registration{
			RegistrationNo: fmt.Sprintf("R-%d-%d", patientID, reservation.QueueNumber),
			PatientID:      patientID,
			DoctorID:       f.schedule.DoctorID,
			ScheduleID:     f.schedule.ID,
			QueueNumber:    reservation.QueueNumber,
			Fee:            f.schedule.Fee,
			Status:         domain.RegistrationPending,
			PaymentStatus:  domain.PaymentPending,
		}
		if paid {
			now := time.Now()
			reg.Status = domain.RegistrationConfirmed
			reg.PaymentStatus = domain.PaymentPaid
			reg.PaidAt = &now
		}

		created, err = f.store.Registrations().Create(txCtx, reg)
		if err != nil {
			return err
		}

		if paid {
			_, err = f.store.Payments().Create(txCtx, &domain.Payment{
				RegistrationID: created.ID,
				TransactionNo:  fmt.Sprintf("TXN-%d", created.ID),
				Amount:         created.Fee,
				Status:         domain.PaymentPaid,
				PaidAt:         created.PaidAt,
			})
		}
		return err
	})
	require.NoError(t, err)

	return created
}

func (f *fixture) remainingSeats(t *testing.T) int {
	t.Helper()

	s, err := f.store.Schedules().GetByID(context.Background(), f.schedule.ID)
	require.NoError(t, err)
	return s.RemainingSeats
}

func (f *fixture) registration(t *testing.T, id int64) *domain.Registration {
	t.Helper()

	reg, err := f.store.Registrations().GetByID(context.Background(), id)
	require.NoError(t, err)
	return reg
}

func TestUseCase_Execute_Unpaid(t *testing.T) {
	f := setup(t, 2)
	reg := f.book(t, 5, false)
	require.Equal(t, 1, f.remainingSeats(t))

	resp, err := f.uc.Execute(context.Background(), &Request{RegistrationID: reg.ID, PatientID: 5})

	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.Equal(t, "pending", resp.PaymentStatus)
	assert.False(t, resp.RefundQueued)
	assert.Equal(t, 2, f.remainingSeats(t))
	assert.Empty(t, f.refunds.tasks)

	stored := f.registration(t, reg.ID)
	assert.Equal(t, domain.RegistrationCancelled, stored.Status)
	require.NotNil(t, stored.CancelledAt)

	f.notifier.AssertNumberOfCalls(t, "RegistrationCancelled", 1)
}

func TestUseCase_Execute_PaidStartsRefund(t *testing.T) {
	f := setup(t, 1)
	reg := f.book(t, 5, true)
	require.Equal(t, 0, f.remainingSeats(t))

	resp, err := f.uc.Execute(context.Background(), &Request{RegistrationID: reg.ID, PatientID: 5})

	require.NoError(t, err)
	assert.Equal(t, "refunding", resp.PaymentStatus)
	assert.True(t, resp.RefundQueued)
	assert.Equal(t, 1, f.remainingSeats(t))

	require.Len(t, f.refunds.tasks, 1)
	task := f.refunds.tasks[0]
	assert.Equal(t, reg.ID, task.RegistrationID)
	assert.Equal(t, reg.RegistrationNo, task.RegistrationNo)
	assert.Equal(t, int64(3000), task.Amount)
	assert.Equal(t, int64(5), task.PatientID)
	assert.Equal(t, fmt.Sprintf("TXN-%d", reg.ID), task.TransactionNo)

	stored := f.registration(t, reg.ID)
	assert.Equal(t, domain.PaymentRefunding, stored.PaymentStatus)
	assert.NotNil(t, stored.RefundPublishedAt)

	payment, err := f.store.Payments().GetByRegistrationID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunding, payment.Status)

	assert.Equal(t, 1, f.metrics.published[refundSourceCancel])
}

type refundNotifier struct {
	mock.Mock
}

func (m *refundNotifier) RefundSucceeded(ctx context.Context, reg *domain.Registration) {
	m.Called(ctx, reg)
}

// Оплаченная запись после отмены сразу в REFUNDING, после обработки задачи REFUNDED, повтор задачи ничего не меняет
func TestUseCase_Execute_PaidCancelIsEventuallyRefunded(t *testing.T) {
	f := setup(t, 2)
	reg := f.book(t, 5, true)

	_, err := f.uc.Execute(context.Background(), &Request{RegistrationID: reg.ID, PatientID: 5})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunding, f.registration(t, reg.ID).PaymentStatus)
	require.Len(t, f.refunds.tasks, 1)

	notifier := &refundNotifier{}
	notifier.On("RefundSucceeded", mock.Anything, mock.Anything).Once()

	log := logger.NewDiscard()
	processor := process_refund.NewUseCase(
		f.store.Registrations(),
		f.store.Payments(),
		paymentgateway.NewSimulated(0, 0, log),
		notifier,
		nil,
		f.store,
		log,
	)

	resp, err := processor.Execute(context.Background(), f.refunds.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, process_refund.OutcomeRefunded, resp.Outcome)

	stored := f.registration(t, reg.ID)
	assert.Equal(t, domain.PaymentRefunded, stored.PaymentStatus)
	assert.Equal(t, domain.RegistrationCancelled, stored.Status)
	assert.NotNil(t, stored.RefundedAt)

	payment, err := f.store.Payments().GetByRegistrationID(context.Background(), reg.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, payment.Status)

	resp, err = processor.Execute(context.Background(), f.refunds.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, process_refund.OutcomeSkipped, resp.Outcome)
	notifier.AssertExpectations(t)
}

func TestUseCase_Execute_PublishFailureKeepsCancellation(t *testing.T) {
	f := setup(t, 1)
	reg := f.book(t, 5, true)
	f.refunds.err = errors.New("broker down")

	resp, err := f.uc.Execute(context.Background(), &Request{RegistrationID: reg.ID, PatientID: 5})

	require.NoError(t, err)
	assert.False(t, resp.RefundQueued)

	stored := f.registration(t, reg.ID)
	assert.Equal(t, domain.RegistrationCancelled, stored.Status)
	assert.Equal(t, domain.PaymentRefunding, stored.PaymentStatus)
	assert.Nil(t, stored.RefundPublishedAt)
	assert.Equal(t, 1, f.remainingSeats(t))
	assert.Zero(t, f.metrics.published[refundSourceCancel])

	unpublished, err := f.store.Registrations().GetUnpublishedRefunds(context.Background(), time.Now().Add(time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, unpublished, 1)
	assert.Equal(t, reg.ID, unpublished[0].ID)
}

func TestUseCase_Execute_SecondCancelIsRejected(t *testing.T) {
	f := setup(t, 3)
	reg := f.book(t, 5, true)
	f.book(t, 6, false)
	require.Equal(t, 1, f.remainingSeats(t))

	_, err := f.uc.Execute(context.Background(), &Request{RegistrationID: reg.ID, PatientID: 5})
	require.NoError(t, err)
	require.Equal(t, 2, f.remainingSeats(t))

	_, err = f.uc.Execute(context.Background(), &Request{RegistrationID: reg.ID, PatientID: 5})

	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Equal(t, 2, f.remainingSeats(t))
	assert.Len(t, f.refunds.tasks, 1)
}

func TestUseCase_Execute_ConcurrentCancelReleasesOnce(t *testing.T) {
	f := setup(t, 2)
	reg := f.book(t, 5, false)

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.uc.Execute(context.Background(), &Request{RegistrationID: reg.ID, PatientID: 5})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.remainingSeats(t))
}

func TestUseCase_Execute_Errors(t *testing.T) {
	f := setup(t, 3)
	reg := f.book(t, 5, false)

	checkedIn := f.book(t, 8, false)
	require.NoError(t, checkedIn.CheckIn(time.Now()))
	require.NoError(t, f.store.Registrations().UpdateState(context.Background(), checkedIn, checkedIn.State()))

	completed := f.book(t, 9, false)
	expected := completed.State()
	require.NoError(t, completed.Complete(time.Now(), nil))
	require.NoError(t, f.store.Registrations().UpdateState(context.Background(), completed, expected))

	tests := []struct {
		name    string
		req     *Request
		wantErr error
	}{
		{name: "invalid input", req: &Request{RegistrationID: 0, PatientID: 5}, wantErr: ErrInvalidInput},
		{name: "not found", req: &Request{RegistrationID: 999, PatientID: 5}, wantErr: ErrRegistrationNotFound},
		{name: "foreign registration", req: &Request{RegistrationID: reg.ID, PatientID: 6}, wantErr: ErrAccessDenied},
		{name: "checked in", req: &Request{RegistrationID: checkedIn.ID, PatientID: 8}, wantErr: domain.ErrVisitInProgress},
		{name: "completed", req: &Request{RegistrationID: completed.ID, PatientID: 9}, wantErr: domain.ErrAlreadyCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.remainingSeats(t)

			_, err := f.uc.Execute(context.Background(), tt.req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, f.remainingSeats(t))
		})
	}

	f.notifier.AssertNotCalled(t, "RegistrationCancelled", mock.Anything, mock.Anything)
}

// Пациент A занимает единственное место, B получает отказ, после отмены A место достаётся B с новым номером
func TestUseCase_Execute_RoundTrip(t *testing.T) {
	f := setup(t, 1)
	first := f.book(t, 5, false)
	require.Equal(t, 0, f.remainingSeats(t))
	require.Equal(t, 1, first.QueueNumber)

	_, err := f.alloc.ReserveSeat(context.Background(), f.schedule.ID)
	require.ErrorIs(t, err, allocator.ErrScheduleFull)

	_, err = f.uc.Execute(context.Background(), &Request{RegistrationID: first.ID, PatientID: 5})
	require.NoError(t, err)
	require.Equal(t, 1, f.remainingSeats(t))

	s, err := f.store.Schedules().GetByID(context.Background(), f.schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ScheduleBookable, s.Status)

	second := f.book(t, 6, false)
	assert.Equal(t, 2, second.QueueNumber)
	assert.Equal(t, 0, f.remainingSeats(t))
}

// Свободные места плюс неотменённые записи всегда равны вместимости расписания
func TestUseCase_Execute_SeatsMatchOccupiedRegistrations(t *testing.T) {
	const seats = 4

	f := setup(t, seats)
	ctx := context.Background()
	var regs []*domain.Registration

	assertBalanced := func(step string) {
		t.Helper()

		occupied := 0
		for _, reg := range regs {
			if f.registration(t, reg.ID).OccupiesSeat() {
				occupied++
			}
		}
		assert.Equal(t, seats, f.remainingSeats(t)+occupied, step)
	}

	complete := func(reg *domain.Registration) {
		t.Helper()

		stored := f.registration(t, reg.ID)
		expected := stored.State()
		require.NoError(t, stored.Complete(time.Now(), nil))
		require.NoError(t, f.store.Registrations().UpdateState(ctx, stored, expected))
	}

	cancel := func(reg *domain.Registration) {
		t.Helper()

		_, err := f.uc.Execute(ctx, &Request{RegistrationID: reg.ID, PatientID: reg.PatientID})
		require.NoError(t, err)
	}

	for i := int64(1); i <= seats; i++ {
		regs = append(regs, f.book(t, i, i%2 == 0))
		assertBalanced(fmt.Sprintf("reserve %d", i))
	}

	_, err := f.alloc.ReserveSeat(ctx, f.schedule.ID)
	require.ErrorIs(t, err, allocator.ErrScheduleFull)

	complete(regs[0])
	assertBalanced("complete unpaid")
	assert.Equal(t, 0, f.remainingSeats(t))

	cancel(regs[1])
	assertBalanced("cancel paid")

	complete(regs[2])
	assertBalanced("complete second")

	cancel(regs[3])
	assertBalanced("cancel last")
	assert.Equal(t, 2, f.remainingSeats(t))

	// Завершённую запись отменить нельзя, место не возвращается
	_, err = f.uc.Execute(ctx, &Request{RegistrationID: regs[0].ID, PatientID: regs[0].PatientID})
	require.Error(t, err)
	assertBalanced("cancel completed")

	regs = append(regs, f.book(t, 5, false), f.book(t, 6, true))
	assertBalanced("rebook")
	assert.Equal(t, 0, f.remainingSeats(t))

	cancel(regs[4])
	assertBalanced("cancel rebooked")
	assert.Equal(t, 1, f.remainingSeats(t))
}
