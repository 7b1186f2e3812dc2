package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/registration"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/schedule"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

func seedSchedule(store *Store, seats int) *domain.Schedule {
	return store.AddSchedule(domain.Schedule{
		DoctorID:       1,
		DepartmentID:   1,
		ScheduleDate:   domain.CalendarDate(time.Now().AddDate(0, 0, 1)),
		Period:         domain.PeriodMorning,
		TotalSeats:     seats,
		RemainingSeats: seats,
		Fee:            5000,
		Status:         domain.ScheduleBookable,
	})
}

func TestStore_DoRollsBackOnError(t *testing.T) {
	store := NewStore()
	s := seedSchedule(store, 2)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Do(ctx, func(ctx context.Context) error {
		_, err := store.Schedules().DecrementRemainingSeats(ctx, s.ID, time.Now())
		require.NoError(t, err)

		_, err = store.Registrations().Create(ctx, &domain.Registration{
			RegistrationNo: "R1",
			ScheduleID:     s.ID,
			QueueNumber:    1,
			Status:         domain.RegistrationPending,
		})
		require.NoError(t, err)

		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Schedules().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RemainingSeats)

	next, err := store.Registrations().NextQueueNumber(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestScheduleRepository_DecrementUntilFull(t *testing.T) {
	store := NewStore()
	s := seedSchedule(store, 1)
	ctx := context.Background()
	repo := store.Schedules()

	remaining, err := repo.DecrementRemainingSeats(ctx, s.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	_, err = repo.DecrementRemainingSeats(ctx, s.ID, time.Now())
	assert.ErrorIs(t, err, schedule.ErrNoSeatReserved)

	got, _ := repo.GetByID(ctx, s.ID)
	assert.Equal(t, domain.ScheduleFull, got.Status)

	require.NoError(t, repo.IncrementRemainingSeats(ctx, s.ID))
	require.NoError(t, repo.IncrementRemainingSeats(ctx, s.ID))

	got, _ = repo.GetByID(ctx, s.ID)
	assert.Equal(t, 1, got.RemainingSeats)
	assert.Equal(t, domain.ScheduleBookable, got.Status)
}

func TestScheduleRepository_DecrementExpired(t *testing.T) {
	store := NewStore()
	s := seedSchedule(store, 3)

	_, err := store.Schedules().DecrementRemainingSeats(context.Background(), s.ID, time.Now().AddDate(0, 0, 2))

	assert.ErrorIs(t, err, schedule.ErrNoSeatReserved)
}

func TestRegistrationRepository_UniqueConstraints(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repo := store.Registrations()

	_, err := repo.Create(ctx, &domain.Registration{
		RegistrationNo: "R1", PatientID: 1, ScheduleID: 1, QueueNumber: 1,
		DetailSlotCode: ptr.Ptr("M01"), Status: domain.RegistrationPending,
	})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.Registration{RegistrationNo: "R1", ScheduleID: 2, QueueNumber: 1})
	assert.ErrorIs(t, err, registration.ErrDuplicateRegistrationNo)

	_, err = repo.Create(ctx, &domain.Registration{RegistrationNo: "R2", ScheduleID: 1, QueueNumber: 1})
	assert.ErrorIs(t, err, registration.ErrDuplicateQueueNumber)

	_, err = repo.Create(ctx, &domain.Registration{
		RegistrationNo: "R3", PatientID: 1, ScheduleID: 1, QueueNumber: 2,
		DetailSlotCode: ptr.Ptr("M01"), Status: domain.RegistrationPending,
	})
	assert.ErrorIs(t, err, registration.ErrDuplicateDetailSlot)
}

func TestRegistrationRepository_UpdateStateConflict(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repo := store.Registrations()

	reg, err := repo.Create(ctx, &domain.Registration{
		RegistrationNo: "R1", ScheduleID: 1, QueueNumber: 1,
		Status: domain.RegistrationPending, PaymentStatus: domain.PaymentPending,
	})
	require.NoError(t, err)

	stale := domain.RegistrationState{Status: domain.RegistrationConfirmed, PaymentStatus: domain.PaymentPaid}
	require.NoError(t, reg.Cancel(time.Now()))

	assert.ErrorIs(t, repo.UpdateState(ctx, reg, stale), registration.ErrStateConflict)
	assert.NoError(t, repo.UpdateState(ctx, reg, domain.RegistrationState{
		Status: domain.RegistrationPending, PaymentStatus: domain.PaymentPending,
	}))
}

func TestRegistrationRepository_DetailSlotHeldUntilCancelled(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repo := store.Registrations()

	reg, err := repo.Create(ctx, &domain.Registration{
		RegistrationNo: "R1", PatientID: 1, ScheduleID: 1, QueueNumber: 1,
		DetailSlotCode: ptr.Ptr("M01"), Status: domain.RegistrationPending, PaymentStatus: domain.PaymentPending,
	})
	require.NoError(t, err)

	expected := reg.State()
	require.NoError(t, reg.Complete(time.Now(), nil))
	require.NoError(t, repo.UpdateState(ctx, reg, expected))

	counts, err := repo.CountActiveByDetailSlot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, counts["M01"])

	_, err = repo.Create(ctx, &domain.Registration{
		RegistrationNo: "R2", PatientID: 1, ScheduleID: 1, QueueNumber: 2,
		DetailSlotCode: ptr.Ptr("M01"), Status: domain.RegistrationPending,
	})
	assert.ErrorIs(t, err, registration.ErrDuplicateDetailSlot)

	other, err := repo.Create(ctx, &domain.Registration{
		RegistrationNo: "R3", PatientID: 2, ScheduleID: 1, QueueNumber: 3,
		DetailSlotCode: ptr.Ptr("M02"), Status: domain.RegistrationPending, PaymentStatus: domain.PaymentPending,
	})
	require.NoError(t, err)
	expected = other.State()
	require.NoError(t, other.Cancel(time.Now()))
	require.NoError(t, repo.UpdateState(ctx, other, expected))

	_, err = repo.Create(ctx, &domain.Registration{
		RegistrationNo: "R4", PatientID: 2, ScheduleID: 1, QueueNumber: 4,
		DetailSlotCode: ptr.Ptr("M02"), Status: domain.RegistrationPending,
	})
	assert.NoError(t, err)
}
