package detailslots

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/internal/infra/storage/memory"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

func setup(t *testing.T) (*Service, *memory.Store, *domain.Schedule) {
	t.Helper()

	store := memory.NewStore()
	schedule := store.AddSchedule(domain.Schedule{
		DoctorID:       1,
		DepartmentID:   1,
		ScheduleDate:   domain.CalendarDate(time.Now().AddDate(0, 0, 1)),
		Period:         domain.PeriodMorning,
		TotalSeats:     30,
		RemainingSeats: 30,
		Fee:            5000,
		Status:         domain.ScheduleBookable,
	})

	return NewService(store.Schedules(), store.Registrations(), 5, logger.NewDiscard()), store, schedule
}

func book(t *testing.T, store *memory.Store, scheduleID, patientID int64, queue int, code string) {
	t.Helper()

	_, err := store.Registrations().Create(context.Background(), &domain.Registration{
		RegistrationNo: fmt.Sprintf("R-%d-%d", scheduleID, queue),
		PatientID:      patientID,
		ScheduleID:     scheduleID,
		QueueNumber:    queue,
		DetailSlotCode: ptr.Ptr(code),
		Status:         domain.RegistrationPending,
		PaymentStatus:  domain.PaymentPending,
	})
	require.NoError(t, err)
}

func findSlot(t *testing.T, list []domain.DetailSlotAvailability, code string) domain.DetailSlotAvailability {
	t.Helper()

	for _, a := range list {
		if a.Slot.Code == code {
			return a
		}
	}
	t.Fatalf("slot %s not found", code)
	return domain.DetailSlotAvailability{}
}

func TestService_ListAvailability_FullVersusBooked(t *testing.T) {
	svc, store, schedule := setup(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		book(t, store, schedule.ID, int64(100+i), i, "M02")
	}

	others, err := svc.ListAvailability(ctx, schedule.ID, ptr.Ptr(int64(999)))
	require.NoError(t, err)
	m02 := findSlot(t, others, "M02")
	assert.False(t, m02.Bookable)
	assert.Equal(t, domain.DetailSlotReasonFull, m02.Reason)
	assert.Equal(t, 0, m02.RemainingCount)

	holder, err := svc.ListAvailability(ctx, schedule.ID, ptr.Ptr(int64(101)))
	require.NoError(t, err)
	m02 = findSlot(t, holder, "M02")
	assert.False(t, m02.Bookable)
	assert.Equal(t, domain.DetailSlotReasonBooked, m02.Reason)

	anonymous, err := svc.ListAvailability(ctx, schedule.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.DetailSlotReasonFull, findSlot(t, anonymous, "M02").Reason)
}

func TestService_ListAvailability_OrderAndCounts(t *testing.T) {
	svc, store, schedule := setup(t)

	book(t, store, schedule.ID, 1, 1, "M01")
	book(t, store, schedule.ID, 2, 2, "M01")

	list, err := svc.ListAvailability(context.Background(), schedule.ID, nil)
	require.NoError(t, err)
	require.Len(t, list, 8)

	for i, a := range list {
		assert.Equal(t, i+1, a.Slot.SortOrder)
	}
	assert.Equal(t, "08:00-08:30", list[0].Slot.TimeRange())
	assert.Equal(t, 2, list[0].BookedCount)
	assert.Equal(t, 3, list[0].RemainingCount)
	assert.True(t, list[0].Bookable)
	assert.Equal(t, domain.DetailSlotReasonNone, list[1].Reason)
}

func TestService_ListAvailability_IgnoresCancelled(t *testing.T) {
	svc, store, schedule := setup(t)
	ctx := context.Background()

	book(t, store, schedule.ID, 1, 1, "M03")
	reg, err := store.Registrations().GetByID(ctx, 1)
	require.NoError(t, err)
	expected := reg.State()
	require.NoError(t, reg.Cancel(time.Now()))
	require.NoError(t, store.Registrations().UpdateState(ctx, reg, expected))

	list, err := svc.ListAvailability(ctx, schedule.ID, ptr.Ptr(int64(1)))
	require.NoError(t, err)

	m03 := findSlot(t, list, "M03")
	assert.Equal(t, 0, m03.BookedCount)
	assert.True(t, m03.Bookable)
}

// Завершённый приём продолжает занимать подслот: после завершения всех визитов свободных мест не появляется
func TestService_CompletedRegistrationsKeepSlotFull(t *testing.T) {
	svc, store, schedule := setup(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		book(t, store, schedule.ID, int64(200+i), i, "M03")

		reg, err := store.Registrations().GetByID(ctx, int64(i))
		require.NoError(t, err)
		expected := reg.State()
		require.NoError(t, reg.Complete(time.Now(), nil))
		require.NoError(t, store.Registrations().UpdateState(ctx, reg, expected))
	}

	list, err := svc.ListAvailability(ctx, schedule.ID, nil)
	require.NoError(t, err)
	m03 := findSlot(t, list, "M03")
	assert.Equal(t, 5, m03.BookedCount)
	assert.False(t, m03.Bookable)
	assert.Equal(t, domain.DetailSlotReasonFull, m03.Reason)

	holder, err := svc.ListAvailability(ctx, schedule.ID, ptr.Ptr(int64(201)))
	require.NoError(t, err)
	assert.Equal(t, domain.DetailSlotReasonBooked, findSlot(t, holder, "M03").Reason)

	_, err = svc.ValidateChoice(ctx, schedule.ID, 999, "M03")
	assert.ErrorIs(t, err, ErrDetailSlotFull)

	_, err = svc.ValidateChoice(ctx, schedule.ID, 201, "M03")
	assert.ErrorIs(t, err, ErrDuplicateDetailSlotBooking)
}

func TestService_ValidateChoice(t *testing.T) {
	svc, store, schedule := setup(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		book(t, store, schedule.ID, int64(100+i), i, "M04")
	}
	book(t, store, schedule.ID, 7, 6, "M05")

	tests := []struct {
		name      string
		patientID int64
		code      string
		wantErr   error
	}{
		{name: "free slot", patientID: 1, code: "M01"},
		{name: "unknown code", patientID: 1, code: "X99", wantErr: ErrUnknownDetailSlot},
		{name: "afternoon slot in morning schedule", patientID: 1, code: "A01", wantErr: ErrDetailSlotPeriodMismatch},
		{name: "full slot", patientID: 1, code: "M04", wantErr: ErrDetailSlotFull},
		{name: "same patient twice", patientID: 7, code: "M05", wantErr: ErrDuplicateDetailSlotBooking},
		{name: "holder of full slot", patientID: 101, code: "M04", wantErr: ErrDuplicateDetailSlotBooking},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, err := svc.ValidateChoice(ctx, schedule.ID, tt.patientID, tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.code, slot.Code)
		})
	}
}

func TestService_ValidateChoice_ScheduleNotFound(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.ValidateChoice(context.Background(), 999, 1, "M01")

	assert.ErrorIs(t, err, ErrScheduleNotFound)
}
