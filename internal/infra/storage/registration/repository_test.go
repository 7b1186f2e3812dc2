package registration

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/ptr"
)

func setupRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db), mock
}

func newRegistration() *domain.Registration {
	return &domain.Registration{
		RegistrationNo: "20261017093000123456",
		PatientID:      11,
		DoctorID:       3,
		ScheduleID:     7,
		QueueNumber:    1,
		DetailSlotCode: ptr.Ptr("M01"),
		Fee:            5000,
		Status:         domain.RegistrationPending,
		PaymentStatus:  domain.PaymentPending,
	}
}

func TestRepository_Create(t *testing.T) {
	repo, mock := setupRepository(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO registrations")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now))

	created, err := repo.Create(context.Background(), newRegistration())

	require.NoError(t, err)
	assert.Equal(t, int64(42), created.ID)
	assert.Equal(t, now, created.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Create_UniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{constraintRegistrationNo, ErrDuplicateRegistrationNo},
		{constraintQueueNumber, ErrDuplicateQueueNumber},
		{constraintDetailSlot, ErrDuplicateDetailSlot},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			repo, mock := setupRepository(t)

			mock.ExpectQuery("INSERT INTO registrations").
				WillReturnError(&pq.Error{Code: pgUniqueViolation, Constraint: tt.constraint})

			_, err := repo.Create(context.Background(), newRegistration())

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRepository_NextQueueNumber(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(MAX(queue_number), 0) + 1 FROM registrations WHERE schedule_id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(3))

	next, err := repo.NextQueueNumber(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 3, next)
}

func TestRepository_GetByID_LocksInsideTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	wrapped := dbmetrics.Wrap(db, nil)
	repo := NewRepository(wrapped)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectRollback()

	tx, err := wrapped.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	_, err = repo.GetByID(dbmetrics.WithTx(context.Background(), tx), 42)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_UpdateState_Conflict(t *testing.T) {
	repo, mock := setupRepository(t)

	reg := newRegistration()
	reg.ID = 42
	expected := reg.State()
	require.NoError(t, reg.Cancel(time.Now()))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE registrations SET status = $1, payment_status = $2")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateState(context.Background(), reg, expected)

	assert.ErrorIs(t, err, ErrStateConflict)
}

func TestRepository_CountActiveByDetailSlot(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT detail_slot_code, COUNT(*) FROM registrations WHERE deleted_at IS NULL AND schedule_id = $1 AND detail_slot_code IS NOT NULL AND status <> $2")).
		WithArgs(int64(7), "cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"detail_slot_code", "count"}).
			AddRow("M01", 5).
			AddRow("M03", 2))

	counts, err := repo.CountActiveByDetailSlot(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"M01": 5, "M03": 2}, counts)
}

func TestRepository_GetActiveDetailSlotCodes_CountsCompleted(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT detail_slot_code FROM registrations WHERE deleted_at IS NULL AND patient_id = $1 AND schedule_id = $2 AND detail_slot_code IS NOT NULL AND status <> $3")).
		WithArgs(int64(11), int64(7), "cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"detail_slot_code"}).AddRow("M01"))

	codes, err := repo.GetActiveDetailSlotCodes(context.Background(), 7, 11)

	require.NoError(t, err)
	assert.Equal(t, []string{"M01"}, codes)
	require.NoError(t, mock.ExpectationsWereMet())
}
