package schedule

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

func setupRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db), mock
}

func TestRepository_DecrementRemainingSeats(t *testing.T) {
	repo, mock := setupRepository(t)
	today := time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE schedules SET remaining_seats = remaining_seats - 1")).
		WithArgs(domain.ScheduleFull, int64(7), domain.ScheduleBookable, 0, domain.CalendarDate(today)).
		WillReturnRows(sqlmock.NewRows([]string{"remaining_seats"}).AddRow(4))

	remaining, err := repo.DecrementRemainingSeats(context.Background(), 7, today)

	require.NoError(t, err)
	assert.Equal(t, 4, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DecrementRemainingSeats_NoRows(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("remaining_seats > $4")).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.DecrementRemainingSeats(context.Background(), 7, time.Now())

	assert.ErrorIs(t, err, ErrNoSeatReserved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_IncrementRemainingSeats_ClampsToTotal(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec(regexp.QuoteMeta("SET remaining_seats = LEAST(remaining_seats + 1, total_seats)")).
		WithArgs(domain.ScheduleFull, domain.ScheduleBookable, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementRemainingSeats(context.Background(), 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_IncrementRemainingSeats_NotFound(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectExec("UPDATE schedules").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncrementRemainingSeats(context.Background(), 7)

	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestRepository_GetByID(t *testing.T) {
	repo, mock := setupRepository(t)
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	now := time.Now()

	rows := sqlmock.NewRows(columns).AddRow(
		int64(7), int64(3), int64(2), date, "morning", 20, 5, int64(5000), "bookable",
		"Dr. Ivanova", "Cardiology", nil, now, now,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM schedules WHERE deleted_at IS NULL AND id = $1")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	s, err := repo.GetByID(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, domain.PeriodMorning, s.Period)
	assert.Equal(t, 5, s.RemainingSeats)
	assert.Equal(t, int64(5000), s.Fee)
	assert.Equal(t, "Cardiology", s.DepartmentName)
	assert.Nil(t, s.DeletedAt)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupRepository(t)

	mock.ExpectQuery("FROM schedules").WillReturnRows(sqlmock.NewRows(columns))

	_, err := repo.GetByID(context.Background(), 99)

	assert.ErrorIs(t, err, ErrScheduleNotFound)
}
