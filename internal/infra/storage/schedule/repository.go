package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

const tableName = "schedules"

var columns = []string{
	"id",
	"doctor_id",
	"department_id",
	"schedule_date",
	"period",
	"total_seats",
	"remaining_seats",
	"fee",
	"status",
	"doctor_name",
	"department_name",
	"deleted_at",
	"created_at",
	"updated_at",
}

// Repository репозиторий расписаний врачей
// Счётчик remaining_seats меняется только условными UPDATE, без чтения-сравнения-записи
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория расписаний
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает неудалённое расписание по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Schedule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var s domain.Schedule
	var createdAt, updatedAt sql.NullTime

	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&s.ID,
		&s.DoctorID,
		&s.DepartmentID,
		&s.ScheduleDate,
		&s.Period,
		&s.TotalSeats,
		&s.RemainingSeats,
		&s.Fee,
		&s.Status,
		&s.DoctorName,
		&s.DepartmentName,
		&s.DeletedAt,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan schedule: %v", ErrScanRow, err)
	}

	s.CreatedAt = createdAt.Time
	s.UpdatedAt = updatedAt.Time

	return &s, nil
}

// DecrementRemainingSeats атомарно забирает одно место: уменьшает счётчик только если он > 0,
// расписание открыто и дата не прошла. Когда места заканчиваются, статус материализуется в full.
// Строка остаётся заблокированной до конца транзакции, что сериализует конкурентные резервирования.
// Возвращает оставшееся количество мест или ErrNoSeatReserved.
func (r *Repository) DecrementRemainingSeats(ctx context.Context, id int64, today time.Time) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("remaining_seats", squirrel.Expr("remaining_seats - 1")).
		Set("status", squirrel.Expr("CASE WHEN remaining_seats - 1 = 0 THEN ? ELSE status END", domain.ScheduleFull)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": domain.ScheduleBookable, "deleted_at": nil}).
		Where(squirrel.Gt{"remaining_seats": 0}).
		Where(squirrel.GtOrEq{"schedule_date": domain.CalendarDate(today)}).
		Suffix("RETURNING remaining_seats").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: DecrementRemainingSeats - build update query: %v", ErrBuildQuery, err)
	}

	var remaining int
	err = executor.QueryRowContext(ctx, query, args...).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoSeatReserved
	}
	if err != nil {
		return 0, fmt.Errorf("%w: DecrementRemainingSeats - execute update: %v", ErrExecQuery, err)
	}

	return remaining, nil
}

// IncrementRemainingSeats возвращает одно место, не превышая total_seats;
// заполненное расписание снова становится доступным
func (r *Repository) IncrementRemainingSeats(ctx context.Context, id int64) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("remaining_seats", squirrel.Expr("LEAST(remaining_seats + 1, total_seats)")).
		Set("status", squirrel.Expr("CASE WHEN status = ? THEN ? ELSE status END", domain.ScheduleFull, domain.ScheduleBookable)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "deleted_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: IncrementRemainingSeats - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: IncrementRemainingSeats - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: IncrementRemainingSeats - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrScheduleNotFound
	}

	return nil
}
