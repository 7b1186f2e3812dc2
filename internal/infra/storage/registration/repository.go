package registration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

const tableName = "registrations"

// Имена уникальных ограничений из миграций
const (
	constraintRegistrationNo = "registrations_registration_no_key"
	constraintQueueNumber    = "registrations_schedule_queue_key"
	constraintDetailSlot     = "registrations_active_detail_slot_idx"
)

// pgUniqueViolation код ошибки PostgreSQL unique_violation
const pgUniqueViolation = "23505"

var columns = []string{
	"id",
	"registration_no",
	"patient_id",
	"doctor_id",
	"schedule_id",
	"queue_number",
	"detail_slot_code",
	"symptom",
	"fee",
	"status",
	"payment_status",
	"paid_at",
	"refunded_at",
	"refund_published_at",
	"cancelled_at",
	"checked_in_at",
	"completed_at",
	"visit_record",
	"created_at",
	"updated_at",
}

// Repository репозиторий записей на приём
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория записей
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новую запись
// Нарушения уникальности переводятся в конкретные ошибки (номер записи, номер очереди, подслот)
func (r *Repository) Create(ctx context.Context, reg *domain.Registration) (*domain.Registration, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert(tableName).
		Columns(
			"registration_no",
			"patient_id",
			"doctor_id",
			"schedule_id",
			"queue_number",
			"detail_slot_code",
			"symptom",
			"fee",
			"status",
			"payment_status",
		).
		Values(
			reg.RegistrationNo,
			reg.PatientID,
			reg.DoctorID,
			reg.ScheduleID,
			reg.QueueNumber,
			reg.DetailSlotCode,
			reg.Symptom,
			reg.Fee,
			reg.Status,
			reg.PaymentStatus,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&reg.ID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if uniqueErr := translateUniqueViolation(err); uniqueErr != nil {
			return nil, uniqueErr
		}
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	reg.CreatedAt = createdAt.Time
	reg.UpdatedAt = updatedAt.Time

	return reg, nil
}

// NextQueueNumber возвращает следующий номер очереди расписания (MAX + 1, начиная с 1)
// Вызывается в той же транзакции после условного UPDATE расписания, который держит блокировку строки:
// параллельный резерв того же расписания ждёт коммита и видит уже вставленную запись.
// Отменённые записи учитываются, поэтому номера не переиспользуются.
func (r *Repository) NextQueueNumber(ctx context.Context, scheduleID int64) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COALESCE(MAX(queue_number), 0) + 1").
		From(tableName).
		Where(squirrel.Eq{"schedule_id": scheduleID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: NextQueueNumber - build select query: %v", ErrBuildQuery, err)
	}

	var next int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&next); err != nil {
		return 0, fmt.Errorf("%w: NextQueueNumber - scan: %v", ErrScanRow, err)
	}

	return next, nil
}

// GetByID получает запись по ID
// Внутри транзакции строка блокируется (FOR UPDATE) до коммита
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Registration, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"id": id, "deleted_at": nil})

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	reg, err := scanRegistration(executor.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan registration: %v", ErrScanRow, err)
	}

	return reg, nil
}

// GetByPatientID получает записи пациента, новые сначала
// Опционально фильтрует по статусу
func (r *Repository) GetByPatientID(ctx context.Context, patientID int64, status *domain.RegistrationStatus) ([]*domain.Registration, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{"patient_id": patientID, "deleted_at": nil}).
		OrderBy("created_at DESC", "id DESC")

	if status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *status})
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByPatientID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByPatientID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanRegistrations(rows)
}

// CountActiveByDetailSlot считает активные записи расписания по кодам подслотов
func (r *Repository) CountActiveByDetailSlot(ctx context.Context, scheduleID int64) (map[string]int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("detail_slot_code", "COUNT(*)").
		From(tableName).
		Where(squirrel.Eq{
			"schedule_id": scheduleID,
			"deleted_at":  nil,
		}).
		Where(squirrel.NotEq{
			"detail_slot_code": nil,
			"status":           string(domain.RegistrationCancelled),
		}).
		GroupBy("detail_slot_code").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: CountActiveByDetailSlot - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: CountActiveByDetailSlot - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var code string
		var count int
		if err := rows.Scan(&code, &count); err != nil {
			return nil, fmt.Errorf("%w: CountActiveByDetailSlot - scan row: %v", ErrScanRow, err)
		}
		counts[code] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: CountActiveByDetailSlot - rows error: %v", ErrScanRow, err)
	}

	return counts, nil
}

// GetActiveDetailSlotCodes возвращает коды подслотов, занятые активными записями пациента в расписании
func (r *Repository) GetActiveDetailSlotCodes(ctx context.Context, scheduleID, patientID int64) ([]string, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("DISTINCT detail_slot_code").
		From(tableName).
		Where(squirrel.Eq{
			"schedule_id": scheduleID,
			"patient_id":  patientID,
			"deleted_at":  nil,
		}).
		Where(squirrel.NotEq{
			"detail_slot_code": nil,
			"status":           string(domain.RegistrationCancelled),
		}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveDetailSlotCodes - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveDetailSlotCodes - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	codes := make([]string, 0)
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("%w: GetActiveDetailSlotCodes - scan row: %v", ErrScanRow, err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: GetActiveDetailSlotCodes - rows error: %v", ErrScanRow, err)
	}

	return codes, nil
}

// UpdateState сохраняет изменяемые поля записи, если она всё ещё в ожидаемом состоянии (compare-and-swap)
// queue_number и symptom не обновляются никогда
func (r *Repository) UpdateState(ctx context.Context, reg *domain.Registration, expected domain.RegistrationState) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("status", reg.Status).
		Set("payment_status", reg.PaymentStatus).
		Set("paid_at", reg.PaidAt).
		Set("refunded_at", reg.RefundedAt).
		Set("cancelled_at", reg.CancelledAt).
		Set("checked_in_at", reg.CheckedInAt).
		Set("completed_at", reg.CompletedAt).
		Set("visit_record", reg.VisitRecord).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{
			"id":             reg.ID,
			"status":         expected.Status,
			"payment_status": expected.PaymentStatus,
			"deleted_at":     nil,
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: UpdateState - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: UpdateState - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: UpdateState - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrStateConflict
	}

	return nil
}

// MarkRefundPublished фиксирует, что задача возврата отправлена в брокер
func (r *Repository) MarkRefundPublished(ctx context.Context, id int64, at time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update(tableName).
		Set("refund_published_at", at).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: MarkRefundPublished - build update query: %v", ErrBuildQuery, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: MarkRefundPublished - execute update: %v", ErrExecQuery, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: MarkRefundPublished - get rows affected: %v", ErrExecQuery, err)
	}

	if rowsAffected == 0 {
		return ErrRegistrationNotFound
	}

	return nil
}

// GetUnpublishedRefunds возвращает записи в статусе возврата, задача по которым так и не ушла в брокер
// (публикация после коммита отмены не удалась), и которые не менялись с момента before
func (r *Repository) GetUnpublishedRefunds(ctx context.Context, before time.Time, limit int) ([]*domain.Registration, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(columns...).
		From(tableName).
		Where(squirrel.Eq{
			"payment_status":      domain.PaymentRefunding,
			"refund_published_at": nil,
			"deleted_at":          nil,
		}).
		Where(squirrel.Lt{"updated_at": before}).
		OrderBy("updated_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetUnpublishedRefunds - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetUnpublishedRefunds - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanRegistrations(rows)
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	var reg domain.Registration
	var createdAt, updatedAt sql.NullTime

	err := row.Scan(
		&reg.ID,
		&reg.RegistrationNo,
		&reg.PatientID,
		&reg.DoctorID,
		&reg.ScheduleID,
		&reg.QueueNumber,
		&reg.DetailSlotCode,
		&reg.Symptom,
		&reg.Fee,
		&reg.Status,
		&reg.PaymentStatus,
		&reg.PaidAt,
		&reg.RefundedAt,
		&reg.RefundPublishedAt,
		&reg.CancelledAt,
		&reg.CheckedInAt,
		&reg.CompletedAt,
		&reg.VisitRecord,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	reg.CreatedAt = createdAt.Time
	reg.UpdatedAt = updatedAt.Time

	return &reg, nil
}

// scanRegistrations сканирует результаты запроса в слайс записей
func scanRegistrations(rows *sql.Rows) ([]*domain.Registration, error) {
	registrations := make([]*domain.Registration, 0)

	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanRegistrations - scan row: %v", ErrScanRow, err)
		}
		registrations = append(registrations, reg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanRegistrations - rows error: %v", ErrScanRow, err)
	}

	return registrations, nil
}

// translateUniqueViolation переводит unique_violation PostgreSQL в ошибку репозитория
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != pgUniqueViolation {
		return nil
	}

	switch pqErr.Constraint {
	case constraintRegistrationNo:
		return ErrDuplicateRegistrationNo
	case constraintQueueNumber:
		return ErrDuplicateQueueNumber
	case constraintDetailSlot:
		return ErrDuplicateDetailSlot
	default:
		return fmt.Errorf("%w: unique violation on %s", ErrExecQuery, pqErr.Constraint)
	}
}
