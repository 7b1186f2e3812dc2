package schedule

import "errors"

var (
	// ErrScheduleNotFound возвращается, когда расписание не найдено или удалено
	ErrScheduleNotFound = errors.New("schedule.repository: schedule not found")

	// ErrNoSeatReserved возвращается, когда условное уменьшение счётчика не затронуло ни одной строки
	ErrNoSeatReserved = errors.New("schedule.repository: no seat reserved")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("schedule.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("schedule.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("schedule.repository: failed to scan row")
)
