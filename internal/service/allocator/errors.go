package allocator

import "errors"

var (
	// ErrScheduleNotFound возвращается, когда расписание не найдено или удалено
	ErrScheduleNotFound = errors.New("allocator: schedule not found")

	// ErrScheduleNotBookable возвращается, когда расписание отменено
	ErrScheduleNotBookable = errors.New("allocator: schedule is not bookable")

	// ErrScheduleFull возвращается, когда свободных мест нет
	ErrScheduleFull = errors.New("allocator: schedule is full")

	// ErrScheduleExpired возвращается, когда дата расписания уже прошла
	ErrScheduleExpired = errors.New("allocator: schedule date has passed")

	// ErrInternal возвращается при внутренних ошибках
	ErrInternal = errors.New("allocator: internal error")
)

// Причины отказа для метрик
const (
	reasonNotFound    = "not_found"
	reasonNotBookable = "not_bookable"
	reasonExpired     = "expired"
	reasonFull        = "full"
)
