package detailslots

import "errors"

var (
	// ErrScheduleNotFound возвращается, когда расписание не найдено
	ErrScheduleNotFound = errors.New("detailslots: schedule not found")

	// ErrUnknownDetailSlot возвращается для кода, которого нет в таблице подслотов
	ErrUnknownDetailSlot = errors.New("detailslots: unknown detail slot code")

	// ErrDetailSlotPeriodMismatch возвращается, когда подслот относится к другому блоку
	ErrDetailSlotPeriodMismatch = errors.New("detailslots: detail slot does not belong to the schedule period")

	// ErrDetailSlotFull возвращается, когда вместимость подслота исчерпана
	ErrDetailSlotFull = errors.New("detailslots: detail slot is full")

	// ErrDuplicateDetailSlotBooking возвращается, когда пациент уже записан в этот подслот
	ErrDuplicateDetailSlotBooking = errors.New("detailslots: patient already booked this detail slot")

	// ErrInternal возвращается при внутренних ошибках
	ErrInternal = errors.New("detailslots: internal error")
)
