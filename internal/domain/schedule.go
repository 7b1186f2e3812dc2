package domain

import "time"

// ScheduleStatus статус расписания врача
type ScheduleStatus string

const (
	ScheduleCancelled ScheduleStatus = "cancelled"
	ScheduleBookable  ScheduleStatus = "bookable"
	ScheduleFull      ScheduleStatus = "full"
)

// Period крупный временной блок приёма
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// IsValid проверяет, что период входит в известный список
func (p Period) IsValid() bool {
	switch p {
	case PeriodMorning, PeriodAfternoon, PeriodEvening:
		return true
	}
	return false
}

// Schedule приём врача в отделении на дату в рамках одного блока
// RemainingSeats меняется только через аллокатор мест
type Schedule struct {
	ID           int64
	DoctorID     int64
	DepartmentID int64
	ScheduleDate time.Time
	Period       Period

	TotalSeats     int
	RemainingSeats int
	Fee            int64 // стоимость записи в минимальных единицах валюты
	Status         ScheduleStatus

	// Denormalized data for notifications
	DoctorName     string
	DepartmentName string

	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EffectiveStatus возвращает статус с учётом счётчика мест:
// расписание без свободных мест считается заполненным, даже если статус ещё не материализован
func (s *Schedule) EffectiveStatus() ScheduleStatus {
	if s.Status == ScheduleBookable && s.RemainingSeats <= 0 {
		return ScheduleFull
	}
	return s.Status
}

// IsExpired возвращает true, если дата приёма раньше сегодняшней
func (s *Schedule) IsExpired(now time.Time) bool {
	return CalendarDate(s.ScheduleDate).Before(CalendarDate(now))
}

// BookedSeats количество занятых мест
func (s *Schedule) BookedSeats() int {
	return s.TotalSeats - s.RemainingSeats
}

// IsDeleted возвращает true для мягко удалённого расписания
func (s *Schedule) IsDeleted() bool {
	return s.DeletedAt != nil
}
