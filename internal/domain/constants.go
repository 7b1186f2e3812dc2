package domain

import "time"

// Значения по умолчанию
const (
	DefaultDetailSlotCapacity  = 5
	DetailSlotDurationMinutes  = 30
	MaxSymptomLength           = 500
	MaxVisitRecordLength       = 2000
	RegistrationNoSuffixDigits = 6
)

// Форматы времени
const (
	TimeFormat                 = "15:04"          // HH:MM
	DateFormat                 = "2006-01-02"     // YYYY-MM-DD
	RegistrationNoTimestampFmt = "20060102150405" // префикс номера записи
)

// CalendarDate приводит момент времени к календарной дате в UTC
// Даты приёма хранятся как DATE, поэтому сравниваем только год, месяц и день
func CalendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
