package domain

// DetailSlot 30-минутный подслот крупного блока приёма
type DetailSlot struct {
	Code      string
	StartTime string // HH:MM
	EndTime   string // HH:MM
	Period    Period
	SortOrder int
}

// TimeRange возвращает диапазон для отображения, например "08:00-08:30"
func (d DetailSlot) TimeRange() string {
	return d.StartTime + "-" + d.EndTime
}

// DetailSlotReason причина, по которой подслот недоступен
type DetailSlotReason string

const (
	DetailSlotReasonNone   DetailSlotReason = ""
	DetailSlotReasonFull   DetailSlotReason = "FULL"
	DetailSlotReasonBooked DetailSlotReason = "BOOKED"
)

// DetailSlotAvailability проекция загрузки подслота на момент чтения
type DetailSlotAvailability struct {
	Slot           DetailSlot
	Capacity       int
	BookedCount    int
	RemainingCount int
	Bookable       bool
	Reason         DetailSlotReason
}

// NewDetailSlotAvailability считает остаток мест подслота по числу неотменённых записей
func NewDetailSlotAvailability(slot DetailSlot, capacity, booked int) DetailSlotAvailability {
	remaining := capacity - booked
	if remaining < 0 {
		remaining = 0
	}

	a := DetailSlotAvailability{
		Slot:           slot,
		Capacity:       capacity,
		BookedCount:    booked,
		RemainingCount: remaining,
		Bookable:       true,
		Reason:         DetailSlotReasonNone,
	}
	if a.IsFull() {
		a.Bookable = false
		a.Reason = DetailSlotReasonFull
	}
	return a
}

// IsFull подслот заполнен
func (a *DetailSlotAvailability) IsFull() bool {
	return a.RemainingCount <= 0
}

// MarkBooked помечает подслот как уже занятый запрашивающим пациентом; BOOKED важнее FULL
func (a *DetailSlotAvailability) MarkBooked() {
	a.Bookable = false
	a.Reason = DetailSlotReasonBooked
}

// OccupancyRate заполненность в процентах (0-100)
func (a *DetailSlotAvailability) OccupancyRate() float64 {
	if a.Capacity == 0 {
		return 0
	}
	return float64(a.BookedCount) / float64(a.Capacity) * 100
}

// detailSlots статическая таблица подслотов по блокам
var detailSlots = map[Period][]DetailSlot{
	PeriodMorning: {
		{Code: "M01", StartTime: "08:00", EndTime: "08:30", Period: PeriodMorning, SortOrder: 1},
		{Code: "M02", StartTime: "08:30", EndTime: "09:00", Period: PeriodMorning, SortOrder: 2},
		{Code: "M03", StartTime: "09:00", EndTime: "09:30", Period: PeriodMorning, SortOrder: 3},
		{Code: "M04", StartTime: "09:30", EndTime: "10:00", Period: PeriodMorning, SortOrder: 4},
		{Code: "M05", StartTime: "10:00", EndTime: "10:30", Period: PeriodMorning, SortOrder: 5},
		{Code: "M06", StartTime: "10:30", EndTime: "11:00", Period: PeriodMorning, SortOrder: 6},
		{Code: "M07", StartTime: "11:00", EndTime: "11:30", Period: PeriodMorning, SortOrder: 7},
		{Code: "M08", StartTime: "11:30", EndTime: "12:00", Period: PeriodMorning, SortOrder: 8},
	},
	PeriodAfternoon: {
		{Code: "A01", StartTime: "14:00", EndTime: "14:30", Period: PeriodAfternoon, SortOrder: 1},
		{Code: "A02", StartTime: "14:30", EndTime: "15:00", Period: PeriodAfternoon, SortOrder: 2},
		{Code: "A03", StartTime: "15:00", EndTime: "15:30", Period: PeriodAfternoon, SortOrder: 3},
		{Code: "A04", StartTime: "15:30", EndTime: "16:00", Period: PeriodAfternoon, SortOrder: 4},
		{Code: "A05", StartTime: "16:00", EndTime: "16:30", Period: PeriodAfternoon, SortOrder: 5},
		{Code: "A06", StartTime: "16:30", EndTime: "17:00", Period: PeriodAfternoon, SortOrder: 6},
		{Code: "A07", StartTime: "17:00", EndTime: "17:30", Period: PeriodAfternoon, SortOrder: 7},
		{Code: "A08", StartTime: "17:30", EndTime: "18:00", Period: PeriodAfternoon, SortOrder: 8},
	},
	PeriodEvening: {
		{Code: "E01", StartTime: "18:30", EndTime: "19:00", Period: PeriodEvening, SortOrder: 1},
		{Code: "E02", StartTime: "19:00", EndTime: "19:30", Period: PeriodEvening, SortOrder: 2},
		{Code: "E03", StartTime: "19:30", EndTime: "20:00", Period: PeriodEvening, SortOrder: 3},
		{Code: "E04", StartTime: "20:00", EndTime: "20:30", Period: PeriodEvening, SortOrder: 4},
	},
}

// DetailSlotsForPeriod возвращает копию упорядоченного списка подслотов блока
func DetailSlotsForPeriod(p Period) []DetailSlot {
	slots := detailSlots[p]
	result := make([]DetailSlot, len(slots))
	copy(result, slots)
	return result
}

// FindDetailSlot ищет подслот по коду во всех блоках
func FindDetailSlot(code string) (DetailSlot, bool) {
	for _, slots := range detailSlots {
		for _, s := range slots {
			if s.Code == code {
				return s, true
			}
		}
	}
	return DetailSlot{}, false
}
