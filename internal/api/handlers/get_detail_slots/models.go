package get_detail_slots

import "github.com/m04kA/SMC-AppointmentService/internal/domain"

// DetailSlotResponse HTTP response model
type DetailSlotResponse struct {
	Code           string  `json:"code"`
	TimeRange      string  `json:"timeRange"` // "08:00-08:30"
	Period         string  `json:"period"`
	Capacity       int     `json:"capacity"`
	BookedCount    int     `json:"bookedCount"`
	RemainingCount int     `json:"remainingCount"`
	OccupancyRate  float64 `json:"occupancyRate"`
	Bookable       bool    `json:"bookable"`
	Reason         *string `json:"reason,omitempty"` // FULL | BOOKED
}

// FromDomain конвертирует доменную проекцию в HTTP response
func FromDomain(list []domain.DetailSlotAvailability) []DetailSlotResponse {
	result := make([]DetailSlotResponse, 0, len(list))
	for i := range list {
		a := &list[i]

		item := DetailSlotResponse{
			Code:           a.Slot.Code,
			TimeRange:      a.Slot.TimeRange(),
			Period:         string(a.Slot.Period),
			Capacity:       a.Capacity,
			BookedCount:    a.BookedCount,
			RemainingCount: a.RemainingCount,
			OccupancyRate:  a.OccupancyRate(),
			Bookable:       a.Bookable,
		}
		if a.Reason != domain.DetailSlotReasonNone {
			reason := string(a.Reason)
			item.Reason = &reason
		}

		result = append(result, item)
	}
	return result
}
