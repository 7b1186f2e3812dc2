package create_registration

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

// validateRequest валидирует входные данные запроса
// Пустой код подслота трактуется как его отсутствие
func validateRequest(req *Request) error {
	if req.ScheduleID <= 0 {
		return fmt.Errorf("%w: scheduleID must be positive", ErrInvalidInput)
	}

	if req.PatientID <= 0 {
		return fmt.Errorf("%w: patientID must be positive", ErrInvalidInput)
	}

	if req.Symptom != nil && utf8.RuneCountInString(*req.Symptom) > domain.MaxSymptomLength {
		return fmt.Errorf("%w: symptom exceeds %d characters", ErrInvalidInput, domain.MaxSymptomLength)
	}

	if req.DetailSlotCode != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.DetailSlotCode))
		if code == "" {
			req.DetailSlotCode = nil
		} else {
			req.DetailSlotCode = &code
		}
	}

	return nil
}
