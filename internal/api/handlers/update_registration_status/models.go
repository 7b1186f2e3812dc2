package update_registration_status

// Действия над записью со стороны клиники
const (
	ActionConfirm  = "confirm"
	ActionCheckIn  = "check_in"
	ActionComplete = "complete"
)

// UpdateStatusRequest HTTP request model
type UpdateStatusRequest struct {
	Action      string  `json:"action"`
	VisitRecord *string `json:"visitRecord,omitempty"` // только для complete
}
