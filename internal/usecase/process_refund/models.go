package process_refund

// Outcome результат обработки задачи возврата
type Outcome string

const (
	// OutcomeRefunded возврат выполнен этой обработкой
	OutcomeRefunded Outcome = "refunded"

	// OutcomeSkipped возврат уже был выполнен ранее, повтор ничего не изменил
	OutcomeSkipped Outcome = "skipped"
)

// Response результат обработки задачи
type Response struct {
	RegistrationID int64
	Outcome        Outcome
	RefundID       string
}
