package paymentgateway

// RefundRequest запрос на возврат по платёжной транзакции
type RefundRequest struct {
	TransactionNo  string
	RegistrationNo string
	Amount         int64
}

// RefundResult результат возврата на стороне шлюза
type RefundResult struct {
	RefundID string
}

func (r RefundRequest) validate() error {
	if r.TransactionNo == "" || r.Amount <= 0 {
		return ErrInvalidRequest
	}
	return nil
}
