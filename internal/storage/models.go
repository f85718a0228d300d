package storage

type Envelope struct {
	ID          int64
	Title       string
	BudgetCents int64
}

type Transaction struct {
	ID          int64
	EnvelopeID  int64
	AmountCents int64
	Description string
	CreatedAt   string
}
