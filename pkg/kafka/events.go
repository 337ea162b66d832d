package kafka

import "time"

type EventKind string

const (
	EventBorrowed EventKind = "BORROWED"
	EventReturned EventKind = "RETURNED"
)

// LoanEvent is the wire format published to the loan-events topic on every
// successful borrow or return.
type LoanEvent struct {
	EventUID   string    `json:"eventUid"`
	Kind       EventKind `json:"kind"`
	CardID     string    `json:"cardId"`
	BookID     string    `json:"bookId"`
	AdminID    string    `json:"adminId"`
	OccurredAt time.Time `json:"occurredAt"`
}
