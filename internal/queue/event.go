// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingConfirmedEvent is published when a room reservation is successfully
// committed. It carries enough information for downstream consumers to log,
// notify, or feed analytics without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID        uint64 `json:"booking_id"`
	RoomID           uint64 `json:"room_id"`
	RoomNumber       string `json:"room_number"`
	ClientID         uint64 `json:"client_id"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	AmountPaidCents  uint64 `json:"amount_paid_cents"`
	PaymentReference string `json:"payment_reference,omitempty"`
	ConfirmedAt      string `json:"confirmed_at"`
}
