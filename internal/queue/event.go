// Package queue defines message payloads exchanged over the message broker
// and the publisher/consumer pair that moves them.  Events mirror the
// in-process fanout onto RabbitMQ so external systems (SMS gateways,
// analytics) can react without querying the core.
package queue

// AlertRaisedEvent is published whenever a new alert enters the system,
// whether synthesized by the engine or reported by an operator.
type AlertRaisedEvent struct {
	AlertID   string `json:"alert_id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Title     string `json:"title"`
	TempleID  string `json:"temple_id,omitempty"`
	Zone      string `json:"zone,omitempty"`
	RaisedAt  string `json:"raised_at"`
	OwnerRole string `json:"owner_role,omitempty"`
}

// BookingConfirmedEvent is published when a booking is successfully
// created.  It carries enough information for downstream consumers to
// notify the devotee without querying the primary store.
type BookingConfirmedEvent struct {
	BookingID     string `json:"booking_id"`
	BookingNumber string `json:"booking_number"`
	SubjectUserID string `json:"subject_user_id"`
	TempleID      string `json:"temple_id"`
	TempleName    string `json:"temple_name"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	PartySize     int    `json:"party_size"`
	Category      string `json:"category"`
	Amount        int    `json:"amount"`
	ConfirmedAt   string `json:"confirmed_at"`
}
