package events

// Topic constants for domain events emitted by the platform.
const (
	TopicBillCompleted   = "bill.completed"
	TopicBookingCreated  = "booking.created"
	TopicLedgerRecorded  = "ledger.recorded"
	TopicCheckoutDegrade = "checkout.degraded"
)

// DefaultTopics returns the canonical list of topics that support notifications.
func DefaultTopics() []string {
	return []string{
		TopicBillCompleted,
		TopicBookingCreated,
		TopicLedgerRecorded,
		TopicCheckoutDegrade,
	}
}
