// Package conversation holds per-identity bounded transcripts and the
// preference log that steers a persona for each identity.
package conversation

// SessionStore is the read/write surface the router needs.
// Implementations must be safe for concurrent use.
type SessionStore interface {
	// Append pushes a turn, evicting the oldest turns beyond the mode's cap.
	Append(identity string, mode Mode, role Role, text string)

	// AppendExchange pushes a user turn followed by a model turn atomically.
	AppendExchange(identity string, mode Mode, user, model string)

	// Transcript returns a copy of the buffer in chronological order.
	Transcript(identity string, mode Mode) []Turn

	// Clear drops the given modes for identity, or every mode when none are given.
	Clear(identity string, modes ...Mode) bool

	// RecordPreference appends to the identity's preference log.
	RecordPreference(identity string, text string)

	// Preferences returns a copy of the identity's preference log.
	Preferences(identity string) []string
}
