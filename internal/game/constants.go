package game

// Room limits
const (
	RoomCapacity = 4
)

// Chat and stroke payloads
const (
	MaxTextLen = 150
)

// Scoring
const (
	GuessPoints = 10
)

// Room code generation
const (
	CodeLength      = 4
	MaxCodeAttempts = 1000
)
