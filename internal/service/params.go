package service

import "time"

type PairParams struct {
	DeviceID string
	Nickname string
}

type StartRunParams struct {
	SutIP      string
	Games      []string
	Iterations int
}

// SingleRunParams selects one game for a single automation run.
type SingleRunParams struct {
	SutIP      string
	GameName   string
	Iterations int
}

// JournalFilter selects journal entries by time range and kind.
type JournalFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Kind string    // "", CONNECTED, DISCONNECTED, NOTIFICATION, COMMAND_FAILED
}
