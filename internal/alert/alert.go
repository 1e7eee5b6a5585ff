// Package alert holds operator-visible alerts, the dashboard's toasts.
package alert

import (
	"sync"
	"time"

	"benchmark_dashboard/internal/logger"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Alert struct {
	ID    uint64    `json:"id"`
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Alerter is what components use to surface something to the operator.
type Alerter interface {
	Success(text string)
	Error(text string)
}

const defaultFeedCapacity = 50

// Feed keeps the most recent alerts in arrival order and logs each one.
type Feed struct {
	mu       sync.Mutex
	log      *logger.Logger
	capacity int
	items    []Alert
	nextID   uint64
	now      func() time.Time
}

func NewFeed(capacity int, log *logger.Logger) *Feed {
	if capacity <= 0 {
		capacity = defaultFeedCapacity
	}
	return &Feed{capacity: capacity, log: log, now: time.Now}
}

func (f *Feed) Success(text string) { f.push(LevelSuccess, text) }
func (f *Feed) Error(text string)   { f.push(LevelError, text) }

func (f *Feed) push(level Level, text string) {
	f.mu.Lock()
	f.nextID++
	a := Alert{ID: f.nextID, Level: level, Text: text, At: f.now().UTC()}
	f.items = append(f.items, a)
	if over := len(f.items) - f.capacity; over > 0 {
		f.items = append(f.items[:0:0], f.items[over:]...)
	}
	f.mu.Unlock()

	if f.log != nil {
		f.log.Infow("operator_alert", "level", level, "text", text)
	}
}

// Recent returns retained alerts, newest first.
func (f *Feed) Recent() []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Alert, len(f.items))
	for i, a := range f.items {
		out[len(f.items)-1-i] = a
	}
	return out
}

// Since returns retained alerts with an id greater than after, oldest first.
func (f *Feed) Since(after uint64) []Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Alert
	for _, a := range f.items {
		if a.ID > after {
			out = append(out, a)
		}
	}
	return out
}
