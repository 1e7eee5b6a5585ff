package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/service"
)

func TestJournalHandler_ListAndValidation(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	j := &fakeJournal{resp: []models.JournalEntry{
		{EntryID: "e1", OccurredAt: now, Kind: models.JournalConnected, Message: "Connected to backend server"},
		{EntryID: "e2", OccurredAt: now.Add(time.Second), Kind: models.JournalDisconnected, Message: "Disconnected from backend server"},
	}}
	s := &service.Service{Journal: j}

	if w := get(t, s, "/api/v1/journal?from=notatime"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'from', got %d", w.Code)
	}
	if w := get(t, s, "/api/v1/journal?to=31-12-2025"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 invalid 'to', got %d", w.Code)
	}
	if w := get(t, s, "/api/v1/journal?from=2025-08-02&to=2025-08-01"); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 inverted range, got %d", w.Code)
	}

	q := "/api/v1/journal?from=" + now.Format(time.RFC3339) + "&to=" + now.Add(2*time.Second).Format(time.RFC3339) + "&kind=connected"
	w := get(t, s, q)
	if w.Code != http.StatusOK {
		t.Fatalf("journal status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count   int                   `json:"count"`
		Entries []models.JournalEntry `json:"entries"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != 2 || len(out.Entries) != 2 {
		t.Fatalf("unexpected response: %+v", out)
	}
	if j.lastFilter.Kind != models.JournalConnected {
		t.Fatalf("kind not normalized: %q", j.lastFilter.Kind)
	}
	if !j.lastFilter.From.Equal(now) {
		t.Fatalf("from=%v want %v", j.lastFilter.From, now)
	}
}

func TestJournalHandler_DateOnlyToIsEndOfDay(t *testing.T) {
	j := &fakeJournal{}
	w := get(t, &service.Service{Journal: j}, "/api/v1/journal?to=2025-08-31")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	want := time.Date(2025, 8, 31, 23, 59, 59, 999999999, time.UTC)
	if !j.lastFilter.To.Equal(want) {
		t.Fatalf("to=%v want %v", j.lastFilter.To, want)
	}
}

func TestJournalHandler_ListError(t *testing.T) {
	j := &fakeJournal{err: errors.New("db down")}
	w := get(t, &service.Service{Journal: j}, "/api/v1/journal")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestParseQueryTime(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2025-08-27T15:04:05Z", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27T17:04:05+02:00", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27 15:04:05", time.Date(2025, 8, 27, 15, 4, 5, 0, time.UTC), true},
		{"2025-08-27", time.Date(2025, 8, 27, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
	}
	for _, tc := range cases {
		got, err := parseQueryTime(tc.in)
		if (err == nil) != tc.ok {
			t.Fatalf("%q: err=%v", tc.in, err)
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Fatalf("%q: got %v want %v", tc.in, got, tc.want)
		}
	}
}
