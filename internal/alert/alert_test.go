package alert

import (
	"fmt"
	"testing"
)

func TestFeed_RetainsNewestWithinCapacity(t *testing.T) {
	f := NewFeed(3, nil)
	for i := 1; i <= 5; i++ {
		f.Error(fmt.Sprintf("e%d", i))
	}

	recent := f.Recent()
	if len(recent) != 3 {
		t.Fatalf("expected 3 retained, got %d", len(recent))
	}
	if recent[0].Text != "e5" || recent[2].Text != "e3" {
		t.Fatalf("unexpected order: %+v", recent)
	}
	if recent[0].ID != 5 {
		t.Fatalf("expected id 5, got %d", recent[0].ID)
	}
}

func TestFeed_Since(t *testing.T) {
	f := NewFeed(0, nil)
	f.Success("connected")
	f.Error("disconnected")
	f.Success("connected")

	got := f.Since(1)
	if len(got) != 2 {
		t.Fatalf("expected 2 alerts after id 1, got %d", len(got))
	}
	if got[0].Level != LevelError || got[1].Level != LevelSuccess {
		t.Fatalf("unexpected alerts: %+v", got)
	}
	if len(f.Since(3)) != 0 {
		t.Fatalf("expected no alerts after latest id")
	}
}
