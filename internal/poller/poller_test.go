package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"benchmark_dashboard/internal/events"
	"benchmark_dashboard/internal/models"
	"benchmark_dashboard/internal/state"
)

type fakeSource struct {
	mu        sync.Mutex
	status    models.ServerStatus
	image     models.ImageServiceStatus
	runs      events.RunsSnapshot
	err       error
	runsCalls int
}

func (f *fakeSource) ServerStatus(context.Context) (models.ServerStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status, f.err
}

func (f *fakeSource) ImageServiceStatus(context.Context) (models.ImageServiceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.image, f.err
}

func (f *fakeSource) ListRuns(context.Context) (events.RunsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runsCalls++
	return f.runs, f.err
}

func runsFixture() events.RunsSnapshot {
	return events.RunsSnapshot{
		Active:  map[string]models.Run{"r1": {RunID: "r1", GameName: "cs2", Status: models.RunRunning}},
		History: []models.Run{},
	}
}

func TestRefreshRunsOnlyWhileDisconnected(t *testing.T) {
	src := &fakeSource{runs: runsFixture()}
	engine := state.NewEngine(state.NewStore(), nil, nil)
	p := New(src, engine, Config{}, nil)

	if !p.RefreshRuns(context.Background()) {
		t.Fatal("expected refresh to apply while disconnected")
	}
	if _, ok := engine.Store().ActiveRuns()["r1"]; !ok {
		t.Fatal("expected r1 in active runs")
	}

	engine.SetConnected(true)
	engine.ApplyRunsSnapshot(map[string]models.Run{}, nil)
	if p.RefreshRuns(context.Background()) {
		t.Error("refresh must not apply while the push channel is up")
	}
	if got := len(engine.Store().ActiveRuns()); got != 0 {
		t.Errorf("expected no active runs, got %d", got)
	}
	if src.runsCalls != 1 {
		t.Errorf("expected 1 ListRuns call, got %d", src.runsCalls)
	}
}

func TestRefreshStatus(t *testing.T) {
	src := &fakeSource{
		status: models.ServerStatus{Status: "running", OnlineSUTs: 2},
		image:  models.ImageServiceStatus{Status: "online", URL: "http://omni:8000"},
	}
	engine := state.NewEngine(state.NewStore(), nil, nil)
	p := New(src, engine, Config{}, nil)

	p.RefreshStatus(context.Background())

	st, ok := engine.Store().ServerStatus()
	if !ok || st.OnlineSUTs != 2 {
		t.Errorf("unexpected server status %+v (ok=%v)", st, ok)
	}
	img, ok := engine.Store().ImageServiceStatus()
	if !ok || img.Status != "online" {
		t.Errorf("unexpected image service status %+v (ok=%v)", img, ok)
	}
}

func TestFailuresLeaveStoreUntouched(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	engine := state.NewEngine(state.NewStore(), nil, nil)
	p := New(src, engine, Config{}, nil)

	p.RefreshStatus(context.Background())
	if p.RefreshRuns(context.Background()) {
		t.Error("failed refresh reported success")
	}

	if v := engine.Store().Version(); v != 0 {
		t.Errorf("expected untouched store, version %d", v)
	}
	if _, ok := engine.Store().ServerStatus(); ok {
		t.Error("expected no server status")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	src := &fakeSource{runs: runsFixture()}
	engine := state.NewEngine(state.NewStore(), nil, nil)
	p := New(src, engine, Config{StatusInterval: 5 * time.Millisecond, RunsInterval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for {
		src.mu.Lock()
		calls := src.runsCalls
		src.mu.Unlock()
		if calls >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 2 runs refreshes, got %d", calls)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
