package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	bd "benchmark_dashboard"
	"benchmark_dashboard/internal/gateway"
	"benchmark_dashboard/internal/service"
)

func doCommand(t *testing.T, s *service.Service, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := newTestRouter(s)
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, withHeader(req, authHeader("valid")))
	return w
}

func TestCommands_RequireOperator(t *testing.T) {
	cmds := &fakeCommands{}
	s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: cmds}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/commands/scan", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}
	if len(cmds.calls) != 0 {
		t.Fatalf("command issued without auth: %v", cmds.calls)
	}
}

func TestCommands_Routes(t *testing.T) {
	cases := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCall string
		check    func(t *testing.T, f *fakeCommands)
	}{
		{
			name: "pair", method: http.MethodPost, path: "/api/v1/commands/pair",
			body: `{"device_id":"sut-1","nickname":"rig"}`, wantCall: gateway.CmdPair,
			check: func(t *testing.T, f *fakeCommands) {
				if f.lastPair.DeviceID != "sut-1" || f.lastPair.Nickname != "rig" {
					t.Fatalf("pair params: %+v", f.lastPair)
				}
			},
		},
		{
			name: "unpair", method: http.MethodPost, path: "/api/v1/commands/unpair/sut-1", wantCall: gateway.CmdUnpair,
			check: func(t *testing.T, f *fakeCommands) {
				if f.lastID != "sut-1" {
					t.Fatalf("id=%q", f.lastID)
				}
			},
		},
		{
			name: "rename", method: http.MethodPut, path: "/api/v1/commands/nickname/sut-1",
			body: `{"nickname":"rig-2"}`, wantCall: gateway.CmdRename,
			check: func(t *testing.T, f *fakeCommands) {
				if f.lastID != "sut-1" || f.lastNick != "rig-2" {
					t.Fatalf("rename: %q %q", f.lastID, f.lastNick)
				}
			},
		},
		{name: "scan", method: http.MethodPost, path: "/api/v1/commands/scan", wantCall: gateway.CmdScanNetwork},
		{
			name: "stop", method: http.MethodPost, path: "/api/v1/commands/runs/r-9/stop", wantCall: gateway.CmdStopRun,
			check: func(t *testing.T, f *fakeCommands) {
				if f.lastID != "r-9" {
					t.Fatalf("run id=%q", f.lastID)
				}
			},
		},
		{name: "reload", method: http.MethodPost, path: "/api/v1/commands/games/reload", wantCall: gateway.CmdReloadGames},
		{name: "history", method: http.MethodGet, path: "/api/v1/commands/history/sut-1", wantCall: gateway.QueryHistory},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cmds := &fakeCommands{history: []bd.DeviceHistoryEntry{{Status: "online"}}}
			s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: cmds}

			w := doCommand(t, s, tc.method, tc.path, tc.body)
			if w.Code != http.StatusOK {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if len(cmds.calls) != 1 || cmds.calls[0] != tc.wantCall {
				t.Fatalf("calls=%v want [%s]", cmds.calls, tc.wantCall)
			}
			if tc.check != nil {
				tc.check(t, cmds)
			}
		})
	}
}

func TestCommands_BadBody(t *testing.T) {
	cmds := &fakeCommands{}
	s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: cmds}

	w := doCommand(t, s, http.MethodPost, "/api/v1/commands/pair", `{"nickname":"rig"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	w = doCommand(t, s, http.MethodPut, "/api/v1/commands/nickname/sut-1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(cmds.calls) != 0 {
		t.Fatalf("command issued for bad body: %v", cmds.calls)
	}
}

func TestCommands_ErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		want    int
		wantMsg string
	}{
		{"invalid_params", errors.Join(service.ErrInvalidParams, errors.New("device id is required")), http.StatusBadRequest, ""},
		{"timeout", &gateway.CommandError{Command: "scan_network", Message: "Request timeout - Backend server may be unavailable", Err: gateway.ErrTimeout}, http.StatusGatewayTimeout, "Request timeout - Backend server may be unavailable"},
		{"unreachable", &gateway.CommandError{Command: "scan_network", Message: "connection refused", Err: gateway.ErrUnreachable}, http.StatusBadGateway, "connection refused"},
		{"rejected_4xx", &gateway.CommandError{Command: "scan_network", StatusCode: 404, Message: "SUT not found", Err: gateway.ErrRejected}, http.StatusConflict, "SUT not found"},
		{"rejected_5xx", &gateway.CommandError{Command: "scan_network", StatusCode: 500, Message: "Server error", Err: gateway.ErrRejected}, http.StatusBadGateway, "Server error"},
		{"wrapped", fmt.Errorf("scan: %w", &gateway.CommandError{Message: "x", Err: gateway.ErrTimeout}), http.StatusGatewayTimeout, "x"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "boom"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: &fakeCommands{err: tc.err}}
			w := doCommand(t, s, http.MethodPost, "/api/v1/commands/scan", "")
			if w.Code != tc.want {
				t.Fatalf("status=%d want %d", w.Code, tc.want)
			}
			if tc.wantMsg == "" {
				return
			}
			var out struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.wantMsg {
				t.Fatalf("error=%q want %q", out.Error, tc.wantMsg)
			}
		})
	}
}

func TestStartRuns(t *testing.T) {
	type result struct {
		Error  string             `json:"error"`
		Result bd.StartRunsResult `json:"result"`
	}

	t.Run("all_started", func(t *testing.T) {
		cmds := &fakeCommands{startRes: bd.StartRunsResult{Requested: 2, Started: 2, RunIDs: []string{"r1", "r2"}}}
		s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: cmds}
		w := doCommand(t, s, http.MethodPost, "/api/v1/commands/runs", `{"sut_ip":"10.0.0.5","games":["cs2","f1"],"iterations":3}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		if cmds.lastStart.SutIP != "10.0.0.5" || len(cmds.lastStart.Games) != 2 || cmds.lastStart.Iterations != 3 {
			t.Fatalf("params: %+v", cmds.lastStart)
		}
		var res bd.StartRunsResult
		_ = json.Unmarshal(w.Body.Bytes(), &res)
		if res.Started != 2 || len(res.RunIDs) != 2 {
			t.Fatalf("result: %+v", res)
		}
	})

	t.Run("partial", func(t *testing.T) {
		cmds := &fakeCommands{
			startRes: bd.StartRunsResult{Requested: 2, Started: 1, RunIDs: []string{"r1"}, Failed: []string{"f1"}},
			err:      &gateway.CommandError{Command: gateway.CmdStartRuns, Message: "Started 1/2 runs. Some failed to start.", Err: gateway.ErrRejected},
		}
		s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: cmds}
		w := doCommand(t, s, http.MethodPost, "/api/v1/commands/runs", `{"sut_ip":"10.0.0.5","games":["cs2","f1"],"iterations":1}`)
		if w.Code != http.StatusMultiStatus {
			t.Fatalf("status=%d", w.Code)
		}
		var out result
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if out.Error != "Started 1/2 runs. Some failed to start." || out.Result.Failed[0] != "f1" {
			t.Fatalf("body: %+v", out)
		}
	})

	t.Run("invalid_selection", func(t *testing.T) {
		cmds := &fakeCommands{
			err: &gateway.CommandError{Command: gateway.CmdStartRuns, Message: "Please select a SUT, at least one game, and specify iterations", Err: gateway.ErrInvalidRequest},
		}
		s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: cmds}
		w := doCommand(t, s, http.MethodPost, "/api/v1/commands/runs", `{"games":[]}`)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status=%d", w.Code)
		}
	})
}

func TestStartRun(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		cmds := &fakeCommands{runID: "run-42"}
		s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: cmds}
		w := doCommand(t, s, http.MethodPost, "/api/v1/commands/run", `{"sut_ip":"10.0.0.5","game_name":"cs2","iterations":2}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
		}
		want := service.SingleRunParams{SutIP: "10.0.0.5", GameName: "cs2", Iterations: 2}
		if cmds.lastRun != want {
			t.Fatalf("params=%+v want %+v", cmds.lastRun, want)
		}
		var out map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if out["run_id"] != "run-42" || out["status"] != statusAccepted {
			t.Fatalf("body: %v", out)
		}
	})

	t.Run("rejected_by_backend", func(t *testing.T) {
		cmds := &fakeCommands{
			err: &gateway.CommandError{Command: gateway.CmdStartRun, Message: "Failed to start automation run: SUT busy", StatusCode: http.StatusOK, Err: gateway.ErrRejected},
		}
		s := &service.Service{Authorization: &fakeAuth{parseID: 1}, Commands: cmds}
		w := doCommand(t, s, http.MethodPost, "/api/v1/commands/run", `{"sut_ip":"10.0.0.5","game_name":"cs2","iterations":1}`)
		if w.Code != http.StatusBadGateway {
			t.Fatalf("status=%d", w.Code)
		}
		var out map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &out)
		if out["error"] != "Failed to start automation run: SUT busy" {
			t.Fatalf("error=%q", out["error"])
		}
	})
}
