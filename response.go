package benchmark_dashboard

const StatusSuccess = "success"

// CommandResponse is the envelope the backend returns for imperative calls.
// A 2xx response can still carry Status != "success".
type CommandResponse struct {
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

type PairRequest struct {
	DeviceID string `json:"device_id"`
	Nickname string `json:"nickname,omitempty"`
}

type NicknameRequest struct {
	Nickname string `json:"nickname"`
}

type StartRunRequest struct {
	SutIP      string `json:"sut_ip"`
	GameName   string `json:"game_name"`
	Iterations int    `json:"iterations"`
}

// DeviceHistoryEntry is one row of a SUT's connection history.
type DeviceHistoryEntry struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
	EventType string `json:"event_type"`
	Details   any    `json:"details,omitempty"`
}

type DeviceHistory struct {
	History []DeviceHistoryEntry `json:"history"`
}

// StartRunsResult reports a multi-game start.
type StartRunsResult struct {
	Requested int      `json:"requested"`
	Started   int      `json:"started"`
	RunIDs    []string `json:"run_ids,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}
