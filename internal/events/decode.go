package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"benchmark_dashboard/internal/models"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Decode pattern-matches a named push event into its canonical variant.
// Roster events are classified by shape, not by name, so a generation-2
// roster arriving under the legacy name still decodes correctly.
func Decode(name string, payload json.RawMessage) (Event, error) {
	switch name {
	case NameInitialDevices, NameSutsUpdate:
		return decodeRoster(payload)
	case NameDeviceEvent:
		return decodeDeviceDelta(payload)
	case NameGamesUpdate:
		return decodeGames(payload)
	case NameRunsUpdate:
		return decodeRuns(payload)
	case NameRunProgress:
		return decodeRunProgress(payload)
	case NamePairedSutsUpdate:
		return decodePaired(payload)
	case NameErrorNotification:
		return decodeNotification(payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

func malformed(what string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrMalformedPayload, what, err)
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func decodeRoster(payload json.RawMessage) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, malformed("roster", err)
	}
	if devices, ok := fields["devices"]; ok && isArray(devices) {
		return decodeGen2Roster(payload)
	}
	return decodeGen1Roster(fields)
}

func decodeGen2Roster(payload json.RawMessage) (Event, error) {
	var body struct {
		Devices     []wireDevice `json:"devices"`
		TotalCount  *int         `json:"total_count"`
		OnlineCount *int         `json:"online_count"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, malformed("initial_devices", err)
	}

	roster := FullRoster{Generation: Gen2, Devices: make(map[string]models.Device, len(body.Devices))}
	for _, w := range body.Devices {
		d, err := w.normalize()
		if err != nil {
			return nil, err
		}
		roster.Devices[d.Identity()] = d
		if d.Status == models.StatusOnline {
			roster.OnlineCount++
		}
	}
	roster.TotalCount = len(roster.Devices)
	if body.TotalCount != nil {
		roster.TotalCount = *body.TotalCount
	}
	if body.OnlineCount != nil {
		roster.OnlineCount = *body.OnlineCount
	}
	return roster, nil
}

func decodeGen1Roster(fields map[string]json.RawMessage) (Event, error) {
	roster := FullRoster{Generation: Gen1, Devices: make(map[string]models.Device, len(fields))}
	for address, raw := range fields {
		var l legacyDevice
		if err := json.Unmarshal(raw, &l); err != nil {
			return nil, malformed("suts_update "+address, err)
		}
		d, err := l.normalize(address)
		if err != nil {
			return nil, err
		}
		roster.Devices[strings.TrimSpace(address)] = d
		if d.Status == models.StatusOnline {
			roster.OnlineCount++
		}
	}
	roster.TotalCount = len(roster.Devices)
	return roster, nil
}

func decodeDeviceDelta(payload json.RawMessage) (Event, error) {
	var body struct {
		Event     *string         `json:"event"`
		Device    json.RawMessage `json:"device"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, malformed("device_event", err)
	}
	if body.Event == nil || isNull(body.Device) {
		return nil, fmt.Errorf("%w: device_event requires event and device", ErrMalformedPayload)
	}
	d, err := NormalizeDevice(body.Device)
	if err != nil {
		return nil, err
	}
	ts, err := parseTimestamp(body.Timestamp)
	if err != nil {
		return nil, malformed("device_event timestamp", err)
	}
	return DeviceDelta{Kind: *body.Event, Device: d, Timestamp: ts}, nil
}

func decodeGames(payload json.RawMessage) (Event, error) {
	var games map[string]models.GameConfig
	if err := json.Unmarshal(payload, &games); err != nil {
		return nil, malformed("games_update", err)
	}
	if games == nil {
		games = map[string]models.GameConfig{}
	}
	for name, g := range games {
		if g.Name == "" {
			g.Name = name
			games[name] = g
		}
	}
	return GameRoster{Games: games}, nil
}

// DecodeRunsBody parses the {active, history} shape shared by runs_update
// and GET /api/runs.
func DecodeRunsBody(payload json.RawMessage) (RunsSnapshot, error) {
	var body struct {
		Active  map[string]wireRun `json:"active"`
		History []wireRun          `json:"history"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return RunsSnapshot{}, malformed("runs", err)
	}
	snap := RunsSnapshot{
		Active:  make(map[string]models.Run, len(body.Active)),
		History: make([]models.Run, 0, len(body.History)),
	}
	for id, w := range body.Active {
		r, err := w.normalize()
		if err != nil {
			return RunsSnapshot{}, err
		}
		if r.RunID == "" {
			r.RunID = id
		}
		snap.Active[id] = r
	}
	for _, w := range body.History {
		r, err := w.normalize()
		if err != nil {
			return RunsSnapshot{}, err
		}
		snap.History = append(snap.History, r)
	}
	return snap, nil
}

func decodeRuns(payload json.RawMessage) (Event, error) {
	snap, err := DecodeRunsBody(payload)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func decodeRunProgress(payload json.RawMessage) (Event, error) {
	var body struct {
		RunID string   `json:"run_id"`
		Run   *wireRun `json:"run"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, malformed("run_progress", err)
	}
	id := strings.TrimSpace(body.RunID)
	if id == "" || body.Run == nil {
		return nil, fmt.Errorf("%w: run_progress requires run_id and run", ErrMalformedPayload)
	}
	run, err := body.Run.normalize()
	if err != nil {
		return nil, err
	}
	if run.RunID == "" {
		run.RunID = id
	}
	return RunProgress{RunID: id, Run: run}, nil
}

func decodePaired(payload json.RawMessage) (Event, error) {
	var list []wireDevice
	if err := json.Unmarshal(payload, &list); err != nil {
		return nil, malformed("paired_suts_update", err)
	}
	out := PairedRoster{Devices: make([]models.PairedDevice, 0, len(list))}
	for _, w := range list {
		p, err := w.normalizePaired()
		if err != nil {
			return nil, err
		}
		out.Devices = append(out.Devices, p)
	}
	return out, nil
}

func decodeNotification(payload json.RawMessage) (Event, error) {
	var body struct {
		Type      string          `json:"type"`
		Title     string          `json:"title"`
		Message   string          `json:"message"`
		RunID     string          `json:"run_id"`
		GameName  string          `json:"game_name"`
		SutIP     string          `json:"sut_ip"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, malformed("error_notification", err)
	}
	ts, err := parseTimestamp(body.Timestamp)
	if err != nil {
		return nil, malformed("error_notification timestamp", err)
	}
	n := models.Notification{
		Type:     models.NotificationType(body.Type),
		Title:    body.Title,
		Message:  body.Message,
		RunID:    body.RunID,
		GameName: body.GameName,
		SutIP:    body.SutIP,
	}
	if ts != nil {
		n.Timestamp = *ts
	}
	return ErrorNotification{Notification: n}, nil
}
