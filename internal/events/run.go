package events

import (
	"encoding/json"
	"fmt"

	"benchmark_dashboard/internal/models"
)

// wireRun is a run as the backend sends it. Timestamps go through
// parseTimestamp so zone-less and unix-seconds values are accepted.
type wireRun struct {
	RunID        string             `json:"run_id"`
	GameName     string             `json:"game_name"`
	SutIP        string             `json:"sut_ip"`
	Status       models.RunStatus   `json:"status"`
	Progress     models.RunProgress `json:"progress"`
	StartTime    json.RawMessage    `json:"start_time"`
	EndTime      json.RawMessage    `json:"end_time"`
	Results      json.RawMessage    `json:"results"`
	ErrorMessage *string            `json:"error_message"`
}

func (w wireRun) normalize() (models.Run, error) {
	start, err := parseTimestamp(w.StartTime)
	if err != nil {
		return models.Run{}, fmt.Errorf("%w: run %q start_time: %v", ErrMalformedPayload, w.RunID, err)
	}
	end, err := parseTimestamp(w.EndTime)
	if err != nil {
		return models.Run{}, fmt.Errorf("%w: run %q end_time: %v", ErrMalformedPayload, w.RunID, err)
	}
	r := models.Run{
		RunID:        w.RunID,
		GameName:     w.GameName,
		SutIP:        w.SutIP,
		Status:       w.Status,
		Progress:     w.Progress,
		StartTime:    start,
		EndTime:      end,
		ErrorMessage: w.ErrorMessage,
	}
	if len(w.Results) > 0 && string(w.Results) != "null" {
		r.Results = w.Results
	}
	return r, nil
}
