// Package gateway issues operator commands and read queries against the
// benchmark backend's REST API. It never touches the state store: command
// effects come back through the push stream.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	bd "benchmark_dashboard"
	"benchmark_dashboard/internal/alert"
	"benchmark_dashboard/internal/events"
	"benchmark_dashboard/internal/logger"
	"benchmark_dashboard/internal/models"
)

const (
	DefaultBaseURL = "http://localhost:5000"
	DefaultTimeout = 30 * time.Second

	maxResponseBody = 8 << 20
)

// Command names, used in errors, logs and the journal.
const (
	CmdPair         = "pair"
	CmdUnpair       = "unpair"
	CmdRename       = "rename"
	CmdScanNetwork  = "scan_network"
	CmdStartRun     = "start_run"
	CmdStartRuns    = "start_runs"
	CmdStopRun      = "stop_run"
	CmdReloadGames  = "reload_game_configs"
	QueryRuns       = "list_runs"
	QueryHistory    = "device_history"
	QueryStatus     = "server_status"
	QueryImageState = "image_service_status"
)

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	http    *http.Client
	alerts  alert.Alerter
	log     *logger.Logger

	// OnFailure, when set, observes every failed command after it was
	// reported. Queries do not trigger it.
	OnFailure func(*CommandError)
}

func New(cfg Config, alerts alert.Alerter, log *logger.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid backend url %q", cfg.BaseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		alerts:  alerts,
		log:     log.Component("gateway"),
	}, nil
}

// ---- commands ----

func (c *Client) Pair(ctx context.Context, deviceID, nickname string) error {
	_, err := c.command(ctx, commandSpec{
		name:    CmdPair,
		failure: "Failed to pair SUT",
		success: "SUT paired successfully!",
		method:  http.MethodPost,
		path:    "/api/suts/pair",
		body:    bd.PairRequest{DeviceID: deviceID, Nickname: nickname},
	})
	return err
}

func (c *Client) Unpair(ctx context.Context, deviceID string) error {
	_, err := c.command(ctx, commandSpec{
		name:    CmdUnpair,
		failure: "Failed to unpair SUT",
		success: "SUT unpaired successfully!",
		method:  http.MethodPost,
		path:    "/api/suts/unpair/" + url.PathEscape(deviceID),
	})
	return err
}

func (c *Client) Rename(ctx context.Context, deviceID, nickname string) error {
	_, err := c.command(ctx, commandSpec{
		name:    CmdRename,
		failure: "Failed to update nickname",
		success: "Nickname updated successfully!",
		method:  http.MethodPut,
		path:    "/api/suts/" + url.PathEscape(deviceID) + "/nickname",
		body:    bd.NicknameRequest{Nickname: nickname},
	})
	return err
}

func (c *Client) ScanNetwork(ctx context.Context) error {
	_, err := c.command(ctx, commandSpec{
		name:    CmdScanNetwork,
		failure: "Failed to trigger network scan",
		method:  http.MethodPost,
		path:    "/api/suts/scan",
	})
	return err
}

// StartRun asks the backend to start one automation run and returns the
// run id it assigned, if any. Only an explicit "success" status counts.
func (c *Client) StartRun(ctx context.Context, sutIP, gameName string, iterations int) (string, error) {
	resp, err := c.command(ctx, startRunSpec(sutIP, gameName, iterations))
	return resp.RunID, err
}

func startRunSpec(sutIP, gameName string, iterations int) commandSpec {
	return commandSpec{
		name:          CmdStartRun,
		failure:       "Failed to start automation run",
		method:        http.MethodPost,
		path:          "/api/runs",
		body:          bd.StartRunRequest{SutIP: sutIP, GameName: gameName, Iterations: iterations},
		requireStatus: true,
	}
}

func (c *Client) StopRun(ctx context.Context, runID string) error {
	_, err := c.command(ctx, commandSpec{
		name:    CmdStopRun,
		failure: "Failed to stop run",
		method:  http.MethodPost,
		path:    "/api/runs/" + url.PathEscape(runID) + "/stop",
	})
	return err
}

func (c *Client) ReloadGameConfigs(ctx context.Context) error {
	_, err := c.command(ctx, commandSpec{
		name:    CmdReloadGames,
		failure: "Failed to reload game configurations",
		method:  http.MethodPost,
		path:    "/api/games/reload",
	})
	return err
}

// ---- queries ----

// ListRuns fetches the active/history runs snapshot.
func (c *Client) ListRuns(ctx context.Context) (events.RunsSnapshot, error) {
	body, err := c.query(ctx, QueryRuns, "/api/runs")
	if err != nil {
		return events.RunsSnapshot{}, err
	}
	snap, err := events.DecodeRunsBody(body)
	if err != nil {
		return events.RunsSnapshot{}, &CommandError{Command: QueryRuns, Message: err.Error(), Err: err}
	}
	return snap, nil
}

func (c *Client) DeviceHistory(ctx context.Context, deviceID string) ([]bd.DeviceHistoryEntry, error) {
	var out bd.DeviceHistory
	if err := c.queryJSON(ctx, QueryHistory, "/api/suts/history/"+url.PathEscape(deviceID), &out); err != nil {
		return nil, err
	}
	if out.History == nil {
		out.History = []bd.DeviceHistoryEntry{}
	}
	return out.History, nil
}

func (c *Client) ServerStatus(ctx context.Context) (models.ServerStatus, error) {
	var out models.ServerStatus
	err := c.queryJSON(ctx, QueryStatus, "/api/status", &out)
	return out, err
}

func (c *Client) ImageServiceStatus(ctx context.Context) (models.ImageServiceStatus, error) {
	var out models.ImageServiceStatus
	err := c.queryJSON(ctx, QueryImageState, "/api/omniparser/status", &out)
	return out, err
}

// ---- plumbing ----

type commandSpec struct {
	name    string
	failure string // alert prefix
	success string // optional success alert

	method string
	path   string
	body   any

	// requireStatus treats a missing status field as failure.
	requireStatus bool
}

// command sends the request and reports a failure to the operator exactly once.
func (c *Client) command(ctx context.Context, spec commandSpec) (bd.CommandResponse, error) {
	resp, err := c.exec(ctx, spec)
	if err != nil {
		c.reportFailure(ctx, spec.failure, err)
		return resp, err
	}
	if spec.success != "" && c.alerts != nil {
		c.alerts.Success(spec.success)
	}
	return resp, nil
}

// exec performs a command without alerting.
func (c *Client) exec(ctx context.Context, spec commandSpec) (bd.CommandResponse, error) {
	var resp bd.CommandResponse
	status, body, err := c.roundTrip(ctx, spec.name, spec.method, spec.path, spec.body)
	if err != nil {
		return resp, err
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil && spec.requireStatus {
			return resp, &CommandError{Command: spec.name, StatusCode: status, Message: genericMessage, Err: ErrRejected}
		}
	}
	if resp.Status == bd.StatusSuccess || (resp.Status == "" && !spec.requireStatus) {
		return resp, nil
	}
	return resp, &CommandError{Command: spec.name, StatusCode: status, Message: messageOf(resp), Err: ErrRejected}
}

func (c *Client) reportFailure(ctx context.Context, prefix string, err error) {
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		return
	}
	// The caller went away; a late failure is of no interest to anyone.
	if errors.Is(ctx.Err(), context.Canceled) {
		return
	}
	if c.log != nil {
		c.log.Warnw("command_failed", "command", cmdErr.Command, "status_code", cmdErr.StatusCode, "error", cmdErr.Message)
	}
	// Connectivity is already visible through the connection flag.
	if !errors.Is(err, ErrUnreachable) && c.alerts != nil {
		c.alerts.Error(prefix + ": " + cmdErr.Message)
	}
	if c.OnFailure != nil {
		c.OnFailure(cmdErr)
	}
}

func (c *Client) query(ctx context.Context, name, path string) ([]byte, error) {
	_, body, err := c.roundTrip(ctx, name, http.MethodGet, path, nil)
	if err != nil && c.log != nil {
		c.log.Debugw("query_failed", "query", name, "error", err)
	}
	return body, err
}

func (c *Client) queryJSON(ctx context.Context, name, path string, out any) error {
	body, err := c.query(ctx, name, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &CommandError{Command: name, Message: "decode response: " + err.Error(), Err: err}
	}
	return nil
}

// roundTrip returns the body of a 2xx response. Any other outcome is a
// *CommandError.
func (c *Client) roundTrip(ctx context.Context, name, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, &CommandError{Command: name, Message: err.Error(), Err: ErrInvalidRequest}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, &CommandError{Command: name, Message: err.Error(), Err: ErrInvalidRequest}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, transportError(name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, transportError(name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env bd.CommandResponse
		_ = json.Unmarshal(body, &env)
		return resp.StatusCode, body, &CommandError{
			Command:    name,
			StatusCode: resp.StatusCode,
			Message:    messageOf(env),
			Err:        ErrRejected,
		}
	}
	return resp.StatusCode, body, nil
}

func transportError(name string, err error) *CommandError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &CommandError{Command: name, Message: timeoutMessage, Err: ErrTimeout}
	}
	if errors.Is(err, context.Canceled) {
		return &CommandError{Command: name, Message: "request cancelled", Err: err}
	}
	return &CommandError{Command: name, Message: err.Error(), Err: fmt.Errorf("%w: %w", ErrUnreachable, err)}
}

func messageOf(r bd.CommandResponse) string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Message != "":
		return r.Message
	default:
		return genericMessage
	}
}
