package service

import (
	"context"
	"errors"
	"strings"

	bd "benchmark_dashboard"
)

// Gateway is the backend command client. *gateway.Client implements it.
type Gateway interface {
	Pair(ctx context.Context, deviceID, nickname string) error
	Unpair(ctx context.Context, deviceID string) error
	Rename(ctx context.Context, deviceID, nickname string) error
	ScanNetwork(ctx context.Context) error
	StartRun(ctx context.Context, sutIP, gameName string, iterations int) (string, error)
	StartRuns(ctx context.Context, sutIP string, games []string, iterations int) (bd.StartRunsResult, error)
	StopRun(ctx context.Context, runID string) error
	ReloadGameConfigs(ctx context.Context) error
	DeviceHistory(ctx context.Context, deviceID string) ([]bd.DeviceHistoryEntry, error)
}

var (
	ErrInvalidParams = errors.New("invalid command parameters")

	errEmptyDeviceID = errors.New("device id is required")
	errEmptyNickname = errors.New("nickname is required")
	errEmptyRunID    = errors.New("run id is required")
	errEmptySutIP    = errors.New("sut ip is required")
	errEmptyGame     = errors.New("game name is required")
	errIterations    = errors.New("iterations must be at least 1")
)

type CommandService struct {
	gw Gateway
}

func NewCommandService(gw Gateway) *CommandService {
	return &CommandService{gw: gw}
}

func invalid(err error) error { return errors.Join(ErrInvalidParams, err) }

func (s *CommandService) Pair(ctx context.Context, p PairParams) error {
	id := strings.TrimSpace(p.DeviceID)
	if id == "" {
		return invalid(errEmptyDeviceID)
	}
	return s.gw.Pair(ctx, id, strings.TrimSpace(p.Nickname))
}

func (s *CommandService) Unpair(ctx context.Context, deviceID string) error {
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return invalid(errEmptyDeviceID)
	}
	return s.gw.Unpair(ctx, id)
}

func (s *CommandService) Rename(ctx context.Context, deviceID, nickname string) error {
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return invalid(errEmptyDeviceID)
	}
	nick := strings.TrimSpace(nickname)
	if nick == "" {
		return invalid(errEmptyNickname)
	}
	return s.gw.Rename(ctx, id, nick)
}

func (s *CommandService) ScanNetwork(ctx context.Context) error {
	return s.gw.ScanNetwork(ctx)
}

// StartRun starts a single run and returns the run id the backend assigned,
// which may be empty.
func (s *CommandService) StartRun(ctx context.Context, p SingleRunParams) (string, error) {
	sut := strings.TrimSpace(p.SutIP)
	if sut == "" {
		return "", invalid(errEmptySutIP)
	}
	game := strings.TrimSpace(p.GameName)
	if game == "" {
		return "", invalid(errEmptyGame)
	}
	if p.Iterations < 1 {
		return "", invalid(errIterations)
	}
	return s.gw.StartRun(ctx, sut, game, p.Iterations)
}

// StartRuns starts one run per selected game. Duplicate and blank game
// names are dropped; validation of the rest is left to the gateway so the
// operator sees its message.
func (s *CommandService) StartRuns(ctx context.Context, p StartRunParams) (bd.StartRunsResult, error) {
	seen := make(map[string]struct{}, len(p.Games))
	games := make([]string, 0, len(p.Games))
	for _, g := range p.Games {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		games = append(games, g)
	}
	return s.gw.StartRuns(ctx, strings.TrimSpace(p.SutIP), games, p.Iterations)
}

func (s *CommandService) StopRun(ctx context.Context, runID string) error {
	id := strings.TrimSpace(runID)
	if id == "" {
		return invalid(errEmptyRunID)
	}
	return s.gw.StopRun(ctx, id)
}

func (s *CommandService) ReloadGameConfigs(ctx context.Context) error {
	return s.gw.ReloadGameConfigs(ctx)
}

func (s *CommandService) DeviceHistory(ctx context.Context, deviceID string) ([]bd.DeviceHistoryEntry, error) {
	id := strings.TrimSpace(deviceID)
	if id == "" {
		return nil, invalid(errEmptyDeviceID)
	}
	return s.gw.DeviceHistory(ctx, id)
}
