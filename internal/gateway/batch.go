package gateway

import (
	"context"
	"fmt"

	bd "benchmark_dashboard"

	"golang.org/x/sync/errgroup"
)

// maxParallelStarts bounds concurrent start requests against the backend.
const maxParallelStarts = 4

// StartRuns starts one run per game on the same SUT concurrently and raises a
// single summary alert. A partial start returns the result together with a
// *CommandError.
func (c *Client) StartRuns(ctx context.Context, sutIP string, games []string, iterations int) (bd.StartRunsResult, error) {
	res := bd.StartRunsResult{Requested: len(games)}
	if sutIP == "" || len(games) == 0 || iterations < 1 {
		msg := "Please select a SUT, at least one game, and specify iterations"
		if c.alerts != nil {
			c.alerts.Error(msg)
		}
		return res, &CommandError{Command: CmdStartRuns, Message: msg, Err: ErrInvalidRequest}
	}

	runIDs := make([]string, len(games))
	errs := make([]error, len(games))

	var g errgroup.Group
	g.SetLimit(maxParallelStarts)
	for i, game := range games {
		g.Go(func() error {
			resp, err := c.exec(ctx, startRunSpec(sutIP, game, iterations))
			runIDs[i], errs[i] = resp.RunID, err
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range errs {
		if err != nil {
			res.Failed = append(res.Failed, games[i])
			if c.log != nil {
				c.log.Warnw("run_start_failed", "sut_ip", sutIP, "game", games[i], "error", err)
			}
			continue
		}
		res.Started++
		if runIDs[i] != "" {
			res.RunIDs = append(res.RunIDs, runIDs[i])
		}
	}

	if ctx.Err() != nil {
		return res, &CommandError{Command: CmdStartRuns, Message: "request cancelled", Err: ctx.Err()}
	}

	switch {
	case res.Started == res.Requested:
		if c.alerts != nil {
			plural := ""
			if res.Started > 1 {
				plural = "s"
			}
			c.alerts.Success(fmt.Sprintf("Started %d automation run%s successfully", res.Started, plural))
		}
		return res, nil
	case res.Started == 0:
		err := &CommandError{Command: CmdStartRuns, Message: "Failed to start automation runs", Err: ErrRejected}
		c.summarize(err)
		return res, err
	default:
		err := &CommandError{
			Command: CmdStartRuns,
			Message: fmt.Sprintf("Started %d/%d runs. Some failed to start.", res.Started, res.Requested),
			Err:     ErrRejected,
		}
		c.summarize(err)
		return res, err
	}
}

func (c *Client) summarize(err *CommandError) {
	if c.alerts != nil {
		c.alerts.Error(err.Message)
	}
	if c.OnFailure != nil {
		c.OnFailure(err)
	}
}
