package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/tagvet/tagvet/clientpool"
	"github.com/tagvet/tagvet/telemetry"
	"github.com/tagvet/tagvet/types"
)

// scanTask is one dispatched call: an endpoint label, the handle to call it
// with, and the kinds that call covers. Global kinds ride under the
// types.GlobalEndpoint label on the default endpoint's handle.
type scanTask struct {
	label  string
	handle *clientpool.Handle
	kinds  []string
}

// fanOut runs tasks with bounded concurrency and returns every outcome plus
// the labels of tasks that were never dispatched because the parent context
// ended first. One failing task never interrupts its siblings.
func (o *Orchestrator) fanOut(ctx context.Context, tasks []scanTask, severity string) (outcomes []types.RegionalScanOutcome, skipped []string) {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, o.opts.MaxConcurrentRegions)
	)

	for _, task := range tasks {
		wg.Add(1)
		go func(task scanTask) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				mu.Lock()
				skipped = append(skipped, task.label)
				mu.Unlock()
				return
			}
			if ctx.Err() != nil {
				mu.Lock()
				skipped = append(skipped, task.label)
				mu.Unlock()
				return
			}

			outcome := o.callWithRetry(ctx, task, severity)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
		}(task)
	}
	wg.Wait()

	return outcomes, skipped
}

// callWithRetry runs one task through the attempt loop: each attempt gets
// its own deadline, transient failures back off and retry, anything else is
// terminal immediately.
func (o *Orchestrator) callWithRetry(ctx context.Context, task scanTask, severity string) types.RegionalScanOutcome {
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, o.opts.RegionTimeout)
		outcome, err := o.scanner.ScanRegion(attemptCtx, task.handle, task.kinds, severity)
		cancel()

		if err == nil {
			outcome.Endpoint = task.label
			outcome.Success = true
			outcome.DurationMs = time.Since(start).Milliseconds()
			return outcome
		}

		lastErr = err
		if !IsTransient(err) || attempt == o.opts.MaxAttempts || ctx.Err() != nil {
			break
		}

		telemetry.RecordRetry(ctx, task.label)
		o.logger.WithContext(ctx).Warn().
			Err(err).
			Str("endpoint", task.label).
			Int("attempt", attempt).
			Msg("transient scan failure, retrying")

		backoff := o.opts.BackoffBase << (attempt - 1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	o.logger.WithContext(ctx).Error().
		Err(lastErr).
		Str("endpoint", task.label).
		Msg("endpoint scan failed terminally")
	return types.FailedOutcome(task.label, lastErr, time.Since(start).Milliseconds())
}
