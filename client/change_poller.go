package client

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/RezaEskandarii/driveq/remote"
	"github.com/RezaEskandarii/driveq/types"
	"github.com/robfig/cron/v3"
)

// ChangeHandler receives the entries changed since the previous poll.
type ChangeHandler func(changes *remote.ResourceList)

// ChangePoller submits a background GetChangeList job on a cron schedule.
// A new poll is skipped while the previous one is still queued or running.
type ChangePoller struct {
	ops      *Operations
	schedule cron.Schedule
	spec     string
	logger   *slog.Logger
	onChange ChangeHandler

	mu                 sync.Mutex
	submitting         bool
	inFlight           types.JobID
	largestChangestamp int64
}

func NewChangePoller(ops *Operations, spec string, onChange ChangeHandler, logger *slog.Logger) (*ChangePoller, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid change poll schedule '%s': %w", spec, err)
	}
	return &ChangePoller{
		ops:      ops,
		schedule: schedule,
		spec:     spec,
		logger:   logger.With(slog.String("component", "change_poller")),
		onChange: onChange,
	}, nil
}

// Start blocks until ctx is done.
func (p *ChangePoller) Start(ctx context.Context) {
	c := cron.New()
	c.Schedule(p.schedule, cron.FuncJob(p.Poll))
	c.Start()
	p.logger.Info("change poller started", "schedule", p.spec)

	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("change poller stopped")
}

// Poll submits one change list request unless one is already pending.
func (p *ChangePoller) Poll() {
	p.mu.Lock()
	if p.submitting {
		p.mu.Unlock()
		p.logger.Debug("previous change poll still being submitted")
		return
	}
	if p.inFlight != 0 {
		if _, live := p.ops.Scheduler().GetJob(p.inFlight); live {
			p.mu.Unlock()
			p.logger.Debug("previous change poll still pending", "job_id", p.inFlight)
			return
		}
	}
	p.submitting = true
	start := p.largestChangestamp + 1
	p.mu.Unlock()

	// the lock is released here because the done callback may run before
	// GetChangeList returns and handleResult takes it too
	id := p.ops.GetChangeList(start, types.PriorityBackground, p.handleResult)

	// a stale id left here by a fast job is harmless: GetJob no longer finds it
	p.mu.Lock()
	p.inFlight = id
	p.submitting = false
	p.mu.Unlock()
}

func (p *ChangePoller) handleResult(changes *remote.ResourceList, err error) {
	switch {
	case err != nil:
		p.logger.Warn("change poll failed", "error", err)
	case changes == nil:
		p.logger.Warn("change poll returned no change list")
	case len(changes.Entries) > 0 && p.onChange != nil:
		p.onChange(changes)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.inFlight = 0
	if err == nil && changes != nil && changes.LargestChangestamp > p.largestChangestamp {
		p.largestChangestamp = changes.LargestChangestamp
	}
}

func (p *ChangePoller) LargestChangestamp() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.largestChangestamp
}
