package pool

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/utkarsh5026/forkjoin/internal/logging"
)

type event int

const (
	eventSubmitted event = iota
	eventForked
	eventStolen
	eventCanceled
)

// Stats is a point-in-time view of pool activity.
type Stats struct {
	Workers   int
	Submitted uint64
	Forked    uint64
	Executed  uint64
	Stolen    uint64
	Failed    uint64
	Panicked  uint64
	Canceled  uint64
	// Queued is the approximate number of tasks waiting in worker deques.
	Queued int
	// Injected is the number of external submissions not yet picked up.
	Injected int
}

type counters struct {
	submitted atomic.Uint64
	forked    atomic.Uint64
	executed  atomic.Uint64
	stolen    atomic.Uint64
	failed    atomic.Uint64
	panicked  atomic.Uint64
	canceled  atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Submitted: c.submitted.Load(),
		Forked:    c.forked.Load(),
		Executed:  c.executed.Load(),
		Stolen:    c.stolen.Load(),
		Failed:    c.failed.Load(),
		Panicked:  c.panicked.Load(),
		Canceled:  c.canceled.Load(),
	}
}

func (p *Pool) record(e event) {
	m := p.conf.metrics
	switch e {
	case eventSubmitted:
		p.stats.submitted.Add(1)
		m.incSubmitted()
	case eventForked:
		p.stats.forked.Add(1)
		m.incForked()
	case eventStolen:
		p.stats.stolen.Add(1)
		m.incStolen()
	case eventCanceled:
		p.stats.canceled.Add(1)
		m.incCanceled()
	}
}

func (p *Pool) recordExecution(info TaskInfo, err error) {
	p.stats.executed.Add(1)
	p.conf.metrics.observe(info, err)

	if err == nil {
		return
	}

	p.stats.failed.Add(1)

	var panicErr *TaskPanicError
	if errors.As(err, &panicErr) {
		p.stats.panicked.Add(1)
		// The stack travels with the error to whoever joins the task.
		p.conf.logger.Warn("task panicked",
			logging.Uint64("task", info.ID),
			logging.Int("worker", info.WorkerID),
			logging.String("panic", fmt.Sprint(panicErr.Value)),
		)
	}
}
