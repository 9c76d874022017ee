package research

import (
	"context"
	"log"
	"time"
)

// collectorTask is one collector running in its own goroutine with its own
// timeout. Every collector goes through the same launch/join pair, and each
// task owns its failure domain: a failure inside the goroutine leaves the
// slot empty and touches nothing else.
type collectorTask struct {
	kind    SourceType
	done    chan struct{}
	sources []Source
}

// launchTask starts run. Only the goroutine writes t.sources, and only
// before close(t.done); join readers synchronize on the channel.
func launchTask(ctx context.Context, kind SourceType, timeout time.Duration, logger *log.Logger, run func(ctx context.Context) []Source) *collectorTask {
	t := &collectorTask{kind: kind, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				logger.Printf("collector %s panicked: %v", kind, r)
				t.sources = nil
			}
		}()
		tctx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			tctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		t.sources = run(tctx)
	}()
	return t
}

// join blocks until the task finishes and returns its result slot. A failed
// task returns an empty slice.
func (t *collectorTask) join() []Source {
	<-t.done
	return t.sources
}
