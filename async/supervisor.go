package async

import (
	"context"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Supervisor runs one goroutine per registered processor, polling in a
// tight loop on Continue and backing off on Wait: each consumer gets its
// own worker with a cooperative stop signal and backoff on Wait.
// Stopping is cooperative: cancel the context passed to Run and the
// supervisor stops invoking ProcessOneBatch for every worker.
type Supervisor struct {
	processors   []*BatchedAsyncEventProcessor
	waitInterval time.Duration
}

// NewSupervisor builds a Supervisor that paces the polls following a
// Wait (or a failed batch) to at most one per waitInterval (default 1s
// if <= 0). The pacing is a token bucket holding one token, so a Wait
// that comes more than waitInterval after the previous paced poll is
// followed by an immediate re-poll.
func NewSupervisor(waitInterval time.Duration, processors ...*BatchedAsyncEventProcessor) *Supervisor {
	if waitInterval <= 0 {
		waitInterval = time.Second
	}
	return &Supervisor{processors: processors, waitInterval: waitInterval}
}

// Run blocks until ctx is cancelled, polling every registered processor
// concurrently.
func (s *Supervisor) Run(ctx context.Context) {
	done := make(chan struct{}, len(s.processors))
	for _, p := range s.processors {
		go func(p *BatchedAsyncEventProcessor) {
			defer func() { done <- struct{}{} }()
			s.runOne(ctx, p)
		}(p)
	}
	for range s.processors {
		<-done
	}
}

func (s *Supervisor) runOne(ctx context.Context, p *BatchedAsyncEventProcessor) {
	// The limiter paces how often this worker is allowed to poll again
	// after a Wait or an error; a Continue re-polls without consulting it.
	limiter := rate.NewLimiter(rate.Every(s.waitInterval), 1)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		outcome, err := p.ProcessOneBatch(ctx)
		if err != nil {
			log.Printf("async[%s]: batch failed: %v", p.Name, err)
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			continue
		}

		if outcome == Wait {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
	}
}
