package host

import (
	"context"
	"time"

	"github.com/thereallemon/colonychat/internal/logging"
)

// Ticker is anything that wants a callback once per tick interval.
type Ticker interface {
	Tick()
}

// Loop is the single goroutine that owns session state. Tickers fire once
// per interval; functions posted from other goroutines (gateway reads,
// completion callbacks) run on the same goroutine between ticks, so nothing
// that touches session state ever races a tick.
type Loop struct {
	interval time.Duration
	tickers  []Ticker
	posts    chan func()
	log      *logging.Logger
}

// NewLoop creates a loop that fires its tickers every interval.
func NewLoop(interval time.Duration, log *logging.Logger, tickers ...Ticker) *Loop {
	if interval <= 0 {
		interval = time.Second
	}
	return &Loop{
		interval: interval,
		tickers:  tickers,
		posts:    make(chan func(), 256),
		log:      log.Sub("loop"),
	}
}

// Post schedules fn to run on the loop goroutine. Blocks only if the post
// queue is full.
func (l *Loop) Post(fn func()) {
	l.posts <- fn
}

// Call runs fn on the loop goroutine and waits for it to finish. Never call
// this from the loop goroutine itself.
func (l *Loop) Call(fn func()) {
	done := make(chan struct{})
	l.posts <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// Run drives the loop until the context is canceled. Posted functions still
// queued at shutdown are dropped.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Debug().Dur("interval", l.interval).Msg("tick loop running")
	for {
		select {
		case <-ctx.Done():
			l.log.Debug().Msg("tick loop stopped")
			return ctx.Err()
		case fn := <-l.posts:
			fn()
		case <-ticker.C:
			for _, t := range l.tickers {
				t.Tick()
			}
		}
	}
}
