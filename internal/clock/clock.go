package clock

import (
	"sync"
	"time"
)

// Stopper cancels a scheduled callback. Stop is idempotent; after it returns the
// callback will not be started again.
type Stopper interface {
	Stop()
}

// Clock schedules the timers used by the hold gesture and swipe detection.
type Clock interface {
	Now() time.Time
	// Every calls f once per interval until stopped.
	Every(interval time.Duration, f func()) Stopper
	// AfterFunc calls f once after delay unless stopped first.
	AfterFunc(delay time.Duration, f func()) Stopper
}

type realClock struct{}

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Every(interval time.Duration, f func()) Stopper {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				f()
			}
		}
	}()
	return &tickerStopper{ticker: ticker, done: done}
}

func (realClock) AfterFunc(delay time.Duration, f func()) Stopper {
	return timerStopper{timer: time.AfterFunc(delay, f)}
}

type tickerStopper struct {
	once   sync.Once
	ticker *time.Ticker
	done   chan struct{}
}

func (s *tickerStopper) Stop() {
	s.once.Do(func() {
		s.ticker.Stop()
		close(s.done)
	})
}

type timerStopper struct {
	timer *time.Timer
}

func (s timerStopper) Stop() { s.timer.Stop() }
