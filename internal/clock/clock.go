// Package clock abstracts wall-clock reads and periodic tickers so that
// arbitration and tick timing can be driven deterministically in tests.
package clock

import "time"

// Clock is the time source shared by the agent, the scheduler and the
// wire codec. Production code uses Real(); tests use Fake().
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) *Ticker
}

// Ticker delivers ticks on C. C has capacity 1; ticks are dropped when
// the consumer falls behind, matching time.Ticker.
type Ticker struct {
	C <-chan time.Time

	stop func()
}

// Stop turns off the ticker. It does not close C.
func (t *Ticker) Stop() { t.stop() }

// Millis returns t as Unix milliseconds, the unit used for all timing math.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// Real returns a Clock backed by the time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTicker(d time.Duration) *Ticker {
	ticker := time.NewTicker(d)
	return &Ticker{C: ticker.C, stop: ticker.Stop}
}
