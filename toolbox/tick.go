package toolbox

import "time"

// TickEvent reports how many wheel ticks have elapsed since the previous
// event. Count is usually 1; it is greater than 1 when the consumer fell
// behind and intervening ticks were coalesced rather than queued without
// bound.
type TickEvent struct {
	Count uint32
}

// TickSource produces TickEvent notifications driving a scheduler.Wheel
// forward. Close releases any underlying timer/goroutine.
type TickSource interface {
	Ticks() <-chan TickEvent
	Close()
}

// ManualTickSource is a TickSource a test or bare-metal driver fires
// explicitly via Fire. Ticks that arrive before the consumer reads the
// previous one are coalesced into a single TickEvent with the summed count,
// bounding the channel to size 1 rather than growing unbounded under load.
type ManualTickSource struct {
	ch     chan TickEvent
	closed chan struct{}
}

// NewManualTickSource creates a ManualTickSource with no pending ticks.
func NewManualTickSource() *ManualTickSource {
	return &ManualTickSource{
		ch:     make(chan TickEvent, 1),
		closed: make(chan struct{}),
	}
}

// Fire records n elapsed ticks, coalescing with any event still waiting to
// be consumed.
func (m *ManualTickSource) Fire(n uint32) {
	select {
	case pending := <-m.ch:
		select {
		case m.ch <- TickEvent{Count: pending.Count + n}:
		case <-m.closed:
		}
	default:
		select {
		case m.ch <- TickEvent{Count: n}:
		case <-m.closed:
		}
	}
}

// Ticks implements TickSource.
func (m *ManualTickSource) Ticks() <-chan TickEvent { return m.ch }

// Close implements TickSource.
func (m *ManualTickSource) Close() {
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

// TimerTickSource is a TickSource backed by a time.Ticker, for hosted
// targets.
type TimerTickSource struct {
	ticker *time.Ticker
	ch     chan TickEvent
	done   chan struct{}
}

// NewTimerTickSource creates a TimerTickSource firing every interval.
func NewTimerTickSource(interval time.Duration) *TimerTickSource {
	t := &TimerTickSource{
		ticker: time.NewTicker(interval),
		ch:     make(chan TickEvent, 1),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *TimerTickSource) run() {
	for {
		select {
		case <-t.ticker.C:
			select {
			case t.ch <- TickEvent{Count: 1}:
			default:
				// Consumer is behind; coalesce by draining and
				// re-sending the summed count.
				select {
				case pending := <-t.ch:
					select {
					case t.ch <- TickEvent{Count: pending.Count + 1}:
					default:
					}
				default:
				}
			}
		case <-t.done:
			return
		}
	}
}

// Ticks implements TickSource.
func (t *TimerTickSource) Ticks() <-chan TickEvent { return t.ch }

// Close implements TickSource.
func (t *TimerTickSource) Close() {
	t.ticker.Stop()
	select {
	case <-t.done:
	default:
		close(t.done)
	}
}
