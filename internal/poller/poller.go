package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/heater-labs/heater-cloud-proxy/internal/model"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// StatusSource provides the device state the poller watches.
type StatusSource interface {
	Status(ctx context.Context) (model.Status, error)
}

// Event is pushed to subscribers; Name matches the SSE event name the
// frontend listens for.
type Event struct {
	Name string
	Data any
}

// mutationDelay gives the platform a moment to propagate a state change
// before the post-mutation re-poll reads it back. Best effort only.
const mutationDelay = time.Second

// Poller keeps the last-known device status and notifies subscribers when
// it changes. Scheduled automations flip the relay without any API call
// through this process, so a periodic poll is the only way to observe them.
type Poller struct {
	source   StatusSource
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
	cron     *cron.Cron

	mu   sync.Mutex
	last model.Status
	subs map[chan Event]struct{}
}

// New constructs a Poller; Start must be called to begin polling.
func New(source StatusSource, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		source:   source,
		interval: interval,
		timeout:  10 * time.Second,
		log:      log,
		cron:     cron.New(),
		subs:     make(map[chan Event]struct{}),
	}
}

// Start primes the status cache and schedules the periodic poll.
func (p *Poller) Start() error {
	go p.poll()
	if _, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), p.poll); err != nil {
		return err
	}
	p.cron.Start()
	return nil
}

// Stop halts the periodic poll and waits for a running poll callback.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

// Last returns the cached status.
func (p *Poller) Last() model.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Subscribe registers a listener for change events. The channel is buffered;
// a subscriber that falls behind misses events rather than blocking the
// poll loop.
func (p *Poller) Subscribe() chan Event {
	ch := make(chan Event, 8)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel.
func (p *Poller) Unsubscribe(ch chan Event) {
	p.mu.Lock()
	if _, ok := p.subs[ch]; ok {
		delete(p.subs, ch)
		close(ch)
	}
	p.mu.Unlock()
}

// NotifyStatusChange schedules a short deferred re-poll after a mutation so
// the next read reflects the platform's new state.
func (p *Poller) NotifyStatusChange() {
	go func() {
		time.Sleep(mutationDelay)
		p.poll()
	}()
}

// NotifySchedulesChanged tells subscribers to re-fetch schedules.
func (p *Poller) NotifySchedulesChanged() {
	p.broadcast(Event{Name: "schedules-changed", Data: struct{}{}})
}

func (p *Poller) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	status, err := p.source.Status(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("status poll failed")
		return
	}

	p.mu.Lock()
	changed := status != p.last
	p.last = status
	p.mu.Unlock()

	if changed {
		p.broadcast(Event{Name: "status", Data: status})
	}
}

func (p *Poller) broadcast(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
