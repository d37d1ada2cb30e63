// Package events publishes board activity asynchronously.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

// Publisher delivers one encoded activity.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// Config sizes the dispatcher worker pool.
type Config struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.HandoffTimeout < 0 {
		c.HandoffTimeout = 0
	}
	return c
}

// Dispatcher hands activities to a fixed pool of workers that publish them.
// Emit never blocks longer than the handoff timeout; when the buffer stays
// full the activity is dropped.
type Dispatcher struct {
	pub       Publisher
	cfg       Config
	log       *log.Logger
	jobs      chan domain.Activity
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewDispatcher starts the workers.
func NewDispatcher(pub Publisher, cfg Config, logger *log.Logger) *Dispatcher {
	if pub == nil {
		panic("events.NewDispatcher: publisher is nil")
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		pub:  pub,
		cfg:  cfg,
		log:  logger,
		jobs: make(chan domain.Activity, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.log.Infof("activity dispatcher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", cfg.Workers, cfg.Buffer, cfg.Timeout, cfg.HandoffTimeout)
	return d
}

// Emit queues a for publishing.
func (d *Dispatcher) Emit(a domain.Activity) {
	if !d.tryEnqueue(a) {
		d.log.WithFields(log.Fields{"type": a.Type, "board": a.BoardID}).Warn("activity dropped")
	}
}

// Close stops accepting activities and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for a := range d.jobs {
		payload, err := sonic.Marshal(a)
		if err != nil {
			d.log.Errorf("activity encode failed, err: %v, type: %s", err, a.Type)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
		err = d.pub.Publish(ctx, payload)
		cancel()
		if err != nil {
			d.log.Errorf("activity publish failed, err: %v, type: %s, board: %s, worker: %d", err, a.Type, a.BoardID, id)
		}
	}
}

func (d *Dispatcher) tryEnqueue(a domain.Activity) bool {
	if ok, closed := trySendNonBlocking(d.jobs, a); closed {
		return false
	} else if ok {
		return true
	}

	if d.cfg.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(d.cfg.HandoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(d.jobs, a, timer.C)
	if closed {
		return false
	}
	return ok
}

// Sends recover from a send on the closed channel after Close.
func trySendNonBlocking(ch chan domain.Activity, a domain.Activity) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- a:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan domain.Activity, a domain.Activity, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- a:
		return true, false
	case <-timer:
		return false, false
	}
}

var _ domain.ActivityEmitter = (*Dispatcher)(nil)
