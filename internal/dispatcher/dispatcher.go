// Package dispatcher routes host commands to handlers. A handler runs
// inline on the caller's goroutine unless it is registered Buffered, in
// which case events are queued and handled in order by one worker.
package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrUnknownCommand is returned by Dispatch when no handler is registered.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrQueueFull is returned for a non-blocking buffered command whose queue is full.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned for a buffered command after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Queued is the result of a successfully enqueued buffered event.
const Queued = "queued"

// Event is one command line from the host.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger is the logging surface the dispatcher needs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*route)

// Buffered queues events for the handler instead of running it inline.
func Buffered(size int) Option {
	return func(r *route) {
		if size > 0 {
			r.queue = make(chan Event, size)
		}
	}
}

// Blocking makes Dispatch wait for room in a full buffered queue instead of
// returning ErrQueueFull.
func Blocking() Option {
	return func(r *route) { r.blocking = true }
}

// Logged logs every dispatch of the command at debug level, and failures
// at error level.
func Logged() Option {
	return func(r *route) { r.logged = true }
}

type route struct {
	command  string
	handle   HandlerFunc
	queue    chan Event
	blocking bool
	logged   bool
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	log     Logger
	metrics *metrics

	mu      sync.RWMutex
	routes  map[string]*route
	closed  bool
	workers sync.WaitGroup
}

// New creates a Dispatcher. Metrics go to the global OTel meter provider
// and are no-ops until one is installed.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		log:    logger,
		routes: make(map[string]*route),
	}
	m, err := newMetrics(d.queueDepths)
	if err != nil {
		return nil, err
	}
	d.metrics = m
	return d, nil
}

// Register installs h for command, replacing any previous handler.
// Registering after Close is ignored for buffered commands.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	r := &route{command: command, handle: h}
	for _, opt := range opts {
		opt(r)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if r.queue != nil {
		if d.closed {
			d.log.Error("buffered handler registered after close", "command", command)
			return
		}
		d.workers.Add(1)
		go d.drain(r)
	}
	d.routes[command] = r
}

// HasHandler reports whether command has a handler.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Dispatch routes e to its handler. Buffered commands return Queued once
// the event is enqueued.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}

	if !r.logged {
		return d.deliver(r, e)
	}

	start := time.Now()
	d.log.Debug("handling event", "command", r.command, "args", len(e.Args))
	result, err := d.deliver(r, e)
	if err != nil {
		d.log.Error("event failed", "command", r.command, "duration", time.Since(start), "error", err)
	} else {
		d.log.Debug("event complete", "command", r.command, "duration", time.Since(start))
	}
	return result, err
}

func (d *Dispatcher) deliver(r *route, e Event) (any, error) {
	if r.queue == nil {
		return d.metrics.observe(r.command, func() (any, error) { return r.handle(e) })
	}

	// the read lock keeps Close from closing the queue mid-send
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, fmt.Errorf("%w: %s", ErrClosed, r.command)
	}
	if r.blocking {
		r.queue <- e
		return Queued, nil
	}
	select {
	case r.queue <- e:
		return Queued, nil
	default:
		d.metrics.drop(r.command)
		return nil, fmt.Errorf("%w: %s", ErrQueueFull, r.command)
	}
}

func (d *Dispatcher) drain(r *route) {
	defer d.workers.Done()
	for e := range r.queue {
		if _, err := d.metrics.observe(r.command, func() (any, error) { return r.handle(e) }); err != nil {
			d.log.Error("buffered handler failed", "command", r.command, "error", err)
		}
	}
}

// queueDepths reports the backlog of every buffered command.
func (d *Dispatcher) queueDepths(fn func(command string, depth int)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for cmd, r := range d.routes {
		if r.queue != nil {
			fn(cmd, len(r.queue))
		}
	}
}

// Close stops accepting buffered events and waits until every queued
// event has been handled. Inline handlers keep working.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, r := range d.routes {
		if r.queue != nil {
			close(r.queue)
		}
	}
	d.mu.Unlock()

	d.workers.Wait()
}
