package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TheFortz/combat/pkg/streaming"
	ws "github.com/gorilla/websocket"
)

const (
	queueSize    = 10_000
	ackQueueSize = 16
	maxRedials   = 10
	firstBackoff = time.Second
	maxBackoff   = 30 * time.Second
	writeWait    = 10 * time.Second
	ackTimeout   = 10 * time.Second
)

var errClosed = errors.New("websocket connection closed")

// connection owns one live socket at a time. A single supervisor goroutine
// writes queued messages and, when the socket fails, redials and replays
// the start_match of the running match before resuming.
type connection struct {
	url    string
	secret string
	log    *slog.Logger

	queue chan []byte
	acks  chan streaming.AckMessage
	done  chan struct{}

	mu     sync.Mutex
	conn   *ws.Conn
	replay []byte
	closed bool

	// backoff is the first redial delay; it doubles up to maxBackoff.
	backoff time.Duration
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

func newConnection(logger *slog.Logger) *connection {
	return &connection{
		log:     logger,
		queue:   make(chan []byte, queueSize),
		acks:    make(chan streaming.AckMessage, ackQueueSize),
		done:    make(chan struct{}),
		backoff: firstBackoff,
	}
}

// dial connects once and starts the supervisor. A failed first dial is
// returned to the caller rather than retried.
func (c *connection) dial(rawURL, secret string) error {
	c.url, c.secret = rawURL, secret
	conn, err := c.connect()
	if err != nil {
		return err
	}
	c.wg.Add(1)
	go c.supervise(conn)
	return nil
}

func (c *connection) connect() (*ws.Conn, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return nil, fmt.Errorf("invalid websocket URL: %w", err)
	}
	q := u.Query()
	q.Set("secret", c.secret)
	u.RawQuery = q.Encode()

	conn, _, err := ws.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	return conn, nil
}

func (c *connection) supervise(conn *ws.Conn) {
	defer c.wg.Done()
	for conn != nil {
		err := c.serve(conn)
		if errors.Is(err, errClosed) {
			return
		}
		c.log.Warn("WebSocket connection lost", "error", err)
		conn = c.redial()
	}
}

// serve pumps the queue into conn until it fails or the connection is
// closed. conn is closed on return.
func (c *connection) serve(conn *ws.Conn) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return errClosed
	}
	c.conn = conn
	c.mu.Unlock()

	readErr := make(chan error, 1)
	go func() { readErr <- c.readAcks(conn) }()

	readDone, err := c.pump(conn, readErr)

	c.mu.Lock()
	c.conn = nil
	c.mu.Unlock()
	conn.Close()
	if !readDone {
		<-readErr
	}
	return err
}

// pump reports whether it consumed the reader's exit.
func (c *connection) pump(conn *ws.Conn, readErr <-chan error) (bool, error) {
	for {
		select {
		case <-c.done:
			return false, errClosed
		case err := <-readErr:
			return true, fmt.Errorf("read: %w", err)
		case data := <-c.queue:
			if err := write(conn, data); err != nil {
				return false, err
			}
		}
	}
}

func write(conn *ws.Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// readAcks forwards server acks until the socket fails.
func (c *connection) readAcks(conn *ws.Conn) error {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ack streaming.AckMessage
		if err := json.Unmarshal(msg, &ack); err != nil || ack.Type != "ack" {
			c.log.Debug("Ignoring server message", "raw", string(msg))
			continue
		}
		select {
		case c.acks <- ack:
		default:
			c.log.Debug("Ack queue full, dropping", "for", ack.For)
		}
	}
}

// redial retries with exponential backoff and replays start_match on the
// new socket. It returns nil when closed or out of attempts.
func (c *connection) redial() *ws.Conn {
	delay := c.backoff
	for attempt := 1; attempt <= maxRedials; attempt++ {
		timer := time.NewTimer(delay)
		select {
		case <-c.done:
			timer.Stop()
			return nil
		case <-timer.C:
		}

		conn, err := c.connect()
		if err == nil {
			err = c.replayStart(conn)
			if err != nil {
				conn.Close()
			}
		}
		if err != nil {
			c.log.Warn("WebSocket redial failed", "attempt", attempt, "error", err)
			delay = min(delay*2, maxBackoff)
			continue
		}
		c.log.Info("WebSocket reconnected", "attempt", attempt)
		return conn
	}
	c.log.Error("Giving up on WebSocket server", "attempts", maxRedials)
	return nil
}

// replayStart re-sends the running match's start_match; the server
// attributes events to the last one it saw on a socket.
func (c *connection) replayStart(conn *ws.Conn) error {
	c.mu.Lock()
	data := c.replay
	c.mu.Unlock()
	if data == nil {
		return nil
	}
	return write(conn, data)
}

// setReplay stores the message replayed after a reconnect; nil clears it.
func (c *connection) setReplay(data []byte) {
	c.mu.Lock()
	c.replay = data
	c.mu.Unlock()
}

func (c *connection) pending() int {
	return len(c.queue)
}

// send queues data without blocking. Drops are counted and logged once
// per thousand.
func (c *connection) send(data []byte) {
	select {
	case c.queue <- data:
	default:
		if n := c.dropped.Add(1); n%1000 == 1 {
			c.log.Warn("WebSocket queue full, dropping message", "dropped", n)
		}
	}
}

// sendAndWait queues data and waits for the server to ack ackFor.
func (c *connection) sendAndWait(data []byte, ackFor string, timeout time.Duration) error {
	c.send(data)

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.acks:
			if ack.For == ackFor {
				return nil
			}
		case <-timer.C:
			return fmt.Errorf("timeout waiting for ack of %q", ackFor)
		case <-c.done:
			return fmt.Errorf("%w while waiting for ack of %q", errClosed, ackFor)
		}
	}
}

// close sends a close frame on the live socket, if any, and waits for
// the supervisor to exit.
func (c *connection) close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		err := conn.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		if err != nil {
			c.log.Debug("WebSocket close frame not sent", "error", err)
		}
	}
	c.wg.Wait()
	return nil
}
