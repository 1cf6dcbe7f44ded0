// Package hostio is the input layer between the game host and the
// dispatcher. The host writes one command per line, arguments separated
// by "|", and reads one JSON response line back per command.
package hostio

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/TheFortz/combat/internal/dispatcher"
	"github.com/TheFortz/combat/internal/util"
)

// CmdTimestamp is answered directly with the current UTC time in nanoseconds.
const CmdTimestamp = ":TIMESTAMP:"

// MaxLineSize bounds a single command line.
const MaxLineSize = 1 << 20

// Dispatcher is the part of *dispatcher.Dispatcher the host layer needs.
type Dispatcher interface {
	HasHandler(command string) bool
	Dispatch(e dispatcher.Event) (any, error)
}

// Server reads commands from the host and writes responses back.
type Server struct {
	d   Dispatcher
	out io.Writer
	mu  sync.Mutex
	now func() time.Time
}

// New creates a Server writing responses to out.
func New(d Dispatcher, out io.Writer) *Server {
	return &Server{d: d, out: out, now: time.Now}
}

// Serve handles lines from r until EOF or ctx is done. It returns nil on
// EOF and ctx.Err() on cancellation.
func (s *Server) Serve(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading commands: %w", err)
					}
				default:
				}
				return nil
			}
			s.Handle(line)
		}
	}
}

// Handle dispatches one raw line and writes the response. Blank lines are
// ignored.
func (s *Server) Handle(line string) {
	command, args := util.SplitCommand(line)
	if command == "" {
		return
	}

	if command == CmdTimestamp {
		s.reply(command, fmt.Sprintf("%d", s.now().UTC().UnixNano()), nil)
		return
	}

	if !s.d.HasHandler(command) {
		s.reply(command, nil, fmt.Errorf("%w: %s", dispatcher.ErrUnknownCommand, command))
		return
	}

	result, err := s.d.Dispatch(dispatcher.Event{
		Command:   command,
		Args:      args,
		Timestamp: s.now(),
	})
	s.reply(command, result, err)
}

func (s *Server) reply(command string, result any, err error) {
	line, ferr := FormatResponse(command, result, err)
	if ferr != nil {
		line, _ = FormatResponse(command, nil, ferr)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.out, line)
}

// FormatResponse renders a dispatch result as a JSON array:
// ["ok", command], ["ok", command, result] or ["error", command, message].
func FormatResponse(command string, result any, err error) (string, error) {
	var resp []any
	switch {
	case err != nil:
		resp = []any{"error", command, err.Error()}
	case result == nil:
		resp = []any{"ok", command}
	default:
		resp = []any{"ok", command, result}
	}
	raw, merr := json.Marshal(resp)
	if merr != nil {
		return "", fmt.Errorf("encoding %s response: %w", command, merr)
	}
	return string(raw), nil
}
