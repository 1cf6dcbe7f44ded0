// Package parser converts the pipe-separated argument lists of input-layer
// commands into typed commands. It performs no simulation or storage work.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"

	"github.com/TheFortz/combat/internal/util"
	"github.com/TheFortz/combat/pkg/core"
)

// ErrArgCount is returned when a command carries the wrong number of arguments.
var ErrArgCount = errors.New("wrong number of arguments")

// Service is the parsing surface the worker depends on.
type Service interface {
	ParseSpawn(data []string) (Spawn, error)
	ParseMove(data []string) (Move, error)
	ParseRemove(data []string) (core.EntityID, error)
	ParseRespawn(data []string) (Respawn, error)
	ParseFire(data []string) (Fire, error)
	ParseEntityID(data []string) (core.EntityID, error)
	ParseSwitch(data []string) (Switch, error)
	ParseHit(data []string) (Hit, error)
	ParseRepair(data []string) (Repair, error)
	ParsePowerUp(data []string) (PowerUp, error)
	ParseMatchStart(data []string) (MatchStart, error)
}

// Parser provides pure []string -> command conversion.
type Parser struct {
	logger *slog.Logger
}

var _ Service = (*Parser)(nil)

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// clean strips the quoting the input layer wraps string arguments in.
func clean(data []string) []string {
	return util.UnquoteAll(append([]string(nil), data...))
}

func expect(command string, data []string, n int) ([]string, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%s: %w: got %d, need %d", command, ErrArgCount, len(data), n)
	}
	return clean(data), nil
}

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
// Scripted clients serialize every number as a float.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

func parseEntityID(s string) (core.EntityID, error) {
	v, err := parseUintFromFloat(s)
	if err != nil {
		return 0, fmt.Errorf("error parsing entity id: %w", err)
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("error parsing entity id: %d out of range", v)
	}
	return core.EntityID(v), nil
}

// parseFinite parses a float and rejects NaN and infinities.
func parseFinite(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing %s: %w", name, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("error parsing %s: %q is not finite", name, s)
	}
	return f, nil
}

func parseVec2(x, y string) (core.Vec2, error) {
	px, err := parseFinite("x", x)
	if err != nil {
		return core.Vec2{}, err
	}
	py, err := parseFinite("y", y)
	if err != nil {
		return core.Vec2{}, err
	}
	return core.Vec2{X: px, Y: py}, nil
}
