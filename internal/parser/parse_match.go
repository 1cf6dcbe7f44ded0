package parser

import (
	"fmt"
	"strings"
)

// ParseMatchStart parses :MATCH:START: args: name, map.
// Names arrive quoted and may contain doubled quotes.
func (p *Parser) ParseMatchStart(data []string) (MatchStart, error) {
	var result MatchStart

	data, err := expect(":MATCH:START:", data, 2)
	if err != nil {
		return result, err
	}

	result.Name = strings.TrimSpace(data[0])
	result.MapName = strings.TrimSpace(data[1])
	if result.Name == "" {
		return result, fmt.Errorf("error parsing match name: empty")
	}
	if result.MapName == "" {
		result.MapName = "unknown"
	}

	p.logger.Debug("Parsed match data",
		"matchName", result.Name,
		"mapName", result.MapName)

	return result, nil
}
