package parser

import (
	"fmt"

	"github.com/TheFortz/combat/pkg/core"
)

// ParseSpawn parses :SPAWN: args: id, x, y, heading, health.
func (p *Parser) ParseSpawn(data []string) (Spawn, error) {
	var result Spawn

	data, err := expect(":SPAWN:", data, 5)
	if err != nil {
		return result, err
	}

	id, err := parseEntityID(data[0])
	if err != nil {
		return result, err
	}
	pos, err := parseVec2(data[1], data[2])
	if err != nil {
		return result, err
	}
	heading, err := parseFinite("heading", data[3])
	if err != nil {
		return result, err
	}
	health, err := parseFinite("health", data[4])
	if err != nil {
		return result, err
	}
	if health <= 0 {
		return result, fmt.Errorf("error parsing health: %v must be positive", health)
	}

	result.Entity = core.Entity{
		ID:        id,
		Position:  pos,
		Heading:   heading,
		Health:    health,
		MaxHealth: health,
		Alive:     true,
	}
	return result, nil
}

// ParseMove parses :MOVE: args: id, x, y, heading.
func (p *Parser) ParseMove(data []string) (Move, error) {
	return parseMove(":MOVE:", data)
}

// ParseRespawn parses :RESPAWN: args, which share the :MOVE: layout.
func (p *Parser) ParseRespawn(data []string) (Respawn, error) {
	m, err := parseMove(":RESPAWN:", data)
	return Respawn(m), err
}

func parseMove(command string, data []string) (Move, error) {
	var result Move

	data, err := expect(command, data, 4)
	if err != nil {
		return result, err
	}
	if result.ID, err = parseEntityID(data[0]); err != nil {
		return result, err
	}
	if result.Position, err = parseVec2(data[1], data[2]); err != nil {
		return result, err
	}
	if result.Heading, err = parseFinite("heading", data[3]); err != nil {
		return result, err
	}
	return result, nil
}

// ParseRemove parses :REMOVE: args: id.
func (p *Parser) ParseRemove(data []string) (core.EntityID, error) {
	return parseSingleID(":REMOVE:", data)
}

// ParseEntityID parses commands whose only argument is an entity id
// (:CHARGE:, :CANCEL:CHARGE:).
func (p *Parser) ParseEntityID(data []string) (core.EntityID, error) {
	return parseSingleID("entity command", data)
}

func parseSingleID(command string, data []string) (core.EntityID, error) {
	data, err := expect(command, data, 1)
	if err != nil {
		return 0, err
	}
	return parseEntityID(data[0])
}
