package parser

import (
	"fmt"

	"github.com/TheFortz/combat/internal/powerup"
	"github.com/TheFortz/combat/pkg/core"
)

// ParseFire parses :FIRE: args: id, angle (radians).
func (p *Parser) ParseFire(data []string) (Fire, error) {
	var result Fire

	data, err := expect(":FIRE:", data, 2)
	if err != nil {
		return result, err
	}
	if result.ID, err = parseEntityID(data[0]); err != nil {
		return result, err
	}
	if result.Angle, err = parseFinite("angle", data[1]); err != nil {
		return result, err
	}
	return result, nil
}

// ParseSwitch parses :SWITCH: args: id, weapon name.
func (p *Parser) ParseSwitch(data []string) (Switch, error) {
	var result Switch

	data, err := expect(":SWITCH:", data, 2)
	if err != nil {
		return result, err
	}
	if result.ID, err = parseEntityID(data[0]); err != nil {
		return result, err
	}
	if result.Weapon, err = core.ParseWeaponID(data[1]); err != nil {
		return result, fmt.Errorf("error parsing weapon: %w", err)
	}
	return result, nil
}

// ParseHit parses :HIT: args: projectileID, targetID, x, y.
func (p *Parser) ParseHit(data []string) (Hit, error) {
	var result Hit

	data, err := expect(":HIT:", data, 4)
	if err != nil {
		return result, err
	}

	projectileID, err := parseUintFromFloat(data[0])
	if err != nil {
		return result, fmt.Errorf("error parsing projectile id: %w", err)
	}
	result.ProjectileID = core.ProjectileID(projectileID)

	if result.TargetID, err = parseEntityID(data[1]); err != nil {
		return result, err
	}
	if result.Impact, err = parseVec2(data[2], data[3]); err != nil {
		return result, err
	}
	return result, nil
}

// ParseRepair parses :REPAIR: args: id, component, amount.
func (p *Parser) ParseRepair(data []string) (Repair, error) {
	var result Repair

	data, err := expect(":REPAIR:", data, 3)
	if err != nil {
		return result, err
	}
	if result.ID, err = parseEntityID(data[0]); err != nil {
		return result, err
	}
	if result.Component, err = core.ParseComponent(data[1]); err != nil {
		return result, fmt.Errorf("error parsing component: %w", err)
	}
	if result.Amount, err = parseFinite("amount", data[2]); err != nil {
		return result, err
	}
	if result.Amount < 0 {
		return result, fmt.Errorf("error parsing amount: %v is negative", result.Amount)
	}
	return result, nil
}

// ParsePowerUp parses :POWERUP: args: id, kind.
func (p *Parser) ParsePowerUp(data []string) (PowerUp, error) {
	var result PowerUp

	data, err := expect(":POWERUP:", data, 2)
	if err != nil {
		return result, err
	}
	if result.ID, err = parseEntityID(data[0]); err != nil {
		return result, err
	}
	if result.Kind, err = powerup.Parse(data[1]); err != nil {
		return result, fmt.Errorf("error parsing power-up: %w", err)
	}
	return result, nil
}
