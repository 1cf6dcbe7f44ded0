package core

import (
	"fmt"
	"strings"
)

// WeaponID names a weapon catalog entry.
type WeaponID uint8

const (
	WeaponCannon WeaponID = iota
	WeaponMachineGun
	WeaponShotgun
	WeaponSniper
	WeaponRocket
	WeaponLaser
	WeaponFlamethrower
	WeaponRailgun
	WeaponGrenade
	WeaponRicochet

	weaponCount
)

var weaponNames = [weaponCount]string{
	WeaponCannon:       "cannon",
	WeaponMachineGun:   "machinegun",
	WeaponShotgun:      "shotgun",
	WeaponSniper:       "sniper",
	WeaponRocket:       "rocket",
	WeaponLaser:        "laser",
	WeaponFlamethrower: "flamethrower",
	WeaponRailgun:      "railgun",
	WeaponGrenade:      "grenade",
	WeaponRicochet:     "ricochet",
}

// WeaponIDs returns every weapon id in catalog order.
func WeaponIDs() []WeaponID {
	ids := make([]WeaponID, 0, weaponCount)
	for id := WeaponID(0); id < weaponCount; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Valid reports whether id is a catalog member.
func (id WeaponID) Valid() bool {
	return id < weaponCount
}

func (id WeaponID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("WeaponID(%d)", uint8(id))
	}
	return weaponNames[id]
}

// ParseWeaponID resolves a weapon by name, case-insensitively.
func ParseWeaponID(s string) (WeaponID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for id, name := range weaponNames {
		if name == s {
			return WeaponID(id), nil
		}
	}
	return 0, fmt.Errorf("unknown weapon %q", s)
}
