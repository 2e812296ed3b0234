// Package roles computes a client's effective moderation permissions from
// the set of role ids on their account.
package roles

import (
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"
)

// Well-known capability keys. A role definition may define any subset; an
// undefined capability defaults to false for every role that doesn't name
// it.
const (
	CapKick        = "kick"
	CapBan         = "ban"
	CapMute        = "mute"
	CapRoomBan     = "room_ban"
	CapNotice      = "notice"
	CapEditRoles   = "edit_roles"
	CapSetPassword = "set_password"
	CapFetchUser   = "fetch_user"
	CapFetchLogs   = "fetch_logs"
	CapModerate    = "moderate" // can see hidden/self-hidden room state entries
	CapNameRooms   = "name_rooms"
	CapSendFeatures = "send_features"
	CapRateFeatures = "rate_features"
)

// SuperAdminPriority is assigned to any account in the super-admin set,
// unconditionally outranking every configured role.
const SuperAdminPriority = int(^uint(0) >> 1) // math.MaxInt, spelled without importing math for a single constant

// Definition is a single configured role: its priority, the capabilities it
// grants, and the name color it assigns to players holding it (if any).
type Definition struct {
	ID           string
	Priority     int
	Capabilities map[string]bool
	NameColor    string // empty means "doesn't define a color"
}

// Table is the frozen set of role definitions the server was configured
// with, keyed by id. Built once at startup and never mutated afterward, per
// the module registry's freeze-after-init policy.
type Table map[string]Definition

// Computed is the result of merging a user's role ids (and super-admin
// status) against a Table.
type Computed struct {
	RoleIDs      []string // sorted by priority, descending
	Priority     int
	Capabilities map[string]bool
	NameColor    string
}

// Has reports whether the computed role grants the given capability.
func (c Computed) Has(capability string) bool {
	return c.Capabilities[capability]
}

// StrongerThan reports whether c outranks other, per the "caller.priority >
// target.priority" rule moderation actions are gated on.
func (c Computed) StrongerThan(other Computed) bool {
	return c.Priority > other.Priority
}

// Compute merges roleIDs (typically a user's stored role-string, already
// split) against defs. If superAdmin is true, the account outranks every
// configured role and is granted every capability unconditionally,
// regardless of roleIDs.
func Compute(roleIDs []string, defs Table, superAdmin bool) Computed {
	matched := make([]Definition, 0, len(roleIDs))
	for _, id := range roleIDs {
		if def, ok := defs[id]; ok {
			matched = append(matched, def)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Priority > matched[j].Priority })

	out := Computed{
		Capabilities: make(map[string]bool),
	}
	seenCap := make(map[string]bool)
	colorSet := false
	for _, def := range matched {
		out.RoleIDs = append(out.RoleIDs, def.ID)
		if def.Priority > out.Priority {
			out.Priority = def.Priority
		}
		for capName, val := range def.Capabilities {
			if !seenCap[capName] {
				out.Capabilities[capName] = val
				seenCap[capName] = true
			}
		}
		if !colorSet && def.NameColor != "" {
			out.NameColor = def.NameColor
			colorSet = true
		}
	}
	if superAdmin {
		caps := make(map[string]bool, len(allCapabilities))
		for _, c := range allCapabilities {
			caps[c] = true
		}
		out.Priority = SuperAdminPriority
		out.Capabilities = caps
	}
	return out
}

// tomlFile is the on-disk shape of roles.toml: a flat list of role entries,
// matching the config package's layered-TOML convention.
type tomlFile struct {
	Roles []struct {
		ID           string          `toml:"id"`
		Priority     int             `toml:"priority"`
		NameColor    string          `toml:"name_color"`
		Capabilities map[string]bool `toml:"capabilities"`
	} `toml:"roles"`
}

// LoadTable reads a roles.toml file into a Table. A missing file yields an
// empty Table (every account falls back to no capabilities unless a
// super-admin), not an error, since the server is still usable with
// moderation disabled entirely.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var parsed tomlFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	table := make(Table, len(parsed.Roles))
	for _, r := range parsed.Roles {
		table[r.ID] = Definition{
			ID:           r.ID,
			Priority:     r.Priority,
			Capabilities: r.Capabilities,
			NameColor:    r.NameColor,
		}
	}
	return table, nil
}

var allCapabilities = []string{
	CapKick, CapBan, CapMute, CapRoomBan, CapNotice,
	CapEditRoles, CapSetPassword, CapFetchUser, CapFetchLogs, CapModerate,
	CapNameRooms, CapSendFeatures, CapRateFeatures,
}
