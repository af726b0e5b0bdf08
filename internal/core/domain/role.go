package domain

import (
	"sort"
	"strings"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)

// DefaultRoles is the role catalogue seeded at startup.
var DefaultRoles = []string{RoleAdmin, RoleManager, RoleUser}

var roleDisplayNames = map[string]string{
	RoleAdmin:   "Administrator",
	RoleManager: "Restaurant manager",
	RoleUser:    "Member",
}

// Role is a named permission group. Roles form a flat set: there is no
// hierarchy and no inheritance between them.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName returns the human-readable label for a role name, falling back
// to the name itself.
func DisplayName(name string) string {
	if label, ok := roleDisplayNames[name]; ok {
		return label
	}
	return name
}

// HasAnyRole reports whether held and required share at least one role name.
// An empty held set never matches, so anonymous callers are always denied.
func HasAnyRole(held, required []string) bool {
	if len(held) == 0 || len(required) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(held))
	for _, r := range held {
		set[r] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

// NormalizeRoleNames trims, de-duplicates and sorts role names, dropping blanks.
// The result is never nil.
func NormalizeRoleNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// RoleMatch selects how a multi-role filter is applied to an account's roles.
type RoleMatch string

const (
	// RoleMatchAny keeps accounts holding at least one of the selected roles.
	RoleMatchAny RoleMatch = "any"
	// RoleMatchAll keeps accounts holding every selected role.
	RoleMatchAll RoleMatch = "all"
)

// ParseRoleMatch maps a configuration value to a RoleMatch, defaulting to any.
func ParseRoleMatch(s string) RoleMatch {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleMatchAll)) {
		return RoleMatchAll
	}
	return RoleMatchAny
}
