package domain

import "strings"

// FilterState is the directory filter remembered for one session.
type FilterState struct {
	Search string   `json:"search"`
	Roles  []string `json:"roles"`
}

// IsEmpty reports whether the state filters nothing.
func (f FilterState) IsEmpty() bool {
	return f.Search == "" && len(f.Roles) == 0
}

// FilterInput is what a single listing request supplied.
type FilterInput struct {
	Search string
	Roles  []string
	Clear  bool
}

// FilterTransition describes what must happen to the stored state.
type FilterTransition int

const (
	// FilterKept leaves the stored state untouched.
	FilterKept FilterTransition = iota
	// FilterReplaced overwrites the stored state with the effective filter.
	FilterReplaced
	// FilterCleared erases the stored state.
	FilterCleared
)

func (t FilterTransition) String() string {
	switch t {
	case FilterReplaced:
		return "replaced"
	case FilterCleared:
		return "cleared"
	default:
		return "kept"
	}
}

// ResolveFilter applies one request to the stored filter state.
//
// Precedence: an explicit clear wipes the stored state and ignores any other
// input; otherwise a non-empty search or role selection replaces the stored
// state wholesale; otherwise the stored state is reused as is. Fields are never
// merged between the request and the stored state.
func ResolveFilter(stored FilterState, in FilterInput) (FilterTransition, FilterState) {
	stored = normalizeFilter(stored)
	if in.Clear {
		return FilterCleared, FilterState{Roles: []string{}}
	}

	supplied := normalizeFilter(FilterState{Search: in.Search, Roles: in.Roles})
	if !supplied.IsEmpty() {
		return FilterReplaced, supplied
	}
	return FilterKept, stored
}

func normalizeFilter(f FilterState) FilterState {
	return FilterState{
		Search: strings.TrimSpace(f.Search),
		Roles:  NormalizeRoleNames(f.Roles),
	}
}
