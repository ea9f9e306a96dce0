package entities

import (
	"fmt"
	"sort"

	"github.com/mpm-dev/mpm/plugin/values"
)

// StateKind discriminates PluginState variants.
type StateKind int

const (
	// StateInstalled: the linked version satisfies the spec and is the best available.
	StateInstalled StateKind = iota
	// StateOutdatedSymlink: a better compatible version exists than the linked one.
	StateOutdatedSymlink
	// StateAvailable: the spec is satisfiable but nothing is linked yet.
	StateAvailable
	// StateMissingVersions: no installed or repository version satisfies the spec.
	StateMissingVersions
	// StateSymlinkConflict: the link path exists as a regular file.
	StateSymlinkConflict
	// StateUnmanagedFile: a file in the plugin directory no spec accounts for.
	StateUnmanagedFile
)

func (k StateKind) String() string {
	switch k {
	case StateInstalled:
		return "installed"
	case StateOutdatedSymlink:
		return "outdated"
	case StateAvailable:
		return "available"
	case StateMissingVersions:
		return "missing"
	case StateSymlinkConflict:
		return "conflict"
	case StateUnmanagedFile:
		return "unmanaged"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// PluginState is the classification result for one declared spec or one stray file.
// Only the fields of the active Kind are set:
//
//	Installed        Spec, Current
//	OutdatedSymlink  Spec, Current, Wanted
//	Available        Spec, Candidate
//	MissingVersions  Spec
//	SymlinkConflict  Spec
//	UnmanagedFile    Filename
type PluginState struct {
	Kind      StateKind
	Spec      PluginSpec
	Current   values.Version
	Wanted    values.Version
	Candidate Plugin
	Filename  string
}

// Installed builds an Installed state.
func Installed(spec PluginSpec, current values.Version) PluginState {
	return PluginState{Kind: StateInstalled, Spec: spec, Current: current}
}

// OutdatedSymlink builds an OutdatedSymlink state.
func OutdatedSymlink(spec PluginSpec, current, wanted values.Version) PluginState {
	return PluginState{Kind: StateOutdatedSymlink, Spec: spec, Current: current, Wanted: wanted}
}

// Available builds an Available state.
func Available(spec PluginSpec, candidate Plugin) PluginState {
	return PluginState{Kind: StateAvailable, Spec: spec, Candidate: candidate}
}

// MissingVersions builds a MissingVersions state.
func MissingVersions(spec PluginSpec) PluginState {
	return PluginState{Kind: StateMissingVersions, Spec: spec}
}

// SymlinkConflict builds a SymlinkConflict state.
func SymlinkConflict(spec PluginSpec) PluginState {
	return PluginState{Kind: StateSymlinkConflict, Spec: spec}
}

// UnmanagedFile builds an UnmanagedFile state.
func UnmanagedFile(filename string) PluginState {
	return PluginState{Kind: StateUnmanagedFile, Filename: filename}
}

// Key is the ordering key: the file name for unmanaged files, the plugin name otherwise.
func (s PluginState) Key() string {
	if s.Kind == StateUnmanagedFile {
		return s.Filename
	}
	return s.Spec.Name
}

func (s PluginState) String() string {
	switch s.Kind {
	case StateInstalled:
		return fmt.Sprintf("%s %s: %s", s.Spec.Name, s.Spec.Constraint, s.Current)
	case StateOutdatedSymlink:
		return fmt.Sprintf("%s %s: current %s, wanted %s", s.Spec.Name, s.Spec.Constraint, s.Current, s.Wanted)
	case StateAvailable:
		return fmt.Sprintf("%s: %s", s.Spec.Name, s.Candidate.Version)
	case StateMissingVersions:
		return fmt.Sprintf("%s: %s", s.Spec.Name, s.Spec.Constraint)
	case StateSymlinkConflict:
		return s.Spec.LinkName()
	default:
		return s.Filename
	}
}

// SortStates orders states by Key.
func SortStates(states []PluginState) {
	sort.SliceStable(states, func(i, j int) bool {
		return states[i].Key() < states[j].Key()
	})
}

// GroupStates buckets states by kind, each bucket sorted by Key.
func GroupStates(states []PluginState) map[StateKind][]PluginState {
	groups := make(map[StateKind][]PluginState)
	for _, s := range states {
		groups[s.Kind] = append(groups[s.Kind], s)
	}
	for kind := range groups {
		SortStates(groups[kind])
	}
	return groups
}
