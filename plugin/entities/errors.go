package entities

import (
	"errors"
	"fmt"

	"github.com/sahilm/fuzzy"
)

// maxSuggestions bounds the "did you mean" candidates kept on a NotFoundError.
const maxSuggestions = 3

// Sentinel errors for common error patterns.
// These allow both errors.Is() checks and errors.As() for detailed information.
var (
	// ErrAlreadyExists is returned when a destination artifact is already present.
	ErrAlreadyExists = errors.New("already exists")

	// ErrArtifactMissing is returned when an artifact expected on disk is gone.
	ErrArtifactMissing = errors.New("artifact missing")

	// ErrDuplicateDeclaration is returned when a plugin is declared twice for one server.
	ErrDuplicateDeclaration = errors.New("duplicate plugin declaration")

	// ErrNotFound is returned when a repository, server or plugin cannot be found.
	ErrNotFound = errors.New("not found")
)

// AlreadyExistsError indicates a destination path that must not be overwritten.
type AlreadyExistsError struct {
	Path string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists", e.Path)
}

// Is implements error matching for errors.Is() checks.
// This allows: errors.Is(err, entities.ErrAlreadyExists)
func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ArtifactMissingError indicates an artifact that disappeared before it could be used.
type ArtifactMissingError struct {
	Path string
}

func (e *ArtifactMissingError) Error() string {
	return fmt.Sprintf("artifact %s does not exist", e.Path)
}

// Is implements error matching for errors.Is() checks.
func (e *ArtifactMissingError) Is(target error) bool {
	return target == ErrArtifactMissing
}

// DuplicateDeclarationError indicates a plugin that is already declared for a server.
type DuplicateDeclarationError struct {
	Server string
	Name   string
}

func (e *DuplicateDeclarationError) Error() string {
	if e.Server == "" {
		return fmt.Sprintf("plugin %s is already declared", e.Name)
	}
	return fmt.Sprintf("plugin %s is already declared for server %s", e.Name, e.Server)
}

// Is implements error matching for errors.Is() checks.
func (e *DuplicateDeclarationError) Is(target error) bool {
	return target == ErrDuplicateDeclaration
}

// NotFoundError indicates an unknown repository, server or plugin.
// Suggestions holds close matches for "did you mean" hints.
type NotFoundError struct {
	Kind        string
	Name        string
	Suggestions []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s %q not found", e.Kind, e.Name)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestions[0])
	}
	return msg
}

// Is implements error matching for errors.Is() checks.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError builds a NotFoundError whose suggestions are the known
// names fuzzily matching name, best match first.
func NewNotFoundError(kind, name string, known []string) *NotFoundError {
	err := &NotFoundError{Kind: kind, Name: name}
	for _, match := range fuzzy.Find(name, known) {
		if len(err.Suggestions) == maxSuggestions {
			break
		}
		err.Suggestions = append(err.Suggestions, match.Str)
	}
	return err
}
