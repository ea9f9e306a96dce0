// Package prompt asks the operator to approve destructive operations.
package prompt

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// ErrNonInteractive is returned when approval is needed but stdin is not a terminal.
var ErrNonInteractive = errors.New("confirmation required but not running in a terminal (use --yes to approve)")

// TerminalPrompter confirms actions on the controlling terminal.
type TerminalPrompter struct {
	isInteractive func() bool
	ask           func(ctx context.Context, question string) (bool, error)
	assumeYes     bool
}

// Option configures a TerminalPrompter.
type Option func(*TerminalPrompter)

// WithAssumeYes approves every question without asking.
func WithAssumeYes(yes bool) Option {
	return func(p *TerminalPrompter) {
		p.assumeYes = yes
	}
}

// WithInteractiveCheck replaces the terminal detection.
func WithInteractiveCheck(fn func() bool) Option {
	return func(p *TerminalPrompter) {
		p.isInteractive = fn
	}
}

// WithAsker replaces the interactive question.
func WithAsker(fn func(ctx context.Context, question string) (bool, error)) Option {
	return func(p *TerminalPrompter) {
		p.ask = fn
	}
}

// NewTerminalPrompter creates a new TerminalPrompter.
func NewTerminalPrompter(opts ...Option) *TerminalPrompter {
	p := &TerminalPrompter{
		isInteractive: stdinIsTerminal,
		ask:           askHuh,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	return p.isInteractive()
}

// Confirm asks question and reports whether the operator approved.
// Without a terminal it fails with ErrNonInteractive unless every question is pre-approved.
func (p *TerminalPrompter) Confirm(ctx context.Context, question string) (bool, error) {
	if p.assumeYes {
		return true, nil
	}
	if !p.isInteractive() {
		return false, ErrNonInteractive
	}
	return p.ask(ctx, question)
}

func stdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func askHuh(ctx context.Context, question string) (bool, error) {
	var approved bool
	confirm := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&approved)
	err := huh.NewForm(huh.NewGroup(confirm)).RunWithContext(ctx)
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return approved, nil
}
