// Package report renders repository contents, server states and sync plans
// for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mpm-dev/mpm/plugin/entities"
	"github.com/mpm-dev/mpm/plugin/ports"
)

// Writer renders reports to an output stream. Colors are used only when
// the stream supports them.
type Writer struct {
	out     io.Writer
	title   lipgloss.Style
	heading lipgloss.Style
	warn    lipgloss.Style
	muted   lipgloss.Style
	good    lipgloss.Style
}

// NewWriter creates a Writer for out.
func NewWriter(out io.Writer) *Writer {
	r := lipgloss.NewRenderer(out)
	return &Writer{
		out:     out,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		heading: r.NewStyle().Bold(true),
		warn:    r.NewStyle().Foreground(lipgloss.Color("214")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("240")),
		good:    r.NewStyle().Foreground(lipgloss.Color("46")),
	}
}

// section headings in display order
var sections = []struct {
	kind    entities.StateKind
	heading string
}{
	{entities.StateInstalled, "Installed plugins"},
	{entities.StateOutdatedSymlink, "Outdated symlinks"},
	{entities.StateAvailable, "New plugins to install"},
	{entities.StateMissingVersions, "Missing plugins"},
	{entities.StateUnmanagedFile, "Unmanaged files"},
	{entities.StateSymlinkConflict, "Symlink conflicts"},
}

// Server renders the classified states of one server. Empty sections are omitted.
func (w *Writer) Server(name, path string, states []entities.PluginState, warnings []entities.BadFile) {
	w.printf("%s\n", w.title.Render(fmt.Sprintf("%s (%s)", name, path)))
	if len(states) == 0 && len(warnings) == 0 {
		w.printf("  %s\n", w.muted.Render("No plugins declared."))
		return
	}

	groups := entities.GroupStates(states)
	for _, s := range sections {
		group := groups[s.kind]
		if len(group) == 0 {
			continue
		}
		w.printf("  %s\n", w.heading.Render(s.heading+":"))
		for _, state := range group {
			line := state.String()
			switch state.Kind {
			case entities.StateMissingVersions, entities.StateSymlinkConflict:
				line = w.warn.Render(line)
			case entities.StateInstalled:
				line = w.good.Render(line)
			}
			w.printf("    %s\n", line)
		}
	}
	w.warnings(warnings)
}

// Repository renders the artifacts and unreadable files of one repository.
func (w *Writer) Repository(name, root string, plugins []entities.Plugin, bad []entities.BadFile) {
	w.printf("%s\n", w.title.Render(fmt.Sprintf("%s (%s)", name, root)))
	if len(plugins) == 0 && len(bad) == 0 {
		w.printf("  %s\n", w.muted.Render("Empty."))
		return
	}
	for _, p := range plugins {
		w.printf("    %-30s %s\n", p.Name, p.Version)
	}
	w.warnings(bad)
}

// Plugins lists artifacts, one per line.
func (w *Writer) Plugins(heading string, plugins []entities.Plugin) {
	w.printf("%s\n", w.heading.Render(heading))
	for _, p := range plugins {
		w.printf("    %-30s %s\n", p.Name, p.Version)
	}
}

// Specs lists plugin requirements, one per line.
func (w *Writer) Specs(heading string, specs []entities.PluginSpec) {
	w.printf("%s\n", w.heading.Render(heading))
	for _, s := range specs {
		w.printf("    %-30s %s\n", s.Name, s.Constraint)
	}
}

// BadFiles lists files that could not be read as artifacts.
func (w *Writer) BadFiles(bad []entities.BadFile) {
	w.warnings(bad)
}

// Plan renders the transactions of a sync plan grouped by server.
func (w *Writer) Plan(plan []ports.Transaction) {
	if len(plan) == 0 {
		w.printf("%s\n", w.muted.Render("No changes to apply."))
		return
	}
	w.printf("%s\n", w.heading.Render(fmt.Sprintf("Planned changes (%d):", len(plan))))
	server := ""
	for _, tx := range plan {
		if tx.Server() != server {
			server = tx.Server()
			w.printf("  %s\n", w.title.Render(server))
		}
		line := tx.String()
		if tx.Action() == "remove" {
			line = w.warn.Render(line)
		}
		w.printf("    %s\n", line)
	}
}

// Journal renders the outcome of a sync batch.
func (w *Writer) Journal(journal *entities.SyncJournal) {
	if journal == nil {
		return
	}
	status := string(journal.Status)
	if journal.Status == entities.JournalCompleted {
		status = w.good.Render(status)
	} else {
		status = w.warn.Render(status)
	}
	w.printf("Sync %s: %s, %d step(s) committed\n", journal.BatchID, status, journal.StepCount())
	if journal.Error != "" {
		w.printf("  %s\n", w.warn.Render(journal.Error))
	}
}

// Interrupted warns about a previous batch that never finished.
func (w *Writer) Interrupted(journal *entities.SyncJournal) {
	var b strings.Builder
	fmt.Fprintf(&b, "WARNING: sync %s started %s did not finish; %d step(s) were committed:",
		journal.BatchID, journal.Started.Format("2006-01-02 15:04:05"), journal.StepCount())
	w.printf("%s\n", w.warn.Render(b.String()))
	for _, step := range journal.Steps {
		w.printf("    %s %s %s on %s\n", step.Action, step.Plugin, step.Version, step.Server)
	}
}

func (w *Writer) warnings(bad []entities.BadFile) {
	for _, b := range bad {
		w.printf("    %s\n", w.warn.Render("WARNING: "+b.String()))
	}
}

func (w *Writer) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, format, args...)
}
