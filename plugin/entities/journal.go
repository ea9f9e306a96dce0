package entities

import (
	"fmt"
	"time"
)

// JournalStatus is the outcome of a sync batch.
type JournalStatus string

const (
	JournalRunning   JournalStatus = "running"
	JournalCompleted JournalStatus = "completed"
	JournalFailed    JournalStatus = "failed"
)

// SyncJournal records the committed steps of one sync batch.
// It is a commit log for reporting, not an undo log.
//
// Invariants:
// - BatchID must be set
// - Started timestamp must be set
// - A finished journal has a Finished timestamp
type SyncJournal struct {
	Started  time.Time
	Finished time.Time
	BatchID  string
	Status   JournalStatus
	Error    string
	Steps    []JournalStep
	Version  int
}

// JournalStep is a value object describing one committed transaction.
// Immutable after creation.
type JournalStep struct {
	Committed time.Time
	Server    string
	Action    string
	Plugin    string
	Version   string
}

// NewSyncJournal creates a running journal for batchID.
func NewSyncJournal(batchID string) *SyncJournal {
	return &SyncJournal{
		Version: 1,
		BatchID: batchID,
		Started: time.Now().UTC(),
		Status:  JournalRunning,
	}
}

// RecordStep appends a committed step.
// Returns error if the journal is already finished (invariant enforcement).
func (j *SyncJournal) RecordStep(step JournalStep) error {
	if j.Status != JournalRunning {
		return fmt.Errorf("journal %s: cannot record step on %s batch", j.BatchID, j.Status)
	}
	if step.Committed.IsZero() {
		step.Committed = time.Now().UTC()
	}
	j.Steps = append(j.Steps, step)
	return nil
}

// Complete marks the batch as fully committed.
func (j *SyncJournal) Complete() {
	j.Status = JournalCompleted
	j.Finished = time.Now().UTC()
}

// Fail marks the batch as stopped by err.
func (j *SyncJournal) Fail(err error) {
	j.Status = JournalFailed
	j.Finished = time.Now().UTC()
	if err != nil {
		j.Error = err.Error()
	}
}

// Interrupted reports whether the batch never reached a final status,
// i.e. the process died between commits.
func (j *SyncJournal) Interrupted() bool {
	return j.Status == JournalRunning
}

// StepCount returns the number of committed steps.
func (j *SyncJournal) StepCount() int {
	return len(j.Steps)
}

// Validate checks journal invariants.
func (j *SyncJournal) Validate() error {
	if j.BatchID == "" {
		return fmt.Errorf("batch id is required")
	}
	if j.Started.IsZero() {
		return fmt.Errorf("started timestamp is required")
	}
	if j.Status != JournalRunning && j.Finished.IsZero() {
		return fmt.Errorf("journal %s: finished timestamp is required for %s batch", j.BatchID, j.Status)
	}
	return nil
}
