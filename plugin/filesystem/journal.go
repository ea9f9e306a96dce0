package filesystem

import (
	"time"

	"github.com/mpm-dev/mpm/plugin/entities"
)

// Journal represents the YAML structure of a sync journal.
type Journal struct {
	Started  time.Time     `yaml:"started"`
	Finished time.Time     `yaml:"finished,omitempty"`
	BatchID  string        `yaml:"batch_id"`
	Status   string        `yaml:"status"`
	Error    string        `yaml:"error,omitempty"`
	Steps    []JournalStep `yaml:"steps"`
	Version  int           `yaml:"journal_version"`
}

// JournalStep represents one committed step in YAML.
type JournalStep struct {
	Committed time.Time `yaml:"committed"`
	Server    string    `yaml:"server"`
	Action    string    `yaml:"action"`
	Plugin    string    `yaml:"plugin"`
	Version   string    `yaml:"version"`
}

// ToEntity converts the journal to a domain entity.
func (j *Journal) ToEntity() *entities.SyncJournal {
	entity := &entities.SyncJournal{
		Started:  j.Started,
		Finished: j.Finished,
		BatchID:  j.BatchID,
		Status:   entities.JournalStatus(j.Status),
		Error:    j.Error,
		Version:  j.Version,
		Steps:    make([]entities.JournalStep, 0, len(j.Steps)),
	}

	for _, step := range j.Steps {
		entity.Steps = append(entity.Steps, entities.JournalStep{
			Committed: step.Committed,
			Server:    step.Server,
			Action:    step.Action,
			Plugin:    step.Plugin,
			Version:   step.Version,
		})
	}

	return entity
}

// FromEntity converts a domain journal to YAML representation.
func FromEntity(entity *entities.SyncJournal) *Journal {
	if entity == nil {
		return nil
	}

	j := &Journal{
		Started:  entity.Started,
		Finished: entity.Finished,
		BatchID:  entity.BatchID,
		Status:   string(entity.Status),
		Error:    entity.Error,
		Version:  entity.Version,
		Steps:    make([]JournalStep, 0, len(entity.Steps)),
	}

	for _, step := range entity.Steps {
		j.Steps = append(j.Steps, JournalStep{
			Committed: step.Committed,
			Server:    step.Server,
			Action:    step.Action,
			Plugin:    step.Plugin,
			Version:   step.Version,
		})
	}

	return j
}
