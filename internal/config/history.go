package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"netsim/pkg/neterr"
)

const historyFileName = "filter_history.yaml"
const historyCap = 20

type historyDoc struct {
	Filters []string `yaml:"filters"`
}

func (s *Store) historyPath() string {
	return filepath.Join(s.Dir, historyFileName)
}

// FilterHistory returns the saved filter strings, most-recent-first.
func (s *Store) FilterHistory() ([]string, error) {
	data, err := os.ReadFile(s.historyPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, neterr.IO(fmt.Errorf("read filter history: %w", err))
	}
	var doc historyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, neterr.IO(fmt.Errorf("parse filter history: %w", err))
	}
	return doc.Filters, nil
}

// RecordFilter prepends filter to the history, deduplicating and capping at
// historyCap entries, most-recent-first.
func (s *Store) RecordFilter(filter string) error {
	existing, err := s.FilterHistory()
	if err != nil {
		return err
	}

	deduped := make([]string, 0, len(existing)+1)
	deduped = append(deduped, filter)
	for _, f := range existing {
		if f == filter {
			continue
		}
		deduped = append(deduped, f)
	}
	if len(deduped) > historyCap {
		deduped = deduped[:historyCap]
	}

	out, err := yaml.Marshal(historyDoc{Filters: deduped})
	if err != nil {
		return neterr.IO(fmt.Errorf("encode filter history: %w", err))
	}
	if err := os.WriteFile(s.historyPath(), out, 0o600); err != nil {
		return neterr.IO(fmt.Errorf("write filter history: %w", err))
	}
	return nil
}

// ClearFilterHistory removes the history file.
func (s *Store) ClearFilterHistory() error {
	if err := os.Remove(s.historyPath()); err != nil && !os.IsNotExist(err) {
		return neterr.IO(fmt.Errorf("clear filter history: %w", err))
	}
	return nil
}
