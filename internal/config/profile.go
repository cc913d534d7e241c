// Package config implements on-disk persistence for saved settings profiles
// and the filter-history list, in the viper +
// go-viper/mapstructure idiom: one YAML file per profile under an
// application-data directory, unknown keys ignored, missing fields default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"netsim/pkg/neterr"
	"netsim/pkg/probability"
	"netsim/pkg/settings"
)

// Store manages profile and filter-history files under Dir.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir, creating it if absent.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, neterr.IO(fmt.Errorf("create config dir %s: %w", dir, err))
	}
	return &Store{Dir: dir}, nil
}

func (s *Store) profilePath(name string) string {
	return filepath.Join(s.Dir, sanitizeName(name)+".yaml")
}

// sanitizeName strips path separators so a profile name can't escape Dir.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	return name
}

// commonDoc is the on-disk mirror of settings.Common: probability is stored
// as a 0-100 percent (matching the builder's unit) rather than the runtime
// Probability type, since that type's internals aren't mapstructure-visible.
type commonDoc struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	Inbound        bool    `mapstructure:"inbound" yaml:"inbound"`
	Outbound       bool    `mapstructure:"outbound" yaml:"outbound"`
	ProbabilityPct float64 `mapstructure:"probability_pct" yaml:"probability_pct"`
	DurationMs     uint64  `mapstructure:"duration_ms" yaml:"duration_ms,omitempty"`
}

func commonToDoc(c settings.Common) commonDoc {
	return commonDoc{
		Enabled: c.Enabled, Inbound: c.Inbound, Outbound: c.Outbound,
		ProbabilityPct: c.ProbabilityPercent(), DurationMs: c.DurationMs,
	}
}

func commonFromDoc(d commonDoc) settings.Common {
	return settings.Common{
		Enabled: d.Enabled, Inbound: d.Inbound, Outbound: d.Outbound,
		Probability: probability.FromPercent(d.ProbabilityPct), DurationMs: d.DurationMs,
	}
}

// profileDoc is the module-keyed text format a saved profile is written as. Unknown keys
// are ignored because mapstructure only reads the fields this struct
// declares; missing fields zero-value to disabled.
type profileDoc struct {
	Drop commonDoc `mapstructure:"drop" yaml:"drop"`
	Lag  struct {
		commonDoc `mapstructure:",squash" yaml:",inline"`
		LagMs     uint64 `mapstructure:"lag_ms" yaml:"lag_ms"`
	} `mapstructure:"lag" yaml:"lag"`
	Throttle struct {
		commonDoc  `mapstructure:",squash" yaml:",inline"`
		ThrottleMs uint64 `mapstructure:"throttle_ms" yaml:"throttle_ms"`
		Drop       bool   `mapstructure:"drop" yaml:"drop"`
		MaxBuffer  int    `mapstructure:"max_buffer" yaml:"max_buffer"`
		Freeze     bool   `mapstructure:"freeze" yaml:"freeze"`
	} `mapstructure:"throttle" yaml:"throttle"`
	Reorder struct {
		commonDoc  `mapstructure:",squash" yaml:",inline"`
		MaxDelayMs uint64 `mapstructure:"max_delay_ms" yaml:"max_delay_ms"`
	} `mapstructure:"reorder" yaml:"reorder"`
	Tamper struct {
		commonDoc            `mapstructure:",squash" yaml:",inline"`
		AmountPct            float64 `mapstructure:"amount_pct" yaml:"amount_pct"`
		RecalculateChecksums bool    `mapstructure:"recalculate_checksums" yaml:"recalculate_checksums"`
	} `mapstructure:"tamper" yaml:"tamper"`
	Duplicate struct {
		commonDoc `mapstructure:",squash" yaml:",inline"`
		Count     int `mapstructure:"count" yaml:"count"`
	} `mapstructure:"duplicate" yaml:"duplicate"`
	Bandwidth struct {
		commonDoc            `mapstructure:",squash" yaml:",inline"`
		LimitKbps            float64 `mapstructure:"limit_kbps" yaml:"limit_kbps"`
		PassthroughThreshold int     `mapstructure:"passthrough_threshold" yaml:"passthrough_threshold"`
		UseWFP               bool    `mapstructure:"use_wfp" yaml:"use_wfp"`
	} `mapstructure:"bandwidth" yaml:"bandwidth"`
	Burst struct {
		commonDoc     `mapstructure:",squash" yaml:",inline"`
		BufferMs      uint64  `mapstructure:"buffer_ms" yaml:"buffer_ms"`
		ReplaySpeed   float64 `mapstructure:"replay_speed" yaml:"replay_speed"`
		ReverseReplay bool    `mapstructure:"reverse_replay" yaml:"reverse_replay"`
	} `mapstructure:"burst" yaml:"burst"`
	LagBypass bool `mapstructure:"lag_bypass" yaml:"lag_bypass"`
}

func toDoc(s settings.Settings) profileDoc {
	var d profileDoc
	d.Drop = commonToDoc(s.Drop.Common)
	d.Lag.commonDoc = commonToDoc(s.Lag.Common)
	d.Lag.LagMs = s.Lag.LagMs
	d.Throttle.commonDoc = commonToDoc(s.Throttle.Common)
	d.Throttle.ThrottleMs = s.Throttle.ThrottleMs
	d.Throttle.Drop = s.Throttle.Drop
	d.Throttle.MaxBuffer = s.Throttle.MaxBuffer
	d.Throttle.Freeze = s.Throttle.Freeze
	d.Reorder.commonDoc = commonToDoc(s.Reorder.Common)
	d.Reorder.MaxDelayMs = s.Reorder.MaxDelayMs
	d.Tamper.commonDoc = commonToDoc(s.Tamper.Common)
	d.Tamper.AmountPct = s.Tamper.Amount * 100
	d.Tamper.RecalculateChecksums = s.Tamper.RecalculateChecksums
	d.Duplicate.commonDoc = commonToDoc(s.Duplicate.Common)
	d.Duplicate.Count = s.Duplicate.Count
	d.Bandwidth.commonDoc = commonToDoc(s.Bandwidth.Common)
	d.Bandwidth.LimitKbps = s.Bandwidth.LimitKbps
	d.Bandwidth.PassthroughThreshold = s.Bandwidth.PassthroughThreshold
	d.Bandwidth.UseWFP = s.Bandwidth.UseWFP
	d.Burst.commonDoc = commonToDoc(s.Burst.Common)
	d.Burst.BufferMs = s.Burst.BufferMs
	d.Burst.ReplaySpeed = s.Burst.ReplaySpeed
	d.Burst.ReverseReplay = s.Burst.ReverseReplay
	d.LagBypass = s.LagBypass
	return d
}

func fromDoc(d profileDoc) settings.Settings {
	var s settings.Settings
	s.Drop.Common = commonFromDoc(d.Drop)
	s.Lag.Common = commonFromDoc(d.Lag.commonDoc)
	s.Lag.LagMs = d.Lag.LagMs
	s.Throttle.Common = commonFromDoc(d.Throttle.commonDoc)
	s.Throttle.ThrottleMs = d.Throttle.ThrottleMs
	s.Throttle.Drop = d.Throttle.Drop
	s.Throttle.MaxBuffer = d.Throttle.MaxBuffer
	s.Throttle.Freeze = d.Throttle.Freeze
	s.Reorder.Common = commonFromDoc(d.Reorder.commonDoc)
	s.Reorder.MaxDelayMs = d.Reorder.MaxDelayMs
	s.Tamper.Common = commonFromDoc(d.Tamper.commonDoc)
	s.Tamper.Amount = d.Tamper.AmountPct / 100
	s.Tamper.RecalculateChecksums = d.Tamper.RecalculateChecksums
	s.Duplicate.Common = commonFromDoc(d.Duplicate.commonDoc)
	s.Duplicate.Count = d.Duplicate.Count
	s.Bandwidth.Common = commonFromDoc(d.Bandwidth.commonDoc)
	s.Bandwidth.LimitKbps = d.Bandwidth.LimitKbps
	s.Bandwidth.PassthroughThreshold = d.Bandwidth.PassthroughThreshold
	s.Bandwidth.UseWFP = d.Bandwidth.UseWFP
	s.Burst.Common = commonFromDoc(d.Burst.commonDoc)
	s.Burst.BufferMs = d.Burst.BufferMs
	s.Burst.ReplaySpeed = d.Burst.ReplaySpeed
	s.Burst.ReverseReplay = d.Burst.ReverseReplay
	s.LagBypass = d.LagBypass
	return s
}

// Save writes cfg to name's profile file, overwriting any existing file.
func (s *Store) Save(name string, cfg settings.Settings) error {
	doc := toDoc(cfg)
	out, err := yaml.Marshal(doc)
	if err != nil {
		return neterr.IO(fmt.Errorf("encode config %q: %w", name, err))
	}
	if err := os.WriteFile(s.profilePath(name), out, 0o600); err != nil {
		return neterr.IO(fmt.Errorf("save config %q: %w", name, err))
	}
	return nil
}

// Load reads name's profile file. Unknown keys in the file are ignored;
// fields missing from the file keep their Go zero values.
func (s *Store) Load(name string) (settings.Settings, error) {
	v := viper.New()
	v.SetConfigFile(s.profilePath(name))
	if err := v.ReadInConfig(); err != nil {
		return settings.Settings{}, neterr.IO(fmt.Errorf("load config %q: %w", name, err))
	}

	var doc profileDoc
	if err := v.Unmarshal(&doc); err != nil {
		return settings.Settings{}, neterr.IO(fmt.Errorf("parse config %q: %w", name, err))
	}
	return fromDoc(doc), nil
}

// List returns the names of all saved profiles.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, neterr.IO(fmt.Errorf("list configs: %w", err))
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == historyFileName {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext == ".yaml" || ext == ".yml" {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	return names, nil
}

// Delete removes name's profile file.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.profilePath(name)); err != nil && !os.IsNotExist(err) {
		return neterr.IO(fmt.Errorf("delete config %q: %w", name, err))
	}
	return nil
}
