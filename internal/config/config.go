// Package config loads the routing table from disk. The file is JSON: an
// ordered list of rules, each naming a source device spec, a channel and a
// destination device spec.
//
//	{"rules": [
//	  {"source": {"name": "lpk25"}, "channel": 0,
//	   "destination": {"name": "model d"}},
//	  {"source": {"name": "Arturia BeatStep Pro MIDI 1", "exact": true},
//	   "channel": 1, "destination": {"name": "model d"}}
//	]}
//
// Channel 0 routes every channel; 1-16 routes exactly one. A spec with
// "exact": true must equal the full port name case-sensitively; otherwise it
// is a case-insensitive substring match.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/midipatch/midipatch/internal/domain/wiring"
)

// File is the on-disk routing table.
type File struct {
	Rules []RuleConfig `json:"rules"`
}

// RuleConfig is one routing rule as written by the user.
type RuleConfig struct {
	Source      SpecConfig `json:"source"`
	Channel     int        `json:"channel"` // 0 = any, 1-16 = exact channel
	Destination SpecConfig `json:"destination"`
}

// SpecConfig selects a device by name.
type SpecConfig struct {
	Name  string `json:"name"`
	Exact bool   `json:"exact,omitempty"`
}

// Load reads and parses the routing table at path.
func Load(path string) (wiring.Wiring, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routing table: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a routing table document.
func Parse(data []byte) (wiring.Wiring, error) {
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("invalid routing table: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("routing table has no rules")
	}

	w := make(wiring.Wiring, 0, len(file.Rules))
	for i, rule := range file.Rules {
		source, err := rule.Source.spec()
		if err != nil {
			return nil, fmt.Errorf("rule %d: source: %w", i, err)
		}
		destination, err := rule.Destination.spec()
		if err != nil {
			return nil, fmt.Errorf("rule %d: destination: %w", i, err)
		}
		channel, err := channelSpec(rule.Channel)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		w = append(w, wiring.Rule{Source: source, Channel: channel, Destination: destination})
	}
	return w, nil
}

func (s SpecConfig) spec() (wiring.DeviceNameSpec, error) {
	if s.Name == "" {
		return nil, fmt.Errorf("device name must not be empty")
	}
	if s.Exact {
		return wiring.Exact(s.Name), nil
	}
	return wiring.Substring(s.Name), nil
}

func channelSpec(n int) (wiring.ChannelSpec, error) {
	if n == 0 {
		return wiring.AnyChannel, nil
	}
	if n < 1 || n > 16 {
		return nil, fmt.Errorf("channel %d out of range (0 = any, 1-16)", n)
	}
	return wiring.Channel(n), nil
}
