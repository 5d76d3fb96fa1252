package canbus

import (
	"embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles/*.yaml
var profileFS embed.FS

// GenericProfileName is the fallback profile for vehicles without a
// configured decode profile.
const GenericProfileName = "generic_unknown"

type RuleKind string

const (
	RuleKindUint     RuleKind = "uint"
	RuleKindInt      RuleKind = "int"
	RuleKindBit      RuleKind = "bit"
	RuleKindBool     RuleKind = "bool"
	RuleKindEnum     RuleKind = "enum"
	RuleKindBitfield RuleKind = "bitfield"
)

type MatchMode string

const (
	MatchModeCANID MatchMode = "can_id"
	MatchModePGN   MatchMode = "pgn"
)

// SignalRule describes how one named signal is located and decoded
// from a raw frame.
type SignalRule struct {
	Name string `yaml:"name"`

	Match MatchMode `yaml:"match"`
	CANID string    `yaml:"can_id,omitempty"`
	PGN   uint32    `yaml:"pgn,omitempty"`

	Kind RuleKind `yaml:"kind"`

	// StartByte/Length select a little-endian integer range (1-based,
	// uint and int kinds).
	StartByte int `yaml:"start_byte,omitempty"`
	Length    int `yaml:"length,omitempty"`

	// Byte/Bit select a single bit or enum byte (1-based byte).
	Byte int `yaml:"byte,omitempty"`
	Bit  int `yaml:"bit,omitempty"`

	// BitOffset/BitLength select an arbitrary bit-field, LSB first
	// across the little-endian payload.
	BitOffset int `yaml:"bit_offset,omitempty"`
	BitLength int `yaml:"bit_length,omitempty"`

	Scale  float64 `yaml:"scale,omitempty"`
	Offset float64 `yaml:"offset,omitempty"`

	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`

	// Enum maps the raw byte value (as a decimal string) to a label.
	Enum map[string]string `yaml:"enum,omitempty"`

	// HistoryThreshold is the minimum change before a new value is
	// appended to CAN history.
	HistoryThreshold float64 `yaml:"history_threshold,omitempty"`
}

// Profile is the ordered rule set for one vehicle model.
type Profile struct {
	Name    string       `yaml:"name"`
	Signals []SignalRule `yaml:"signals"`
}

// Registry holds all loaded profiles. Profile definitions are
// configuration: any malformed rule is a startup error, never a silent
// decode-time fallback.
type Registry struct {
	profiles map[string]*Profile
}

// LoadProfiles parses and validates every embedded profile.
func LoadProfiles() (*Registry, error) {
	entries, err := profileFS.ReadDir("profiles")
	if err != nil {
		return nil, err
	}

	registry := &Registry{profiles: map[string]*Profile{}}

	for _, entry := range entries {
		contents, err := profileFS.ReadFile("profiles/" + entry.Name())
		if err != nil {
			return nil, err
		}

		var profile Profile
		if err := yaml.Unmarshal(contents, &profile); err != nil {
			return nil, fmt.Errorf("profile %s: %w", entry.Name(), err)
		}

		if profile.Name == "" {
			profile.Name = strings.TrimSuffix(entry.Name(), ".yaml")
		}

		if err := validateProfile(&profile); err != nil {
			return nil, fmt.Errorf("profile %s: %w", profile.Name, err)
		}

		registry.profiles[profile.Name] = &profile
	}

	if _, ok := registry.profiles[GenericProfileName]; !ok {
		return nil, fmt.Errorf("missing fallback profile %q", GenericProfileName)
	}

	return registry, nil
}

// Get returns the named profile, falling back to the generic profile
// for unknown names.
func (r *Registry) Get(name string) *Profile {
	if profile, ok := r.profiles[name]; ok {
		return profile
	}
	return r.profiles[GenericProfileName]
}

func validateProfile(profile *Profile) error {
	for _, rule := range profile.Signals {
		if rule.Name == "" {
			return fmt.Errorf("rule without a name")
		}

		switch rule.Match {
		case MatchModeCANID:
			if len(rule.CANID) != 8 {
				return fmt.Errorf("signal %s: can_id must be 8 hex chars", rule.Name)
			}
		case MatchModePGN:
			if rule.PGN == 0 {
				return fmt.Errorf("signal %s: pgn match without a pgn", rule.Name)
			}
		default:
			return fmt.Errorf("signal %s: unknown match mode %q", rule.Name, rule.Match)
		}

		switch rule.Kind {
		case RuleKindUint, RuleKindInt:
			if rule.StartByte < 1 || rule.StartByte > 8 || rule.Length < 1 || rule.StartByte-1+rule.Length > 8 {
				return fmt.Errorf("signal %s: byte range out of frame", rule.Name)
			}
		case RuleKindBit, RuleKindBool:
			if rule.Byte < 1 || rule.Byte > 8 || rule.Bit < 0 || rule.Bit > 7 {
				return fmt.Errorf("signal %s: bit position out of frame", rule.Name)
			}
		case RuleKindEnum:
			if rule.Byte < 1 || rule.Byte > 8 || len(rule.Enum) == 0 {
				return fmt.Errorf("signal %s: enum rule needs a byte and a value map", rule.Name)
			}
		case RuleKindBitfield:
			if rule.BitLength < 1 || rule.BitOffset < 0 || rule.BitOffset+rule.BitLength > 64 {
				return fmt.Errorf("signal %s: bit-field out of frame", rule.Name)
			}
		default:
			return fmt.Errorf("signal %s: unknown rule kind %q", rule.Name, rule.Kind)
		}
	}

	return nil
}

// historyThreshold returns the minimum change a signal must move
// before a new history row is appended. Unknown signals and rules
// without a threshold record every change.
func (p *Profile) historyThreshold(name string) float64 {
	for i := range p.Signals {
		if p.Signals[i].Name == name {
			return p.Signals[i].HistoryThreshold
		}
	}
	return 0
}

// scale returns the rule scale with the implicit default of 1.
func (r *SignalRule) scale() float64 {
	if r.Scale == 0 {
		return 1
	}
	return r.Scale
}

// matches reports whether the rule applies to the frame.
func (r *SignalRule) matches(frame Frame) bool {
	switch r.Match {
	case MatchModeCANID:
		return strings.EqualFold(r.CANID, frame.ID)
	case MatchModePGN:
		return PGN(frame.ID) == r.PGN
	}
	return false
}
