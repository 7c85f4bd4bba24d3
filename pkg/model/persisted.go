package model

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Persisted is the durable subset of a FormState. Errors and history are
// session scoped and never part of it.
type Persisted struct {
	Values     map[string]any  `json:"values" yaml:"values"`
	Visibility map[string]bool `json:"visibility" yaml:"visibility"`
	Enabled    map[string]bool `json:"enabled" yaml:"enabled"`
}

// Persisted exports the durable subset of the state.
func (s *FormState) Persisted() Persisted {
	return Persisted{
		Values:     s.Values(),
		Visibility: s.Visibility(),
		Enabled:    s.Enabled(),
	}
}

// Restore rebuilds a state for fields from a persisted payload. Declared
// fields missing from the payload fall back to their declaration defaults;
// persisted keys for undeclared fields are dropped.
func Restore(fields []FieldDefinition, p Persisted) *FormState {
	state := NewState(fields)
	declared := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		declared[field.ID] = struct{}{}
	}
	for id, value := range p.Values {
		if _, ok := declared[id]; ok {
			state.values[id] = deepCopy(value)
		}
	}
	for id, visible := range p.Visibility {
		if _, ok := declared[id]; ok {
			state.visibility[id] = visible
		}
	}
	for id, enabled := range p.Enabled {
		if _, ok := declared[id]; ok {
			state.enabled[id] = enabled
		}
	}
	return state
}

// MarshalPersisted encodes p as JSON.
func MarshalPersisted(p Persisted) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("model: encode persisted state: %w", err)
	}
	return data, nil
}

// UnmarshalPersisted decodes a JSON or YAML payload produced by
// MarshalPersisted or MarshalPersistedYAML.
func UnmarshalPersisted(data []byte) (Persisted, error) {
	var p Persisted
	if err := json.Unmarshal(data, &p); err == nil {
		return p, nil
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persisted{}, fmt.Errorf("model: decode persisted state: invalid JSON or YAML")
	}
	return p, nil
}

// MarshalPersistedYAML encodes p as YAML for human edited fixtures.
func MarshalPersistedYAML(p Persisted) ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("model: encode persisted state: %w", err)
	}
	return data, nil
}
