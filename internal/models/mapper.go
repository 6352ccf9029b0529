// Package models implements the bidirectional lookup between external model
// identifiers (the OpenAI-style names clients send) and the internal model
// identifiers understood by the agent engine. The table is built once at
// startup and is read-only afterward, so concurrent lookups need no locking.
package models

import (
	"errors"
	"fmt"
)

// ErrUnknownModel is returned when an id is absent from the table, in
// either direction.
var ErrUnknownModel = errors.New("unknown model")

// listedCreated is the fixed creation timestamp reported for every model
// in the listing payload. The table is static configuration, so the value
// carries no real meaning beyond being stable.
const listedCreated int64 = 1704067200

const listedOwner = "howl"

// Mapping is one external↔internal id pair.
type Mapping struct {
	External string `yaml:"external"`
	Internal string `yaml:"internal"`
}

// ModelInfo is one entry of the external model-listing payload.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// Mapper is an immutable bijection between external and internal model ids.
type Mapper struct {
	toInternal map[string]string
	toExternal map[string]string
	list       []ModelInfo
}

// NewMapper builds a mapper from the configured pairs. The pairs must form
// a bijection: duplicate external or internal ids are rejected, as are
// empty ids.
func NewMapper(mappings []Mapping) (*Mapper, error) {
	if len(mappings) == 0 {
		return nil, errors.New("at least one model mapping is required")
	}

	m := &Mapper{
		toInternal: make(map[string]string, len(mappings)),
		toExternal: make(map[string]string, len(mappings)),
		list:       make([]ModelInfo, 0, len(mappings)),
	}

	for _, mapping := range mappings {
		if mapping.External == "" || mapping.Internal == "" {
			return nil, fmt.Errorf("model mapping %q=%q has an empty id", mapping.External, mapping.Internal)
		}
		if _, exists := m.toInternal[mapping.External]; exists {
			return nil, fmt.Errorf("duplicate external model id %q", mapping.External)
		}
		if _, exists := m.toExternal[mapping.Internal]; exists {
			return nil, fmt.Errorf("duplicate internal model id %q", mapping.Internal)
		}

		m.toInternal[mapping.External] = mapping.Internal
		m.toExternal[mapping.Internal] = mapping.External
		m.list = append(m.list, ModelInfo{
			ID:      mapping.External,
			Object:  "model",
			Created: listedCreated,
			OwnedBy: listedOwner,
		})
	}

	return m, nil
}

// ToInternal resolves an external model id to the internal id.
func (m *Mapper) ToInternal(externalID string) (string, error) {
	internal, exists := m.toInternal[externalID]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, externalID)
	}
	return internal, nil
}

// ToExternal resolves an internal model id back to the external id.
func (m *Mapper) ToExternal(internalID string) (string, error) {
	external, exists := m.toExternal[internalID]
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, internalID)
	}
	return external, nil
}

// List returns the model-listing entries in configuration order. The
// returned slice is a copy; callers may not mutate the table through it.
func (m *Mapper) List() []ModelInfo {
	list := make([]ModelInfo, len(m.list))
	copy(list, m.list)
	return list
}

// Lookup returns the listing entry for one external model id.
func (m *Mapper) Lookup(externalID string) (ModelInfo, error) {
	for _, info := range m.list {
		if info.ID == externalID {
			return info, nil
		}
	}
	return ModelInfo{}, fmt.Errorf("%w: %s", ErrUnknownModel, externalID)
}
