// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

func LoadRegistry(path string) (*InstrumentRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg InstrumentRegistry
	err = json.Unmarshal(data, &reg)
	return &reg, err
}

// SaveRegistry writes the registry back to disk.
func SaveRegistry(path string, reg *InstrumentRegistry) error {
	reg.LastUpdated = time.Now().UTC().Format("2006-01-02")
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Lookup returns the instrument matching id case-insensitively.
func (r *InstrumentRegistry) Lookup(id string) (*Instrument, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	for i := range r.Instruments {
		if strings.ToLower(r.Instruments[i].ID) == id {
			return &r.Instruments[i], true
		}
	}
	return nil, false
}

// IDs returns every registered instrument identifier.
func (r *InstrumentRegistry) IDs() []string {
	out := make([]string, len(r.Instruments))
	for i, inst := range r.Instruments {
		out[i] = inst.ID
	}
	return out
}

// OperationalStart parses the instrument's operational start date.
func (i *Instrument) OperationalStartDate() (time.Time, error) {
	t, err := time.Parse("20060102", i.OperationalStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("instrument %s has invalid operationalStart %q: %w", i.ID, i.OperationalStart, err)
	}
	return t, nil
}
