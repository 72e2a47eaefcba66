// pkg/registry/schema.go
package registry

// InstrumentRegistry is the mission's instrument catalog: the allow-list
// for request validation plus the operational boundaries used to resolve
// open-ended date ranges.
type InstrumentRegistry struct {
	Version     string       `json:"version"`
	Mission     string       `json:"mission"`
	LastUpdated string       `json:"lastUpdated"`
	Instruments []Instrument `json:"instruments"`
}

type Instrument struct {
	ID               string   `json:"id"`
	DisplayName      string   `json:"displayName"`
	Description      string   `json:"description"`
	OperationalStart string   `json:"operationalStart"` // YYYYMMDD
	Levels           []string `json:"levels"`
	Active           bool     `json:"active"`
}
