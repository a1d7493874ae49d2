package componentwatch

import (
	"bytes"
	"fmt"

	"github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/keystone/pkg/lifecycle"
)

// Descriptor is the content of one component file.
//
//	tenant = "acme"
//	kind = "ingester"
//	id = "ingester-1"
//	enabled = true
//
//	[settings]
//	batch_size = 500
type Descriptor struct {
	Tenant   string         `toml:"tenant"`
	Kind     string         `toml:"kind"`
	ID       string         `toml:"id"`
	Enabled  *bool          `toml:"enabled"`
	Settings map[string]any `toml:"settings"`
}

// Identity returns the lifecycle identity the descriptor names.
func (d Descriptor) Identity() lifecycle.Identity {
	return lifecycle.Identity{Tenant: d.Tenant, Kind: d.Kind, ID: d.ID}
}

// IsEnabled reports whether the component should be active. Components are
// enabled unless the descriptor says otherwise.
func (d Descriptor) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

// ParseDescriptor decodes and validates a descriptor. Unknown keys outside
// the settings table are rejected.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&d); err != nil {
		return Descriptor{}, fmt.Errorf("decode descriptor: %w", err)
	}
	if err := d.Identity().Validate(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}
