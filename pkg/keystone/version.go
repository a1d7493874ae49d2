package keystone

import (
	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/log"
	"github.com/bft-labs/keystone/pkg/schema"
	"github.com/bft-labs/keystone/pkg/state"
)

// Version information for the keystone facade.
const (
	// Version is the current version of the keystone module.
	Version = "1.0.0"

	// MinCompatibleVersion is the minimum version that is compatible with this version.
	MinCompatibleVersion = "1.0.0"
)

// ModuleVersions returns the versions of all sub-modules.
func ModuleVersions() map[string]string {
	return map[string]string{
		"keystone":  Version,
		"lifecycle": lifecycle.Version,
		"schema":    schema.Version,
		"state":     state.Version,
		"log":       log.Version,
	}
}

// CompatibilityMatrix returns the minimum compatible version of each sub-module.
func CompatibilityMatrix() map[string]string {
	return map[string]string{
		"keystone":  MinCompatibleVersion,
		"lifecycle": lifecycle.MinCompatibleVersion,
		"schema":    schema.MinCompatibleVersion,
		"state":     state.MinCompatibleVersion,
		"log":       log.MinCompatibleVersion,
	}
}
