// Package resources holds the schema manifest and scripts built into the
// keystone binary.
package resources

import "embed"

// FS contains manifest.yaml and the scripts it references.
//
//go:embed manifest.yaml timeseries relational
var FS embed.FS
