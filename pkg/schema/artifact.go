package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// StoreKind names the kind of data store an artifact targets.
type StoreKind string

const (
	StoreTimeseries StoreKind = "timeseries"
	StoreRelational StoreKind = "relational"
)

// StoreKinds lists the supported store kinds.
var StoreKinds = []StoreKind{StoreTimeseries, StoreRelational}

// Valid reports whether k is a supported store kind.
func (k StoreKind) Valid() bool {
	for _, known := range StoreKinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k StoreKind) String() string {
	return string(k)
}

// ParseStoreKind parses a store kind name.
func ParseStoreKind(s string) (StoreKind, error) {
	k := StoreKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("schema: unknown store kind %q", s)
	}
	return k, nil
}

// ArtifactRef is a manifest entry: where an artifact lives and what it
// needs before it.
type ArtifactRef struct {
	Name      string
	Store     StoreKind
	Version   int
	File      string
	DependsOn []string
}

// Artifact is a loaded, immutable schema unit.
type Artifact struct {
	Name       string
	Store      StoreKind
	Version    int
	DependsOn  []string
	Statements []string
	Checksum   string
}

// Checksum returns the hex SHA-256 of the normalized statements joined by
// ";\n".
func Checksum(statements []string) string {
	sum := sha256.Sum256([]byte(strings.Join(statements, ";\n")))
	return hex.EncodeToString(sum[:])
}
