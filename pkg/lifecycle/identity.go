package lifecycle

import (
	"errors"
	"fmt"
	"strings"
)

// Identity names one lifecycle-tracked component instance.
type Identity struct {
	Tenant string
	Kind   string
	ID     string
}

// Key returns the stable map key tenant/kind/id.
func (i Identity) Key() string {
	return i.Tenant + "/" + i.Kind + "/" + i.ID
}

// String implements fmt.Stringer.
func (i Identity) String() string {
	return i.Key()
}

// Validate checks that every part is set and free of the key separator.
func (i Identity) Validate() error {
	parts := []struct{ name, value string }{
		{"tenant", i.Tenant},
		{"kind", i.Kind},
		{"id", i.ID},
	}
	for _, p := range parts {
		if p.value == "" {
			return fmt.Errorf("lifecycle: identity %s is empty", p.name)
		}
		if strings.Contains(p.value, "/") {
			return fmt.Errorf("lifecycle: identity %s %q contains '/'", p.name, p.value)
		}
	}
	return nil
}

// ParseIdentity parses a tenant/kind/id key.
func ParseIdentity(key string) (Identity, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return Identity{}, errors.New("lifecycle: identity must be tenant/kind/id")
	}
	id := Identity{Tenant: parts[0], Kind: parts[1], ID: parts[2]}
	return id, id.Validate()
}
