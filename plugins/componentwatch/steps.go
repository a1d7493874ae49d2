package componentwatch

import "github.com/bft-labs/keystone/pkg/lifecycle"

// steps returns the transitions that bring a component from current to the
// state its descriptor asks for. known is false when the registry has never
// seen the component; changed reports that the descriptor content differs
// from the last applied one.
func steps(current lifecycle.Status, known, enabled, changed bool) []lifecycle.Status {
	if !known {
		if enabled {
			return []lifecycle.Status{lifecycle.Created, lifecycle.Started, lifecycle.Activated}
		}
		return []lifecycle.Status{lifecycle.Created}
	}

	if !enabled {
		if current == lifecycle.Activated {
			return []lifecycle.Status{lifecycle.Deactivated}
		}
		return nil
	}

	switch current {
	case lifecycle.Activated:
		if changed {
			return []lifecycle.Status{lifecycle.Updated, lifecycle.Activated}
		}
		return nil
	case lifecycle.Started, lifecycle.Suspended, lifecycle.Updated:
		return []lifecycle.Status{lifecycle.Activated}
	case lifecycle.Created, lifecycle.Deactivated, lifecycle.Stopped, lifecycle.Failed:
		return []lifecycle.Status{lifecycle.Started, lifecycle.Activated}
	default:
		return nil
	}
}
