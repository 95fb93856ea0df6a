// Package registry resolves license plates to campus authorization
// records. Two stores exist: the database-backed one used by gated
// deployments and the flat-file list used by open kiosks. Neither can
// be mutated through the portal itself.
package registry

import "context"

// Vehicle is one authorization record as seen by the verification
// layer. Plate is always canonical.
type Vehicle struct {
	Plate      string
	Owner      string
	Authorized bool
}

// Store looks up a single plate. Implementations canonicalize the
// input themselves so callers can pass operator input directly. The
// boolean reports whether the plate is known at all; unknown plates
// are not an error.
type Store interface {
	Lookup(ctx context.Context, rawPlate string) (Vehicle, bool, error)
}
