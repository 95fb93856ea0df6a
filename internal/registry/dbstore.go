package registry

import (
	"context"

	"campusgate/internal/db"
)

// DBStore answers lookups from the vehicles table, which the admin
// tool maintains. It sees live data, so a block applied mid-shift
// takes effect on the next scan.
type DBStore struct {
	db *db.DB
}

func NewDBStore(d *db.DB) *DBStore {
	return &DBStore{db: d}
}

func (s *DBStore) Lookup(ctx context.Context, rawPlate string) (Vehicle, bool, error) {
	v, ok, err := s.db.GetVehicle(ctx, rawPlate)
	if err != nil || !ok {
		return Vehicle{}, false, err
	}
	return Vehicle{Plate: v.Plate, Owner: v.Owner, Authorized: v.Authorized}, true, nil
}
