// Package db defines persistence models for CampusGate.
package db

// Vehicle is one entry of the campus authorization registry. Plate is
// always stored in canonical form.
type Vehicle struct {
	Plate      string
	Owner      string
	Authorized bool
}

// User represents an operator account for the gated deployment.
type User struct {
	ID        int64
	Username  string
	PassHash  string
	FullName  string
	Role      string
	CreatedAt int64
}

// Upload is one append-only audit record of an evidence photo. Plate
// is kept exactly as the operator submitted it; UploadTime is RFC 3339
// in UTC.
type Upload struct {
	ID         int64
	Filename   string
	UploadTime string
	Plate      string
	Authorized bool
}
