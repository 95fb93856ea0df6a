package db

import (
	"context"
	"fmt"

	"campusgate/internal/auth"
)

type demoUser struct {
	username string
	password string
	fullName string
	role     string
}

var demoVehicles = []Vehicle{
	{Plate: "MH12AB1234", Owner: "Aarav Mehta", Authorized: true},
	{Plate: "DL8CAF4921", Owner: "Isha Kapoor", Authorized: true},
	{Plate: "KA03MN7788", Owner: "Rohan Iyer", Authorized: false},
	{Plate: "GJ01XY9900", Owner: "Priya Shah", Authorized: true},
	{Plate: "UP16ZZ4321", Owner: "Vikram Singh", Authorized: false},
}

var demoUsers = []demoUser{
	{"student1", "pass123", "Rahul Sharma", "student"},
	{"student2", "pass123", "Priya Patel", "student"},
	{"faculty1", "pass123", "Dr. Amit Kumar", "faculty"},
}

// Seed loads the sample campus data set used for demos and local
// development: five registry entries and three non-admin operator
// accounts. Inserts are INSERT OR IGNORE so re-running setup never
// clobbers edits made through the admin tool. Demo passwords are
// hashed like any other credential.
func (d *DB) Seed(ctx context.Context) error {
	for _, v := range demoVehicles {
		_, err := d.sql.ExecContext(ctx, `
INSERT OR IGNORE INTO vehicles(plate, owner, is_authorized) VALUES(?, ?, ?)
`, v.Plate, v.Owner, boolToInt(v.Authorized))
		if err != nil {
			return fmt.Errorf("seed vehicle %s: %w", v.Plate, err)
		}
	}
	for _, u := range demoUsers {
		hash, err := auth.HashPassword(u.password, auth.DefaultArgon2Params())
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
		_, err = d.sql.ExecContext(ctx, `
INSERT OR IGNORE INTO users(username, password_hash, full_name, role, created_at)
VALUES(?, ?, ?, ?, ?)
`, u.username, hash, u.fullName, u.role, nowUnix())
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}
	return nil
}
