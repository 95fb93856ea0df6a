// Package db contains database query helpers for CampusGate.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"campusgate/internal/plate"
)

// nowUnix returns the current Unix timestamp in seconds.
func nowUnix() int64 { return time.Now().Unix() }

// GetVehicle looks up a registry entry. The plate is canonicalized
// before the query so every caller sees the same keyspace. The boolean
// indicates whether the plate is known at all.
func (d *DB) GetVehicle(ctx context.Context, rawPlate string) (*Vehicle, bool, error) {
	p := plate.Normalize(rawPlate)
	var v Vehicle
	var authorized int
	err := d.sql.QueryRowContext(ctx, `
SELECT plate, owner, is_authorized FROM vehicles WHERE plate = ?
`, p).Scan(&v.Plate, &v.Owner, &authorized)
	if err == nil {
		v.Authorized = authorized != 0
		return &v, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// UpsertVehicle inserts or replaces a registry entry under the
// canonical plate.
func (d *DB) UpsertVehicle(ctx context.Context, rawPlate, owner string, authorized bool) error {
	p := plate.Normalize(rawPlate)
	if p == "" {
		return errors.New("plate is required")
	}
	if owner == "" {
		return errors.New("owner is required")
	}
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO vehicles(plate, owner, is_authorized) VALUES(?, ?, ?)
ON CONFLICT(plate) DO UPDATE SET owner=excluded.owner, is_authorized=excluded.is_authorized
`, p, owner, boolToInt(authorized))
	return err
}

// SetVehicleAuthorized flips the authorization flag for a plate.
func (d *DB) SetVehicleAuthorized(ctx context.Context, rawPlate string, authorized bool) error {
	p := plate.Normalize(rawPlate)
	if p == "" {
		return errors.New("plate is required")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE vehicles SET is_authorized=? WHERE plate=?`, boolToInt(authorized), p)
	return err
}

// DeleteVehicle removes a registry entry.
func (d *DB) DeleteVehicle(ctx context.Context, rawPlate string) error {
	p := plate.Normalize(rawPlate)
	if p == "" {
		return errors.New("plate is required")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM vehicles WHERE plate=?`, p)
	return err
}

// ListVehicles returns the whole registry sorted by plate.
func (d *DB) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT plate, owner, is_authorized FROM vehicles ORDER BY plate ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Vehicle
	for rows.Next() {
		var v Vehicle
		var authorized int
		if err := rows.Scan(&v.Plate, &v.Owner, &authorized); err != nil {
			return nil, err
		}
		v.Authorized = authorized != 0
		out = append(out, v)
	}
	return out, rows.Err()
}

// CreateUser inserts a new operator account and returns its ID.
func (d *DB) CreateUser(ctx context.Context, username, passHash, fullName, role string) (int64, error) {
	if username == "" || passHash == "" || fullName == "" || role == "" {
		return 0, errors.New("username, password hash, full name, and role are required")
	}
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO users(username, password_hash, full_name, role, created_at)
VALUES(?, ?, ?, ?, ?)
`, username, passHash, fullName, role, nowUnix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetUserByUsername looks up an operator account by username.
func (d *DB) GetUserByUsername(ctx context.Context, username string) (*User, bool, error) {
	var u User
	err := d.sql.QueryRowContext(ctx, `
SELECT id, username, password_hash, full_name, role, created_at
FROM users WHERE username=?
`, username).Scan(&u.ID, &u.Username, &u.PassHash, &u.FullName, &u.Role, &u.CreatedAt)
	if err == nil {
		return &u, true, nil
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	return nil, false, err
}

// ListUsers returns all operator accounts sorted by username.
func (d *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT id, username, password_hash, full_name, role, created_at
FROM users ORDER BY username ASC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.PassHash, &u.FullName, &u.Role, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// SetUserPasswordHash updates an account's password hash.
func (d *DB) SetUserPasswordHash(ctx context.Context, id int64, passHash string) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	if passHash == "" {
		return errors.New("password hash is required")
	}
	_, err := d.sql.ExecContext(ctx, `UPDATE users SET password_hash=? WHERE id=?`, passHash, id)
	return err
}

// DeleteUser removes an operator account by ID.
func (d *DB) DeleteUser(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.New("invalid user id")
	}
	_, err := d.sql.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	return err
}

// AddUpload appends one audit record. The plate is recorded exactly as
// submitted; the record never changes afterwards. Returns the new row
// ID so callers can confirm the append happened.
func (d *DB) AddUpload(ctx context.Context, filename, uploadTime, rawPlate string, authorized bool) (int64, error) {
	if filename == "" {
		return 0, errors.New("filename is required")
	}
	if uploadTime == "" {
		return 0, errors.New("upload time is required")
	}
	res, err := d.sql.ExecContext(ctx, `
INSERT INTO uploads(filename, upload_time, plate, is_authorized)
VALUES(?, ?, ?, ?)
`, filename, uploadTime, rawPlate, boolToInt(authorized))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListUploads returns the audit log newest first. Records with the
// same timestamp fall back to insertion order, newest first.
func (d *DB) ListUploads(ctx context.Context) ([]Upload, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT id, filename, upload_time, COALESCE(plate, ''), is_authorized
FROM uploads ORDER BY upload_time DESC, id DESC
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		var u Upload
		var authorized int
		if err := rows.Scan(&u.ID, &u.Filename, &u.UploadTime, &u.Plate, &authorized); err != nil {
			return nil, err
		}
		u.Authorized = authorized != 0
		out = append(out, u)
	}
	return out, rows.Err()
}

// boolToInt maps booleans to SQLite-friendly integer flags.
func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
