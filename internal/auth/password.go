// Package auth provides password hashing and session token
// primitives. Credentials are stored only as salted Argon2id digests.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

var errInvalidHash = errors.New("invalid password hash")

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLen:     16,
		KeyLen:      32,
	}
}

// NoMatchHash is a syntactically valid digest whose key bytes are a
// fixed filler value, so no password verifies against it. Login checks
// it when the username is unknown so response timing does not reveal
// whether an account exists.
const NoMatchHash = "argon2id$v=19$m=65536,t=3,p=4$c2FsdHNhbHRzYWx0c2FsdA$aGFzaGhhc2hoYXNoaGFzaGhhc2hoYXNoaGFzaGhhc2g"

// HashPassword returns a PHC-style Argon2id string:
// argon2id$v=19$m=65536,t=3,p=4$<salt_b64>$<hash_b64>
func HashPassword(password string, p Argon2Params) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLen)
	enc := base64.RawStdEncoding
	return fmt.Sprintf(
		"argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		enc.EncodeToString(salt),
		enc.EncodeToString(key),
	), nil
}

// VerifyPassword reports whether password matches the encoded digest.
// The comparison is constant time in the digest length.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}
	p, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}
	got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func parseHash(s string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(s, "$")
	if len(parts) != 5 || parts[0] != "argon2id" {
		return Argon2Params{}, nil, nil, errInvalidHash
	}

	ver, ok := strings.CutPrefix(parts[1], "v=")
	if !ok {
		return Argon2Params{}, nil, nil, errInvalidHash
	}
	if v, err := strconv.Atoi(ver); err != nil || v != argon2.Version {
		return Argon2Params{}, nil, nil, errors.New("unsupported argon2 version")
	}

	p, err := parseParams(parts[2])
	if err != nil {
		return Argon2Params{}, nil, nil, err
	}

	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[3])
	if err != nil {
		return Argon2Params{}, nil, nil, errInvalidHash
	}
	key, err := enc.DecodeString(parts[4])
	if err != nil || len(key) < 16 {
		return Argon2Params{}, nil, nil, errInvalidHash
	}
	return p, salt, key, nil
}

func parseParams(s string) (Argon2Params, error) {
	var p Argon2Params
	for _, kv := range strings.Split(s, ",") {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			return Argon2Params{}, errInvalidHash
		}
		switch name {
		case "m":
			v, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return Argon2Params{}, errInvalidHash
			}
			p.Memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(val, 10, 32)
			if err != nil {
				return Argon2Params{}, errInvalidHash
			}
			p.Iterations = uint32(v)
		case "p":
			v, err := strconv.ParseUint(val, 10, 8)
			if err != nil {
				return Argon2Params{}, errInvalidHash
			}
			p.Parallelism = uint8(v)
		default:
			return Argon2Params{}, errInvalidHash
		}
	}
	if p.Memory == 0 || p.Iterations == 0 || p.Parallelism == 0 {
		return Argon2Params{}, errInvalidHash
	}
	return p, nil
}
