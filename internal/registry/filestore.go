package registry

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"campusgate/internal/plate"
)

// FileStore answers lookups from a plate list loaded once at startup.
// Every listed plate is authorized; the file format has no room for
// owners or blocks. The map is never written after load, so lookups
// need no locking.
type FileStore struct {
	plates map[string]struct{}
}

// LoadFile reads a newline-delimited list of authorized plates. Lines
// are canonicalized; blank lines are skipped.
func LoadFile(path string) (*FileStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open registry file: %w", err)
	}
	defer f.Close()

	plates := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		p := plate.Normalize(sc.Text())
		if p == "" {
			continue
		}
		plates[p] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	return &FileStore{plates: plates}, nil
}

// Lookup reports whether the plate appears in the list. Hits carry no
// owner information, so the owner reads "N/A".
func (s *FileStore) Lookup(_ context.Context, rawPlate string) (Vehicle, bool, error) {
	p := plate.Normalize(rawPlate)
	if _, ok := s.plates[p]; !ok {
		return Vehicle{}, false, nil
	}
	return Vehicle{Plate: p, Owner: "N/A", Authorized: true}, true, nil
}

// Len reports how many plates were loaded, for startup logging.
func (s *FileStore) Len() int { return len(s.plates) }
