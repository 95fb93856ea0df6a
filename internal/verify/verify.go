// Package verify turns a scanned plate into an authorization verdict.
// The verdict is three-way: authorized, known but blocked, or not in
// the registry at all. The last two share the error alert and differ
// only in the reported owner.
package verify

import (
	"context"
	"fmt"

	"campusgate/internal/plate"
	"campusgate/internal/registry"
)

// Alert levels the dashboard understands.
const (
	AlertSuccess = "success"
	AlertError   = "error"
	AlertWarning = "warning"
)

// Details carries the owner shown next to a verdict.
type Details struct {
	Owner string `json:"owner"`
}

// Result is the wire form of a verification verdict. Plate and
// Details are absent when the input was blank and no lookup ran.
type Result struct {
	Authorized bool     `json:"is_authorized"`
	Plate      string   `json:"plate,omitempty"`
	Details    *Details `json:"details,omitempty"`
	Message    string   `json:"message"`
	Alert      string   `json:"alert_type"`
}

// Service evaluates plates against a registry store.
type Service struct {
	store           registry.Store
	explicitUnknown bool
}

// New builds the service. explicitUnknown selects the gated-mode
// wording for plates the registry does not know: owner UNKNOWN and an
// UNAUTHORIZED/UNKNOWN message. Open deployments keep the plain
// unauthorized line with owner N/A, since their plate list never
// claims to know every vehicle on campus.
func New(store registry.Store, explicitUnknown bool) *Service {
	return &Service{store: store, explicitUnknown: explicitUnknown}
}

// Verify canonicalizes rawPlate and checks it against the registry.
// Blank input never reaches the store; it yields a warning verdict the
// caller should treat as a bad request. Store failures are returned as
// errors, never disguised as a verdict.
func (s *Service) Verify(ctx context.Context, rawPlate string) (Result, error) {
	p := plate.Normalize(rawPlate)
	if p == "" {
		return Result{
			Authorized: false,
			Message:    "Error: No license plate detected.",
			Alert:      AlertWarning,
		}, nil
	}

	v, ok, err := s.store.Lookup(ctx, p)
	if err != nil {
		return Result{}, fmt.Errorf("registry lookup for %s: %w", p, err)
	}
	switch {
	case ok && v.Authorized:
		return Result{
			Authorized: true,
			Plate:      p,
			Details:    &Details{Owner: v.Owner},
			Message:    fmt.Sprintf("SUCCESS! Vehicle %s is authorized.", p),
			Alert:      AlertSuccess,
		}, nil
	case ok:
		return Result{
			Authorized: false,
			Plate:      p,
			Details:    &Details{Owner: v.Owner},
			Message:    fmt.Sprintf("ALERT! Vehicle %s is UNAUTHORIZED.", p),
			Alert:      AlertError,
		}, nil
	case s.explicitUnknown:
		return Result{
			Authorized: false,
			Plate:      p,
			Details:    &Details{Owner: "UNKNOWN"},
			Message:    fmt.Sprintf("ALERT! Vehicle %s is UNAUTHORIZED/UNKNOWN.", p),
			Alert:      AlertError,
		}, nil
	default:
		return Result{
			Authorized: false,
			Plate:      p,
			Details:    &Details{Owner: "N/A"},
			Message:    fmt.Sprintf("ALERT! Vehicle %s is UNAUTHORIZED.", p),
			Alert:      AlertError,
		}, nil
	}
}
