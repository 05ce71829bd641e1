package types

import "fmt"

// PrincipalKind is the closed set of authenticated actors.
type PrincipalKind int

const (
	KindCustomer PrincipalKind = iota + 1
	KindWorker
	KindAdmin
)

func (k PrincipalKind) String() string {
	switch k {
	case KindCustomer:
		return "customer"
	case KindWorker:
		return "worker"
	case KindAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// ParsePrincipalKind is the inverse of String.
func ParsePrincipalKind(s string) (PrincipalKind, error) {
	switch s {
	case "customer":
		return KindCustomer, nil
	case "worker":
		return KindWorker, nil
	case "admin":
		return KindAdmin, nil
	default:
		return 0, fmt.Errorf("unknown principal kind %q", s)
	}
}

// Principal is an authenticated actor.
type Principal struct {
	ID    string        `json:"id"`
	Kind  PrincipalKind `json:"-"`
	Name  string        `json:"name"`
	Email string        `json:"email"`
}

func (p Principal) IsAdmin() bool    { return p.Kind == KindAdmin }
func (p Principal) IsWorker() bool   { return p.Kind == KindWorker }
func (p Principal) IsCustomer() bool { return p.Kind == KindCustomer }

// Key identifies the principal across both id spaces.
func (p Principal) Key() string { return p.Kind.String() + ":" + p.ID }
