package model

import "fmt"

// Role is the closed set of account roles. Every account holds exactly one,
// immutable after assignment.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleFleetAdmin Role = "FLEET_ADMIN"
	RoleUser       Role = "USER"
	RoleDevice     Role = "DEVICE"
)

// ParseRole validates a stored or claimed role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleFleetAdmin, RoleUser, RoleDevice:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }
