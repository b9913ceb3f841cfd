// Package session keeps the signed-in user between CLI invocations.
// Authentication is a local stand-in: any non-empty credentials succeed
// and every user is mapped to the demo account the backend knows about.
package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
)

// DemoUserID is the account every mock login resolves to.
const DemoUserID = "2caf16d3-740d-47d9-b8ce-a96d07ec3387"

var (
	ErrMissingCredentials = errors.New("email and password are required")
	ErrMissingName        = errors.New("name is required")
	ErrInvalidRole        = errors.New("invalid role")
)

// Role is the kind of participant.
type Role string

const (
	RoleStudent    Role = "Student"
	RoleCitizen    Role = "Citizen"
	RoleNGO        Role = "NGO"
	RoleGovernment Role = "Government"
	RoleOther      Role = "Other"
)

// Roles lists every accepted role.
func Roles() []Role {
	return []Role{RoleStudent, RoleCitizen, RoleNGO, RoleGovernment, RoleOther}
}

// ParseRole matches a role name ignoring case.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// User is the persisted profile.
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             Role      `json:"role"`
	ReportsSubmitted int       `json:"reportsSubmitted"`
	CleanUpsJoined   int       `json:"cleanUpsJoined"`
	NFTsAdopted      int       `json:"nftsAdopted"`
}

// Login signs in with any non-empty credentials. The display name is the
// local part of the email and activity counters are demo values.
func Login(email, password string, role Role) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	name, _, _ := strings.Cut(email, "@")

	return &User{
		ID:               uuid.MustParse(DemoUserID),
		Email:            email,
		Name:             name,
		Role:             role,
		ReportsSubmitted: rand.IntN(10),
		CleanUpsJoined:   rand.IntN(5),
		NFTsAdopted:      rand.IntN(3),
	}, nil
}

// Signup creates a fresh profile with zeroed counters.
func Signup(email, password, name string, role Role) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrMissingName
	}

	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}

	return &User{
		ID:    uuid.MustParse(DemoUserID),
		Email: email,
		Name:  name,
		Role:  role,
	}, nil
}
