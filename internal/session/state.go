package session

import (
	"slices"

	"github.com/rogerio-castellano/cellar-console/internal/models"
)

// State is one of Anonymous, Authenticated or Expired.
type State interface {
	isState()
}

// Anonymous has no stored credentials.
type Anonymous struct{}

// Authenticated holds credentials that the backend accepted on the last validation.
type Authenticated struct {
	Username string
	Roles    []string
}

// Expired means the backend rejected stored credentials with a 401 and they were cleared.
type Expired struct{}

func (Anonymous) isState()     {}
func (Authenticated) isState() {}
func (Expired) isState()       {}

func (a Authenticated) IsAdmin() bool {
	return slices.Contains(a.Roles, models.RoleAdmin)
}

// LogIn is the transition taken after a successful credential validation, from any state.
func LogIn(username string, roles []string) State {
	return Authenticated{Username: username, Roles: roles}
}

// LogOut is the transition taken on logout, from any state.
func LogOut(State) State {
	return Anonymous{}
}

// Expire is the transition taken when the backend answers 401. Only an authenticated
// session can expire; other states are returned unchanged.
func Expire(s State) State {
	if _, ok := s.(Authenticated); ok {
		return Expired{}
	}
	return s
}
