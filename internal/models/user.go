package models

import "strings"

const RoleAdmin = "ADMIN"

type Role struct {
	Name string `json:"name"`
}

// Account is a backend user account. The console never edits accounts, it only lists and deletes them.
type Account struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Roles    []Role `json:"roles"`
}

func (a Account) RoleNames() string {
	names := make([]string, len(a.Roles))
	for i, r := range a.Roles {
		names[i] = r.Name
	}
	return strings.Join(names, ", ")
}

// UserInfo is the identity the backend reports for the credentials in use.
type UserInfo struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}
