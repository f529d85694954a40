package handlers

import "github.com/rogerio-castellano/cellar-console/internal/console"

// Header is the navigation bar state.
type Header struct {
	LoggedIn bool
	Username string
	IsAdmin  bool
}

// Page wraps every rendered page.
type Page struct {
	Title  string
	Header Header
	// RefreshAfter, in seconds, adds a meta refresh to RefreshURL when positive.
	RefreshAfter int
	RefreshURL   string
	Data         any
}

type LoginPage struct {
	Username string
	Message  string
	Info     string
}

type RegisterPage struct {
	Username string
	Message  string
	Invalid  map[string]bool
}

type ProductFormPage struct {
	Editing   bool
	ProductID int
	Input     console.ProductInput
	Message   string
	Invalid   map[string]bool
}

type ProductListPage struct {
	console.ListView
}

type UsersPage struct {
	console.UsersView
}

type ConfirmPage struct {
	Question string
	Action   string
	Cancel   string
}
