// Package views holds the employee-facing UI logic: the bill list and the
// new-bill form. Components receive their collaborators (store, session,
// navigation) at construction and never reach for globals.
package views

import (
	"context"

	"github.com/zombor/billed/internal/bill"
)

// Route identifies a UI destination
type Route string

const (
	RouteBills   Route = "#employee/bills"
	RouteNewBill Route = "#employee/bill/new"
)

// Path returns the HTTP path that serves the route
func (r Route) Path() string {
	switch r {
	case RouteBills:
		return "/bills"
	case RouteNewBill:
		return "/bills/new"
	default:
		return "/"
	}
}

// Navigate moves the UI to another route
type Navigate func(route Route)

// User is the signed-in employee
type User struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

// Session supplies the current user
type Session interface {
	CurrentUser() User
}

// StaticSession is a Session that always returns the same user
type StaticSession User

// CurrentUser implements Session
func (s StaticSession) CurrentUser() User {
	return User(s)
}

// Store is the persistence collaborator for bills
type Store interface {
	List(ctx context.Context) ([]*bill.Bill, error)
	Create(ctx context.Context, p bill.Payload) (*bill.Bill, error)
}
