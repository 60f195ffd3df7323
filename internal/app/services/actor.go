// Package services holds types shared by the resource services.
package services

// Actor identifies the authenticated caller of a service operation, as
// established from validated session claims. A zero Actor means anonymous.
type Actor struct {
	ID      string
	Email   string
	IsAdmin bool
}

// Authenticated reports whether the actor carries a validated identity.
func (a Actor) Authenticated() bool { return a.ID != "" }

// Is reports whether the actor is the identity with the given id.
func (a Actor) Is(identityID string) bool { return a.ID != "" && a.ID == identityID }
