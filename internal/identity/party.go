// Package identity resolves an authenticated credential to the concrete side
// of the marketplace it acts as. Authentication itself happens upstream; this
// engine only consumes the resolved {credential, user type} pair.
package identity

import "gigwork-engine/internal/models"

// Party is the common capability surface over worker and client profiles.
// The concrete variant is resolved once per request and passed downward.
type Party interface {
	ProfileID() string
	CredentialID() string
	Role() models.Role
	Blocked() bool
}

// WorkerParty adapts a worker profile to Party.
type WorkerParty struct {
	Profile models.WorkerProfile
}

func (w WorkerParty) ProfileID() string    { return w.Profile.ID }
func (w WorkerParty) CredentialID() string { return w.Profile.CredentialID }
func (w WorkerParty) Role() models.Role    { return models.RoleWorker }
func (w WorkerParty) Blocked() bool        { return w.Profile.Blocked }

// ClientParty adapts a client profile to Party.
type ClientParty struct {
	Profile models.ClientProfile
}

func (c ClientParty) ProfileID() string    { return c.Profile.ID }
func (c ClientParty) CredentialID() string { return c.Profile.CredentialID }
func (c ClientParty) Role() models.Role    { return models.RoleClient }
func (c ClientParty) Blocked() bool        { return c.Profile.Blocked }
