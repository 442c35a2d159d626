// Package policy decides who may act on a campaign. Decisions carry a reason
// so denials can be logged without reconstructing the rule that fired.
package policy

import "server/internal/domain"

// Action enumerates the operations the policy rules over. Update and Delete
// are distinct actions: staff may delete another user's campaign but not edit
// it, an intentional asymmetry carried over from the moderation workflow.
type Action string

const (
	ActionRead     Action = "read"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionModerate Action = "moderate"
)

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow(reason string) Decision { return Decision{Allowed: true, Reason: reason} }
func deny(reason string) Decision  { return Decision{Allowed: false, Reason: reason} }

// ForCampaign evaluates an action by the actor against a campaign.
// Visibility filtering of list endpoints is a query concern of the API layer;
// reads here are always permitted.
func ForCampaign(actor *domain.User, campaign *domain.Campaign, action Action) Decision {
	if actor == nil {
		return deny("no actor")
	}
	if action == ActionRead {
		return allow("reads are public")
	}
	if actor.IsAdmin() {
		return allow("admin")
	}
	if action == ActionModerate {
		return deny("moderation requires admin")
	}
	if campaign != nil && campaign.OwnerID == actor.ID {
		return allow("owner")
	}
	if actor.IsStaff && action == ActionDelete {
		return allow("staff may delete")
	}
	return deny("not the campaign owner")
}

// Err returns ErrUnauthorized for a denial, nil otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.ErrUnauthorized
}
