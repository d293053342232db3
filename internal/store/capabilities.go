package store

import "github.com/smarthelp/deskclient/internal/model"

// Capabilities centralizes role-based visibility so callers branch on one
// resolved struct instead of scattering role comparisons through view code.
type Capabilities struct {
	CanManageArticles  bool
	CanAssignTickets   bool
	CanEditSuggestions bool
	CanEditConfig      bool
	CanViewAllTickets  bool
}

func CapabilitiesFor(r model.Role) Capabilities {
	switch r {
	case model.RoleAdmin:
		return Capabilities{
			CanManageArticles:  true,
			CanAssignTickets:   true,
			CanEditSuggestions: true,
			CanEditConfig:      true,
			CanViewAllTickets:  true,
		}
	case model.RoleAgent:
		return Capabilities{
			CanAssignTickets:   true,
			CanEditSuggestions: true,
			CanViewAllTickets:  true,
		}
	default:
		return Capabilities{}
	}
}
