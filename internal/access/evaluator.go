// Package access decides whether a viewer may play a piece of content or
// enter an event. Every entry point (home tile, discover, deep link) goes
// through the same predicate so the rules cannot drift apart.
package access

import (
	"time"

	"github.com/caribbeat/caribbeat/internal/auth"
	"github.com/caribbeat/caribbeat/internal/models"
)

// Context is the viewer's session state at evaluation time. The zero value
// is a fully anonymous viewer and evaluates to the most restrictive outcome.
type Context struct {
	IsAuthenticated    bool
	Role               models.UserRole
	IsPremiumActive    bool
	PurchasedTicketIDs map[string]struct{}
}

// Target is the entity being gated.
type Target struct {
	ID         string
	IsTicketed bool
	Status     models.EventStatus // empty for recorded content
}

// HasAccess evaluates the gating rules in order, first match wins:
//
//  1. no target → deny
//  2. admin or authority → allow
//  3. active premium → allow
//  4. free target → allow iff authenticated
//  5. ticketed target → allow iff authenticated and holding a ticket
//
// It is a pure predicate: no side effects, never panics, absent fields are
// treated as falsy. Callers decide the denial UX (login vs purchase prompt)
// by inspecting IsAuthenticated and IsTicketed themselves.
func HasAccess(ctx Context, target *Target) bool {
	if target == nil {
		return false
	}
	if ctx.Role == models.RoleAdmin || ctx.Role == models.RoleAuthority {
		return true
	}
	if ctx.IsPremiumActive {
		return true
	}
	if !target.IsTicketed {
		return ctx.IsAuthenticated
	}
	if !ctx.IsAuthenticated {
		return false
	}
	_, ok := ctx.PurchasedTicketIDs[target.ID]
	return ok
}

// HasTicket reports whether the context holds a ticket for id. Convenience
// for callers building denial responses.
func (c Context) HasTicket(id string) bool {
	_, ok := c.PurchasedTicketIDs[id]
	return ok
}

// FromClaims builds a Context from validated session claims and the viewer's
// purchased ticket ids. Premium is re-checked against now so a token issued
// before expiry cannot extend the premium window.
func FromClaims(claims *auth.Claims, ticketIDs []string, now time.Time) Context {
	if claims == nil {
		return Context{}
	}
	tickets := make(map[string]struct{}, len(ticketIDs))
	for _, id := range ticketIDs {
		tickets[id] = struct{}{}
	}
	return Context{
		IsAuthenticated:    true,
		Role:               claims.Role,
		IsPremiumActive:    claims.PremiumUntil != nil && claims.PremiumUntil.After(now),
		PurchasedTicketIDs: tickets,
	}
}
