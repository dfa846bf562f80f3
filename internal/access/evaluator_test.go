package access

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/caribbeat/caribbeat/internal/auth"
	"github.com/caribbeat/caribbeat/internal/models"
)

func TestHasAccess(t *testing.T) {
	free := &Target{ID: "c1"}
	ticketed := &Target{ID: "e1", IsTicketed: true}

	tests := []struct {
		name   string
		ctx    Context
		target *Target
		want   bool
	}{
		{"nil target denies everyone", Context{Role: models.RoleAdmin}, nil, false},
		{"anonymous denied free content", Context{}, free, false},
		{"anonymous denied ticketed content", Context{}, ticketed, false},
		{"authenticated user allowed free content", Context{IsAuthenticated: true, Role: models.RoleUser}, free, true},
		{"authenticated user without ticket denied", Context{IsAuthenticated: true, Role: models.RoleUser}, ticketed, false},
		{"ticket holder allowed", Context{
			IsAuthenticated:    true,
			Role:               models.RoleUser,
			PurchasedTicketIDs: map[string]struct{}{"e1": {}},
		}, ticketed, true},
		{"ticket for a different event does not count", Context{
			IsAuthenticated:    true,
			Role:               models.RoleUser,
			PurchasedTicketIDs: map[string]struct{}{"e2": {}},
		}, ticketed, false},
		{"premium bypasses tickets", Context{IsAuthenticated: true, Role: models.RoleUser, IsPremiumActive: true}, ticketed, true},
		{"admin bypasses everything", Context{IsAuthenticated: true, Role: models.RoleAdmin}, ticketed, true},
		{"authority bypasses everything", Context{IsAuthenticated: true, Role: models.RoleAuthority}, ticketed, true},
		// Role alone never grants access without authentication except the
		// moderation roles; a forged role on an anonymous context still fails
		// the free-content rule.
		{"zero value fails closed", Context{}, &Target{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAccess(tt.ctx, tt.target))
		})
	}
}

func TestHasAccessIgnoresEventStatus(t *testing.T) {
	// Whether an event is live is a separate question from whether the viewer
	// may enter it; status never changes the gate's answer.
	ctx := Context{IsAuthenticated: true, Role: models.RoleUser}
	for _, status := range []models.EventStatus{models.EventUpcoming, models.EventLive, models.EventCompleted} {
		assert.True(t, HasAccess(ctx, &Target{ID: "e1", Status: status}))
	}
}

func TestHasTicket(t *testing.T) {
	ctx := Context{PurchasedTicketIDs: map[string]struct{}{"e1": {}}}
	assert.True(t, ctx.HasTicket("e1"))
	assert.False(t, ctx.HasTicket("e2"))
	assert.False(t, Context{}.HasTicket("e1"))
}

func TestFromClaims(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("nil claims is anonymous", func(t *testing.T) {
		ctx := FromClaims(nil, []string{"e1"}, now)
		assert.False(t, ctx.IsAuthenticated)
		assert.False(t, ctx.HasTicket("e1"))
	})

	t.Run("premium expiry is re-checked against now", func(t *testing.T) {
		expired := now.Add(-time.Hour)
		active := now.Add(time.Hour)

		ctx := FromClaims(&auth.Claims{Role: models.RoleUser, PremiumUntil: &expired}, nil, now)
		assert.True(t, ctx.IsAuthenticated)
		assert.False(t, ctx.IsPremiumActive)

		ctx = FromClaims(&auth.Claims{Role: models.RoleUser, PremiumUntil: &active}, nil, now)
		assert.True(t, ctx.IsPremiumActive)

		ctx = FromClaims(&auth.Claims{Role: models.RoleUser}, nil, now)
		assert.False(t, ctx.IsPremiumActive)
	})

	t.Run("ticket ids become the purchase set", func(t *testing.T) {
		ctx := FromClaims(&auth.Claims{Role: models.RoleUser}, []string{"e1", "e2"}, now)
		assert.True(t, ctx.HasTicket("e1"))
		assert.True(t, ctx.HasTicket("e2"))
		assert.False(t, ctx.HasTicket("e3"))
	})
}
