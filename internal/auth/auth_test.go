package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caribbeat/caribbeat/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:       uuid.New(),
		Username: "testuser",
		Role:     models.RoleCreator,
	}
}

func TestNewAuth(t *testing.T) {
	_, err := NewAuth("", time.Hour)
	assert.Error(t, err)

	a, err := NewAuth("secret", time.Hour)
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestGenerateAndValidateToken(t *testing.T) {
	a, err := NewAuth("test-secret", time.Hour)
	require.NoError(t, err)

	user := testUser()
	premium := time.Now().Add(30 * 24 * time.Hour).Truncate(time.Second)
	user.PremiumUntil = &premium

	token, err := a.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := a.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, models.RoleCreator, claims.Role)
	require.NotNil(t, claims.PremiumUntil)
	assert.True(t, claims.PremiumUntil.Equal(premium))
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	a1, _ := NewAuth("secret-one", time.Hour)
	a2, _ := NewAuth("secret-two", time.Hour)

	token, err := a1.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = a2.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	a, _ := NewAuth("secret", -time.Minute)

	token, err := a.GenerateToken(testUser())
	require.NoError(t, err)

	_, err = a.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenGarbage(t *testing.T) {
	a, _ := NewAuth("secret", time.Hour)
	_, err := a.ValidateToken("not-a-token")
	assert.Error(t, err)
}

func TestCheckPermission(t *testing.T) {
	a, _ := NewAuth("secret", time.Hour)

	assert.True(t, a.CheckPermission(models.RoleAdmin, models.RoleAuthority))
	assert.True(t, a.CheckPermission(models.RoleCreator, models.RoleUser))
	assert.True(t, a.CheckPermission(models.RoleUser, models.RoleUser))
	assert.False(t, a.CheckPermission(models.RoleUser, models.RoleCreator))
	assert.False(t, a.CheckPermission(models.RoleGuest, models.RoleUser))
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "correct horse battery staple"))
	assert.False(t, CheckPassword(hash, "wrong password"))
	assert.False(t, CheckPassword("not-a-hash", "anything"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		minLen     int
		complexity bool
		wantErr    bool
	}{
		{"too short", "Ab1!", 8, true, true},
		{"long enough without complexity", "alllowercase", 8, false, false},
		{"meets three classes", "Password1", 8, true, false},
		{"only two classes", "passwords1", 8, true, true},
		{"symbol stands in for a digit", "Pass-words", 8, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.minLen, tt.complexity)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrWeakPassword)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}
