package auth

import (
	"context"
	"testing"

	"crewbase-backend/internal/application/roles"
	"crewbase-backend/internal/application/tokens"
	"crewbase-backend/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func setupAuthTest(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Org{}, &domain.User{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return &Service{
		DB:     db,
		Rdb:    rdb,
		Tokens: &tokens.Issuer{SessionSecret: []byte("test-secret")},
	}, db
}

func seedLoginUser(t *testing.T, db *gorm.DB, email, password string, roleSet []string, status string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	require.NoError(t, err)

	org := domain.Org{OrgName: "Acme-" + email, LicenseTotal: 5, IsActive: true}
	require.NoError(t, db.Create(&org).Error)

	u := domain.User{
		FirstName: "Log", LastName: "In", Email: email,
		PasswordHash: string(hash), OrgID: &org.OrgID,
		Roles:  datatypes.NewJSONSlice(roleSet),
		Status: status,
	}
	require.NoError(t, db.Create(&u).Error)
	return &u
}

func TestLogin_Success(t *testing.T) {
	svc, db := setupAuthTest(t)
	seedLoginUser(t, db, "ada@acme.test", "hunter2!x", []string{"member", "admin"}, domain.UserStatusActive)

	result, err := svc.Login(context.Background(), LoginInput{Email: "ada@acme.test", Password: "hunter2!x"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.SessionToken)
	assert.Equal(t, roles.RouteOrgDashboard, result.LandingRoute)
	assert.Equal(t, "ada@acme.test", result.User.Email)
	assert.NotNil(t, result.User.LastLogin)

	claims, err := svc.Tokens.ParseSessionToken(result.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, []string{"member", "admin"}, claims.Roles)
	assert.False(t, IsSessionRevoked(context.Background(), svc.Rdb, claims.ID))
}

func TestLogin_SuperAdminLandsOnConsole(t *testing.T) {
	svc, db := setupAuthTest(t)
	seedLoginUser(t, db, "root@crewbase.io", "hunter2!x", []string{"member", "super_admin"}, domain.UserStatusActive)

	result, err := svc.Login(context.Background(), LoginInput{Email: "root@crewbase.io", Password: "hunter2!x"})
	require.NoError(t, err)
	assert.Equal(t, roles.RoutePlatformConsole, result.LandingRoute)
}

func TestLogin_Failures(t *testing.T) {
	svc, db := setupAuthTest(t)
	seedLoginUser(t, db, "ada@acme.test", "hunter2!x", []string{"member"}, domain.UserStatusActive)
	seedLoginUser(t, db, "gone@acme.test", "hunter2!x", []string{"member"}, domain.UserStatusInactive)

	_, err := svc.Login(context.Background(), LoginInput{})
	assert.ErrorIs(t, err, ErrEmailPasswordRequired)

	_, err = svc.Login(context.Background(), LoginInput{Email: "nobody@acme.test", Password: "hunter2!x"})
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Login(context.Background(), LoginInput{Email: "ada@acme.test", Password: "wrong-pass1!"})
	assert.ErrorIs(t, err, ErrIncorrectPassword)

	_, err = svc.Login(context.Background(), LoginInput{Email: "gone@acme.test", Password: "hunter2!x"})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestLogout_RevokesSession(t *testing.T) {
	svc, db := setupAuthTest(t)
	seedLoginUser(t, db, "ada@acme.test", "hunter2!x", []string{"member"}, domain.UserStatusActive)

	result, err := svc.Login(context.Background(), LoginInput{Email: "ada@acme.test", Password: "hunter2!x"})
	require.NoError(t, err)
	claims, err := svc.Tokens.ParseSessionToken(result.SessionToken)
	require.NoError(t, err)

	svc.Logout(context.Background(), claims)
	assert.True(t, IsSessionRevoked(context.Background(), svc.Rdb, claims.ID))
}

func TestRevokeUserSessions_KillsAllTracked(t *testing.T) {
	svc, db := setupAuthTest(t)
	user := seedLoginUser(t, db, "ada@acme.test", "hunter2!x", []string{"member"}, domain.UserStatusActive)

	first, err := svc.Login(context.Background(), LoginInput{Email: "ada@acme.test", Password: "hunter2!x"})
	require.NoError(t, err)
	second, err := svc.Login(context.Background(), LoginInput{Email: "ada@acme.test", Password: "hunter2!x"})
	require.NoError(t, err)

	RevokeUserSessions(context.Background(), svc.Rdb, user.UserID.String())

	for _, token := range []string{first.SessionToken, second.SessionToken} {
		claims, err := svc.Tokens.ParseSessionToken(token)
		require.NoError(t, err)
		assert.True(t, IsSessionRevoked(context.Background(), svc.Rdb, claims.ID))
	}
}

func TestMe(t *testing.T) {
	svc, db := setupAuthTest(t)
	user := seedLoginUser(t, db, "ada@acme.test", "hunter2!x", []string{"member"}, domain.UserStatusActive)

	token, err := svc.Tokens.IssueSessionToken(user.UserID.String(), user.OrgID.String(), user.Roles)
	require.NoError(t, err)
	claims, err := svc.Tokens.ParseSessionToken(token)
	require.NoError(t, err)

	me, err := svc.Me(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, "ada@acme.test", me.Email)

	_, err = svc.Me(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
