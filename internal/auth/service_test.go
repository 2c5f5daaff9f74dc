package auth

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/loyalty"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type memSessions struct {
	tokens map[string]string
	seq    int
}

func newMemSessions() *memSessions {
	return &memSessions{tokens: map[string]string{}}
}

func (m *memSessions) Start(context.Context) (string, string, error) {
	m.seq++
	id := fmt.Sprintf("access-%d", m.seq)
	token := fmt.Sprintf("refresh-%d", m.seq)
	m.tokens[id] = token
	return id, token, nil
}

func (m *memSessions) Rotate(ctx context.Context, oldID, provided string) (string, string, error) {
	if stored, ok := m.tokens[oldID]; !ok || stored != provided {
		return "", "", session.ErrInvalidRefreshToken
	}
	delete(m.tokens, oldID)
	return m.Start(ctx)
}

func (m *memSessions) Revoke(_ context.Context, id string) error {
	delete(m.tokens, id)
	return nil
}

var testJWT = config.JWTConfig{Secret: "test-secret", Issuer: "storefront-test", ExpirationMinutes: 15}

type fixture struct {
	svc      Service
	conn     *gorm.DB
	sessions *memSessions
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
	sessions := newMemSessions()
	svc, err := NewService(ServiceParams{
		Tx:             client,
		UserRepo:       users.NewRepository(conn),
		Ledger:         loyalty.NewLedger(config.LoyaltyConfig{PointsPerUnit: 1, ReferralBonus: 1}),
		Outbox:         outbox.NewService(outbox.NewRepository(conn), logg),
		SessionManager: sessions,
		JWTConfig:      testJWT,
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB:    16384,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     16,
			ArgonKeyLen:      32,
		},
		Logger: logg,
	})
	require.NoError(t, err)
	return &fixture{svc: svc, conn: conn, sessions: sessions}
}

func (f *fixture) register(t *testing.T, username, referral string) *RegisterResponse {
	t.Helper()
	resp, err := f.svc.Register(context.Background(), RegisterRequest{
		Username:     username,
		Email:        username + "@example.com",
		Password:     "s3cret-pass",
		ReferralCode: referral,
	})
	require.NoError(t, err)
	return resp
}

func codeOf(err error) pkgerrors.Code {
	if e := pkgerrors.As(err); e != nil {
		return e.Code()
	}
	return ""
}

func TestNewServiceRequiresDeps(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestRegisterWithoutReferral(t *testing.T) {
	f := newFixture(t)
	resp := f.register(t, "amina", "")

	assert.Equal(t, "amina", resp.User.Username)
	assert.Equal(t, 0, resp.User.Points)
	assert.Empty(t, resp.ReferredBy)
	assert.True(t, strings.HasPrefix(resp.User.ReferralCode, "REF"))
	assert.Len(t, resp.User.ReferralCode, 11)

	var stored models.User
	require.NoError(t, f.conn.First(&stored, "id = ?", resp.User.ID).Error)
	assert.NotEqual(t, "s3cret-pass", stored.PasswordHash)
	assert.True(t, strings.HasPrefix(stored.PasswordHash, "$argon2id$"))
	assert.Nil(t, stored.ReferredByID)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventUserRegistered, events[0].EventType)
}

func TestRegisterWithReferralCreditsBothUsers(t *testing.T) {
	f := newFixture(t)
	referrer := f.register(t, "yacine", "")

	resp := f.register(t, "lina", "  "+strings.ToLower(referrer.User.ReferralCode)+" ")
	assert.Equal(t, "yacine", resp.ReferredBy)
	assert.Equal(t, 1, resp.ReferralPoints)
	assert.Equal(t, 1, resp.User.Points)
	require.NotNil(t, resp.User.ReferredByID)
	assert.Equal(t, referrer.User.ID, *resp.User.ReferredByID)

	assert.Equal(t, 1, dbtest.ReloadUser(t, f.conn, referrer.User.ID).Points)
	assert.Equal(t, 1, dbtest.ReloadUser(t, f.conn, resp.User.ID).Points)
	assert.EqualValues(t, 2, dbtest.Count(t, f.conn, &models.LoyaltyEvent{}))

	var referred int64
	require.NoError(t, f.conn.Model(&models.OutboxEvent{}).
		Where("event_type = ?", enums.EventUserReferred).Count(&referred).Error)
	assert.EqualValues(t, 1, referred)
}

func TestRegisterRejectsUnknownReferralCode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Username:     "nadia",
		Email:        "nadia@example.com",
		Password:     "s3cret-pass",
		ReferralCode: "REFDEADBEEF",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
	assert.EqualValues(t, 0, dbtest.Count(t, f.conn, &models.User{}))
	assert.EqualValues(t, 0, dbtest.Count(t, f.conn, &models.OutboxEvent{}))
}

func TestRegisterRejectsOwnReferralCode(t *testing.T) {
	f := newFixture(t)
	f.svc.(*service).newCode = func() string { return "REFAAAA0000" }

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Username:     "karim",
		Email:        "karim@example.com",
		Password:     "s3cret-pass",
		ReferralCode: "refaaaa0000",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, codeOf(err))
	assert.EqualValues(t, 0, dbtest.Count(t, f.conn, &models.User{}))
}

func TestRegisterDuplicateEmailAndUsername(t *testing.T) {
	f := newFixture(t)
	f.register(t, "sara", "")

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Username: "sara2", Email: "SARA@example.com", Password: "s3cret-pass",
	})
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err))

	_, err = f.svc.Register(context.Background(), RegisterRequest{
		Username: "sara", Email: "other@example.com", Password: "s3cret-pass",
	})
	assert.Equal(t, pkgerrors.CodeConflict, codeOf(err))
}

func TestRegisterReferralCodesAreUnique(t *testing.T) {
	f := newFixture(t)
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		resp := f.register(t, fmt.Sprintf("user%02d", i), "")
		assert.False(t, seen[resp.User.ReferralCode])
		seen[resp.User.ReferralCode] = true
	}
}

func TestLoginIssuesTokensBoundToSession(t *testing.T) {
	f := newFixture(t)
	reg := f.register(t, "omar", "")

	resp, err := f.svc.Login(context.Background(), LoginRequest{Email: " OMAR@example.com ", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", resp.RefreshToken)
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.UserID)
	assert.Equal(t, "omar", claims.Username)
	assert.Equal(t, "access-1", claims.ID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.register(t, "rania", "")

	_, err := f.svc.Login(context.Background(), LoginRequest{Email: "rania@example.com", Password: "wrong-pass"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, codeOf(err))

	_, err = f.svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "s3cret-pass"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, codeOf(err))
	assert.Empty(t, f.sessions.tokens)
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newFixture(t)
	f.register(t, "ilyes", "")
	login, err := f.svc.Login(context.Background(), LoginRequest{Email: "ilyes@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access-2", claims.ID)
	assert.Equal(t, "ilyes", claims.Username)

	_, err = f.svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  login.AccessToken,
		RefreshToken: login.RefreshToken,
	})
	assert.Equal(t, pkgerrors.CodeUnauthorized, codeOf(err))
}

func TestRefreshRejectsForeignToken(t *testing.T) {
	f := newFixture(t)
	forged, err := pkgAuth.MintAccessToken(config.JWTConfig{
		Secret: "other", Issuer: testJWT.Issuer, ExpirationMinutes: 5,
	}, f.svc.(*service).now(), pkgAuth.AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), RefreshRequest{AccessToken: forged, RefreshToken: "x"})
	assert.Equal(t, pkgerrors.CodeUnauthorized, codeOf(err))
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	f.register(t, "meriem", "")
	login, err := f.svc.Login(context.Background(), LoginRequest{Email: "meriem@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, login.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(context.Background(), claims.ID))
	assert.Empty(t, f.sessions.tokens)

	assert.Equal(t, pkgerrors.CodeUnauthorized, codeOf(f.svc.Logout(context.Background(), "")))
}
