package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stockward/stockward/internal/shared"
	_ "github.com/stockward/stockward/testing"
)

type memoryRepo struct {
	byEmail map[string]Account
	byID    map[uuid.UUID]Account
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{byEmail: make(map[string]Account), byID: make(map[uuid.UUID]Account)}
}

func (r *memoryRepo) Create(ctx context.Context, account Account) (Account, error) {
	if _, exists := r.byEmail[account.Email]; exists {
		return Account{}, ErrEmailTaken
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.IsActive = true
	r.byEmail[account.Email] = account
	r.byID[account.ID] = account
	return account, nil
}

func (r *memoryRepo) FindByEmail(ctx context.Context, email string) (Account, error) {
	a, ok := r.byEmail[email]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return a, nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id uuid.UUID) (Account, error) {
	a, ok := r.byID[id]
	if !ok {
		return Account{}, shared.ErrNotFound
	}
	return a, nil
}

func newTestService() (*Service, *TokenManager) {
	tokens := NewTokenManager("test-secret", time.Hour)
	return NewService(newMemoryRepo(), tokens), tokens
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newTestService()

	account, token, err := svc.Register(context.Background(), RegisterInput{Email: "owner@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEqual(t, "correct horse", account.PasswordHash)

	got, token, err := svc.Authenticate(context.Background(), "owner@example.com", "correct horse")
	require.NoError(t, err)
	require.Equal(t, account.ID, got.ID)
	require.NotEmpty(t, token)
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.Register(context.Background(), RegisterInput{Email: "owner@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, _, err = svc.Authenticate(context.Background(), "owner@example.com", "wrong")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, _, err = svc.Authenticate(context.Background(), "nobody@example.com", "correct horse")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()

	_, _, err := svc.Register(context.Background(), RegisterInput{Email: "owner@example.com", Password: "correct horse"})
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), RegisterInput{Email: "owner@example.com", Password: "another pass"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestEmailForResolvesAccount(t *testing.T) {
	svc, _ := newTestService()

	account, _, err := svc.Register(context.Background(), RegisterInput{Email: "owner@example.com", Password: "correct horse"})
	require.NoError(t, err)

	email, err := svc.EmailFor(context.Background(), account.ID)
	require.NoError(t, err)
	require.Equal(t, "owner@example.com", email)

	_, err = svc.EmailFor(context.Background(), uuid.New())
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	accountID := uuid.New()

	signed, err := tokens.Issue(accountID)
	require.NoError(t, err)

	got, err := tokens.Verify(signed)
	require.NoError(t, err)
	require.Equal(t, accountID, got)
}

func TestTokenVerifyRejectsGarbage(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)

	for _, raw := range []string{"", "not.a.token", "aaaa.bbbb.cccc"} {
		_, err := tokens.Verify(raw)
		require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	}
}

func TestTokenVerifyRejectsForeignSecret(t *testing.T) {
	theirs := NewTokenManager("their-secret", time.Hour)
	ours := NewTokenManager("our-secret", time.Hour)

	signed, err := theirs.Issue(uuid.New())
	require.NoError(t, err)

	_, err = ours.Verify(signed)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestTokenVerifyRejectsExpired(t *testing.T) {
	tokens := NewTokenManager("test-secret", -time.Minute)

	signed, err := tokens.Issue(uuid.New())
	require.NoError(t, err)

	_, err = tokens.Verify(signed)
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRequireAccountMiddleware(t *testing.T) {
	tokens := NewTokenManager("test-secret", time.Hour)
	accountID := uuid.New()
	signed, err := tokens.Issue(accountID)
	require.NoError(t, err)

	var gotAccount uuid.UUID
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := shared.AccountFromContext(r.Context())
		require.True(t, ok)
		gotAccount = got
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAccount(tokens)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, accountID, gotAccount)

	// Missing and malformed headers are rejected before the handler runs.
	for _, header := range []string{"", "Basic abc", "Bearer not-a-token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}
