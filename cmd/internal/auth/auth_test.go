package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tasklist/cmd/identity"
	"tasklist/cmd/internal/storage/storagetest"
	"tasklist/cmd/security/password"
	"tasklist/cmd/security/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func cheapPasswords() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newSQLiteIdentity(t *testing.T) identity.Store {
	t.Helper()
	db := storagetest.OpenSQLite(t)
	s, err := identity.NewSQLiteStore(db.SQL)
	require.NoError(t, err)
	return s
}

func newTestService(t *testing.T, store identity.Store) *Service {
	t.Helper()
	svc, err := NewService(store, cheapPasswords(), token.Hasher{}, DefaultConfig(), quietLog())
	require.NoError(t, err)
	return svc
}

func TestParseBearer(t *testing.T) {
	t.Parallel()

	tok := strings.Repeat("a", 32)
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{in: "Bearer " + tok, want: tok, wantOK: true},
		{in: "bearer " + tok, want: tok, wantOK: true},
		{in: "BEARER\t" + tok, want: tok, wantOK: true},
		{in: "  Bearer   " + tok + "  ", want: tok, wantOK: true},
		{in: ""},
		{in: "Bearer"},
		{in: "Bearer "},
		{in: "Bear"},
		{in: "abc"},
		{in: "Bearer" + tok},
		{in: "Basic " + tok},
		{in: "Token " + tok},
		{in: "Bearer a b"},
	}
	for _, tc := range cases {
		got, ok := ParseBearer(tc.in)
		if ok != tc.wantOK || got != tc.want {
			t.Fatalf("ParseBearer(%q)=(%q,%v) want (%q,%v)", tc.in, got, ok, tc.want, tc.wantOK)
		}
	}
}

func TestRegisterThenLogin(t *testing.T) {
	svc := newTestService(t, newSQLiteIdentity(t))
	ctx := context.Background()

	acct, err := svc.Authn.Register(ctx, "ann", "pw1", "dev")
	require.NoError(t, err)
	assert.Equal(t, "ann", acct.Name)
	assert.Equal(t, "dev", acct.Profession)

	got, tok, err := svc.Login(ctx, "ann", "pw1")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)
	assert.Len(t, tok, token.DefaultLength)
	assert.True(t, token.IsWellFormed(tok, 0))

	id, err := svc.Authz.Authorize(ctx, "Bearer "+tok)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, id)
}

func TestRegister_DuplicateNameKeepsOriginal(t *testing.T) {
	svc := newTestService(t, newSQLiteIdentity(t))
	ctx := context.Background()

	_, err := svc.Authn.Register(ctx, "ann", "pw1", "dev")
	require.NoError(t, err)

	_, err = svc.Authn.Register(ctx, "ann", "other", "ops")
	require.ErrorIs(t, err, ErrDuplicateName)

	_, err = svc.Authn.Authenticate(ctx, "ann", "pw1")
	require.NoError(t, err)
	_, err = svc.Authn.Authenticate(ctx, "ann", "other")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegister_RejectsBadInput(t *testing.T) {
	svc := newTestService(t, newSQLiteIdentity(t))
	ctx := context.Background()

	cases := []struct{ name, pw string }{
		{name: "", pw: "pw1"},
		{name: "   ", pw: "pw1"},
		{name: "ann", pw: ""},
		{name: strings.Repeat("x", maxNameLen+1), pw: "pw1"},
	}
	for _, tc := range cases {
		_, err := svc.Authn.Register(ctx, tc.name, tc.pw, "")
		require.ErrorIs(t, err, ErrInvalidRequest, "name=%q", tc.name)
	}
}

func TestAuthenticate_NoEnumeration(t *testing.T) {
	svc := newTestService(t, newSQLiteIdentity(t))
	ctx := context.Background()

	_, err := svc.Authn.Register(ctx, "ann", "pw1", "")
	require.NoError(t, err)

	_, errUnknown := svc.Authn.Authenticate(ctx, "zed", "pw1")
	_, errWrong := svc.Authn.Authenticate(ctx, "ann", "nope")

	require.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestAuthenticate_UpgradesLegacyHash(t *testing.T) {
	store := newSQLiteIdentity(t)
	svc := newTestService(t, store)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("pw1"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.CreateAccount(ctx, identity.CreateAccountInput{Name: "old", PasswordHash: string(legacy)})
	require.NoError(t, err)

	_, err = svc.Authn.Authenticate(ctx, "old", "pw1")
	require.NoError(t, err)

	rec, err := store.GetAccountAuthByName(ctx, "old")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.PasswordHash, "$argon2id$"), "hash=%q", rec.PasswordHash)

	_, err = svc.Authn.Authenticate(ctx, "old", "pw1")
	require.NoError(t, err)
}

func TestIssue_TokensAreDistinctAndAllResolve(t *testing.T) {
	svc := newTestService(t, newSQLiteIdentity(t))
	ctx := context.Background()

	acct, err := svc.Authn.Register(ctx, "ann", "pw1", "")
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for i := 0; i < 5; i++ {
		tok, err := svc.Issuer.Issue(ctx, acct.ID)
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
	for tok := range seen {
		id, err := svc.Authz.Authorize(ctx, "Bearer "+tok)
		require.NoError(t, err)
		assert.Equal(t, acct.ID, id)
	}
}

func TestAuthorize_RejectsWithoutStoreAccess(t *testing.T) {
	store := &fakeStore{}
	authz, err := NewAuthorizer(store, token.Hasher{}, DefaultConfig(), quietLog())
	require.NoError(t, err)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "Bearer " + strings.Repeat("a", 513)} {
		_, err := authz.Authorize(context.Background(), h)
		require.ErrorIs(t, err, ErrUnauthenticated, "header=%q", h)
	}
	assert.Zero(t, store.lookups)
}

func TestAuthorize_UnknownTokenAndStoreFailure(t *testing.T) {
	ctx := context.Background()
	tok := strings.Repeat("Q", 32)

	store := &fakeStore{lookupErr: identity.NotFoundError{Op: "test", Resource: "token"}}
	authz, err := NewAuthorizer(store, token.Hasher{}, DefaultConfig(), quietLog())
	require.NoError(t, err)
	_, err = authz.Authorize(ctx, "Bearer "+tok)
	require.ErrorIs(t, err, ErrUnauthenticated)

	store.lookupErr = errors.New("connection reset")
	_, err = authz.Authorize(ctx, "Bearer "+tok)
	require.ErrorIs(t, err, ErrInternal)
}

func TestIssue_RetriesOnCollision(t *testing.T) {
	store := &fakeStore{createTokenErrs: []error{
		identity.ConflictError{Op: "test", Field: identity.FieldToken},
		identity.ConflictError{Op: "test", Field: identity.FieldToken},
	}}
	issuer, err := NewIssuer(store, token.Hasher{}, DefaultConfig(), quietLog())
	require.NoError(t, err)

	tok, err := issuer.Issue(context.Background(), 7)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.Equal(t, 3, store.createTokenCalls)
}

func TestIssue_GivesUpAfterMaxAttempts(t *testing.T) {
	conflict := identity.ConflictError{Op: "test", Field: identity.FieldToken}
	store := &fakeStore{createTokenErrs: []error{conflict, conflict, conflict}}

	cfg := DefaultConfig()
	cfg.IssueMaxAttempts = 3
	issuer, err := NewIssuer(store, token.Hasher{}, cfg, quietLog())
	require.NoError(t, err)

	_, err = issuer.Issue(context.Background(), 7)
	require.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 3, store.createTokenCalls)
}

func TestIssue_StoreFailureIsInternal(t *testing.T) {
	store := &fakeStore{createTokenErrs: []error{errors.New("disk full")}}
	issuer, err := NewIssuer(store, token.Hasher{}, DefaultConfig(), quietLog())
	require.NoError(t, err)

	_, err = issuer.Issue(context.Background(), 7)
	require.ErrorIs(t, err, ErrInternal)
	assert.Equal(t, 1, store.createTokenCalls)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	short := DefaultConfig()
	short.TokenLength = 8
	require.Error(t, short.Validate())

	noAttempts := DefaultConfig()
	noAttempts.IssueMaxAttempts = 0
	require.Error(t, noAttempts.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("TASKLIST_TOKEN_LENGTH", "48")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.TokenLength)
	assert.Equal(t, 5, cfg.IssueMaxAttempts)

	t.Setenv("TASKLIST_TOKEN_LENGTH", "4")
	_, err = LoadConfigFromEnv()
	require.Error(t, err)
}

func TestContextAccountID(t *testing.T) {
	t.Parallel()

	_, ok := AccountIDFrom(context.Background())
	assert.False(t, ok)

	id, ok := AccountIDFrom(WithAccountID(context.Background(), 42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)
}

// fakeStore scripts token calls; account methods are unused by these tests.
type fakeStore struct {
	identity.Store

	createTokenErrs  []error
	createTokenCalls int

	lookupErr error
	lookups   int
}

func (f *fakeStore) CreateToken(_ context.Context, _ int64, _ string, _ time.Time) error {
	f.createTokenCalls++
	if len(f.createTokenErrs) == 0 {
		return nil
	}
	err := f.createTokenErrs[0]
	f.createTokenErrs = f.createTokenErrs[1:]
	return err
}

func (f *fakeStore) LookupToken(_ context.Context, _ string) (int64, error) {
	f.lookups++
	if f.lookupErr != nil {
		return 0, f.lookupErr
	}
	return 1, nil
}
