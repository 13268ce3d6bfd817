package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"tasklist/cmd/security/token"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every Store implementation must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("create and load account", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		now := time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)
		a, err := s.CreateAccount(ctx, CreateAccountInput{
			Name:         "  alice ",
			PasswordHash: "$argon2id$stub",
			Profession:   "dev",
			Now:          now,
		})
		require.NoError(t, err)
		assert.Positive(t, a.ID)
		assert.Equal(t, "alice", a.Name)
		assert.Equal(t, "dev", a.Profession)
		assert.Equal(t, now.Truncate(time.Millisecond), a.CreatedAt)

		auth, err := s.GetAccountAuthByName(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, a.ID, auth.Account.ID)
		assert.Equal(t, "$argon2id$stub", auth.PasswordHash)
		assert.True(t, a.CreatedAt.Equal(auth.Account.CreatedAt))

		byID, err := s.GetAccountByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", byID.Name)
	})

	t.Run("duplicate name conflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		_, err := s.CreateAccount(ctx, CreateAccountInput{Name: "bob", PasswordHash: "h1"})
		require.NoError(t, err)

		_, err = s.CreateAccount(ctx, CreateAccountInput{Name: "bob", PasswordHash: "h2"})
		require.Error(t, err)
		assert.True(t, IsConflictOn(err, FieldName), "got %v", err)

		auth, err := s.GetAccountAuthByName(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "h1", auth.PasswordHash)
	})

	t.Run("names are case sensitive", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		_, err := s.CreateAccount(ctx, CreateAccountInput{Name: "Carol", PasswordHash: "h"})
		require.NoError(t, err)
		_, err = s.CreateAccount(ctx, CreateAccountInput{Name: "carol", PasswordHash: "h"})
		require.NoError(t, err)

		_, err = s.GetAccountAuthByName(ctx, "CAROL")
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("invalid input", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		_, err := s.CreateAccount(ctx, CreateAccountInput{Name: "   ", PasswordHash: "h"})
		assert.True(t, IsInvalidInput(err), "got %v", err)

		_, err = s.CreateAccount(ctx, CreateAccountInput{Name: "dave", PasswordHash: ""})
		assert.True(t, IsInvalidInput(err), "got %v", err)

		_, err = s.CreateAccount(ctx, CreateAccountInput{Name: strings.Repeat("n", maxNameLen+1), PasswordHash: "h"})
		assert.True(t, IsInvalidInput(err), "got %v", err)
	})

	t.Run("unknown account", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		_, err := s.GetAccountAuthByName(ctx, "nobody")
		assert.True(t, IsNotFound(err), "got %v", err)
		_, err = s.GetAccountByID(ctx, 424242)
		assert.True(t, IsNotFound(err), "got %v", err)
		assert.True(t, IsNotFound(s.UpdatePasswordHash(ctx, 424242, "h")))
	})

	t.Run("update password hash", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		a, err := s.CreateAccount(ctx, CreateAccountInput{Name: "erin", PasswordHash: "old"})
		require.NoError(t, err)
		require.NoError(t, s.UpdatePasswordHash(ctx, a.ID, "new"))

		auth, err := s.GetAccountAuthByName(ctx, "erin")
		require.NoError(t, err)
		assert.Equal(t, "new", auth.PasswordHash)
	})

	t.Run("token lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		a, err := s.CreateAccount(ctx, CreateAccountInput{Name: "frank", PasswordHash: "h"})
		require.NoError(t, err)

		h1 := token.HashSHA256Hex("first-token-value")
		h2 := token.HashSHA256Hex("second-token-value")
		require.NoError(t, s.CreateToken(ctx, a.ID, h1, time.Now()))
		require.NoError(t, s.CreateToken(ctx, a.ID, h2, time.Now()))

		for _, h := range []string{h1, h2} {
			id, err := s.LookupToken(ctx, h)
			require.NoError(t, err)
			assert.Equal(t, a.ID, id)
		}

		_, err = s.LookupToken(ctx, token.HashSHA256Hex("never-issued"))
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("token collision conflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		a, err := s.CreateAccount(ctx, CreateAccountInput{Name: "gina", PasswordHash: "h"})
		require.NoError(t, err)
		b, err := s.CreateAccount(ctx, CreateAccountInput{Name: "hank", PasswordHash: "h"})
		require.NoError(t, err)

		h := token.HashSHA256Hex("shared")
		require.NoError(t, s.CreateToken(ctx, a.ID, h, time.Now()))

		err = s.CreateToken(ctx, b.ID, h, time.Now())
		assert.True(t, IsConflictOn(err, FieldToken), "got %v", err)

		id, err := s.LookupToken(ctx, h)
		require.NoError(t, err)
		assert.Equal(t, a.ID, id, "collision must not rebind the token")
	})

	t.Run("token for missing account", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		err := s.CreateToken(ctx, 987654, token.HashSHA256Hex("orphan"), time.Now())
		assert.True(t, IsNotFound(err), "got %v", err)
	})

	t.Run("malformed token hash", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		_, err := s.LookupToken(ctx, "short")
		assert.True(t, IsInvalidInput(err), "got %v", err)
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Ping(testCtx(t)))
	})
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}
