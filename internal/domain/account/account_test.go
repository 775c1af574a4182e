package account

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resitrack/backend/internal/apperr"
	"resitrack/backend/internal/authctx"
	"resitrack/backend/internal/docstore"
	"resitrack/backend/internal/docstore/memstore"
	"resitrack/backend/internal/identity"
)

func seed(t *testing.T, store *memstore.Store, accounts ...Account) {
	t.Helper()
	for _, a := range accounts {
		require.NoError(t, store.Set(context.Background(), Collection, a.UID, a.Doc()))
	}
}

func TestRepoGet(t *testing.T) {
	store := memstore.New()
	seed(t, store, Account{UID: "u1", Role: authctx.RoleResident, FullName: "Asha", FlatNo: "A-101"})
	repo := NewRepo(store)

	a, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", a.FullName)
	assert.True(t, a.IsResident())

	_, err = repo.Get(context.Background(), "nobody")
	assert.True(t, IsErrAccountNotFound(err))
	assert.True(t, apperr.IsErrNotFound(err))
}

func TestListResidentsSkipsAdminsAndSorts(t *testing.T) {
	store := memstore.New()
	seed(t, store,
		Account{UID: "u3", Role: authctx.RoleResident, FullName: "Zoya"},
		Account{UID: "u1", Role: authctx.RoleResident, FullName: "Arun"},
		Account{UID: "a1", Role: authctx.RoleAdmin, FullName: "Admin"},
		Account{UID: "u2", Role: authctx.RoleResident, FullName: "Meera"},
	)

	got, err := NewRepo(store).ListResidents(context.Background())
	require.NoError(t, err)
	var uids []string
	for _, a := range got {
		uids = append(uids, a.UID)
	}
	assert.Equal(t, []string{"u1", "u2", "u3"}, uids)
}

func TestFromSnapshotDefaultsRole(t *testing.T) {
	a := FromSnapshot(docstore.Snapshot{ID: "u1", Exists: true, Data: docstore.Doc{"fullName": "X"}})
	assert.Equal(t, authctx.RoleResident, a.Role)
}

func TestSessionResolver(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	idp := identity.NewMemory()
	resolver := NewSessionResolver(idp, NewRepo(store))

	adminUID, err := idp.CreateAccount(ctx, "admin@x.com", "secret1")
	require.NoError(t, err)
	require.NoError(t, idp.SetClaims(adminUID, map[string]any{"role": "admin"}))
	residentUID, err := idp.CreateAccount(ctx, "res@x.com", "secret1")
	require.NoError(t, err)
	seed(t, store, Account{UID: residentUID, Role: authctx.RoleResident, Email: "res@x.com"})

	adminCreds, err := idp.SignIn(ctx, "admin@x.com", "secret1")
	require.NoError(t, err)
	sess, err := resolver.Resolve(ctx, adminCreds.IDToken)
	require.NoError(t, err)
	assert.True(t, sess.IsAdmin())
	assert.Equal(t, "admin@x.com", sess.Email)

	resCreds, err := idp.SignIn(ctx, "res@x.com", "secret1")
	require.NoError(t, err)
	sess, err = resolver.Resolve(ctx, resCreds.IDToken)
	require.NoError(t, err)
	assert.Equal(t, residentUID, sess.UID)
	assert.Equal(t, authctx.RoleResident, sess.Role)

	_, err = resolver.Resolve(ctx, "forged")
	assert.True(t, apperr.IsErrUnauthenticated(err))
	_, err = resolver.Resolve(ctx, " ")
	assert.True(t, apperr.IsErrUnauthenticated(err))
}
