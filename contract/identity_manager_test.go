package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapLedger(t *testing.T) {
	sc := &ImpactBadgeSmartContract{}
	stub := newMockStub()

	require.NoError(t, sc.BootstrapLedger(ctxFor(stub, adminID)))

	im := NewIdentityManager(ctxFor(stub, adminID))
	isAdmin, err := im.IsAdmin(adminID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// Bootstrap derives the alias from the certificate CN.
	fullID, err := im.ResolveIdentity("admin")
	require.NoError(t, err)
	assert.Equal(t, adminID, fullID)

	// Re-running once an admin exists must refuse.
	err = sc.BootstrapLedger(ctxFor(stub, aliceID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has admins")
}

func TestRegisterIdentityAdminGated(t *testing.T) {
	sc, stub := bootstrappedContract(t)

	// Non-admins cannot register once an admin exists.
	err := sc.RegisterIdentity(ctxFor(stub, aliceID), aliceID, "alice")
	require.Error(t, err)

	require.NoError(t, sc.RegisterIdentity(ctxFor(stub, adminID), aliceID, "alice"))

	im := NewIdentityManager(ctxFor(stub, adminID))
	fullID, err := im.ResolveIdentity("alice")
	require.NoError(t, err)
	assert.Equal(t, aliceID, fullID)

	// A taken alias cannot be claimed by a different identity.
	err = sc.RegisterIdentity(ctxFor(stub, adminID), bobID, "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already in use")

	// Re-registering the same identity under a new alias replaces the mapping.
	require.NoError(t, sc.RegisterIdentity(ctxFor(stub, adminID), aliceID, "alice2"))
	fullID, err = im.ResolveIdentity("alice2")
	require.NoError(t, err)
	assert.Equal(t, aliceID, fullID)
	_, err = im.ResolveIdentity("alice")
	require.Error(t, err)
}

func TestVerifyIdentity(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	adminCtx := ctxFor(stub, adminID)

	require.NoError(t, sc.RegisterIdentity(adminCtx, aliceID, "alice"))

	verified, err := sc.IsVerified(adminCtx, "alice")
	require.NoError(t, err)
	assert.False(t, verified, "registration alone must not verify")

	// Non-admins cannot verify.
	require.Error(t, sc.VerifyIdentity(ctxFor(stub, aliceID), "alice"))

	require.NoError(t, sc.VerifyIdentity(adminCtx, "alice"))
	verified, err = sc.IsVerified(adminCtx, "alice")
	require.NoError(t, err)
	assert.True(t, verified)
	assert.True(t, stub.hasEvent("IdentityVerified"))

	// Idempotent on re-verification.
	require.NoError(t, sc.VerifyIdentity(adminCtx, "alice"))

	// Verifying an unregistered identity fails.
	require.Error(t, sc.VerifyIdentity(adminCtx, bobID))
}

func TestIsVerifiedUnregisteredIsFalse(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	verified, err := sc.IsVerified(ctxFor(stub, adminID), bobID)
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestAdminLifecycle(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	adminCtx := ctxFor(stub, adminID)

	require.NoError(t, sc.RegisterIdentity(adminCtx, bobID, "bob"))
	require.NoError(t, sc.MakeIdentityAdmin(adminCtx, "bob"))

	im := NewIdentityManager(adminCtx)
	isAdmin, err := im.IsAdmin(bobID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	// Admins cannot demote themselves.
	err = sc.RemoveIdentityAdmin(ctxFor(stub, bobID), "bob")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot remove their own")

	require.NoError(t, sc.RemoveIdentityAdmin(adminCtx, "bob"))
	isAdmin, err = im.IsAdmin(bobID)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestGetIdentityDetailsAccess(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	adminCtx := ctxFor(stub, adminID)
	require.NoError(t, sc.RegisterIdentity(adminCtx, aliceID, "alice"))
	require.NoError(t, sc.RegisterIdentity(adminCtx, bobID, "bob"))

	// Owner can read their own record.
	info, err := sc.GetIdentityDetails(ctxFor(stub, aliceID), "alice")
	require.NoError(t, err)
	assert.Equal(t, aliceID, info.FullID)
	assert.Equal(t, "alice", info.ShortName)

	// Non-admins cannot read someone else's record.
	_, err = sc.GetIdentityDetails(ctxFor(stub, aliceID), "bob")
	require.Error(t, err)

	// Admins can read anyone's.
	info, err = sc.GetIdentityDetails(adminCtx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bobID, info.FullID)
}

func TestGetAllIdentitiesAdminOnly(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	adminCtx := ctxFor(stub, adminID)
	require.NoError(t, sc.RegisterIdentity(adminCtx, aliceID, "alice"))

	_, err := sc.GetAllIdentities(ctxFor(stub, aliceID))
	require.Error(t, err)

	identities, err := sc.GetAllIdentities(adminCtx)
	require.NoError(t, err)
	assert.Len(t, identities, 2) // bootstrap admin + alice
}
