package contract

import (
	"testing"

	pb "github.com/hyperledger/fabric-protos-go/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryGuard(t *testing.T) {
	g := &entryGuard{}

	require.NoError(t, g.enter("tx1", "issue"))

	// Same transaction re-entering the same operation is rejected.
	err := g.enter("tx1", "issue")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindReentrantCall))

	// A different operation in the same transaction and the same operation in
	// a different transaction are both fine.
	require.NoError(t, g.enter("tx1", "upgrade"))
	require.NoError(t, g.enter("tx2", "issue"))

	// Exiting releases the slot for re-entry.
	g.exit("tx1", "issue")
	require.NoError(t, g.enter("tx1", "issue"))
}

func TestReentrantCollaboratorCallbackRejected(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	require.NoError(t, sc.SetRewardsEndpoint(ctxFor(stub, adminID), "karmatoken"))
	registerVerified(t, sc, stub, aliceID, "alice")

	// The collaborator calls straight back into IssueBadge within the same
	// transaction. The guard must reject the nested call; the outer issuance
	// still completes because credit failures are non-fatal.
	var nestedErr error
	stub.invokeHandler = func(chaincodeName string, args [][]byte, channel string) pb.Response {
		_, nestedErr = sc.IssueBadge(ctxFor(stub, aliceID))
		return pb.Response{Status: 500, Message: "reentered"}
	}

	badgeID, err := sc.IssueBadge(ctxFor(stub, aliceID))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), badgeID)

	require.Error(t, nestedErr)
	assert.True(t, IsKind(nestedErr, KindReentrantCall))
}
