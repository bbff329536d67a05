package contract

import (
	"strconv"
	"testing"

	"impactbadge/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryForLevel(t *testing.T) {
	cases := []struct {
		level    int
		expected model.BadgeCategory
	}{
		{1, model.CategoryNewbie},
		{3, model.CategoryNewbie},
		{4, model.CategoryPro},
		{6, model.CategoryPro},
		{7, model.CategoryHero},
		{9, model.CategoryHero},
		{10, model.CategoryGuardian},
	}
	for _, tc := range cases {
		category, err := CategoryForLevel(tc.level)
		require.NoError(t, err, "level %d", tc.level)
		assert.Equal(t, tc.expected, category, "level %d", tc.level)
	}

	for _, level := range []int{0, -1, 11} {
		_, err := CategoryForLevel(level)
		require.Error(t, err, "level %d", level)
		assert.True(t, IsKind(err, KindInvalidRange))
	}
}

func TestGetBadgeByOwner(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	badgeID := issueFor(t, sc, stub, aliceID, "alice")
	aliceCtx := ctxFor(stub, aliceID)

	// Advance into the Pro band.
	idStr := strconv.FormatUint(badgeID, 10)
	for i := 0; i < 3; i++ {
		require.NoError(t, sc.UpgradeBadge(aliceCtx, idStr))
	}
	require.NoError(t, sc.SetImpactScore(ctxFor(stub, adminID), idStr, 8))

	summary, err := sc.GetBadgeByOwner(ctxFor(stub, adminID), "alice")
	require.NoError(t, err)
	assert.Equal(t, badgeID, summary.BadgeID)
	assert.Equal(t, 4, summary.Level)
	assert.Equal(t, 8, summary.ImpactScore)
	assert.Equal(t, model.CategoryPro, summary.Category)
}

func TestGetBadgeByOwnerNoBadge(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	registerVerified(t, sc, stub, bobID, "bob")

	_, err := sc.GetBadgeByOwner(ctxFor(stub, adminID), "bob")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoToken))
}

func TestGetBadgeUnknownID(t *testing.T) {
	sc, stub := bootstrappedContract(t)

	_, err := sc.GetBadge(ctxFor(stub, adminID), "7")
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoToken))

	_, err = sc.GetBadge(ctxFor(stub, adminID), "not-a-number")
	require.Error(t, err)
}

func TestGetAllBadgesPagination(t *testing.T) {
	sc, stub := bootstrappedContract(t)
	issueFor(t, sc, stub, aliceID, "alice")
	issueFor(t, sc, stub, bobID, "bob")
	issueFor(t, sc, stub, caraID, "cara")
	adminCtx := ctxFor(stub, adminID)

	page1, err := sc.GetAllBadges(adminCtx, "2", "")
	require.NoError(t, err)
	require.Len(t, page1.Badges, 2)
	assert.Equal(t, int32(2), page1.FetchedCount)
	require.NotEmpty(t, page1.NextBookmark)
	assert.Equal(t, uint64(0), page1.Badges[0].ID)
	assert.Equal(t, uint64(1), page1.Badges[1].ID)

	page2, err := sc.GetAllBadges(adminCtx, "2", page1.NextBookmark)
	require.NoError(t, err)
	require.Len(t, page2.Badges, 1)
	assert.Equal(t, uint64(2), page2.Badges[0].ID)
	assert.Empty(t, page2.NextBookmark)
}

func TestGetAllBadgesEmptyLedger(t *testing.T) {
	sc, stub := bootstrappedContract(t)

	resp, err := sc.GetAllBadges(ctxFor(stub, adminID), "bogus", "")
	require.NoError(t, err)
	assert.NotNil(t, resp.Badges, "empty result must be [], not null")
	assert.Empty(t, resp.Badges)
	assert.Equal(t, int32(0), resp.FetchedCount)
}
