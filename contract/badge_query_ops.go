package contract

import (
	"encoding/json"
	"fmt"
	"strconv"

	"impactbadge/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Query Functions ---

// GetBadge returns the full badge record by id.
func (s *ImpactBadgeSmartContract) GetBadge(ctx contractapi.TransactionContextInterface, badgeIDStr string) (*model.Badge, error) {
	logger.Debugf("Chaincode Call: GetBadge for '%s'", badgeIDStr)
	badgeID, err := parseBadgeID(badgeIDStr)
	if err != nil {
		return nil, fmt.Errorf("GetBadge: %w", err)
	}
	return s.getBadgeByID(ctx, badgeID)
}

// GetBadgeByOwner returns the summary of the badge an identity currently
// holds: id, impact score, level, and the level's display category. Fails with
// NO_TOKEN when the identity holds nothing.
func (s *ImpactBadgeSmartContract) GetBadgeByOwner(ctx contractapi.TransactionContextInterface, identityOrAlias string) (*model.BadgeSummary, error) {
	logger.Debugf("Chaincode Call: GetBadgeByOwner for '%s'", identityOrAlias)
	im := NewIdentityManager(ctx)
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		return nil, fmt.Errorf("GetBadgeByOwner: %w", err)
	}

	badgeID, holding, err := s.ownedBadgeID(ctx, fullID)
	if err != nil {
		return nil, fmt.Errorf("GetBadgeByOwner: %w", err)
	}
	if !holding {
		return nil, errNoToken(fullID)
	}

	badge, err := s.getBadgeByID(ctx, badgeID)
	if err != nil {
		return nil, fmt.Errorf("GetBadgeByOwner: %w", err)
	}
	category, err := CategoryForLevel(badge.Level)
	if err != nil {
		return nil, fmt.Errorf("GetBadgeByOwner: %w", err)
	}
	return &model.BadgeSummary{
		BadgeID:     badge.ID,
		ImpactScore: badge.ImpactScore,
		Level:       badge.Level,
		Category:    category,
	}, nil
}

// GetAllBadges pages through every badge record in id order. Page size
// defaults to 10 and is capped at 100; the returned bookmark resumes the scan.
func (s *ImpactBadgeSmartContract) GetAllBadges(ctx contractapi.TransactionContextInterface, pageSizeStr string, bookmark string) (*model.PaginatedBadgeResponse, error) {
	pageSize, err := strconv.ParseInt(pageSizeStr, 10, 32)
	if err != nil || pageSize <= 0 {
		logger.Warningf("GetAllBadges: Invalid pageSize '%s', using default of 10. Error: %v", pageSizeStr, err)
		pageSize = 10
	}
	if pageSize > 100 {
		logger.Warningf("GetAllBadges: Requested pageSize %d exceeds max of 100. Capping at 100.", pageSize)
		pageSize = 100
	}
	logger.Infof("GetAllBadges: Listing badges (pageSize: %d, bookmark: '%s')", pageSize, bookmark)

	resultsIterator, metadata, err := ctx.GetStub().GetStateByPartialCompositeKeyWithPagination(badgeObjectType, []string{}, int32(pageSize), bookmark)
	if err != nil {
		return nil, fmt.Errorf("GetAllBadges: failed to get badge iterator: %w", err)
	}
	defer resultsIterator.Close()

	badges := []*model.Badge{}
	fetchedCount := int32(0)

	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			logger.Warningf("GetAllBadges: Error iterating results: %v. Skipping.", iterErr)
			continue
		}
		var badge model.Badge
		if errUnmarshal := json.Unmarshal(queryResponse.Value, &badge); errUnmarshal != nil {
			logger.Warningf("GetAllBadges: Error unmarshalling badge (key: %s): %v. Skipping.", queryResponse.Key, errUnmarshal)
			continue
		}
		badges = append(badges, &badge)
		fetchedCount++
	}

	logger.Infof("GetAllBadges: Retrieved %d badges for this page.", fetchedCount)
	return &model.PaginatedBadgeResponse{
		Badges:       badges, // Will be [] if empty, not null
		NextBookmark: metadata.GetBookmark(),
		FetchedCount: fetchedCount,
	}, nil
}
