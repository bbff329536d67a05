package contract

import (
	"fmt"
	"strconv"

	"impactbadge/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// badgeCounterKey holds the next badge id to assign. Plain key: it is a
// singleton, not a record family.
const badgeCounterKey = "badgeIDCounter"

// nextBadgeID reads the id counter without advancing it.
func (s *ImpactBadgeSmartContract) nextBadgeID(ctx contractapi.TransactionContextInterface) (uint64, error) {
	counterBytes, err := ctx.GetStub().GetState(badgeCounterKey)
	if err != nil {
		return 0, fmt.Errorf("ledger error reading badge id counter: %w", err)
	}
	if counterBytes == nil {
		return 0, nil
	}
	next, err := strconv.ParseUint(string(counterBytes), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt badge id counter: %w", err)
	}
	return next, nil
}

// IssueBadge creates the caller's one-and-only badge at level 1, impact 1.
// Requires the caller to be verified and never to have issued before. The
// issuance flag is set exactly once per identity and is never reset — this is
// the single-issuance invariant. Local state is fully committed and the
// Issued notification emitted before the outbound reward call is made.
func (s *ImpactBadgeSmartContract) IssueBadge(ctx contractapi.TransactionContextInterface) (uint64, error) {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return 0, fmt.Errorf("IssueBadge: failed to get actor info: %w", err)
	}
	if err := s.guard.enter(ctx.GetStub().GetTxID(), "issue"); err != nil {
		return 0, fmt.Errorf("IssueBadge: %w", err)
	}
	defer s.guard.exit(ctx.GetStub().GetTxID(), "issue")

	im := NewIdentityManager(ctx)
	verified, err := im.IsVerified(actor.fullID)
	if err != nil {
		return 0, fmt.Errorf("IssueBadge: failed to check verification for '%s': %w", actor.fullID, err)
	}
	if !verified {
		return 0, errNotVerified(actor.fullID)
	}

	issued, err := s.hasIssuedFlag(ctx, actor.fullID)
	if err != nil {
		return 0, fmt.Errorf("IssueBadge: %w", err)
	}
	if issued {
		return 0, errAlreadyIssued(actor.fullID)
	}

	// The owner index is one badge per identity; a holder of a transferred
	// badge must part with it before claiming their own.
	if _, holding, err := s.ownedBadgeID(ctx, actor.fullID); err != nil {
		return 0, fmt.Errorf("IssueBadge: %w", err)
	} else if holding {
		return 0, errAlreadyIssued(actor.fullID)
	}

	badgeID, err := s.nextBadgeID(ctx)
	if err != nil {
		return 0, fmt.Errorf("IssueBadge: %w", err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return 0, fmt.Errorf("IssueBadge: %w", err)
	}

	logger.Infof("Issuing badge %d to verified identity '%s' (alias: '%s')", badgeID, actor.fullID, actor.alias)

	badge := model.Badge{
		ObjectType:    badgeObjectType,
		ID:            badgeID,
		OwnerID:       actor.fullID,
		OwnerAlias:    actor.alias,
		Level:         1,
		ImpactScore:   1,
		IssuedTo:      actor.fullID,
		IssuedAt:      now,
		LastUpdatedAt: now,
	}
	if err := s.putBadge(ctx, &badge); err != nil {
		return 0, fmt.Errorf("IssueBadge: %w", err)
	}

	flagKey, err := s.createIssuanceFlagKey(ctx, actor.fullID)
	if err != nil {
		return 0, fmt.Errorf("IssueBadge: %w", err)
	}
	if err := ctx.GetStub().PutState(flagKey, []byte("true")); err != nil {
		return 0, fmt.Errorf("IssueBadge: failed to set issuance flag for '%s': %w", actor.fullID, err)
	}

	indexKey, err := s.createOwnerIndexKey(ctx, actor.fullID)
	if err != nil {
		return 0, fmt.Errorf("IssueBadge: %w", err)
	}
	if err := ctx.GetStub().PutState(indexKey, []byte(strconv.FormatUint(badgeID, 10))); err != nil {
		return 0, fmt.Errorf("IssueBadge: failed to save owner index for '%s': %w", actor.fullID, err)
	}

	if err := ctx.GetStub().PutState(badgeCounterKey, []byte(strconv.FormatUint(badgeID+1, 10))); err != nil {
		return 0, fmt.Errorf("IssueBadge: failed to advance badge id counter: %w", err)
	}

	// State is committed; notify, then call out.
	s.emitEvent(ctx, "Issued", map[string]interface{}{
		"identity": actor.fullID,
		"tokenId":  badgeID,
		"level":    1,
	})

	if err := s.distributeReward(ctx, internalCaller, actor.fullID, claimRewardAmount, "claim"); err != nil {
		return 0, fmt.Errorf("IssueBadge: reward distribution failed: %w", err)
	}

	logger.Infof("Badge %d issued to '%s'", badgeID, actor.alias)
	return badgeID, nil
}

// HasIssued reports whether an identity's one-time issuance has happened.
func (s *ImpactBadgeSmartContract) HasIssued(ctx contractapi.TransactionContextInterface, identityOrAlias string) (bool, error) {
	logger.Debugf("Chaincode Call: HasIssued for '%s'", identityOrAlias)
	im := NewIdentityManager(ctx)
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		return false, fmt.Errorf("HasIssued: %w", err)
	}
	return s.hasIssuedFlag(ctx, fullID)
}

// OwnedBadgeCount returns how many badges an identity currently holds. The
// owner index is one-to-one, so the answer is 0 or 1.
func (s *ImpactBadgeSmartContract) OwnedBadgeCount(ctx contractapi.TransactionContextInterface, identityOrAlias string) (int, error) {
	logger.Debugf("Chaincode Call: OwnedBadgeCount for '%s'", identityOrAlias)
	im := NewIdentityManager(ctx)
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		return 0, fmt.Errorf("OwnedBadgeCount: %w", err)
	}
	_, holding, err := s.ownedBadgeID(ctx, fullID)
	if err != nil {
		return 0, fmt.Errorf("OwnedBadgeCount: %w", err)
	}
	if holding {
		return 1, nil
	}
	return 0, nil
}

// SetImpactScore overwrites a badge's impact score. Admin-only; the score is
// independent of level and must stay within [1, MaxLevel].
func (s *ImpactBadgeSmartContract) SetImpactScore(ctx contractapi.TransactionContextInterface, badgeIDStr string, score int) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("SetImpactScore: %w", err)
	}
	badgeID, err := parseBadgeID(badgeIDStr)
	if err != nil {
		return fmt.Errorf("SetImpactScore: %w", err)
	}
	if score < 1 || score > MaxLevel {
		return errInvalidRange("impactScore", score, 1, MaxLevel)
	}

	badge, err := s.getBadgeByID(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("SetImpactScore: %w", err)
	}
	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("SetImpactScore: %w", err)
	}
	badge.ImpactScore = score
	badge.LastUpdatedAt = now
	if err := s.putBadge(ctx, badge); err != nil {
		return fmt.Errorf("SetImpactScore: %w", err)
	}
	logger.Infof("Impact score of badge %d set to %d", badgeID, score)
	return nil
}
