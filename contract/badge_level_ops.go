package contract

import (
	"fmt"
	"strconv"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// identityLevel reads the per-identity cumulative level counter. Tracked
// separately from the badge's own level and never decremented, even when the
// badge later transfers away.
func (s *ImpactBadgeSmartContract) identityLevel(ctx contractapi.TransactionContextInterface, fullID string) (int, error) {
	levelKey, err := s.createIdentityLevelKey(ctx, fullID)
	if err != nil {
		return 0, fmt.Errorf("failed to create identity level key for '%s': %w", fullID, err)
	}
	levelBytes, err := ctx.GetStub().GetState(levelKey)
	if err != nil {
		return 0, fmt.Errorf("ledger error reading identity level for '%s': %w", fullID, err)
	}
	if levelBytes == nil {
		return 0, nil
	}
	level, err := strconv.Atoi(string(levelBytes))
	if err != nil {
		return 0, fmt.Errorf("corrupt identity level for '%s': %w", fullID, err)
	}
	return level, nil
}

// UpgradeBadge advances a badge one level, bounded at MaxLevel. The caller
// must be verified, must have issued, and must currently own the badge. Both
// the badge level and the caller's identity level counter advance together.
// As with issuance, local state commits and the notification is emitted before
// the outbound reward call.
func (s *ImpactBadgeSmartContract) UpgradeBadge(ctx contractapi.TransactionContextInterface, badgeIDStr string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("UpgradeBadge: failed to get actor info: %w", err)
	}
	if err := s.guard.enter(ctx.GetStub().GetTxID(), "upgrade"); err != nil {
		return fmt.Errorf("UpgradeBadge: %w", err)
	}
	defer s.guard.exit(ctx.GetStub().GetTxID(), "upgrade")

	badgeID, err := parseBadgeID(badgeIDStr)
	if err != nil {
		return fmt.Errorf("UpgradeBadge: %w", err)
	}

	im := NewIdentityManager(ctx)
	verified, err := im.IsVerified(actor.fullID)
	if err != nil {
		return fmt.Errorf("UpgradeBadge: failed to check verification for '%s': %w", actor.fullID, err)
	}
	if !verified {
		return errNotVerified(actor.fullID)
	}

	issued, err := s.hasIssuedFlag(ctx, actor.fullID)
	if err != nil {
		return fmt.Errorf("UpgradeBadge: %w", err)
	}
	if !issued {
		return errNoToken(actor.fullID)
	}

	badge, err := s.getBadgeByID(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("UpgradeBadge: %w", err)
	}
	if badge.OwnerID != actor.fullID {
		return errNotTokenOwner(badgeID, actor.fullID)
	}
	if badge.Level >= MaxLevel {
		return errMaxLevelReached(badgeID, badge.Level)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("UpgradeBadge: %w", err)
	}

	oldLevel := badge.Level
	badge.Level++
	badge.LastUpdatedAt = now
	if err := s.putBadge(ctx, badge); err != nil {
		return fmt.Errorf("UpgradeBadge: %w", err)
	}

	currentIdentityLevel, err := s.identityLevel(ctx, actor.fullID)
	if err != nil {
		return fmt.Errorf("UpgradeBadge: %w", err)
	}
	newIdentityLevel := currentIdentityLevel + 1
	levelKey, err := s.createIdentityLevelKey(ctx, actor.fullID)
	if err != nil {
		return fmt.Errorf("UpgradeBadge: %w", err)
	}
	if err := ctx.GetStub().PutState(levelKey, []byte(strconv.Itoa(newIdentityLevel))); err != nil {
		return fmt.Errorf("UpgradeBadge: failed to save identity level for '%s': %w", actor.fullID, err)
	}

	logger.Infof("Badge %d upgraded %d -> %d by '%s' (identity level now %d)", badgeID, oldLevel, badge.Level, actor.alias, newIdentityLevel)

	s.emitEvent(ctx, "LevelUpgraded", map[string]interface{}{
		"identity":      actor.fullID,
		"tokenId":       badgeID,
		"newLevel":      badge.Level,
		"identityLevel": newIdentityLevel,
	})

	if err := s.distributeReward(ctx, internalCaller, actor.fullID, upgradeRewardAmount, "upgrade"); err != nil {
		return fmt.Errorf("UpgradeBadge: reward distribution failed: %w", err)
	}
	return nil
}
