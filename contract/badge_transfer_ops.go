package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"impactbadge/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// Badges are soulbound: two states per badge, Locked (no TransferAuth record,
// the default) and Authorized(recipient). Authorization is one-shot — executing
// the transfer or revoking deletes the record.

// getTransferAuth loads the authorization record for a badge, nil when Locked.
func (s *ImpactBadgeSmartContract) getTransferAuth(ctx contractapi.TransactionContextInterface, badgeID uint64) (*model.TransferAuthorization, error) {
	authKey, err := s.createTransferAuthKey(ctx, badgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transfer auth key for %d: %w", badgeID, err)
	}
	authBytes, err := ctx.GetStub().GetState(authKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error reading transfer auth for %d: %w", badgeID, err)
	}
	if authBytes == nil {
		return nil, nil
	}
	var auth model.TransferAuthorization
	if err := json.Unmarshal(authBytes, &auth); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transfer auth for %d: %w", badgeID, err)
	}
	return &auth, nil
}

// AuthorizeTransfer grants the one-shot exception to the transfer lock for a
// single (badge, recipient) pair. Admin-only. Re-authorizing overwrites any
// previous recipient.
func (s *ImpactBadgeSmartContract) AuthorizeTransfer(ctx contractapi.TransactionContextInterface, badgeIDStr, recipientOrAlias string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("AuthorizeTransfer: failed to get actor info: %w", err)
	}
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("AuthorizeTransfer: %w", err)
	}

	badgeID, err := parseBadgeID(badgeIDStr)
	if err != nil {
		return fmt.Errorf("AuthorizeTransfer: %w", err)
	}
	if strings.TrimSpace(recipientOrAlias) == "" {
		return errInvalidAddress("recipient")
	}
	recipientFullID, err := im.ResolveIdentity(recipientOrAlias)
	if err != nil {
		return errInvalidAddress("recipient '" + recipientOrAlias + "'")
	}

	badge, err := s.getBadgeByID(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("AuthorizeTransfer: %w", err)
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return fmt.Errorf("AuthorizeTransfer: %w", err)
	}
	auth := model.TransferAuthorization{
		ObjectType:   transferAuthObjectType,
		BadgeID:      badgeID,
		Recipient:    recipientFullID,
		AuthorizedBy: actor.fullID,
		AuthorizedAt: now,
	}
	authKey, err := s.createTransferAuthKey(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("AuthorizeTransfer: %w", err)
	}
	authBytes, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("AuthorizeTransfer: failed to marshal transfer auth for %d: %w", badgeID, err)
	}
	if err := ctx.GetStub().PutState(authKey, authBytes); err != nil {
		return fmt.Errorf("AuthorizeTransfer: failed to save transfer auth for %d: %w", badgeID, err)
	}

	s.emitEvent(ctx, "TransferAuthorized", map[string]interface{}{
		"tokenId": badgeID,
		"from":    badge.OwnerID,
		"to":      recipientFullID,
	})
	logger.Infof("Transfer of badge %d authorized to '%s' by admin '%s'", badgeID, recipientFullID, actor.alias)
	return nil
}

// RevokeTransferAuthorization clears an outstanding authorization. Admin-only;
// fails with NOT_AUTHORIZED when the badge is already Locked.
func (s *ImpactBadgeSmartContract) RevokeTransferAuthorization(ctx contractapi.TransactionContextInterface, badgeIDStr string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("RevokeTransferAuthorization: %w", err)
	}
	badgeID, err := parseBadgeID(badgeIDStr)
	if err != nil {
		return fmt.Errorf("RevokeTransferAuthorization: %w", err)
	}

	auth, err := s.getTransferAuth(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("RevokeTransferAuthorization: %w", err)
	}
	if auth == nil {
		return errNotAuthorized(badgeID)
	}

	authKey, err := s.createTransferAuthKey(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("RevokeTransferAuthorization: %w", err)
	}
	if err := ctx.GetStub().DelState(authKey); err != nil {
		return fmt.Errorf("RevokeTransferAuthorization: failed to delete transfer auth for %d: %w", badgeID, err)
	}

	s.emitEvent(ctx, "TransferAuthorizationRevoked", map[string]interface{}{
		"tokenId": badgeID,
	})
	logger.Infof("Transfer authorization for badge %d revoked", badgeID)
	return nil
}

// TransferBadge executes an authorized transfer. The caller must be the
// current owner and the standing authorization must name exactly the supplied
// recipient; any mismatch fails with TRANSFER_RESTRICTED. The authorization is
// consumed on success (one-shot, self-clearing) and the owner index moves with
// the badge.
func (s *ImpactBadgeSmartContract) TransferBadge(ctx contractapi.TransactionContextInterface, badgeIDStr, recipientOrAlias string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("TransferBadge: failed to get actor info: %w", err)
	}
	badgeID, err := parseBadgeID(badgeIDStr)
	if err != nil {
		return fmt.Errorf("TransferBadge: %w", err)
	}
	im := NewIdentityManager(ctx)
	recipientFullID, err := im.ResolveIdentity(recipientOrAlias)
	if err != nil {
		return errInvalidAddress("recipient '" + recipientOrAlias + "'")
	}

	badge, err := s.getBadgeByID(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("TransferBadge: %w", err)
	}

	// Ownership first: a non-owner learns nothing about the authorization
	// state, even with a matching recipient.
	if badge.OwnerID != actor.fullID {
		return errTransferRestricted(badgeID, "caller is not the current owner")
	}

	auth, err := s.getTransferAuth(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("TransferBadge: %w", err)
	}
	if auth == nil {
		return errTransferRestricted(badgeID, "badge is soulbound and has no transfer authorization")
	}
	if auth.Recipient != recipientFullID {
		return errTransferRestricted(badgeID, "recipient does not match the authorized recipient")
	}

	if err := s.executeTransfer(ctx, badge, recipientFullID); err != nil {
		return fmt.Errorf("TransferBadge: %w", err)
	}

	s.emitEvent(ctx, "BadgeTransferred", map[string]interface{}{
		"tokenId": badgeID,
		"from":    actor.fullID,
		"to":      recipientFullID,
	})
	logger.Infof("Badge %d transferred from '%s' to '%s'", badgeID, actor.fullID, recipientFullID)
	return nil
}

// AdminRecoveryTransfer authorizes and executes a transfer in one operation,
// for lost-key recovery. Admin-only; follows the same one-shot clearing
// semantics, so no residual authorization survives the operation.
func (s *ImpactBadgeSmartContract) AdminRecoveryTransfer(ctx contractapi.TransactionContextInterface, badgeIDStr, recipientOrAlias string) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("AdminRecoveryTransfer: failed to get actor info: %w", err)
	}
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("AdminRecoveryTransfer: %w", err)
	}
	badgeID, err := parseBadgeID(badgeIDStr)
	if err != nil {
		return fmt.Errorf("AdminRecoveryTransfer: %w", err)
	}
	recipientFullID, err := im.ResolveIdentity(recipientOrAlias)
	if err != nil {
		return errInvalidAddress("recipient '" + recipientOrAlias + "'")
	}

	badge, err := s.getBadgeByID(ctx, badgeID)
	if err != nil {
		return fmt.Errorf("AdminRecoveryTransfer: %w", err)
	}
	fromFullID := badge.OwnerID

	if err := s.executeTransfer(ctx, badge, recipientFullID); err != nil {
		return fmt.Errorf("AdminRecoveryTransfer: %w", err)
	}

	s.emitEvent(ctx, "AdminTransfer", map[string]interface{}{
		"tokenId": badgeID,
		"from":    fromFullID,
		"to":      recipientFullID,
	})
	logger.Infof("Admin '%s' recovered badge %d from '%s' to '%s'", actor.alias, badgeID, fromFullID, recipientFullID)
	return nil
}

// executeTransfer moves ownership and maintains the invariants shared by the
// owner-initiated and recovery paths: the recipient must not already hold a
// badge, the owner index is updated on both sides, and any standing
// authorization is consumed.
func (s *ImpactBadgeSmartContract) executeTransfer(ctx contractapi.TransactionContextInterface, badge *model.Badge, recipientFullID string) error {
	if recipientFullID == badge.OwnerID {
		return errTransferRestricted(badge.ID, "recipient already owns this badge")
	}
	if _, holding, err := s.ownedBadgeID(ctx, recipientFullID); err != nil {
		return err
	} else if holding {
		return errTransferRestricted(badge.ID, "recipient already holds a badge")
	}

	now, err := s.getCurrentTxTimestamp(ctx)
	if err != nil {
		return err
	}

	oldOwner := badge.OwnerID
	im := NewIdentityManager(ctx)
	recipientAlias := ""
	if info, err := im.GetIdentityInfo(recipientFullID); err == nil && info != nil {
		recipientAlias = info.ShortName
	}

	badge.OwnerID = recipientFullID
	badge.OwnerAlias = recipientAlias
	badge.LastUpdatedAt = now
	if err := s.putBadge(ctx, badge); err != nil {
		return err
	}

	oldIndexKey, err := s.createOwnerIndexKey(ctx, oldOwner)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().DelState(oldIndexKey); err != nil {
		return fmt.Errorf("failed to clear owner index for '%s': %w", oldOwner, err)
	}
	newIndexKey, err := s.createOwnerIndexKey(ctx, recipientFullID)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().PutState(newIndexKey, []byte(strconv.FormatUint(badge.ID, 10))); err != nil {
		return fmt.Errorf("failed to save owner index for '%s': %w", recipientFullID, err)
	}

	// Consume any standing authorization: one-shot, whether the transfer went
	// through the owner path or the recovery path.
	authKey, err := s.createTransferAuthKey(ctx, badge.ID)
	if err != nil {
		return err
	}
	if err := ctx.GetStub().DelState(authKey); err != nil {
		return fmt.Errorf("failed to clear transfer auth for %d: %w", badge.ID, err)
	}
	return nil
}
