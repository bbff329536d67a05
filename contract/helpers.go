package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"impactbadge/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
)

// --- Core Helper Methods (used across multiple operations) ---

// getCurrentTxTimestamp retrieves the current transaction timestamp from the stub.
func (s *ImpactBadgeSmartContract) getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

// getCurrentActorInfo resolves the invoker's full ID, alias and MSP.
func (s *ImpactBadgeSmartContract) getCurrentActorInfo(ctx contractapi.TransactionContextInterface) (*actorInfo, error) {
	im := NewIdentityManager(ctx)
	fullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's FullID: %w", err)
	}

	var alias string
	idInfo, errGetInfo := im.GetIdentityInfo(fullID)
	if errGetInfo == nil && idInfo != nil {
		alias = idInfo.ShortName
	} else {
		logger.Debugf("Could not retrieve IdentityInfo (or alias) for actor %s: %v. Falling back to CN.", fullID, errGetInfo)
		alias = aliasFromFullID(fullID)
	}

	mspID, err := ctx.GetClientIdentity().GetMSPID()
	if err != nil {
		return nil, fmt.Errorf("failed to get current actor's MSPID: %w", err)
	}
	return &actorInfo{fullID: fullID, alias: alias, mspID: mspID}, nil
}

// --- Badge Key Helpers ---

// badgeKeyAttribute zero-pads badge ids so composite keys sort numerically.
func badgeKeyAttribute(badgeID uint64) string {
	return fmt.Sprintf("%020d", badgeID)
}

func (s *ImpactBadgeSmartContract) createBadgeCompositeKey(ctx contractapi.TransactionContextInterface, badgeID uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(badgeObjectType, []string{badgeKeyAttribute(badgeID)})
}

func (s *ImpactBadgeSmartContract) createOwnerIndexKey(ctx contractapi.TransactionContextInterface, ownerFullID string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(badgeOwnerObjectType, []string{ownerFullID})
}

func (s *ImpactBadgeSmartContract) createIssuanceFlagKey(ctx contractapi.TransactionContextInterface, fullID string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(issuanceFlagObjectType, []string{fullID})
}

func (s *ImpactBadgeSmartContract) createIdentityLevelKey(ctx contractapi.TransactionContextInterface, fullID string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(identityLevelType, []string{fullID})
}

func (s *ImpactBadgeSmartContract) createTransferAuthKey(ctx contractapi.TransactionContextInterface, badgeID uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(transferAuthObjectType, []string{badgeKeyAttribute(badgeID)})
}

// parseBadgeID parses the string badge id accepted at the chaincode boundary.
func parseBadgeID(badgeIDStr string) (uint64, error) {
	trimmed := strings.TrimSpace(badgeIDStr)
	if trimmed == "" {
		return 0, errors.New("badgeID cannot be empty")
	}
	id, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("badgeID '%s' is not a valid unsigned integer: %w", badgeIDStr, err)
	}
	return id, nil
}

// --- Badge Load/Store Helpers ---

// getBadgeByID loads a badge record, failing with NO_TOKEN if absent.
func (s *ImpactBadgeSmartContract) getBadgeByID(ctx contractapi.TransactionContextInterface, badgeID uint64) (*model.Badge, error) {
	badgeKey, err := s.createBadgeCompositeKey(ctx, badgeID)
	if err != nil {
		return nil, fmt.Errorf("failed to create badge composite key for %d: %w", badgeID, err)
	}
	badgeBytes, err := ctx.GetStub().GetState(badgeKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error retrieving badge %d: %w", badgeID, err)
	}
	if badgeBytes == nil {
		return nil, errBadgeNotFound(badgeID)
	}
	var badge model.Badge
	if err := json.Unmarshal(badgeBytes, &badge); err != nil {
		return nil, fmt.Errorf("failed to unmarshal badge %d: %w", badgeID, err)
	}
	return &badge, nil
}

func (s *ImpactBadgeSmartContract) putBadge(ctx contractapi.TransactionContextInterface, badge *model.Badge) error {
	badgeKey, err := s.createBadgeCompositeKey(ctx, badge.ID)
	if err != nil {
		return fmt.Errorf("failed to create badge composite key for %d: %w", badge.ID, err)
	}
	badgeBytes, err := json.Marshal(badge)
	if err != nil {
		return fmt.Errorf("failed to marshal badge %d: %w", badge.ID, err)
	}
	if err := ctx.GetStub().PutState(badgeKey, badgeBytes); err != nil {
		return fmt.Errorf("failed to save badge %d to ledger: %w", badge.ID, err)
	}
	return nil
}

// ownedBadgeID reads the reverse owner index. Returns (0, false) when the
// identity holds no badge. Reverse index, never a scan: linear scans over
// badge records do not stay correct under out-of-order id assignment.
func (s *ImpactBadgeSmartContract) ownedBadgeID(ctx contractapi.TransactionContextInterface, ownerFullID string) (uint64, bool, error) {
	indexKey, err := s.createOwnerIndexKey(ctx, ownerFullID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create owner index key for '%s': %w", ownerFullID, err)
	}
	idBytes, err := ctx.GetStub().GetState(indexKey)
	if err != nil {
		return 0, false, fmt.Errorf("ledger error reading owner index for '%s': %w", ownerFullID, err)
	}
	if idBytes == nil {
		return 0, false, nil
	}
	id, err := strconv.ParseUint(string(idBytes), 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt owner index for '%s': %w", ownerFullID, err)
	}
	return id, true, nil
}

func (s *ImpactBadgeSmartContract) hasIssuedFlag(ctx contractapi.TransactionContextInterface, fullID string) (bool, error) {
	flagKey, err := s.createIssuanceFlagKey(ctx, fullID)
	if err != nil {
		return false, fmt.Errorf("failed to create issuance flag key for '%s': %w", fullID, err)
	}
	flagBytes, err := ctx.GetStub().GetState(flagKey)
	if err != nil {
		return false, fmt.Errorf("ledger error reading issuance flag for '%s': %w", fullID, err)
	}
	return flagBytes != nil, nil
}

// --- Validation Helper Functions ---

func (s *ImpactBadgeSmartContract) validateRequiredString(input, field string, max int) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	if len(input) > max {
		return fmt.Errorf("%s exceeds max length %d", field, max)
	}
	return nil
}

// requireAdmin is a helper to check if the current caller is an admin.
func (s *ImpactBadgeSmartContract) requireAdmin(ctx contractapi.TransactionContextInterface, im *IdentityManager) error {
	isCallerAdmin, err := im.IsCurrentUserAdmin()
	if err != nil {
		return fmt.Errorf("failed to check admin status: %w", err)
	}
	if !isCallerAdmin {
		callerID, _ := im.GetCurrentIdentityFullID() // Best effort to get ID for logging
		return fmt.Errorf("unauthorized: caller '%s' is not an admin", callerID)
	}
	return nil
}

// emitEvent sends a chaincode event with a JSON payload. Event shapes are a
// published interface; indexers and leaderboards depend on the exact field
// names, so payloads are built at call sites and passed through unchanged.
func (s *ImpactBadgeSmartContract) emitEvent(ctx contractapi.TransactionContextInterface, eventName string, payload map[string]interface{}) {
	for k, v := range payload {
		if t, ok := v.(time.Time); ok {
			payload[k] = t.Format(time.RFC3339)
		}
	}
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		logger.Warningf("emitEvent: Failed to marshal payload for event '%s': %v", eventName, err)
		return
	}
	if errSet := ctx.GetStub().SetEvent(eventName, eventBytes); errSet != nil {
		logger.Warningf("emitEvent: Failed to set event '%s': %v", eventName, errSet)
	}
}
