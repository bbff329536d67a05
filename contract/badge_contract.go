package contract

import (
	"errors"
	"fmt"

	"impactbadge/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("impactbadge.badgecontract")

// Object types for composite keys, also usable as 'docType' for CouchDB queries.
const (
	badgeObjectType        = "Badge"            // Badge records. Attribute: zero-padded badge ID.
	badgeOwnerObjectType   = "BadgeOwner"       // Reverse index owner FullID -> badge ID.
	issuanceFlagObjectType = "IssuanceFlag"     // One-shot per-identity issuance flag. Never reset.
	identityLevelType      = "IdentityLevel"    // Per-identity cumulative level counter.
	transferAuthObjectType = "TransferAuth"     // One-shot transfer authorizations.
	callerAllowObjectType  = "AuthorizedCaller" // Reward distribution allow-list.
	verifierObjectType     = "VerifierOverride" // Admin-maintained verifier override set.
	settingObjectType      = "Setting"          // Collaborator endpoint configuration.
)

// Constants for input validation and limits
const (
	maxStringInputLength = 256

	// MaxLevel is the closed upper bound for both badge level and impact score.
	MaxLevel = 10

	// Fixed reward amounts credited through the external balance ledger.
	claimRewardAmount   = uint64(100)
	upgradeRewardAmount = uint64(50)
)

// ImpactBadgeSmartContract manages soulbound achievement badges: one-time
// issuance per verified identity, bounded level progression, one-shot transfer
// exceptions, and reward distribution through a cooperating balance ledger.
// @contract:ImpactBadgeSmartContract
type ImpactBadgeSmartContract struct {
	contractapi.Contract

	guard entryGuard
}

// actorInfo holds commonly needed details about the transaction invoker.
type actorInfo struct {
	fullID string
	alias  string
	mspID  string
}

// Instantiate is called during chaincode instantiation.
func (s *ImpactBadgeSmartContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("ImpactBadgeSmartContract Instantiated/Upgraded")
}

// CategoryForLevel derives the human-facing tier label from a badge level.
// Pure function; the same mapping is used for display and eligibility tiering.
func CategoryForLevel(level int) (model.BadgeCategory, error) {
	switch {
	case level >= 1 && level <= 3:
		return model.CategoryNewbie, nil
	case level >= 4 && level <= 6:
		return model.CategoryPro, nil
	case level >= 7 && level <= 9:
		return model.CategoryHero, nil
	case level == MaxLevel:
		return model.CategoryGuardian, nil
	default:
		return "", errInvalidRange("level", level, 1, MaxLevel)
	}
}

// --- Identity & Verification Wrappers (Delegating to IdentityManager) ---

func (s *ImpactBadgeSmartContract) RegisterIdentity(ctx contractapi.TransactionContextInterface, targetFullID, shortName string) error {
	logger.Infof("Chaincode Call: RegisterIdentity for '%s' with alias '%s'", targetFullID, shortName)
	return NewIdentityManager(ctx).RegisterIdentity(targetFullID, shortName)
}

// VerifyIdentity sets the verification flag for an identity. Admin-only and
// idempotent; re-verifying an already-verified identity is a no-op that still
// emits the notification.
func (s *ImpactBadgeSmartContract) VerifyIdentity(ctx contractapi.TransactionContextInterface, identityOrAlias string) error {
	logger.Infof("Chaincode Call: VerifyIdentity for '%s'", identityOrAlias)
	return NewIdentityManager(ctx).VerifyIdentity(identityOrAlias)
}

func (s *ImpactBadgeSmartContract) IsVerified(ctx contractapi.TransactionContextInterface, identityOrAlias string) (bool, error) {
	logger.Debugf("Chaincode Call: IsVerified for '%s'", identityOrAlias)
	return NewIdentityManager(ctx).IsVerified(identityOrAlias)
}

func (s *ImpactBadgeSmartContract) MakeIdentityAdmin(ctx contractapi.TransactionContextInterface, identityOrAlias string) error {
	logger.Infof("Chaincode Call: MakeAdmin for '%s'", identityOrAlias)
	return NewIdentityManager(ctx).MakeAdmin(identityOrAlias)
}

func (s *ImpactBadgeSmartContract) RemoveIdentityAdmin(ctx contractapi.TransactionContextInterface, identityOrAlias string) error {
	logger.Infof("Chaincode Call: RemoveAdmin for '%s'", identityOrAlias)
	return NewIdentityManager(ctx).RemoveAdmin(identityOrAlias)
}

func (s *ImpactBadgeSmartContract) GetIdentityDetails(ctx contractapi.TransactionContextInterface, identityOrAlias string) (*model.IdentityInfo, error) {
	logger.Debugf("Chaincode Call: GetIdentityDetails for '%s'", identityOrAlias)
	im := NewIdentityManager(ctx)

	// Admins may inspect anyone; everyone else only themselves.
	isCallerAdmin, err := im.IsCurrentUserAdmin()
	if err != nil {
		return nil, fmt.Errorf("GetIdentityDetails: failed to check admin status: %w", err)
	}
	if !isCallerAdmin {
		callerFullID, err := im.GetCurrentIdentityFullID()
		if err != nil {
			return nil, fmt.Errorf("GetIdentityDetails: failed to get caller's FullID: %w", err)
		}
		targetFullID, err := im.ResolveIdentity(identityOrAlias)
		if err != nil {
			return nil, fmt.Errorf("GetIdentityDetails: failed to resolve target identity '%s': %w", identityOrAlias, err)
		}
		if callerFullID != targetFullID {
			return nil, errors.New("unauthorized: only admins or the identity owner can get these details")
		}
	}
	return im.GetIdentityInfo(identityOrAlias)
}

func (s *ImpactBadgeSmartContract) GetAllIdentities(ctx contractapi.TransactionContextInterface) ([]model.IdentityInfo, error) {
	logger.Debug("Chaincode Call: GetAllIdentities")
	return NewIdentityManager(ctx).GetAllRegisteredIdentities()
}

// BootstrapLedger registers the caller as the first admin when no admin exists.
func (s *ImpactBadgeSmartContract) BootstrapLedger(ctx contractapi.TransactionContextInterface) error {
	logger.Info("Chaincode Call: BootstrapLedger")
	return NewIdentityManager(ctx).Bootstrap()
}
