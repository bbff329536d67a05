package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"impactbadge/model"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var rewardLogger = flogging.MustGetLogger("impactbadge.rewardauthority")

// internalCaller marks reward requests originating from this contract's own
// issuance and upgrade paths, as opposed to allow-listed external callers.
const internalCaller = ""

// EligibilityOutcome is the explicit result of the eligibility lookup, so the
// proceed-anyway policy is visible in the type rather than hidden in error
// handling.
type EligibilityOutcome string

const (
	// EligibilityConfirmed: the manager answered and the user is eligible.
	EligibilityConfirmed EligibilityOutcome = "CONFIRMED"
	// EligibilityUnconfirmed: no manager configured, the call failed, or the
	// payload was unreadable. Distribution proceeds.
	EligibilityUnconfirmed EligibilityOutcome = "UNCONFIRMED"
	// EligibilityDenied: the manager answered and explicitly reported the
	// user ineligible. Distribution is blocked.
	EligibilityDenied EligibilityOutcome = "DENIED"
)

// checkRewardEligibility queries the cooperating eligibility manager,
// best-effort. Only an explicit negative answer blocks; absence and failure
// degrade to Unconfirmed.
func (s *ImpactBadgeSmartContract) checkRewardEligibility(ctx contractapi.TransactionContextInterface, userFullID string) EligibilityOutcome {
	managerName, err := s.getSetting(ctx, SettingEligibilityChaincode)
	if err != nil || strings.TrimSpace(managerName) == "" {
		rewardLogger.Debugf("No eligibility manager configured for '%s'; proceeding unconfirmed", userFullID)
		return EligibilityUnconfirmed
	}
	channel, err := s.getSetting(ctx, SettingCollaboratorChannel)
	if err != nil {
		rewardLogger.Warningf("Failed to read collaborator channel setting: %v. Proceeding unconfirmed.", err)
		return EligibilityUnconfirmed
	}

	args := [][]byte{[]byte("GetVerificationStatus"), []byte(userFullID)}
	response := ctx.GetStub().InvokeChaincode(managerName, args, channel)
	if response.Status != shim.OK {
		rewardLogger.Warningf("Eligibility manager '%s' call failed for '%s' (status %d: %s). Proceeding unconfirmed.",
			managerName, userFullID, response.Status, response.Message)
		return EligibilityUnconfirmed
	}

	var status model.VerificationStatus
	if err := json.Unmarshal(response.Payload, &status); err != nil {
		rewardLogger.Warningf("Eligibility manager '%s' returned unreadable payload for '%s': %v. Proceeding unconfirmed.",
			managerName, userFullID, err)
		return EligibilityUnconfirmed
	}
	if !status.RewardEligible {
		rewardLogger.Infof("Eligibility manager '%s' explicitly reports '%s' ineligible", managerName, userFullID)
		return EligibilityDenied
	}
	return EligibilityConfirmed
}

// distributeReward forwards a credit instruction to the external balance
// ledger. caller is internalCaller for the contract's own issue/upgrade paths
// (which run the eligibility chain) or the resolved ID of an allow-listed
// external caller (which does not).
//
// The credit call itself is best-effort: local state is already committed when
// this runs, so a failed credit is logged and reported via
// RewardCreditAttempted rather than unwinding the operation.
func (s *ImpactBadgeSmartContract) distributeReward(ctx contractapi.TransactionContextInterface, caller, userFullID string, amount uint64, reason string) error {
	if caller == internalCaller {
		switch outcome := s.checkRewardEligibility(ctx, userFullID); outcome {
		case EligibilityDenied:
			return errNotEligible(userFullID)
		case EligibilityConfirmed, EligibilityUnconfirmed:
			rewardLogger.Debugf("Eligibility for '%s': %s", userFullID, outcome)
		}
	} else {
		allowed, err := s.isAuthorizedCaller(ctx, caller)
		if err != nil {
			return fmt.Errorf("failed to check caller authorization for '%s': %w", caller, err)
		}
		if !allowed {
			return errUnauthorizedCaller(caller)
		}
	}

	rewardsName, err := s.getSetting(ctx, SettingRewardsChaincode)
	if err != nil {
		return fmt.Errorf("failed to read rewards endpoint setting: %w", err)
	}

	s.emitEvent(ctx, "RewardCreditAttempted", map[string]interface{}{
		"identity": userFullID,
		"amount":   amount,
		"reason":   reason,
	})

	if strings.TrimSpace(rewardsName) == "" {
		rewardLogger.Warningf("No rewards endpoint configured; credit of %d to '%s' (%s) not forwarded", amount, userFullID, reason)
		return nil
	}

	channel, err := s.getSetting(ctx, SettingCollaboratorChannel)
	if err != nil {
		return fmt.Errorf("failed to read collaborator channel setting: %w", err)
	}

	args := [][]byte{[]byte("Credit"), []byte(userFullID), []byte(strconv.FormatUint(amount, 10))}
	response := ctx.GetStub().InvokeChaincode(rewardsName, args, channel)
	if response.Status != shim.OK {
		rewardLogger.Warningf("Credit of %d to '%s' (%s) failed at '%s' (status %d: %s); local state stands",
			amount, userFullID, reason, rewardsName, response.Status, response.Message)
		return nil
	}

	s.emitEvent(ctx, "RewardCredited", map[string]interface{}{
		"identity": userFullID,
		"amount":   amount,
		"reason":   reason,
	})
	rewardLogger.Infof("Credited %d to '%s' via '%s' (%s)", amount, userFullID, rewardsName, reason)
	return nil
}

// RequestRewardDistribution lets an allow-listed external caller credit a user
// on its own behalf, tagged with the generic authorized-caller reason.
func (s *ImpactBadgeSmartContract) RequestRewardDistribution(ctx contractapi.TransactionContextInterface, userOrAlias string, amount uint64) error {
	actor, err := s.getCurrentActorInfo(ctx)
	if err != nil {
		return fmt.Errorf("RequestRewardDistribution: failed to get actor info: %w", err)
	}
	im := NewIdentityManager(ctx)
	userFullID, err := im.ResolveIdentity(userOrAlias)
	if err != nil {
		return fmt.Errorf("RequestRewardDistribution: failed to resolve user '%s': %w", userOrAlias, err)
	}
	if amount == 0 {
		return errInvalidRange("amount", 0, 1, int(^uint(0)>>1))
	}

	rewardLogger.Infof("External caller '%s' requesting distribution of %d to '%s'", actor.fullID, amount, userFullID)
	return s.distributeReward(ctx, actor.fullID, userFullID, amount, "authorized-caller")
}

// --- Authorized caller allow-list ---

func (s *ImpactBadgeSmartContract) createCallerAllowKey(ctx contractapi.TransactionContextInterface, fullID string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(callerAllowObjectType, []string{fullID})
}

func (s *ImpactBadgeSmartContract) isAuthorizedCaller(ctx contractapi.TransactionContextInterface, fullID string) (bool, error) {
	allowKey, err := s.createCallerAllowKey(ctx, fullID)
	if err != nil {
		return false, fmt.Errorf("failed to create caller allow key for '%s': %w", fullID, err)
	}
	flagBytes, err := ctx.GetStub().GetState(allowKey)
	if err != nil {
		return false, fmt.Errorf("ledger error reading caller allow flag for '%s': %w", fullID, err)
	}
	return flagBytes != nil && string(flagBytes) == "true", nil
}

// SetAuthorizedCaller adds or removes an identity from the reward distribution
// allow-list. Admin-only; the change notification carries old and new values.
func (s *ImpactBadgeSmartContract) SetAuthorizedCaller(ctx contractapi.TransactionContextInterface, identityOrAlias string, enabled bool) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("SetAuthorizedCaller: %w", err)
	}
	if strings.TrimSpace(identityOrAlias) == "" {
		return errInvalidAddress("identity")
	}
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		return errInvalidAddress("identity '" + identityOrAlias + "'")
	}

	wasEnabled, err := s.isAuthorizedCaller(ctx, fullID)
	if err != nil {
		return fmt.Errorf("SetAuthorizedCaller: %w", err)
	}

	allowKey, err := s.createCallerAllowKey(ctx, fullID)
	if err != nil {
		return fmt.Errorf("SetAuthorizedCaller: %w", err)
	}
	if enabled {
		if err := ctx.GetStub().PutState(allowKey, []byte("true")); err != nil {
			return fmt.Errorf("SetAuthorizedCaller: failed to save allow flag for '%s': %w", fullID, err)
		}
	} else {
		if err := ctx.GetStub().DelState(allowKey); err != nil {
			return fmt.Errorf("SetAuthorizedCaller: failed to clear allow flag for '%s': %w", fullID, err)
		}
	}

	s.emitEvent(ctx, "AuthorizedCallerChanged", map[string]interface{}{
		"identity":   fullID,
		"enabled":    enabled,
		"wasEnabled": wasEnabled,
	})
	rewardLogger.Infof("Authorized caller '%s': %t -> %t", fullID, wasEnabled, enabled)
	return nil
}
