package contract

import (
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-chaincode-go/shim"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var verifierLogger = flogging.MustGetLogger("impactbadge.verifierregistry")

// Verifier status is the union of two sources: the local admin-maintained
// override list, and the external staking chaincode's stake check. Either one
// suffices; removing an override never strips staking-derived status.

func (s *ImpactBadgeSmartContract) createVerifierOverrideKey(ctx contractapi.TransactionContextInterface, fullID string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(verifierObjectType, []string{fullID})
}

func (s *ImpactBadgeSmartContract) hasVerifierOverride(ctx contractapi.TransactionContextInterface, fullID string) (bool, error) {
	overrideKey, err := s.createVerifierOverrideKey(ctx, fullID)
	if err != nil {
		return false, fmt.Errorf("failed to create verifier override key for '%s': %w", fullID, err)
	}
	flagBytes, err := ctx.GetStub().GetState(overrideKey)
	if err != nil {
		return false, fmt.Errorf("ledger error reading verifier override for '%s': %w", fullID, err)
	}
	return flagBytes != nil && string(flagBytes) == "true", nil
}

// IsVerifier reports whether an identity is a verifier via override or stake.
// The override check runs first and short-circuits. When a staking source is
// configured, a failed stake lookup is an error, never a silent false.
func (s *ImpactBadgeSmartContract) IsVerifier(ctx contractapi.TransactionContextInterface, identityOrAlias string) (bool, error) {
	verifierLogger.Debugf("Chaincode Call: IsVerifier for '%s'", identityOrAlias)
	if strings.TrimSpace(identityOrAlias) == "" {
		return false, errInvalidAddress("identity")
	}
	im := NewIdentityManager(ctx)
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		return false, errInvalidAddress("identity '" + identityOrAlias + "'")
	}

	overridden, err := s.hasVerifierOverride(ctx, fullID)
	if err != nil {
		return false, fmt.Errorf("IsVerifier: %w", err)
	}
	if overridden {
		return true, nil
	}

	stakingName, err := s.getSetting(ctx, SettingStakingChaincode)
	if err != nil {
		return false, fmt.Errorf("IsVerifier: failed to read staking source setting: %w", err)
	}
	if strings.TrimSpace(stakingName) == "" {
		return false, nil
	}
	channel, err := s.getSetting(ctx, SettingCollaboratorChannel)
	if err != nil {
		return false, fmt.Errorf("IsVerifier: failed to read collaborator channel setting: %w", err)
	}

	args := [][]byte{[]byte("IsStakedVerifier"), []byte(fullID)}
	response := ctx.GetStub().InvokeChaincode(stakingName, args, channel)
	if response.Status != shim.OK {
		return false, fmt.Errorf("IsVerifier: staking source '%s' call failed for '%s' (status %d): %s",
			stakingName, fullID, response.Status, response.Message)
	}
	staked := strings.TrimSpace(string(response.Payload)) == "true"
	verifierLogger.Debugf("Staking source '%s' reports '%s' staked=%t", stakingName, fullID, staked)
	return staked, nil
}

// AddVerifier places an identity on the override list. Admin-only; fails when
// the identity is already on the list. An identity that is only staked can
// still be added — the override then outlives any unstake.
func (s *ImpactBadgeSmartContract) AddVerifier(ctx contractapi.TransactionContextInterface, identityOrAlias string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("AddVerifier: %w", err)
	}
	if strings.TrimSpace(identityOrAlias) == "" {
		return errInvalidAddress("identity")
	}
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		return errInvalidAddress("identity '" + identityOrAlias + "'")
	}

	overridden, err := s.hasVerifierOverride(ctx, fullID)
	if err != nil {
		return fmt.Errorf("AddVerifier: %w", err)
	}
	if overridden {
		return errAlreadyVerifier(fullID)
	}

	overrideKey, err := s.createVerifierOverrideKey(ctx, fullID)
	if err != nil {
		return fmt.Errorf("AddVerifier: %w", err)
	}
	if err := ctx.GetStub().PutState(overrideKey, []byte("true")); err != nil {
		return fmt.Errorf("AddVerifier: failed to save verifier override for '%s': %w", fullID, err)
	}

	s.emitEvent(ctx, "VerifierAdded", map[string]interface{}{
		"identity": fullID,
	})
	verifierLogger.Infof("Verifier override added for '%s'", fullID)
	return nil
}

// RemoveVerifier takes an identity off the override list. Admin-only; fails
// when no override exists, even if the identity is staked — stake-derived
// status is not ours to revoke.
func (s *ImpactBadgeSmartContract) RemoveVerifier(ctx contractapi.TransactionContextInterface, identityOrAlias string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("RemoveVerifier: %w", err)
	}
	if strings.TrimSpace(identityOrAlias) == "" {
		return errInvalidAddress("identity")
	}
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		return errInvalidAddress("identity '" + identityOrAlias + "'")
	}

	overridden, err := s.hasVerifierOverride(ctx, fullID)
	if err != nil {
		return fmt.Errorf("RemoveVerifier: %w", err)
	}
	if !overridden {
		return errNotVerifier(fullID)
	}

	overrideKey, err := s.createVerifierOverrideKey(ctx, fullID)
	if err != nil {
		return fmt.Errorf("RemoveVerifier: %w", err)
	}
	if err := ctx.GetStub().DelState(overrideKey); err != nil {
		return fmt.Errorf("RemoveVerifier: failed to delete verifier override for '%s': %w", fullID, err)
	}

	s.emitEvent(ctx, "VerifierRemoved", map[string]interface{}{
		"identity": fullID,
	})
	verifierLogger.Infof("Verifier override removed for '%s'", fullID)
	return nil
}

// UpdateStakingSource points the stake check at a different staking chaincode.
// Admin-only; the name must be non-empty.
func (s *ImpactBadgeSmartContract) UpdateStakingSource(ctx contractapi.TransactionContextInterface, chaincodeName string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("UpdateStakingSource: %w", err)
	}
	if strings.TrimSpace(chaincodeName) == "" {
		return errInvalidSource("staking chaincode name")
	}
	oldValue, err := s.putSetting(ctx, SettingStakingChaincode, chaincodeName)
	if err != nil {
		return fmt.Errorf("UpdateStakingSource: %w", err)
	}
	s.emitEvent(ctx, "StakingSourceChanged", map[string]interface{}{
		"oldSource": oldValue,
		"newSource": chaincodeName,
	})
	verifierLogger.Infof("Staking source changed from '%s' to '%s'", oldValue, chaincodeName)
	return nil
}
