package contract

import (
	"fmt"
	"strings"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/spf13/viper"
)

// Setting names for collaborator endpoints. Ledger-stored values written by an
// admin take precedence; unset values fall back to IMPACTBADGE_* environment
// defaults registered in main.
const (
	SettingRewardsChaincode     = "rewards_chaincode"
	SettingEligibilityChaincode = "eligibility_chaincode"
	SettingStakingChaincode     = "staking_chaincode"
	SettingCollaboratorChannel  = "collaborator_channel"
)

func (s *ImpactBadgeSmartContract) createSettingKey(ctx contractapi.TransactionContextInterface, name string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(settingObjectType, []string{name})
}

// getSetting reads a collaborator setting, falling back to the environment
// default when no ledger record exists.
func (s *ImpactBadgeSmartContract) getSetting(ctx contractapi.TransactionContextInterface, name string) (string, error) {
	settingKey, err := s.createSettingKey(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to create setting key for '%s': %w", name, err)
	}
	valueBytes, err := ctx.GetStub().GetState(settingKey)
	if err != nil {
		return "", fmt.Errorf("ledger error reading setting '%s': %w", name, err)
	}
	if valueBytes != nil {
		return string(valueBytes), nil
	}
	return viper.GetString(name), nil
}

// putSetting writes a collaborator setting and returns the previous effective
// value for change notifications.
func (s *ImpactBadgeSmartContract) putSetting(ctx contractapi.TransactionContextInterface, name, value string) (string, error) {
	oldValue, err := s.getSetting(ctx, name)
	if err != nil {
		return "", err
	}
	settingKey, err := s.createSettingKey(ctx, name)
	if err != nil {
		return "", fmt.Errorf("failed to create setting key for '%s': %w", name, err)
	}
	if err := ctx.GetStub().PutState(settingKey, []byte(value)); err != nil {
		return "", fmt.Errorf("failed to save setting '%s': %w", name, err)
	}
	return oldValue, nil
}

// SetRewardsEndpoint configures the balance-ledger chaincode this contract
// forwards credit instructions to. Admin-only.
func (s *ImpactBadgeSmartContract) SetRewardsEndpoint(ctx contractapi.TransactionContextInterface, chaincodeName string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("SetRewardsEndpoint: %w", err)
	}
	if strings.TrimSpace(chaincodeName) == "" {
		return errInvalidSource("rewards chaincode name")
	}
	oldValue, err := s.putSetting(ctx, SettingRewardsChaincode, chaincodeName)
	if err != nil {
		return fmt.Errorf("SetRewardsEndpoint: %w", err)
	}
	s.emitEvent(ctx, "RewardsEndpointChanged", map[string]interface{}{
		"oldEndpoint": oldValue,
		"newEndpoint": chaincodeName,
	})
	logger.Infof("Rewards endpoint changed from '%s' to '%s'", oldValue, chaincodeName)
	return nil
}

// SetEligibilityManager configures the optional eligibility-manager chaincode.
// An empty name is allowed: it disables the lookup and the reward path runs
// unconfirmed.
func (s *ImpactBadgeSmartContract) SetEligibilityManager(ctx contractapi.TransactionContextInterface, chaincodeName string) error {
	im := NewIdentityManager(ctx)
	if err := s.requireAdmin(ctx, im); err != nil {
		return fmt.Errorf("SetEligibilityManager: %w", err)
	}
	oldValue, err := s.putSetting(ctx, SettingEligibilityChaincode, strings.TrimSpace(chaincodeName))
	if err != nil {
		return fmt.Errorf("SetEligibilityManager: %w", err)
	}
	s.emitEvent(ctx, "EligibilityManagerChanged", map[string]interface{}{
		"oldManager": oldValue,
		"newManager": strings.TrimSpace(chaincodeName),
	})
	logger.Infof("Eligibility manager changed from '%s' to '%s'", oldValue, chaincodeName)
	return nil
}

// ReportRewardsEndpoint returns the name of the component this contract will
// call for payouts.
func (s *ImpactBadgeSmartContract) ReportRewardsEndpoint(ctx contractapi.TransactionContextInterface) (string, error) {
	logger.Debug("Chaincode Call: ReportRewardsEndpoint")
	return s.getSetting(ctx, SettingRewardsChaincode)
}
