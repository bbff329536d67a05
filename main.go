package main

import (
	"impactbadge/contract"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/spf13/viper"
)

func main() {
	// Collaborator chaincode names may be overridden per deployment via
	// IMPACTBADGE_* environment variables; ledger-stored settings written by
	// an admin take precedence over these defaults.
	viper.SetEnvPrefix("impactbadge")
	viper.AutomaticEnv()
	viper.SetDefault(contract.SettingRewardsChaincode, "karmatoken")
	viper.SetDefault(contract.SettingEligibilityChaincode, "")
	viper.SetDefault(contract.SettingStakingChaincode, "")
	viper.SetDefault(contract.SettingCollaboratorChannel, "")

	cc, err := contractapi.NewChaincode(&contract.ImpactBadgeSmartContract{})
	if err != nil {
		panic("Error creating ImpactBadgeSmartContract: " + err.Error())
	}
	if err := cc.Start(); err != nil {
		panic("Error starting chaincode: " + err.Error())
	}
}
