package contract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"impactbadge/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var idLogger = flogging.MustGetLogger("impactbadge.identitymanager")

// Object types for composite keys, also usable as 'docType' in CouchDB.
const (
	identityObjectType  = "IdentityInfo" // Stores IdentityInfo objects. Attribute: FullID.
	aliasObjectType     = "Alias"        // Maps ShortName (alias) to FullID. Attribute: ShortName.
	adminFlagObjectType = "AdminFlag"    // Stores a flag for admin status. Attribute: FullID.
)

// IdentityManager handles identity registration, the verification flag that
// gates badge issuance, and admin privileges.
type IdentityManager struct {
	Ctx contractapi.TransactionContextInterface
}

// NewIdentityManager creates a new instance of IdentityManager.
func NewIdentityManager(ctx contractapi.TransactionContextInterface) *IdentityManager {
	return &IdentityManager{Ctx: ctx}
}

func (im *IdentityManager) getCurrentTxTimestamp() (time.Time, error) {
	ts, err := im.Ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

func isValidX509ID(id string) bool {
	// Basic check, can be enhanced if specific X.509 formats are enforced.
	return strings.HasPrefix(id, "x509::") || strings.HasPrefix(id, "eDUwOTo6") // "eDUwOTo6" is "x509::" base64 encoded
}

// --- Key Creation Helpers (using Composite Keys) ---

func (im *IdentityManager) createIdentityCompositeKey(fullID string) (string, error) {
	return im.Ctx.GetStub().CreateCompositeKey(identityObjectType, []string{fullID})
}

func (im *IdentityManager) createAliasCompositeKey(shortName string) (string, error) {
	return im.Ctx.GetStub().CreateCompositeKey(aliasObjectType, []string{shortName})
}

func (im *IdentityManager) createAdminFlagCompositeKey(fullID string) (string, error) {
	return im.Ctx.GetStub().CreateCompositeKey(adminFlagObjectType, []string{fullID})
}

// --- Public Identity Management Functions ---

// RegisterIdentity records an identity and its alias. Admin-only once any
// admin exists; before that it runs in bootstrap mode so the first identities
// can be seeded.
func (im *IdentityManager) RegisterIdentity(targetFullID, shortName string) error {
	anyAdminExists, err := im.AnyAdminExists()
	if err != nil {
		return fmt.Errorf("failed to check if any admin exists during RegisterIdentity: %w", err)
	}

	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		if anyAdminExists {
			return fmt.Errorf("failed to get current caller's FullID: %w", err)
		}
		callerFullID = "SYSTEM_BOOTSTRAP"
	}

	if anyAdminExists {
		isCallerAdmin, errAdm := im.IsCurrentUserAdmin()
		if errAdm != nil {
			return fmt.Errorf("failed to verify caller admin status for RegisterIdentity: %w", errAdm)
		}
		if !isCallerAdmin {
			return fmt.Errorf("caller '%s' is not authorized to register identities as admins already exist", callerFullID)
		}
	} else {
		idLogger.Infof("RegisterIdentity proceeding in bootstrap mode. Caller assumed '%s'.", callerFullID)
	}

	if !isValidX509ID(targetFullID) {
		return fmt.Errorf("targetFullID '%s' is not a valid X.509 ID format", targetFullID)
	}
	if strings.TrimSpace(shortName) == "" {
		return errors.New("shortName cannot be empty")
	}

	now, err := im.getCurrentTxTimestamp()
	if err != nil {
		return err
	}

	aliasKey, err := im.createAliasCompositeKey(shortName)
	if err != nil {
		return fmt.Errorf("failed to create alias composite key for '%s': %w", shortName, err)
	}
	existingFullIDForAlias, err := im.Ctx.GetStub().GetState(aliasKey)
	if err != nil {
		return fmt.Errorf("failed to check alias availability for '%s': %w", shortName, err)
	}
	if existingFullIDForAlias != nil && string(existingFullIDForAlias) != targetFullID {
		return fmt.Errorf("shortName (alias) '%s' is already in use by identity '%s'", shortName, string(existingFullIDForAlias))
	}

	identityKey, err := im.createIdentityCompositeKey(targetFullID)
	if err != nil {
		return fmt.Errorf("failed to create identity composite key for '%s': %w", targetFullID, err)
	}
	identityInfoBytes, err := im.Ctx.GetStub().GetState(identityKey)
	if err != nil {
		return fmt.Errorf("failed to get identity state for '%s': %w", targetFullID, err)
	}

	var idInfo model.IdentityInfo
	if identityInfoBytes == nil {
		idInfo = model.IdentityInfo{
			ObjectType:    identityObjectType,
			FullID:        targetFullID,
			ShortName:     shortName,
			Verified:      false,
			IsAdmin:       false,
			RegisteredBy:  callerFullID,
			RegisteredAt:  now,
			LastUpdatedAt: now,
		}
		idLogger.Infof("Registering new identity: %s with alias %s, by %s", targetFullID, shortName, callerFullID)
	} else {
		if err := json.Unmarshal(identityInfoBytes, &idInfo); err != nil {
			return fmt.Errorf("failed to unmarshal existing IdentityInfo for '%s': %w", targetFullID, err)
		}
		if idInfo.ShortName != shortName && idInfo.ShortName != "" {
			oldAliasKey, keyErr := im.createAliasCompositeKey(idInfo.ShortName)
			if keyErr == nil {
				if errDel := im.Ctx.GetStub().DelState(oldAliasKey); errDel != nil {
					idLogger.Warningf("Failed to delete old alias key '%s' for identity '%s': %v", oldAliasKey, targetFullID, errDel)
				}
			}
		}
		idInfo.ShortName = shortName
		idInfo.LastUpdatedAt = now
		idLogger.Infof("Updating existing identity: %s with new alias %s. Updated by %s", targetFullID, shortName, callerFullID)
	}

	updatedBytes, err := json.Marshal(idInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal IdentityInfo for '%s': %w", targetFullID, err)
	}
	if err := im.Ctx.GetStub().PutState(identityKey, updatedBytes); err != nil {
		return fmt.Errorf("failed to save IdentityInfo for '%s': %w", targetFullID, err)
	}
	if err := im.Ctx.GetStub().PutState(aliasKey, []byte(targetFullID)); err != nil {
		return fmt.Errorf("failed to save alias mapping for '%s' -> '%s': %w", shortName, targetFullID, err)
	}
	return nil
}

// VerifyIdentity sets the Verified flag on a registered identity. Only admins
// may verify. Idempotent: the flag is set-once and never auto-revoked.
func (im *IdentityManager) VerifyIdentity(targetIdentityOrAlias string) error {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("failed to get caller's FullID for VerifyIdentity: %w", err)
	}
	isCallerAdmin, err := im.IsAdmin(callerFullID)
	if err != nil {
		return fmt.Errorf("failed to verify caller admin status for VerifyIdentity: %w", err)
	}
	if !isCallerAdmin {
		return fmt.Errorf("caller '%s' is not authorized to verify identities", callerFullID)
	}

	targetFullID, err := im.ResolveIdentity(targetIdentityOrAlias)
	if err != nil {
		return fmt.Errorf("failed to resolve target identity '%s' for VerifyIdentity: %w", targetIdentityOrAlias, err)
	}
	idInfo, err := im.getIdentityInfoByFullID(targetFullID)
	if err != nil {
		return fmt.Errorf("cannot verify: target identity '%s' must be registered first: %w", targetIdentityOrAlias, err)
	}

	if !idInfo.Verified {
		now, err := im.getCurrentTxTimestamp()
		if err != nil {
			return err
		}
		idInfo.Verified = true
		idInfo.LastUpdatedAt = now

		updatedBytes, err := json.Marshal(idInfo)
		if err != nil {
			return fmt.Errorf("failed to marshal IdentityInfo for VerifyIdentity: %w", err)
		}
		identityKey, err := im.createIdentityCompositeKey(targetFullID)
		if err != nil {
			return fmt.Errorf("failed to create identity key for VerifyIdentity: %w", err)
		}
		if err := im.Ctx.GetStub().PutState(identityKey, updatedBytes); err != nil {
			return fmt.Errorf("failed to save IdentityInfo after verification for '%s': %w", targetFullID, err)
		}
	} else {
		idLogger.Infof("Identity '%s' (%s) already verified. Re-emitting notification only.", idInfo.ShortName, targetFullID)
	}

	payload, _ := json.Marshal(map[string]interface{}{"identity": targetFullID, "verifiedBy": callerFullID})
	if errSet := im.Ctx.GetStub().SetEvent("IdentityVerified", payload); errSet != nil {
		idLogger.Warningf("Failed to set IdentityVerified event for '%s': %v", targetFullID, errSet)
	}
	idLogger.Infof("Identity '%s' (%s) verified by admin '%s'.", idInfo.ShortName, targetFullID, callerFullID)
	return nil
}

// IsVerified is a pure lookup of the verification flag. Unregistered
// identities are simply not verified.
func (im *IdentityManager) IsVerified(identityOrAlias string) (bool, error) {
	idInfo, err := im.GetIdentityInfo(identityOrAlias)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("error resolving identity '%s' to check verification: %w", identityOrAlias, err)
	}
	return idInfo.Verified, nil
}

// ResolveIdentity maps an alias to a full X.509 ID, passing full IDs through.
func (im *IdentityManager) ResolveIdentity(identityOrAlias string) (string, error) {
	trimmedInput := strings.TrimSpace(identityOrAlias)
	if trimmedInput == "" {
		return "", errors.New("identityOrAlias cannot be empty")
	}
	if isValidX509ID(trimmedInput) {
		return trimmedInput, nil
	}

	aliasKey, err := im.createAliasCompositeKey(trimmedInput)
	if err != nil {
		return "", fmt.Errorf("failed to create alias composite key for resolving '%s': %w", trimmedInput, err)
	}
	fullIDBytes, err := im.Ctx.GetStub().GetState(aliasKey)
	if err != nil {
		return "", fmt.Errorf("ledger error when querying alias '%s': %w", trimmedInput, err)
	}
	if fullIDBytes != nil {
		return string(fullIDBytes), nil
	}
	return "", fmt.Errorf("alias '%s' not found", trimmedInput)
}

func (im *IdentityManager) GetIdentityInfo(identityOrAlias string) (*model.IdentityInfo, error) {
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		return nil, err
	}
	return im.getIdentityInfoByFullID(fullID)
}

func (im *IdentityManager) getIdentityInfoByFullID(fullID string) (*model.IdentityInfo, error) {
	identityKey, err := im.createIdentityCompositeKey(fullID)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity composite key for '%s': %w", fullID, err)
	}
	identityInfoBytes, err := im.Ctx.GetStub().GetState(identityKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error retrieving IdentityInfo for FullID '%s': %w", fullID, err)
	}
	if identityInfoBytes == nil {
		return nil, fmt.Errorf("identity record not found for FullID '%s'", fullID)
	}
	var idInfo model.IdentityInfo
	if err := json.Unmarshal(identityInfoBytes, &idInfo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal IdentityInfo for FullID '%s': %w", fullID, err)
	}
	return &idInfo, nil
}

// MakeAdmin grants admin privileges. The AdminFlag record is authoritative;
// IdentityInfo.IsAdmin mirrors it for query convenience.
func (im *IdentityManager) MakeAdmin(targetIdentityOrAlias string) error {
	anyAdminExists, err := im.AnyAdminExists()
	if err != nil {
		return fmt.Errorf("failed to check if any admin exists for MakeAdmin: %w", err)
	}

	callerFullID := MustGetCallerFullID(im.Ctx)
	if anyAdminExists {
		isCallerAdmin, errAdm := im.IsAdmin(callerFullID)
		if errAdm != nil {
			return fmt.Errorf("failed to verify caller '%s' admin status for MakeAdmin: %w", callerFullID, errAdm)
		}
		if !isCallerAdmin {
			return fmt.Errorf("caller '%s' is not authorized to make others admin", callerFullID)
		}
	} else {
		idLogger.Infof("No admins exist. Bootstrap: Caller '%s' is making target '%s' an admin.", callerFullID, targetIdentityOrAlias)
	}

	targetFullID, err := im.ResolveIdentity(targetIdentityOrAlias)
	if err != nil {
		return fmt.Errorf("failed to resolve target identity '%s' to make admin: %w", targetIdentityOrAlias, err)
	}
	idInfo, err := im.getIdentityInfoByFullID(targetFullID)
	if err != nil {
		return fmt.Errorf("cannot make admin: target identity '%s' must be registered first: %w", targetIdentityOrAlias, err)
	}

	adminFlagKey, err := im.createAdminFlagCompositeKey(targetFullID)
	if err != nil {
		return fmt.Errorf("failed to create admin flag key for MakeAdmin: %w", err)
	}
	if idInfo.IsAdmin {
		flagBytes, _ := im.Ctx.GetStub().GetState(adminFlagKey)
		if flagBytes != nil && string(flagBytes) == "true" {
			idLogger.Infof("Identity '%s' (%s) is already an admin. No action needed.", idInfo.ShortName, targetFullID)
			return nil
		}
	}

	now, err := im.getCurrentTxTimestamp()
	if err != nil {
		return err
	}
	idInfo.IsAdmin = true
	idInfo.LastUpdatedAt = now

	updatedBytes, err := json.Marshal(idInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal IdentityInfo for MakeAdmin: %w", err)
	}
	identityKey, err := im.createIdentityCompositeKey(targetFullID)
	if err != nil {
		return fmt.Errorf("failed to create identity key for MakeAdmin: %w", err)
	}
	if err := im.Ctx.GetStub().PutState(identityKey, updatedBytes); err != nil {
		return fmt.Errorf("failed to save IdentityInfo after setting IsAdmin for '%s': %w", targetFullID, err)
	}
	if err := im.Ctx.GetStub().PutState(adminFlagKey, []byte("true")); err != nil {
		return fmt.Errorf("failed to set admin flag for '%s': %w", targetFullID, err)
	}
	idLogger.Infof("Identity '%s' (%s) has been made an admin by '%s'.", idInfo.ShortName, targetFullID, callerFullID)
	return nil
}

// RemoveAdmin revokes admin privileges. Admins cannot demote themselves.
func (im *IdentityManager) RemoveAdmin(targetIdentityOrAlias string) error {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("failed to get caller's FullID for RemoveAdmin: %w", err)
	}
	isCallerAdmin, err := im.IsAdmin(callerFullID)
	if err != nil {
		return fmt.Errorf("failed to verify caller '%s' admin status for RemoveAdmin: %w", callerFullID, err)
	}
	if !isCallerAdmin {
		return fmt.Errorf("caller '%s' is not authorized to remove admin privileges", callerFullID)
	}

	targetFullID, err := im.ResolveIdentity(targetIdentityOrAlias)
	if err != nil {
		return fmt.Errorf("failed to resolve target identity '%s' to remove admin: %w", targetIdentityOrAlias, err)
	}
	if targetFullID == callerFullID {
		return errors.New("admins cannot remove their own admin status")
	}

	adminFlagKey, err := im.createAdminFlagCompositeKey(targetFullID)
	if err != nil {
		return fmt.Errorf("failed to create admin flag key for RemoveAdmin: %w", err)
	}
	idInfo, err := im.getIdentityInfoByFullID(targetFullID)
	if err != nil {
		return fmt.Errorf("cannot remove admin: target identity '%s' not found: %w", targetIdentityOrAlias, err)
	}
	if !idInfo.IsAdmin {
		idLogger.Infof("Identity '%s' (%s) IsAdmin is already false. Ensuring admin flag is also cleared.", idInfo.ShortName, targetFullID)
		_ = im.Ctx.GetStub().DelState(adminFlagKey)
		return nil
	}

	now, err := im.getCurrentTxTimestamp()
	if err != nil {
		return err
	}
	idInfo.IsAdmin = false
	idInfo.LastUpdatedAt = now

	updatedBytes, err := json.Marshal(idInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal IdentityInfo for RemoveAdmin: %w", err)
	}
	identityKey, err := im.createIdentityCompositeKey(targetFullID)
	if err != nil {
		return fmt.Errorf("failed to create identity key for RemoveAdmin: %w", err)
	}
	if err := im.Ctx.GetStub().PutState(identityKey, updatedBytes); err != nil {
		return fmt.Errorf("failed to save IdentityInfo after clearing IsAdmin for '%s': %w", targetFullID, err)
	}
	if err := im.Ctx.GetStub().DelState(adminFlagKey); err != nil {
		return fmt.Errorf("failed to delete admin flag for '%s': %w", targetFullID, err)
	}
	idLogger.Infof("Admin privileges removed from identity '%s' (%s) by '%s'.", idInfo.ShortName, targetFullID, callerFullID)
	return nil
}

// IsAdmin checks admin privileges based on the authoritative AdminFlag record.
func (im *IdentityManager) IsAdmin(identityOrAlias string) (bool, error) {
	fullID, err := im.ResolveIdentity(identityOrAlias)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			return false, nil
		}
		return false, fmt.Errorf("error resolving identity '%s' for IsAdmin check: %w", identityOrAlias, err)
	}
	adminFlagKey, err := im.createAdminFlagCompositeKey(fullID)
	if err != nil {
		return false, fmt.Errorf("failed to create admin flag key for IsAdmin check on '%s': %w", fullID, err)
	}
	flagBytes, err := im.Ctx.GetStub().GetState(adminFlagKey)
	if err != nil {
		return false, fmt.Errorf("ledger error checking admin flag for '%s': %w", fullID, err)
	}
	return flagBytes != nil && string(flagBytes) == "true", nil
}

func (im *IdentityManager) IsCurrentUserAdmin() (bool, error) {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return false, fmt.Errorf("failed to get current user's FullID for admin check: %w", err)
	}
	return im.IsAdmin(callerFullID)
}

// AnyAdminExists checks if any admin flag is set on the ledger.
func (im *IdentityManager) AnyAdminExists() (bool, error) {
	iterator, err := im.Ctx.GetStub().GetStateByPartialCompositeKey(adminFlagObjectType, []string{})
	if err != nil {
		return false, fmt.Errorf("failed to query admin records for AnyAdminExists: %w", err)
	}
	defer iterator.Close()
	return iterator.HasNext(), nil
}

// GetCurrentIdentityFullID retrieves the full X.509 ID of the current transactor.
func (im *IdentityManager) GetCurrentIdentityFullID() (string, error) {
	clientIdentity := im.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	if !isValidX509ID(id) {
		idLogger.Warningf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return id, nil
}

// MustGetCallerFullID is a utility to get the caller's ID, returning a placeholder on error.
func MustGetCallerFullID(ctx contractapi.TransactionContextInterface) string {
	clientIdentity := ctx.GetClientIdentity()
	if clientIdentity == nil {
		idLogger.Error("MustGetCallerFullID: Client identity is nil from context. Returning placeholder.")
		return "ERROR_NIL_CLIENT_IDENTITY"
	}
	id, err := clientIdentity.GetID()
	if err != nil || id == "" {
		idLogger.Errorf("MustGetCallerFullID: Failed to get client identity ID: %v. Returning placeholder.", err)
		return "ERROR_GETTING_CALLER_ID"
	}
	return id
}

func (im *IdentityManager) GetAllRegisteredIdentities() ([]model.IdentityInfo, error) {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return nil, fmt.Errorf("failed to get caller's FullID for GetAllRegisteredIdentities: %w", err)
	}
	isCallerAdmin, err := im.IsAdmin(callerFullID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify caller '%s' admin status for GetAllRegisteredIdentities: %w", callerFullID, err)
	}
	if !isCallerAdmin {
		return nil, fmt.Errorf("caller '%s' is not authorized to list all identities", callerFullID)
	}

	resultsIterator, err := im.Ctx.GetStub().GetStateByPartialCompositeKey(identityObjectType, []string{})
	if err != nil {
		return nil, fmt.Errorf("failed to get identities iterator using objectType '%s': %w", identityObjectType, err)
	}
	defer resultsIterator.Close()

	identities := []model.IdentityInfo{}
	for resultsIterator.HasNext() {
		queryResponse, iterErr := resultsIterator.Next()
		if iterErr != nil {
			idLogger.Warningf("Failed to get next identity from iterator: %v. Skipping.", iterErr)
			continue
		}
		var idInfo model.IdentityInfo
		if err := json.Unmarshal(queryResponse.Value, &idInfo); err != nil {
			idLogger.Warningf("Failed to unmarshal identity data for key '%s': %v. Skipping.", queryResponse.Key, err)
			continue
		}
		identities = append(identities, idInfo)
	}
	idLogger.Infof("Admin '%s' retrieved %d registered identities.", callerFullID, len(identities))
	return identities, nil
}

// Bootstrap registers the caller as the first admin via direct state writes.
// Refuses to run once any admin exists.
func (im *IdentityManager) Bootstrap() error {
	anyAdminExists, err := im.AnyAdminExists()
	if err != nil {
		return fmt.Errorf("Bootstrap: failed to check if any admin exists: %w", err)
	}
	if anyAdminExists {
		msg := "system already has admins or is bootstrapped. BootstrapLedger should not be re-run."
		idLogger.Info(msg)
		return errors.New(msg)
	}

	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return fmt.Errorf("Bootstrap: failed to get caller identity: %w", err)
	}
	alias := aliasFromFullID(callerFullID)

	now, err := im.getCurrentTxTimestamp()
	if err != nil {
		return fmt.Errorf("Bootstrap: failed to get timestamp: %w", err)
	}

	adminInfo := model.IdentityInfo{
		ObjectType:    identityObjectType,
		FullID:        callerFullID,
		ShortName:     alias,
		Verified:      false,
		IsAdmin:       true,
		RegisteredBy:  callerFullID, // self-registered during bootstrap
		RegisteredAt:  now,
		LastUpdatedAt: now,
	}
	identityKey, err := im.createIdentityCompositeKey(callerFullID)
	if err != nil {
		return fmt.Errorf("Bootstrap: failed to create identity key for '%s': %w", callerFullID, err)
	}
	adminInfoBytes, err := json.Marshal(adminInfo)
	if err != nil {
		return fmt.Errorf("Bootstrap: failed to marshal bootstrap admin IdentityInfo: %w", err)
	}
	if err := im.Ctx.GetStub().PutState(identityKey, adminInfoBytes); err != nil {
		return fmt.Errorf("Bootstrap: failed to save bootstrap admin IdentityInfo for '%s': %w", callerFullID, err)
	}

	aliasKey, err := im.createAliasCompositeKey(alias)
	if err != nil {
		return fmt.Errorf("Bootstrap: failed to create alias key for '%s': %w", alias, err)
	}
	if err := im.Ctx.GetStub().PutState(aliasKey, []byte(callerFullID)); err != nil {
		return fmt.Errorf("Bootstrap: failed to save alias mapping '%s' -> '%s': %w", alias, callerFullID, err)
	}

	adminFlagKey, err := im.createAdminFlagCompositeKey(callerFullID)
	if err != nil {
		return fmt.Errorf("Bootstrap: failed to create admin flag key for '%s': %w", callerFullID, err)
	}
	if err := im.Ctx.GetStub().PutState(adminFlagKey, []byte("true")); err != nil {
		return fmt.Errorf("Bootstrap: failed to set admin flag for '%s': %w", callerFullID, err)
	}

	idLogger.Infof("Ledger bootstrapped. Identity '%s' (alias: '%s') is now an admin.", callerFullID, alias)
	return nil
}

// aliasFromFullID derives a bootstrap alias from the CN of an X.509 full ID,
// falling back to a truncated form of the ID.
func aliasFromFullID(fullID string) string {
	if strings.Contains(fullID, "::CN=") {
		parts := strings.Split(fullID, "::CN=")
		if len(parts) > 1 {
			cn := parts[1]
			if idx := strings.Index(cn, "::"); idx != -1 {
				cn = cn[:idx]
			}
			if cn != "" {
				return cn
			}
		}
	}
	const maxAliasLen = 16
	if len(fullID) > maxAliasLen {
		return "unknown_" + fullID[:maxAliasLen]
	}
	return "unknown_" + fullID
}
