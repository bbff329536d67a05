package contract

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes contract failures so calling tooling can react
// programmatically instead of matching message strings.
type ErrorKind string

const (
	KindNotVerified        ErrorKind = "NOT_VERIFIED"
	KindAlreadyIssued      ErrorKind = "ALREADY_ISSUED"
	KindNoToken            ErrorKind = "NO_TOKEN"
	KindInvalidRange       ErrorKind = "INVALID_RANGE"
	KindMaxLevelReached    ErrorKind = "MAX_LEVEL_REACHED"
	KindNotTokenOwner      ErrorKind = "NOT_TOKEN_OWNER"
	KindTransferRestricted ErrorKind = "TRANSFER_RESTRICTED"
	KindNotAuthorized      ErrorKind = "NOT_AUTHORIZED"
	KindUnauthorizedCaller ErrorKind = "UNAUTHORIZED_CALLER"
	KindNotEligible        ErrorKind = "NOT_ELIGIBLE"
	KindInvalidAddress     ErrorKind = "INVALID_ADDRESS"
	KindInvalidSource      ErrorKind = "INVALID_SOURCE"
	KindAlreadyVerifier    ErrorKind = "ALREADY_VERIFIER"
	KindNotVerifier        ErrorKind = "NOT_VERIFIER"
	KindReentrantCall      ErrorKind = "REENTRANT_CALL"
)

// ContractError is a failure of a contract operation. It carries the offending
// parameters (which identity, which badge, which bound) alongside the kind.
type ContractError struct {
	Kind     ErrorKind
	Message  string
	Identity string  // offending identity, when one is involved
	BadgeID  *uint64 // offending badge, when one is involved
}

func (e *ContractError) Error() string {
	switch {
	case e.Identity != "" && e.BadgeID != nil:
		return fmt.Sprintf("%s: %s (identity=%s, badge=%d)", e.Kind, e.Message, e.Identity, *e.BadgeID)
	case e.Identity != "":
		return fmt.Sprintf("%s: %s (identity=%s)", e.Kind, e.Message, e.Identity)
	case e.BadgeID != nil:
		return fmt.Sprintf("%s: %s (badge=%d)", e.Kind, e.Message, *e.BadgeID)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// IsKind reports whether err is (or wraps) a ContractError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *ContractError
	return errors.As(err, &ce) && ce.Kind == kind
}

func errNotVerified(identity string) error {
	return &ContractError{Kind: KindNotVerified, Message: "identity is not verified", Identity: identity}
}

func errAlreadyIssued(identity string) error {
	return &ContractError{Kind: KindAlreadyIssued, Message: "identity has already been issued a badge", Identity: identity}
}

func errNoToken(identity string) error {
	return &ContractError{Kind: KindNoToken, Message: "no badge issued to identity", Identity: identity}
}

func errBadgeNotFound(badgeID uint64) error {
	return &ContractError{Kind: KindNoToken, Message: "badge does not exist", BadgeID: &badgeID}
}

func errInvalidRange(field string, value, min, max int) error {
	return &ContractError{
		Kind:    KindInvalidRange,
		Message: fmt.Sprintf("%s %d outside [%d, %d]", field, value, min, max),
	}
}

func errMaxLevelReached(badgeID uint64, level int) error {
	return &ContractError{
		Kind:    KindMaxLevelReached,
		Message: fmt.Sprintf("badge already at maximum level %d", level),
		BadgeID: &badgeID,
	}
}

func errNotTokenOwner(badgeID uint64, caller string) error {
	return &ContractError{
		Kind:     KindNotTokenOwner,
		Message:  "caller does not own this badge",
		Identity: caller,
		BadgeID:  &badgeID,
	}
}

func errTransferRestricted(badgeID uint64, reason string) error {
	return &ContractError{Kind: KindTransferRestricted, Message: reason, BadgeID: &badgeID}
}

func errNotAuthorized(badgeID uint64) error {
	return &ContractError{
		Kind:    KindNotAuthorized,
		Message: "badge has no transfer authorization to revoke",
		BadgeID: &badgeID,
	}
}

func errUnauthorizedCaller(caller string) error {
	return &ContractError{
		Kind:     KindUnauthorizedCaller,
		Message:  "caller is not allow-listed for reward distribution",
		Identity: caller,
	}
}

func errNotEligible(identity string) error {
	return &ContractError{
		Kind:     KindNotEligible,
		Message:  "eligibility manager reported identity ineligible for rewards",
		Identity: identity,
	}
}

func errInvalidAddress(field string) error {
	return &ContractError{Kind: KindInvalidAddress, Message: field + " is empty or unresolvable"}
}

func errInvalidSource(field string) error {
	return &ContractError{Kind: KindInvalidSource, Message: field + " cannot be empty"}
}

func errAlreadyVerifier(identity string) error {
	return &ContractError{Kind: KindAlreadyVerifier, Message: "identity is already in the verifier override set", Identity: identity}
}

func errNotVerifier(identity string) error {
	return &ContractError{Kind: KindNotVerifier, Message: "identity is not in the verifier override set", Identity: identity}
}

func errReentrantCall(op string) error {
	return &ContractError{Kind: KindReentrantCall, Message: "operation " + op + " re-entered while outstanding"}
}
