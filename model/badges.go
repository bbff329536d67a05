package model

import "time"

// BadgeCategory is the human-facing tier label derived from a badge's level.
type BadgeCategory string

const (
	CategoryNewbie   BadgeCategory = "Newbie"
	CategoryPro      BadgeCategory = "Pro"
	CategoryHero     BadgeCategory = "Hero"
	CategoryGuardian BadgeCategory = "Guardian"
)

// Badge is the central record for one achievement token. Ids are sequential
// and immutable once assigned; Level and ImpactScore are independent bounded
// integers in [1, MaxLevel].
type Badge struct {
	ObjectType    string    `json:"objectType"` // "Badge"
	ID            uint64    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	OwnerAlias    string    `json:"ownerAlias"`
	Level         int       `json:"level"`
	ImpactScore   int       `json:"impactScore"`
	IssuedTo      string    `json:"issuedTo"` // original claimer, never changes on transfer
	IssuedAt      time.Time `json:"issuedAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// TransferAuthorization is the single-use exception to the soulbound lock.
// Existence of the record means the badge is in the Authorized state for
// exactly one recipient; executing the transfer or revoking deletes it.
type TransferAuthorization struct {
	ObjectType   string    `json:"objectType"` // "TransferAuth"
	BadgeID      uint64    `json:"badgeId"`
	Recipient    string    `json:"recipient"`
	AuthorizedBy string    `json:"authorizedBy"`
	AuthorizedAt time.Time `json:"authorizedAt"`
}

// BadgeSummary is the reverse-lookup result for an identity's badge.
type BadgeSummary struct {
	BadgeID     uint64        `json:"badgeId"`
	ImpactScore int           `json:"impactScore"`
	Level       int           `json:"level"`
	Category    BadgeCategory `json:"category"`
}

// VerificationStatus is the payload shape returned by the cooperating
// eligibility manager's GetVerificationStatus.
type VerificationStatus struct {
	IdentityVerified bool `json:"identityVerified"`
	TokenIssued      bool `json:"tokenIssued"`
	RewardEligible   bool `json:"rewardEligible"`
}

// PaginatedBadgeResponse is the structure returned by paginated badge queries.
type PaginatedBadgeResponse struct {
	Badges       []*Badge `json:"badges"`
	NextBookmark string   `json:"nextBookmark"`
	FetchedCount int32    `json:"fetchedCount"`
}
