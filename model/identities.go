package model

import "time"

// IdentityInfo stores information about registered participants in the system.
type IdentityInfo struct {
	ObjectType    string    `json:"objectType"` // Set to the composite key object type (IdentityInfo)
	FullID        string    `json:"fullId"`     // Full X.509 identity string
	ShortName     string    `json:"shortName"`  // Alias/short name for this identity
	Verified      bool      `json:"verified"`   // Admin-set flag gating badge issuance
	IsAdmin       bool      `json:"isAdmin"`    // Whether this identity has admin privileges
	RegisteredBy  string    `json:"registeredBy"`
	RegisteredAt  time.Time `json:"registeredAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}
