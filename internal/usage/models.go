package usage

import "github.com/EternisAI/agent-registry/internal/account"

// Terms scope what a holder of a usage record may use. OwnershipTokenID and
// OwnershipContract are always assigned by the registry from the validated
// reference; values supplied by the caller are discarded.
type Terms struct {
	OwnershipTokenID  uint64          `json:"ownership_token_id"`
	OwnershipContract account.Address `json:"ownership_contract"`
	// FromTimestamp and ToTimestamp bound an inclusive window in unix
	// seconds. A window may lie entirely in the past.
	FromTimestamp int64 `json:"from_timestamp"`
	ToTimestamp   int64 `json:"to_timestamp"`
	// AttributeKey points at an attribute of the referenced ownership record,
	// "{index}_{type}". It is stored as given.
	AttributeKey string `json:"attribute_key"`
}

// Active reports whether unix time now falls inside the window.
func (t Terms) Active(now int64) bool {
	return t.FromTimestamp <= now && now <= t.ToTimestamp
}

type Record struct {
	ID          uint64          `json:"id"`
	Creator     account.Address `json:"creator"`
	Terms       Terms           `json:"terms"`
	TotalSupply uint64          `json:"total_supply"`
}

type CreateInput struct {
	OwnershipID uint64 `json:"ownership_id"`
	// OwnershipContract selects the ownership registry holding OwnershipID.
	// Zero means the configured ownership link.
	OwnershipContract account.Address `json:"ownership_contract"`
	Terms             Terms           `json:"terms"`
	MetadataKeys      []string        `json:"metadata_keys"`
	MetadataValues    []string        `json:"metadata_values"`
	Recipient         account.Address `json:"recipient"`
	Quantity          uint64          `json:"quantity"`
}

type MintInput struct {
	UsageID   uint64          `json:"usage_id"`
	Recipient account.Address `json:"recipient"`
	Quantity  uint64          `json:"quantity"`
}

type TransferInput struct {
	UsageID  uint64          `json:"usage_id"`
	From     account.Address `json:"from"`
	To       account.Address `json:"to"`
	Quantity uint64          `json:"quantity"`
}

type ApprovalInput struct {
	Operator account.Address `json:"operator"`
	Approved bool            `json:"approved"`
}

type LinkInput struct {
	Address account.Address `json:"address"`
}
