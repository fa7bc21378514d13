package dto

import (
	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/metadata"
	"github.com/EternisAI/agent-registry/internal/ownership"
)

type CreateOwnershipRequest struct {
	Identity       ownership.Identity     `json:"identity"`
	Attributes     []ownership.Attribute  `json:"attributes"`
	PlatformInfo   ownership.PlatformInfo `json:"platform_info"`
	MetadataKeys   []string               `json:"metadata_keys"`
	MetadataValues []string               `json:"metadata_values"`
}

func (r CreateOwnershipRequest) Input() ownership.CreateInput {
	return ownership.CreateInput{
		Identity:       r.Identity,
		Attributes:     r.Attributes,
		PlatformInfo:   r.PlatformInfo,
		MetadataKeys:   r.MetadataKeys,
		MetadataValues: r.MetadataValues,
	}
}

type CreateRecordResponse struct {
	ID       uint64 `json:"id"`
	Contract string `json:"contract"`
}

type OwnershipRecordResponse struct {
	ownership.Record
	Metadata []metadata.Pair `json:"metadata"`
	TokenURI string          `json:"token_uri"`
}

type AttributesResponse struct {
	Attributes []ownership.Attribute `json:"attributes"`
	Count      int                   `json:"count"`
}

type MetadataResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Found bool   `json:"found"`
}

type OwnerResponse struct {
	Owner account.Address `json:"owner"`
}

type ResolveResponse struct {
	AgentID string `json:"agent_id"`
	ID      uint64 `json:"id"`
}

type OwnershipTransferRequest struct {
	From account.Address `json:"from" binding:"required"`
	To   account.Address `json:"to" binding:"required"`
}

type LinkRequest struct {
	Address account.Address `json:"address" binding:"required"`
	// Reconfigure replaces an existing link instead of failing.
	Reconfigure bool `json:"reconfigure"`
}

type ApprovalRequest struct {
	Approved bool `json:"approved"`
}

type BalanceResponse struct {
	Holder  account.Address `json:"holder"`
	Balance uint64          `json:"balance"`
}

type OwnershipRegistryResponse struct {
	Address      account.Address `json:"address"`
	Name         string          `json:"name"`
	Admin        account.Address `json:"admin"`
	Paused       bool            `json:"paused"`
	UsageLink    account.Address `json:"usage_link"`
	TotalRecords uint64          `json:"total_records"`
}
