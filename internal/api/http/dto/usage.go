package dto

import (
	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/events"
	"github.com/EternisAI/agent-registry/internal/metadata"
	"github.com/EternisAI/agent-registry/internal/usage"
)

type CreateUsageRequest struct {
	OwnershipID       uint64          `json:"ownership_id" binding:"required"`
	OwnershipContract account.Address `json:"ownership_contract"`
	Terms             usage.Terms     `json:"terms"`
	MetadataKeys      []string        `json:"metadata_keys"`
	MetadataValues    []string        `json:"metadata_values"`
	Recipient         account.Address `json:"recipient"`
	Quantity          uint64          `json:"quantity"`
}

func (r CreateUsageRequest) Input() usage.CreateInput {
	return usage.CreateInput{
		OwnershipID:       r.OwnershipID,
		OwnershipContract: r.OwnershipContract,
		Terms:             r.Terms,
		MetadataKeys:      r.MetadataKeys,
		MetadataValues:    r.MetadataValues,
		Recipient:         r.Recipient,
		Quantity:          r.Quantity,
	}
}

type UsageRecordResponse struct {
	usage.Record
	Metadata []metadata.Pair `json:"metadata"`
	URI      string          `json:"uri"`
	Active   bool            `json:"active"`
}

type ReferenceResponse struct {
	OwnershipID       uint64          `json:"ownership_id"`
	OwnershipContract account.Address `json:"ownership_contract"`
}

type WindowResponse struct {
	FromTimestamp int64 `json:"from_timestamp"`
	ToTimestamp   int64 `json:"to_timestamp"`
	Active        bool  `json:"active"`
}

type UsageTransferRequest struct {
	From     account.Address `json:"from" binding:"required"`
	To       account.Address `json:"to"`
	Quantity uint64          `json:"quantity"`
}

type MintRequest struct {
	Recipient account.Address `json:"recipient"`
	Quantity  uint64          `json:"quantity"`
}

type UsageRegistryResponse struct {
	Address       account.Address `json:"address"`
	Name          string          `json:"name"`
	Admin         account.Address `json:"admin"`
	OwnershipLink account.Address `json:"ownership_link"`
	TotalRecords  uint64          `json:"total_records"`
}

type EventsResponse struct {
	Events []events.Entry `json:"events"`
	Next   uint64         `json:"next"`
}
