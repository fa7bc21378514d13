package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/agent-registry/internal/api/http/dto"
	"github.com/EternisAI/agent-registry/internal/ledger"
	"github.com/EternisAI/agent-registry/internal/usage"
)

type UsageHandler struct {
	registries *ledger.Directory[*usage.Registry]
	limits     Limits
}

func NewUsageHandler(registries *ledger.Directory[*usage.Registry], limits Limits) *UsageHandler {
	return &UsageHandler{
		registries: registries,
		limits:     limits,
	}
}

func (h *UsageHandler) registry(c *gin.Context) (*usage.Registry, bool) {
	addr, ok := addressParam(c, "contract")
	if !ok {
		return nil, false
	}
	reg, found := h.registries.Lookup(addr)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "usage registry not found"})
		return nil, false
	}
	return reg, true
}

// GetRegistry describes a usage registry instance
// GET /usage/:contract
func (h *UsageHandler) GetRegistry(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.UsageRegistryResponse{
		Address:       reg.Address(),
		Name:          reg.Name(),
		Admin:         reg.Admin(),
		OwnershipLink: reg.OwnershipLink(),
		TotalRecords:  reg.TotalRecords(),
	})
}

// CreateRecord mints a usage record against an ownership record the caller
// owns
// POST /usage/:contract/records
func (h *UsageHandler) CreateRecord(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	reg, ok := h.registry(c)
	if !ok {
		return
	}

	var req dto.CreateUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.limits.check(0, len(req.MetadataKeys)); err != nil {
		respondError(c, err, "Rejected usage record", "ownership_id", req.OwnershipID)
		return
	}

	id, err := reg.Create(c.Request.Context(), caller, req.Input())
	if err != nil {
		respondError(c, err, "Failed to create usage record", "ownership_id", req.OwnershipID, "caller", caller.Hex())
		return
	}

	c.JSON(http.StatusCreated, dto.CreateRecordResponse{ID: id, Contract: reg.Address().Hex()})
}

// GetRecord returns a usage record with its metadata and window state
// GET /usage/:contract/records/:id
func (h *UsageHandler) GetRecord(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	rec, err := reg.Record(id)
	if err != nil {
		respondError(c, err, "Failed to get usage record", "usage_id", id)
		return
	}
	pairs, err := reg.MetadataPairs(id)
	if err != nil {
		respondError(c, err, "Failed to get usage metadata", "usage_id", id)
		return
	}
	uri, err := reg.URI(id)
	if err != nil {
		respondError(c, err, "Failed to get usage uri", "usage_id", id)
		return
	}
	active, err := reg.IsWindowActive(id)
	if err != nil {
		respondError(c, err, "Failed to evaluate usage window", "usage_id", id)
		return
	}

	c.JSON(http.StatusOK, dto.UsageRecordResponse{
		Record:   rec,
		Metadata: pairs,
		URI:      uri,
		Active:   active,
	})
}

// GetReference returns the ownership record a usage record was minted against
// GET /usage/:contract/records/:id/reference
func (h *UsageHandler) GetReference(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	ownershipID, contract, err := reg.OwnershipReference(id)
	if err != nil {
		respondError(c, err, "Failed to get ownership reference", "usage_id", id)
		return
	}

	c.JSON(http.StatusOK, dto.ReferenceResponse{OwnershipID: ownershipID, OwnershipContract: contract})
}

// GetMetadata returns one metadata value of a usage record
// GET /usage/:contract/records/:id/metadata/:key
func (h *UsageHandler) GetMetadata(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	key := c.Param("key")
	value, found, err := reg.Metadata(id, key)
	if err != nil {
		respondError(c, err, "Failed to get metadata", "usage_id", id, "key", key)
		return
	}

	c.JSON(http.StatusOK, dto.MetadataResponse{Key: key, Value: value, Found: found})
}

// GetWindow reports the validity window and whether ledger time is inside it
// GET /usage/:contract/records/:id/window
func (h *UsageHandler) GetWindow(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	terms, err := reg.Terms(id)
	if err != nil {
		respondError(c, err, "Failed to get usage terms", "usage_id", id)
		return
	}
	active, err := reg.IsWindowActive(id)
	if err != nil {
		respondError(c, err, "Failed to evaluate usage window", "usage_id", id)
		return
	}

	c.JSON(http.StatusOK, dto.WindowResponse{
		FromTimestamp: terms.FromTimestamp,
		ToTimestamp:   terms.ToTimestamp,
		Active:        active,
	})
}

// GetBalance is zero for unknown holders and records
// GET /usage/:contract/records/:id/balances/:holder
func (h *UsageHandler) GetBalance(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	holder, ok := addressParam(c, "holder")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{Holder: holder, Balance: reg.BalanceOf(holder, id)})
}

// Transfer moves quantity between holders
// POST /usage/:contract/records/:id/transfer
func (h *UsageHandler) Transfer(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.UsageTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := reg.TransferQuantity(c.Request.Context(), caller, id, req.From, req.To, req.Quantity); err != nil {
		respondError(c, err, "Failed to transfer usage quantity", "usage_id", id, "caller", caller.Hex())
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{Holder: req.To, Balance: reg.BalanceOf(req.To, id)})
}

// Mint credits more quantity of an existing usage record
// POST /usage/:contract/records/:id/mint
func (h *UsageHandler) Mint(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := reg.MintAdditional(c.Request.Context(), caller, id, req.Recipient, req.Quantity); err != nil {
		respondError(c, err, "Failed to mint usage quantity", "usage_id", id, "caller", caller.Hex())
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{Holder: req.Recipient, Balance: reg.BalanceOf(req.Recipient, id)})
}

// SetOwnershipLink configures the default ownership registry
// PUT /usage/:contract/ownership-link
func (h *UsageHandler) SetOwnershipLink(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	reg, ok := h.registry(c)
	if !ok {
		return
	}

	var req dto.LinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var err error
	if req.Reconfigure {
		err = reg.ReconfigureOwnershipLink(c.Request.Context(), caller, req.Address)
	} else {
		err = reg.ConfigureOwnershipLink(c.Request.Context(), caller, req.Address)
	}
	if err != nil {
		respondError(c, err, "Failed to set ownership link", "contract", reg.Address().Hex())
		return
	}

	c.JSON(http.StatusOK, gin.H{"ownership_link": req.Address})
}

// SetOperator approves or revokes an operator for the caller's balances
// PUT /usage/:contract/operators/:operator
func (h *UsageHandler) SetOperator(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	operator, ok := addressParam(c, "operator")
	if !ok {
		return
	}

	var req dto.ApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := reg.SetApprovalForAll(c.Request.Context(), caller, operator, req.Approved); err != nil {
		respondError(c, err, "Failed to set operator", "operator", operator.Hex())
		return
	}

	c.JSON(http.StatusOK, gin.H{"operator": operator, "approved": req.Approved})
}
