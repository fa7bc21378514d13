package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/EternisAI/agent-registry/internal/api/http/dto"
	"github.com/EternisAI/agent-registry/internal/ledger"
	"github.com/EternisAI/agent-registry/internal/ownership"
)

// Limits bound the caller-sized arrays of a creation request.
type Limits struct {
	MaxAttributes int `mapstructure:"max_attributes"`
	MaxMetadata   int `mapstructure:"max_metadata"`
}

func (l Limits) check(attributes, metadata int) error {
	if l.MaxAttributes > 0 && attributes > l.MaxAttributes {
		return fmt.Errorf("%w: %d attributes, limit %d", ErrTooManyEntries, attributes, l.MaxAttributes)
	}
	if l.MaxMetadata > 0 && metadata > l.MaxMetadata {
		return fmt.Errorf("%w: %d metadata keys, limit %d", ErrTooManyEntries, metadata, l.MaxMetadata)
	}
	return nil
}

type OwnershipHandler struct {
	registries *ledger.Directory[*ownership.Registry]
	limits     Limits
}

func NewOwnershipHandler(registries *ledger.Directory[*ownership.Registry], limits Limits) *OwnershipHandler {
	return &OwnershipHandler{
		registries: registries,
		limits:     limits,
	}
}

func (h *OwnershipHandler) registry(c *gin.Context) (*ownership.Registry, bool) {
	addr, ok := addressParam(c, "contract")
	if !ok {
		return nil, false
	}
	reg, found := h.registries.Lookup(addr)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "ownership registry not found"})
		return nil, false
	}
	return reg, true
}

// GetRegistry describes an ownership registry instance
// GET /ownership/:contract
func (h *OwnershipHandler) GetRegistry(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.OwnershipRegistryResponse{
		Address:      reg.Address(),
		Name:         reg.Name(),
		Admin:        reg.Admin(),
		Paused:       reg.Paused(),
		UsageLink:    reg.UsageLink(),
		TotalRecords: reg.TotalRecords(),
	})
}

// CreateRecord mints an ownership record owned by the caller
// POST /ownership/:contract/records
func (h *OwnershipHandler) CreateRecord(c *gin.Context) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	reg, ok := h.registry(c)
	if !ok {
		return
	}

	var req dto.CreateOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.limits.check(len(req.Attributes), len(req.MetadataKeys)); err != nil {
		respondError(c, err, "Rejected ownership record", "agent_id", req.Identity.AgentID)
		return
	}

	id, err := reg.Create(c.Request.Context(), caller, req.Input())
	if err != nil {
		respondError(c, err, "Failed to create ownership record", "agent_id", req.Identity.AgentID, "caller", caller.Hex())
		return
	}

	c.JSON(http.StatusCreated, dto.CreateRecordResponse{ID: id, Contract: reg.Address().Hex()})
}

// GetRecord returns an ownership record with its metadata
// GET /ownership/:contract/records/:id
func (h *OwnershipHandler) GetRecord(c *gin.Context) {
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
		respondError(c, err, "Failed to get ownership record", "record_id", id)
		return
	}
	pairs, err := reg.MetadataPairs(id)
	if err != nil {
		respondError(c, err, "Failed to get ownership metadata", "record_id", id)
		return
	}

	c.JSON(http.StatusOK, dto.OwnershipRecordResponse{
		Record:   rec,
		Metadata: pairs,
		TokenURI: rec.PlatformInfo.MetadataURI,
	})
}

// GetAttributes returns a record's attributes in creation order
// GET /ownership/:contract/records/:id/attributes
func (h *OwnershipHandler) GetAttributes(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	attrs, err := reg.Attributes(id)
	if err != nil {
		respondError(c, err, "Failed to get attributes", "record_id", id)
		return
	}

	c.JSON(http.StatusOK, dto.AttributesResponse{Attributes: attrs, Count: len(attrs)})
}

// GetMetadata returns one metadata value; unknown keys are not an error
// GET /ownership/:contract/records/:id/metadata/:key
func (h *OwnershipHandler) GetMetadata(c *gin.Context) {
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
		respondError(c, err, "Failed to get metadata", "record_id", id, "key", key)
		return
	}

	c.JSON(http.StatusOK, dto.MetadataResponse{Key: key, Value: value, Found: found})
}

// GetOwner returns the current owner of a record
// GET /ownership/:contract/records/:id/owner
func (h *OwnershipHandler) GetOwner(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	owner, err := reg.OwnerOf(id)
	if err != nil {
		respondError(c, err, "Failed to get owner", "record_id", id)
		return
	}

	c.JSON(http.StatusOK, dto.OwnerResponse{Owner: owner})
}

// ResolveAgent maps an agent identifier to its record id
// GET /ownership/:contract/agents/:agentId
func (h *OwnershipHandler) ResolveAgent(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}

	agentID := c.Param("agentId")
	id, err := reg.ResolveID(agentID)
	if err != nil {
		respondError(c, err, "Failed to resolve agent", "agent_id", agentID)
		return
	}

	c.JSON(http.StatusOK, dto.ResolveResponse{AgentID: agentID, ID: id})
}

// GetBalance counts the records held by an address
// GET /ownership/:contract/balances/:holder
func (h *OwnershipHandler) GetBalance(c *gin.Context) {
	reg, ok := h.registry(c)
	if !ok {
		return
	}
	holder, ok := addressParam(c, "holder")
	if !ok {
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{Holder: holder, Balance: reg.BalanceOf(holder)})
}

// Transfer moves a record to a new owner
// POST /ownership/:contract/records/:id/transfer
func (h *OwnershipHandler) Transfer(c *gin.Context) {
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

	var req dto.OwnershipTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := reg.Transfer(c.Request.Context(), caller, id, req.From, req.To); err != nil {
		respondError(c, err, "Failed to transfer ownership record", "record_id", id, "caller", caller.Hex())
		return
	}

	c.JSON(http.StatusOK, dto.OwnerResponse{Owner: req.To})
}

// Pause stops record creation
// POST /ownership/:contract/pause
func (h *OwnershipHandler) Pause(c *gin.Context) {
	h.setPaused(c, true)
}

// Unpause resumes record creation
// POST /ownership/:contract/unpause
func (h *OwnershipHandler) Unpause(c *gin.Context) {
	h.setPaused(c, false)
}

func (h *OwnershipHandler) setPaused(c *gin.Context, paused bool) {
	caller, ok := callerOf(c)
	if !ok {
		return
	}
	reg, ok := h.registry(c)
	if !ok {
		return
	}

	var err error
	if paused {
		err = reg.Pause(c.Request.Context(), caller)
	} else {
		err = reg.Unpause(c.Request.Context(), caller)
	}
	if err != nil {
		respondError(c, err, "Failed to change pause state", "contract", reg.Address().Hex(), "paused", paused)
		return
	}

	c.JSON(http.StatusOK, gin.H{"paused": paused})
}

// SetUsageLink points the registry at its usage registry
// PUT /ownership/:contract/usage-link
func (h *OwnershipHandler) SetUsageLink(c *gin.Context) {
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
		err = reg.ReconfigureUsageLink(c.Request.Context(), caller, req.Address)
	} else {
		err = reg.SetUsageLink(c.Request.Context(), caller, req.Address)
	}
	if err != nil {
		respondError(c, err, "Failed to set usage link", "contract", reg.Address().Hex())
		return
	}

	c.JSON(http.StatusOK, gin.H{"usage_link": req.Address})
}

// SetOperator approves or revokes an operator for the caller's records
// PUT /ownership/:contract/operators/:operator
func (h *OwnershipHandler) SetOperator(c *gin.Context) {
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

	slog.Info("Operator approval updated", "contract", reg.Address().Hex(), "owner", caller.Hex(), "operator", operator.Hex(), "approved", req.Approved)
	c.JSON(http.StatusOK, gin.H{"operator": operator, "approved": req.Approved})
}
