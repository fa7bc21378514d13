package ownership

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/EternisAI/agent-registry/internal/account"
)

// Identity describes the agent an ownership record stands for. CreatedAt is
// set by the registry at mint time; any value supplied by the caller is
// ignored.
type Identity struct {
	AgentID     string `json:"agent_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
	Version     string `json:"version"`
}

// Attribute is one structured fact about an agent. Category is an open-ended
// enumeration; the registry stores it without range checks.
type Attribute struct {
	Category       uint8  `json:"category"`
	AttributeType  string `json:"attribute_type"`
	AttributeValue string `json:"attribute_value"`
	IsActive       bool   `json:"is_active"`
}

type PlatformInfo struct {
	PlatformName string `json:"platform_name"`
	ExternalID   string `json:"external_id"`
	MetadataURI  string `json:"metadata_uri"`
}

type Record struct {
	ID           uint64          `json:"id"`
	Owner        account.Address `json:"owner"`
	Identity     Identity        `json:"identity"`
	Attributes   []Attribute     `json:"attributes"`
	PlatformInfo PlatformInfo    `json:"platform_info"`
}

// CreateInput is the payload of a creation call. Callers are expected to bound
// the sizes of Attributes and the metadata slices; cost grows linearly with
// them.
type CreateInput struct {
	Identity       Identity     `json:"identity"`
	Attributes     []Attribute  `json:"attributes"`
	PlatformInfo   PlatformInfo `json:"platform_info"`
	MetadataKeys   []string     `json:"metadata_keys"`
	MetadataValues []string     `json:"metadata_values"`
}

type TransferInput struct {
	ID   uint64          `json:"id"`
	From account.Address `json:"from"`
	To   account.Address `json:"to"`
}

type ApprovalInput struct {
	Operator account.Address `json:"operator"`
	Approved bool            `json:"approved"`
}

type LinkInput struct {
	Address account.Address `json:"address"`
}

// AttributeKey builds the "{index}_{type}" reference usage terms use to point
// at an attribute of an ownership record.
func AttributeKey(index int, attributeType string) string {
	return strconv.Itoa(index) + "_" + attributeType
}

// ParseAttributeKey splits an attribute key. The registry never validates
// usage terms against it; it exists for consumers that want to resolve the
// reference.
func ParseAttributeKey(key string) (int, string, error) {
	idx, typ, ok := strings.Cut(key, "_")
	if !ok {
		return 0, "", fmt.Errorf("attribute key %q has no separator", key)
	}
	n, err := strconv.Atoi(idx)
	if err != nil || n < 0 {
		return 0, "", fmt.Errorf("attribute key %q has invalid index", key)
	}
	return n, typ, nil
}

func cloneAttributes(in []Attribute) []Attribute {
	out := make([]Attribute, len(in))
	copy(out, in)
	return out
}
