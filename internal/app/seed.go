package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/ownership"
	"github.com/EternisAI/agent-registry/internal/usage"
)

var ErrUnknownRegistry = errors.New("registry not deployed")

// Seed is a batch of records to create, read from YAML. Agents are created
// before grants; a grant names its ownership record by agent id.
type Seed struct {
	Agents []SeedAgent `yaml:"agents"`
	Grants []SeedGrant `yaml:"grants"`
}

type SeedAgent struct {
	// Registry is the ownership instance name; empty means the first one.
	Registry    string          `yaml:"registry"`
	Creator     string          `yaml:"creator"`
	AgentID     string          `yaml:"agent_id"`
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Version     string          `yaml:"version"`
	Attributes  []SeedAttribute `yaml:"attributes"`
	Platform    SeedPlatform    `yaml:"platform"`
	Metadata    []SeedPair      `yaml:"metadata"`
}

type SeedAttribute struct {
	Category uint8  `yaml:"category"`
	Type     string `yaml:"type"`
	Value    string `yaml:"value"`
	Active   bool   `yaml:"active"`
}

type SeedPlatform struct {
	Name        string `yaml:"name"`
	ExternalID  string `yaml:"external_id"`
	MetadataURI string `yaml:"metadata_uri"`
}

// SeedPair keeps metadata as a list so key order survives decoding.
type SeedPair struct {
	Key   string `yaml:"key"`
	Value string `yaml:"value"`
}

type SeedGrant struct {
	// Registry is the usage instance name; empty means the first one.
	Registry     string     `yaml:"registry"`
	Creator      string     `yaml:"creator"`
	AgentID      string     `yaml:"agent_id"`
	Recipient    string     `yaml:"recipient"`
	Quantity     uint64     `yaml:"quantity"`
	From         int64      `yaml:"from"`
	To           int64      `yaml:"to"`
	AttributeKey string     `yaml:"attribute_key"`
	Metadata     []SeedPair `yaml:"metadata"`
}

type SeedResult struct {
	AgentsCreated int
	AgentsSkipped int
	GrantsCreated int
}

func LoadSeed(r io.Reader) (*Seed, error) {
	var s Seed
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return &s, nil
}

func splitPairs(pairs []SeedPair) ([]string, []string) {
	keys := make([]string, len(pairs))
	values := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key
		values[i] = p.Value
	}
	return keys, values
}

func (a *App) ownershipByName(name string) (*ownership.Registry, error) {
	if name == "" {
		return a.DefaultOwnership(), nil
	}
	for _, reg := range a.Ownership.All() {
		if reg.Name() == name {
			return reg, nil
		}
	}
	return nil, fmt.Errorf("%w: ownership %q", ErrUnknownRegistry, name)
}

func (a *App) usageByName(name string) (*usage.Registry, error) {
	for _, reg := range a.Usage.All() {
		if name == "" || reg.Name() == name {
			return reg, nil
		}
	}
	return nil, fmt.Errorf("%w: usage %q", ErrUnknownRegistry, name)
}

// ApplySeed creates the seed's records. Agents whose id is already registered
// are skipped, so a seed file can be applied again after a partial run.
// Grants are always created.
func (a *App) ApplySeed(ctx context.Context, s *Seed) (SeedResult, error) {
	var res SeedResult

	for _, agent := range s.Agents {
		reg, err := a.ownershipByName(agent.Registry)
		if err != nil {
			return res, err
		}
		if _, err := reg.ResolveID(agent.AgentID); err == nil {
			res.AgentsSkipped++
			continue
		}
		creator, err := account.ParseAddress(agent.Creator)
		if err != nil {
			return res, fmt.Errorf("agent %q creator: %w", agent.AgentID, err)
		}

		attrs := make([]ownership.Attribute, len(agent.Attributes))
		for i, at := range agent.Attributes {
			attrs[i] = ownership.Attribute{
				Category:       at.Category,
				AttributeType:  at.Type,
				AttributeValue: at.Value,
				IsActive:       at.Active,
			}
		}
		keys, values := splitPairs(agent.Metadata)

		id, err := reg.Create(ctx, creator, ownership.CreateInput{
			Identity: ownership.Identity{
				AgentID:     agent.AgentID,
				Name:        agent.Name,
				Description: agent.Description,
				Version:     agent.Version,
			},
			Attributes: attrs,
			PlatformInfo: ownership.PlatformInfo{
				PlatformName: agent.Platform.Name,
				ExternalID:   agent.Platform.ExternalID,
				MetadataURI:  agent.Platform.MetadataURI,
			},
			MetadataKeys:   keys,
			MetadataValues: values,
		})
		if err != nil {
			return res, fmt.Errorf("create agent %q: %w", agent.AgentID, err)
		}
		slog.Debug("Seeded agent", "agent_id", agent.AgentID, "id", id, "registry", reg.Name())
		res.AgentsCreated++
	}

	for i, grant := range s.Grants {
		reg, err := a.usageByName(grant.Registry)
		if err != nil {
			return res, err
		}
		own, ok := a.Ownership.Lookup(reg.OwnershipLink())
		if !ok {
			return res, fmt.Errorf("grant %d: %w", i, usage.ErrLinkNotConfigured)
		}
		ownershipID, err := own.ResolveID(grant.AgentID)
		if err != nil {
			return res, fmt.Errorf("grant %d: %w", i, err)
		}
		creator, err := account.ParseAddress(grant.Creator)
		if err != nil {
			return res, fmt.Errorf("grant %d creator: %w", i, err)
		}
		recipient, err := account.ParseAddress(grant.Recipient)
		if err != nil {
			return res, fmt.Errorf("grant %d recipient: %w", i, err)
		}
		keys, values := splitPairs(grant.Metadata)

		if _, err := reg.Create(ctx, creator, usage.CreateInput{
			OwnershipID: ownershipID,
			Terms: usage.Terms{
				FromTimestamp: grant.From,
				ToTimestamp:   grant.To,
				AttributeKey:  grant.AttributeKey,
			},
			MetadataKeys:   keys,
			MetadataValues: values,
			Recipient:      recipient,
			Quantity:       grant.Quantity,
		}); err != nil {
			return res, fmt.Errorf("create grant %d for %q: %w", i, grant.AgentID, err)
		}
		res.GrantsCreated++
	}

	return res, nil
}
