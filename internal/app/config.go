package app

import (
	"fmt"

	"github.com/EternisAI/agent-registry/internal/account"
)

const (
	JournalMemory   = "memory"
	JournalPostgres = "postgres"
	JournalSQLite   = "sqlite"
)

type LedgerConfig struct {
	// Journal selects where committed operations are kept: memory, postgres
	// or sqlite.
	Journal    string `mapstructure:"journal"`
	SQLitePath string `mapstructure:"sqlite_path"`
	// FeedSize bounds the number of events kept for indexers.
	FeedSize int `mapstructure:"feed_size"`
}

// RegistryConfig describes the registry instances to deploy. The deployer is
// the administrator of every instance. Usage instance i is linked with
// ownership instance i, when one exists.
type RegistryConfig struct {
	Deployer             string   `mapstructure:"deployer"`
	Ownership            []string `mapstructure:"ownership"`
	Usage                []string `mapstructure:"usage"`
	PauseBlocksTransfers bool     `mapstructure:"pause_blocks_transfers"`
	OpenCreation         bool     `mapstructure:"open_creation"`
	UsageURI             string   `mapstructure:"usage_uri"`
}

func (c RegistryConfig) DeployerAddress() (account.Address, error) {
	addr, err := account.ParseAddress(c.Deployer)
	if err != nil {
		return account.Zero, fmt.Errorf("registry.deployer: %w", err)
	}
	if addr.IsZero() {
		return account.Zero, fmt.Errorf("registry.deployer: %w", account.ErrInvalidAddress)
	}
	return addr, nil
}

// OwnershipAddress is where the ownership instance with this name is deployed.
func OwnershipAddress(deployer account.Address, name string) account.Address {
	return account.ContractAddress(deployer, "ownership/"+name)
}

func UsageAddress(deployer account.Address, name string) account.Address {
	return account.ContractAddress(deployer, "usage/"+name)
}
