package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/EternisAI/agent-registry/internal/account"
)

type registrySummary struct {
	Kind    string          `json:"kind"`
	Name    string          `json:"name"`
	Address account.Address `json:"address"`
	Records uint64          `json:"records"`
	Paused  bool            `json:"paused,omitempty"`
	Link    account.Address `json:"link"`
}

type replaySummary struct {
	Seq        uint64            `json:"seq"`
	Registries []registrySummary `json:"registries"`
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild state from the journal and print a summary",
	Long: `Replay the configured journal into fresh registries and print the
resulting sequence number and record counts as JSON.

Examples:
  agent-registry-admin replay --journal sqlite --sqlite-path ./data/ledger.db
  agent-registry-admin replay | jq '.registries[].records'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		out := replaySummary{Seq: a.Ledger.Seq()}
		for _, reg := range a.Ownership.All() {
			out.Registries = append(out.Registries, registrySummary{
				Kind:    "ownership",
				Name:    reg.Name(),
				Address: reg.Address(),
				Records: reg.TotalRecords(),
				Paused:  reg.Paused(),
				Link:    reg.UsageLink(),
			})
		}
		for _, reg := range a.Usage.All() {
			out.Registries = append(out.Registries, registrySummary{
				Kind:    "usage",
				Name:    reg.Name(),
				Address: reg.Address(),
				Records: reg.TotalRecords(),
				Link:    reg.OwnershipLink(),
			})
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	rootCmd.AddCommand(replayCmd)
}
