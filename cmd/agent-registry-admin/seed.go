package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/EternisAI/agent-registry/internal/app"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file>",
	Short: "Create agents and usage grants from a YAML file",
	Long: `Create ownership records and usage grants described in a YAML seed file.
Agents already registered under the same agent id are skipped.

Examples:
  agent-registry-admin seed ./seeds/demo.yaml --journal sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		seed, err := app.LoadSeed(f)
		if err != nil {
			return err
		}

		a, closeApp, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer closeApp()

		res, err := a.ApplySeed(cmd.Context(), seed)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "agents created: %d, skipped: %d, grants created: %d, seq: %d\n",
			res.AgentsCreated, res.AgentsSkipped, res.GrantsCreated, a.Ledger.Seq())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
