package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/EternisAI/agent-registry/internal/account"
	"github.com/EternisAI/agent-registry/internal/auth"
)

var (
	tokenLabel string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <address>",
	Short: "Issue a caller token for an account address",
	Long: `Sign a bearer token whose subject is the given account address.

Examples:
  agent-registry-admin token 0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed --ttl 1h`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		caller, err := account.ParseAddress(args[0])
		if err != nil {
			return err
		}

		jwtCfg := cfg.JWT
		if cmd.Flags().Changed("ttl") {
			jwtCfg.TTL = tokenTTL
		}
		token, err := auth.GenerateToken(jwtCfg, caller, tokenLabel, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenLabel, "label", "l", "", "label stored in the token")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, overriding jwt.ttl (0 never expires)")
	rootCmd.AddCommand(tokenCmd)
}
