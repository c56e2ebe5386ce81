package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available strategies",
	Long: `List every built-in strategy with its parameters as configured. The
strategy.name key selects which one backtest and live use.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}

		for _, s := range strategyEngine(cfg, zap.NewNop()).GetAll() {
			marker := " "
			if s.Name() == cfg.Strategy.Name {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-14s %s\n", marker, s.Name(), s.Description())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
