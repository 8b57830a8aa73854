// Command vor serves and queries the venue recommender.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/vor/internal/config"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vor",
		Short:         "Rank seminar venues by historical performance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				return os.Setenv(config.EnvConfigFile, cfgFile)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides "+config.EnvConfigFile+")")

	root.AddCommand(serveCmd())
	root.AddCommand(recommendCmd())
	root.AddCommand(marketCmd())
	root.AddCommand(scoreCmd())

	return root
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: from config)")
	return cmd
}

func recommendCmd() *cobra.Command {
	var f recommendFlags

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print the top venues for a topic and location",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecommend(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.topic, "topic", "", "topic code or name, e.g. TIR")
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.state, "state", "", "two-letter state")
	cmd.Flags().StringVar(&f.postal, "postal-code", "", "postal code (replaces city and state)")
	cmd.Flags().Float64Var(&f.miles, "miles", 0, "radius in miles (needs the geocoder)")
	cmd.Flags().StringVar(&f.now, "now", "", "evaluation date (default: today)")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func marketCmd() *cobra.Command {
	var f marketFlags

	cmd := &cobra.Command{
		Use:   "mar",
		Short: "Print the market analysis report for a topic and market",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarket(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.topic, "topic", "", "topic code or name")
	cmd.Flags().StringVar(&f.city, "city", "", "city")
	cmd.Flags().StringVar(&f.state, "state", "", "two-letter state")
	cmd.Flags().StringVar(&f.date, "date", "", "planned event date (default: today)")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("city")
	_ = cmd.MarkFlagRequired("state")
	return cmd
}

func scoreCmd() *cobra.Command {
	var f scoreFlags

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one hand-entered event",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.venue, "venue", "", "venue name")
	cmd.Flags().StringVar(&f.cpa, "cpa", "", "cost per verified household, e.g. $18.50")
	cmd.Flags().StringVar(&f.fulfillment, "fulfillment", "", "fulfillment ratio, e.g. 0.6 or 60%")
	cmd.Flags().StringVar(&f.attendance, "attendance", "", "attendance rate, e.g. 0.5 or 50%")
	_ = cmd.MarkFlagRequired("cpa")
	_ = cmd.MarkFlagRequired("fulfillment")
	_ = cmd.MarkFlagRequired("attendance")
	return cmd
}
