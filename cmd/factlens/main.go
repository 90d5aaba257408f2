package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/factlens/factlens/config"
	"github.com/factlens/factlens/internal/server"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "factlens",
		Short: "FactLens fact-checking and content analysis service",
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			return server.Run(cfg)
		},
	}
	root.AddCommand(serve)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
