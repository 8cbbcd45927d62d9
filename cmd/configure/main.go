package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MATHILDEdemariable/jourj/cmd/configure/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "jourj-configure",
		Short: "Configuration tool for the Jour-J planning API",
		Long:  "CLI tool for validating questionnaire catalogs, minting share tokens and testing infrastructure connectivity",
	}

	rootCmd.AddCommand(commands.NewCatalogCmd())
	rootCmd.AddCommand(commands.NewTokenCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
