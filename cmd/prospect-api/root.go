package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "prospect-api",
	Short: "ProspectGrid campaign API server",
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(runCmd)
}
