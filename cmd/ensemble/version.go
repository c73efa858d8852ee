package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ensemble-cli/ensemble/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the ensemble version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ensemble version %s\n", version.Get())
	},
}
