package main

import (
	"fmt"
	"strings"

	"github.com/flowdhq/flowd"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of flowd",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("flowd version %s\n", strings.TrimSpace(flowd.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
