package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nodesh/nodesh"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of nodesh",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nodesh version %s\n", strings.TrimSpace(nodesh.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
