package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// flagSet reports whether an option was given on the command line or via
// its SERVICE_* env var.
func flagSet(cmd *cobra.Command) func(name string) bool {
	return func(name string) bool {
		env := "SERVICE_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if _, ok := os.LookupEnv(env); ok {
			return true
		}
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			return true
		}
		if f := cmd.PersistentFlags().Lookup(name); f != nil && f.Changed {
			return true
		}
		return false
	}
}
