// Command saq runs the federated SAO query shell: it polls configured
// providers into an in-memory store and evaluates SA query language
// expressions against it, either continuously (serve) or once (query).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "saq",
		Short: "Federated semantic-object query shell",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newQueryCmd(&configPath))
	return root
}
