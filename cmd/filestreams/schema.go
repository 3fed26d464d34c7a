package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema [factory]",
		Short: "Print the registered component factories and their config schemas",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := newComponentRegistry()
			if err != nil {
				return err
			}

			var out any = registry.ListFactories()
			if len(args) == 1 {
				schema, err := registry.GetComponentSchema(args[0])
				if err != nil {
					return fmt.Errorf("unknown component factory %q", args[0])
				}
				out = schema
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(out)
		},
	}
}
