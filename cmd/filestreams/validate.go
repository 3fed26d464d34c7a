package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/c360/filestreams/bus"
	"github.com/c360/filestreams/component"
	"github.com/c360/filestreams/component/flowgraph"
	"github.com/c360/filestreams/config"
	"github.com/c360/filestreams/service"
)

func newValidateCmd(opts *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the connectivity of its components",
		Long: `Validate loads the configuration, checks every enabled component against
its factory schema and builds the components to analyze how their ports
connect. Nothing is started and no bus connection is made.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return validateConfig(cmd.OutOrStdout(), opts.ConfigPath, strict)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat flow warnings as errors")
	return cmd
}

func validateConfig(w io.Writer, configPath string, strict bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	registry, err := newComponentRegistry()
	if err != nil {
		return err
	}

	if problems := config.ValidateComponents(cfg, registry); len(problems) > 0 {
		printSchemaProblems(w, problems)
		return fmt.Errorf("%d components have invalid configuration", len(problems))
	}

	cm, err := service.NewComponentManager(registry, cfg.Components, service.Dependencies{Bus: bus.NewMemory()})
	if err != nil {
		return err
	}
	if err := cm.Initialize(); err != nil {
		return err
	}

	result := cm.ValidateFlowConnectivity()
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return err
	}

	if strict && result.ValidationStatus != flowgraph.StatusHealthy {
		return fmt.Errorf("flow validation: %s", result.ValidationStatus)
	}
	return nil
}

func printSchemaProblems(w io.Writer, problems map[string][]component.ValidationError) {
	names := make([]string, 0, len(problems))
	for name := range problems {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, p := range problems[name] {
			_, _ = fmt.Fprintf(w, "%s: %s: %s (%s)\n", name, p.Field, p.Message, p.Code)
		}
	}
}
