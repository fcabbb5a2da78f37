package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flowdhq/flowd"
	"github.com/flowdhq/flowd/internal/logging"
	"github.com/flowdhq/flowd/pkg/adapters/file"
	"github.com/flowdhq/flowd/pkg/adapters/memory"
	"github.com/flowdhq/flowd/pkg/schema"
)

var validateCmd = &cobra.Command{
	Use:   "validate [scenario-id ...]",
	Short: "Check scenarios for consistency",
	Long:  `Validates scenario documents: state and action references, transition targets, projection syntax and schema resolution. Without arguments every scenario in the directory is checked.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Scenarios are valid!")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	scenarioDir, _ := cmd.Flags().GetString("scenarios")
	schemaDir, _ := cmd.Flags().GetString("schemas")

	logger := logging.New(logLevel(cmd))
	scenarios := file.NewScenarioStore(scenarioDir)

	options := []flowd.Option{flowd.WithLogger(logger)}
	if schemaDir != "" {
		options = append(options, flowd.WithSchemaRepository(
			schema.NewRepository(file.NewSchemaSource(schemaDir), schema.WithLogger(logger)),
		))
	}
	engine := flowd.New(scenarios, memory.NewStore(), options...)

	ids := args
	if len(ids) == 0 {
		var err error
		ids, err = scenarios.List()
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("no scenarios found in %s", scenarioDir)
		}
	}

	ctx := context.Background()
	failed := false
	for _, id := range ids {
		if err := engine.ValidateScenario(ctx, id); err != nil {
			failed = true
			fmt.Printf("%s: %v\n", id, err)
			continue
		}
		fmt.Printf("%s: ok\n", id)
	}
	if failed {
		return fmt.Errorf("one or more scenarios are invalid")
	}
	return nil
}
