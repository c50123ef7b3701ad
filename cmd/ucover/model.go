package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/ucover/app"
	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/service"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model [path...]",
		Short: "Build a project manifest from disassembly dumps",
		Long: `Build the coverage model of every assembly found in the given dumps and
write it as a project manifest. Directories are searched for .yaml, .yml
and .json dumps, honouring .ucoverignore.

Examples:
  ucover model bin/Debug -o project.json
  ucover model Sample.yaml -o project.yaml --filter "-[Sample]Sample.Generated.*"
  ucover model bin/ --on-method-error skip`,
		Args: cobra.MinimumNArgs(1),
		RunE: runModel,
	}

	cmd.Flags().StringP("output", "o", "project.json",
		"Manifest path (.json, .yaml or .yml)")
	cmd.Flags().StringP("format", "f", "text",
		"Summary format: text, json, yaml")
	cmd.Flags().StringArray("filter", nil,
		"Assembly filter +[assembly]type or -[assembly]type (repeatable)")
	cmd.Flags().Bool("disable-default-filters", false,
		"Do not skip framework assemblies")
	cmd.Flags().String("on-method-error", "",
		"What to do when a method cannot be modelled: fail, skip")
	cmd.Flags().Bool("strict", false,
		"Reject dumps with unknown fields")
	cmd.Flags().Int("max-goroutines", 0,
		"Parallel method builds (0 = one per CPU)")

	return cmd
}

func runModel(cmd *cobra.Command, args []string) error {
	loader := service.NewConfigurationLoader()
	cfg, err := loader.LoadConfig(configPath, args[0])
	if err != nil {
		return err
	}
	if err := setupLogger(cmd, cfg); err != nil {
		return err
	}
	defer syncLogger()

	base := service.ModelRequestFromConfig(cfg)
	base.ConfigPath = configPath

	override := &domain.ModelRequest{Paths: args}
	override.OutputPath, _ = cmd.Flags().GetString("output")
	override.Filters, _ = cmd.Flags().GetStringArray("filter")
	override.DisableDefaultFilters, _ = cmd.Flags().GetBool("disable-default-filters")
	policy, _ := cmd.Flags().GetString("on-method-error")
	override.OnMethodError = domain.MethodErrorPolicy(policy)
	override.MaxGoroutines, _ = cmd.Flags().GetInt("max-goroutines")
	override.StrictParsing, _ = cmd.Flags().GetBool("strict")

	req := loader.MergeModelRequest(base, override)

	formatName, _ := cmd.Flags().GetString("format")
	format := domain.OutputFormat(formatName)

	pm := service.NewProgressManager(!noProgress && format == domain.OutputFormatText)
	defer pm.Close()

	uc, err := app.NewModelUseCaseBuilder().
		WithService(service.NewModelService(pm)).
		WithStore(service.NewProjectStore()).
		WithFileHelper(app.NewFileHelper(req.IgnoreFile)).
		Build()
	if err != nil {
		return err
	}

	response, err := uc.Execute(context.Background(), *req)
	if err != nil {
		return err
	}
	pm.Close()

	if err := service.NewOutputFormatter().WriteModel(response, format, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write model summary: %w", err)
	}
	return nil
}
