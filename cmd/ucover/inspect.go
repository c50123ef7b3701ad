package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/ucover/app"
	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/config"
	"github.com/ludo-technologies/ucover/service"
)

func inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <dump>",
		Short: "Show how methods of a dump are split into sections",
		Long: `Print the sections, conditions and sequence points of the methods in one
disassembly dump. Methods that cannot be modelled are listed with their error.

Examples:
  ucover inspect Sample.yaml --method Pick
  ucover inspect Sample.yaml --dot | dot -Tsvg > sections.svg
  ucover inspect Sample.yaml --legacy --source`,
		Args: cobra.ExactArgs(1),
		RunE: runInspect,
	}

	cmd.Flags().StringP("method", "m", "",
		"Only methods whose name contains this text")
	cmd.Flags().StringP("format", "f", "text",
		"Output format: text, json, yaml, dot")
	cmd.Flags().Bool("dot", false,
		"Graphviz output (shorthand for --format dot)")
	cmd.Flags().Bool("legacy", false,
		"Cross-check sections with the legacy derivation")
	cmd.Flags().Bool("source", false,
		"Print the source text of each sequence point")
	cmd.Flags().Bool("strict", false,
		"Reject dumps with unknown fields")

	return cmd
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithTarget(configPath, args[0])
	if err != nil {
		return domain.NewConfigError("failed to load configuration file", err)
	}
	if err := setupLogger(cmd, cfg); err != nil {
		return err
	}
	defer syncLogger()

	format, _ := cmd.Flags().GetString("format")
	if dot, _ := cmd.Flags().GetBool("dot"); dot {
		format = string(domain.OutputFormatDOT)
	}

	req := domain.InspectRequest{
		DumpPath:     args[0],
		OutputFormat: domain.OutputFormat(format),
		OutputWriter: cmd.OutOrStdout(),
	}
	req.MethodFilter, _ = cmd.Flags().GetString("method")
	req.Legacy, _ = cmd.Flags().GetBool("legacy")
	req.ShowSource, _ = cmd.Flags().GetBool("source")
	req.StrictParsing, _ = cmd.Flags().GetBool("strict")

	uc := app.NewInspectUseCase(service.NewInspectService(), service.NewOutputFormatter())
	_, err = uc.Execute(context.Background(), req)
	return err
}
