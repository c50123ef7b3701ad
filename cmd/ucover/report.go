package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/ucover/app"
	"github.com/ludo-technologies/ucover/domain"
	"github.com/ludo-technologies/ucover/internal/constants"
	"github.com/ludo-technologies/ucover/service"
)

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [trace path...]",
		Short: "Replay traces against a project and write a coverage report",
		Long: `Replay the .ucovertrace files recorded by instrumented test runs against a
project manifest and write the coverage report. Without trace paths the
directory of the manifest is searched.

Exit codes:
  0 - Report written, thresholds met
  1 - Error (missing manifest, unreadable trace, strict replay failure)
  2 - Coverage below --fail-under-line or --fail-under-branch

Examples:
  ucover report --project project.json traces/
  ucover report -p project.json -f xml -o opencover.xml
  ucover report -p project.json --store hits.db --fail-under-line 80`,
		RunE: runReport,
	}

	cmd.Flags().StringP("project", "p", "project.json",
		"Project manifest written by 'ucover model'")
	cmd.Flags().StringP("format", "f", "",
		"Report format: text, json, yaml, xml (default from config, text)")
	cmd.Flags().StringP("output", "o", "",
		"Report file (default: stdout)")
	cmd.Flags().String("store", "",
		"SQLite database accumulating hits across runs")
	cmd.Flags().Bool("strict", false,
		"Fail on trace events that do not match the project")
	cmd.Flags().Bool("details", false,
		"List classes and methods in text output")
	cmd.Flags().String("sort", "",
		"Sort modules by: name, coverage")
	cmd.Flags().Float64("fail-under-line", 0,
		"Exit with code 2 below this sequence coverage percentage")
	cmd.Flags().Float64("fail-under-branch", 0,
		"Exit with code 2 below this branch coverage percentage")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	projectPath, _ := cmd.Flags().GetString("project")

	loader := service.NewConfigurationLoader()
	cfg, err := loader.LoadConfig(configPath, filepath.Dir(projectPath))
	if err != nil {
		return err
	}
	if err := setupLogger(cmd, cfg); err != nil {
		return err
	}
	defer syncLogger()

	base := service.ReportRequestFromConfig(cfg)
	base.ConfigPath = configPath

	override := &domain.ReportRequest{
		ProjectPath:  projectPath,
		TracePaths:   args,
		OutputWriter: cmd.OutOrStdout(),
	}
	format, _ := cmd.Flags().GetString("format")
	override.OutputFormat = domain.OutputFormat(format)
	override.OutputPath, _ = cmd.Flags().GetString("output")
	override.StorePath, _ = cmd.Flags().GetString("store")
	override.Strict, _ = cmd.Flags().GetBool("strict")
	override.ShowDetails, _ = cmd.Flags().GetBool("details")
	sortBy, _ := cmd.Flags().GetString("sort")
	override.SortBy = domain.SortCriteria(sortBy)
	override.FailUnderLine, _ = cmd.Flags().GetFloat64("fail-under-line")
	override.FailUnderBranch, _ = cmd.Flags().GetFloat64("fail-under-branch")

	req := loader.MergeReportRequest(base, override)

	pm := service.NewProgressManager(!noProgress)
	defer pm.Close()

	uc := app.NewReportUseCase(service.NewReportService(pm), service.NewProjectStore(), service.NewOutputFormatter())
	response, err := uc.Execute(context.Background(), *req)
	if err != nil {
		return err
	}
	pm.Close()

	if req.OutputPath != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Report saved to: %s\n", req.OutputPath)
	}

	check := uc.Check(response, *req, constants.ExitBelowThreshold)
	if !check.Passed {
		messages := make([]string, 0, len(check.Violations))
		for _, v := range check.Violations {
			messages = append(messages, v.Message)
		}
		return &CheckExitError{Code: check.ExitCode, Message: strings.Join(messages, "; ")}
	}
	return nil
}
