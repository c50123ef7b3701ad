package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/ucover/internal/config"
	"github.com/ludo-technologies/ucover/internal/constants"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a ucover configuration file",
		Long: `Generate a documented ucover configuration file.

By default, creates .ucover.yaml in the current directory with full
documentation. Use --interactive for a guided setup wizard.

Examples:
  # Create .ucover.yaml in current directory
  ucover init

  # NUnit presets with strict thresholds
  ucover init --framework nunit --strictness strict

  # Custom output path, overwriting an existing file
  ucover init -o ci/ucover.yaml --force

  # Generate smaller config with essential options only
  ucover init --minimal

  # Interactive setup wizard
  ucover init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("output", "o", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().Bool("force", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with essential options only")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")
	cmd.Flags().String("framework", string(config.FrameworkGeneric),
		"Test framework presets: generic, nunit, xunit, mstest")
	cmd.Flags().String("strictness", string(config.StrictnessStandard),
		"Threshold presets: relaxed, standard, strict")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	outputPath, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	interactive, _ := cmd.Flags().GetBool("interactive")
	frameworkName, _ := cmd.Flags().GetString("framework")
	strictnessName, _ := cmd.Flags().GetString("strictness")

	framework := config.Framework(frameworkName)
	if _, ok := config.GetFrameworkPresets()[framework]; !ok {
		return fmt.Errorf("unknown framework %q", frameworkName)
	}
	strictness := config.Strictness(strictnessName)
	if _, ok := config.GetStrictnessPresets()[strictness]; !ok {
		return fmt.Errorf("unknown strictness %q", strictnessName)
	}

	out := cmd.OutOrStdout()

	if interactive {
		var err error
		framework, strictness, outputPath, err = runInteractiveSetup(out, outputPath)
		if err != nil {
			return err
		}
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", outputPath)
		}
	}

	dir := filepath.Dir(outputPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	var content string
	if minimal {
		content = config.GetMinimalConfigTemplate()
	} else {
		content = config.GetFullConfigTemplate(framework, strictness)
	}

	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	displayPath := outputPath
	if absPath, err := filepath.Abs(outputPath); err == nil {
		displayPath = absPath
	}
	fmt.Fprintf(out, "Created %s\n", displayPath)
	fmt.Fprintln(out, "\nRun 'ucover model <dumps>' to build a project manifest.")

	return nil
}

func runInteractiveSetup(out io.Writer, defaultPath string) (config.Framework, config.Strictness, string, error) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "ucover Configuration Setup")
	fmt.Fprintln(out, "==========================")
	fmt.Fprintln(out)

	frameworks := []struct {
		Label string
		Value config.Framework
	}{
		{"Generic", config.FrameworkGeneric},
		{"NUnit", config.FrameworkNUnit},
		{"xUnit", config.FrameworkXUnit},
		{"MSTest", config.FrameworkMSTest},
	}

	frameworkTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }}",
		Inactive: "   {{ .Label | white }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	frameworkPrompt := promptui.Select{
		Label:     "Which test framework runs the instrumented tests?",
		Items:     frameworks,
		Templates: frameworkTemplates,
	}

	frameworkIdx, _, err := frameworkPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("framework selection cancelled: %w", err)
	}

	fmt.Fprintln(out)

	levels := []struct {
		Label       string
		Description string
		Value       config.Strictness
	}{
		{"Standard (recommended)", "70% lines, 50% branches", config.StrictnessStandard},
		{"Relaxed", "No thresholds", config.StrictnessRelaxed},
		{"Strict", "85% lines, 75% branches", config.StrictnessStrict},
	}

	strictnessTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	strictnessPrompt := promptui.Select{
		Label:     "Which coverage thresholds should fail a run?",
		Items:     levels,
		Templates: strictnessTemplates,
	}

	strictnessIdx, _, err := strictnessPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("strictness selection cancelled: %w", err)
	}

	fmt.Fprintln(out)

	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultPath,
	}

	outputPath, err := outputPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath == "" {
		outputPath = defaultPath
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Creating %s... ", outputPath)

	return frameworks[frameworkIdx].Value, levels[strictnessIdx].Value, outputPath, nil
}
