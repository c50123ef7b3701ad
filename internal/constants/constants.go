package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "ucover"

	// ConfigFileName is the default config file name
	ConfigFileName = ".ucover.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "UCOVER"

	// IgnoreFileName lists dump and trace paths to skip
	IgnoreFileName = ".ucoverignore"
)

// ConfigFileNames are searched in order in each candidate directory
var ConfigFileNames = []string{
	".ucover.yaml",
	".ucover.yml",
	"ucover.yaml",
	"ucover.yml",
	".ucover.json",
	"ucover.json",
}

// File markers
const (
	TraceFileExtension = ".ucovertrace"
	BackupMarker       = ".ucovermebackup"
)

// HiddenLine is the line number debug symbols give compiler-generated code
const HiddenLine = 0xFEEFEE

// Command names
const (
	CommandModel   = "model"
	CommandReport  = "report"
	CommandInspect = "inspect"
)

// Exit codes
const (
	ExitOK             = 0
	ExitError          = 1
	ExitBelowThreshold = 2
)
