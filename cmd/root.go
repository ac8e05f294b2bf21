package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"stackctl/internal/color"
	"stackctl/pkg/logging"
)

var (
	flagConfig  string
	flagVerbose bool
	flagNoColor bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stackctl",
	Short: "Deploy and supervise the local AI platform stack",
	Long: `stackctl deploys and supervises the AI platform stack: the FastAPI
backend, the web frontend, the Ollama model daemon, and the optional
docker-compose production runtime. One deploy run backs up persistent
state, tears down running services, refreshes code and dependencies,
provisions the environment, launches the stack, and verifies health.`,
	// SilenceUsage is set to true to prevent printing usage message on
	// errors handled by us (e.g. a failed deployment stage)
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if flagVerbose {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)

		noColor := flagNoColor || os.Getenv("NO_COLOR") != ""
		color.Initialize(noColor)
	},
}

// SetVersion sets the version for the root command
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "stackctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Cobra prints the error, we just exit non-zero
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "explicit config file (default: layered .stackctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newDeployCmd())
	rootCmd.AddCommand(newStopCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newVersionCmd())
}
