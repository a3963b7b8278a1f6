// Command legends drives the legendsof1f600 library from the shell.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nathanjent/legendsof1f600/config"
	"github.com/nathanjent/legendsof1f600/legends"
)

var (
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "legends",
	Short: "legendsof1f600 theme songs, text metrics and commands",
	Long: `legends exercises the legendsof1f600 library without a C host.

Configuration is read from --config or LEGENDS_CONFIG, then overridden by
LEGENDS_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = os.Getenv(config.EnvPath)
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		logger, err = cfg.Log.Build(verbose)
		if err != nil {
			return err
		}
		logger.Debug("config loaded", zap.String("path", path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the library version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "legendsof1f600 %s\n", legends.Version)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: $LEGENDS_CONFIG)")

	songCmd.Flags().StringVar(&songSeparator, "separator", "", "Override the line separator")
	songCmd.Flags().BoolVarP(&songNumbered, "numbered", "n", false, "Number each line")
	countCmd.Flags().BoolVarP(&countDetail, "detail", "d", false, "Also report graphemes, display width and NFC scalars")
	execCmd.Flags().BoolVarP(&execShowStatus, "status", "s", false, "Print the callback status after the output")
	consoleCmd.Flags().BoolVar(&consoleWatch, "watch", false, "Reload command replies when the config file changes")
	consoleCmd.Flags().BoolVar(&consolePlain, "plain", false, "Read commands line by line from stdin instead of the TUI")
	consoleCmd.Flags().StringVar(&consoleTranscript, "transcript", "", "Write the session as JSON lines to this file on exit")

	rootCmd.AddCommand(songCmd)
	rootCmd.AddCommand(countCmd)
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var se *statusError
		if errors.As(err, &se) {
			os.Exit(int(se.status))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLibrary builds a Library from the loaded configuration.
func newLibrary(extra ...legends.Option) (*legends.Library, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := append(cfg.LibraryOptions(logger.Named("legends")), extra...)
	return legends.New(opts...)
}

// closeLibrary reports buffers the command forgot to free.
func closeLibrary(lib *legends.Library) {
	if leaked := lib.Close(); leaked > 0 {
		logger.Warn("library closed with live buffers", zap.Int("leaked", leaked))
	}
}
