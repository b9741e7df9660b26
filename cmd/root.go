package cmd

import (
	"errors"
	"io/fs"
	"log"
	"os"

	"github.com/josephlewis42/smallsh/core"
	"github.com/josephlewis42/smallsh/core/config"
	"github.com/josephlewis42/smallsh/core/logger"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	noConfig bool

	// shellExitCode is the status the process exits with once cobra returns.
	shellExitCode int
)

func configDir() (string, error) {
	if cfgPath != "" {
		return cfgPath, nil
	}
	return config.DefaultDir()
}

func loadConfig() (*config.Configuration, error) {
	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	configuration, err := config.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadShellConfig is like loadConfig but falls back to the built-in
// configuration when the default directory was never initialized.
func loadShellConfig(cmd *cobra.Command) (*config.Configuration, error) {
	if noConfig {
		return config.Default(), nil
	}

	dir, err := configDir()
	if err != nil {
		return nil, err
	}

	configuration, err := config.Load(dir)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default(), nil
	}
	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "smallsh",
	Short: "A small interactive shell with job control",
	Long: `smallsh reads commands, expands $$, $? and $! and a leading ~/, runs
programs in the foreground or with a trailing & in the background and
reports on background jobs before each prompt.

Redirections (< file, > file) and & are only recognized at the end of a
line, a lone # starts a comment. The builtins are cd and exit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		appLogger := log.New(cmd.ErrOrStderr(), "[smallsh] ", 0)

		cfg, err := loadShellConfig(cmd)
		if err != nil {
			return err
		}

		events := logger.Discard()
		if cfg.EventLog {
			logFd, err := cfg.OpenEventLog()
			if err != nil {
				appLogger.Printf("Event log disabled: %v\n", err)
			} else {
				defer logFd.Close()
				events = logger.NewJsonLinesLogRecorder(logFd)
			}
		}

		sh, err := core.NewShell(core.Options{
			Config: cfg,
			Events: events.NewSession(),
		})
		if err != nil {
			return err
		}
		defer sh.Close()

		shellExitCode = sh.Run()
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
	os.Exit(shellExitCode)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config directory (default $HOME/.smallsh)")
	rootCmd.Flags().BoolVar(&noConfig, "no-config", false, "ignore the config directory and use built-in defaults")
}
