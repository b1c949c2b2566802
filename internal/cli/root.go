// Package cli implements the dyphal command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"dyphal/internal/config"
	"dyphal/internal/filesystem"
	"dyphal/internal/logging"
	"dyphal/internal/memory"
	"dyphal/internal/metrics"
)

var log = logging.Component("cli")

// errReported is returned by commands whose errors were already shown to
// the user. Execute exits non-zero without printing it again.
var errReported = errors.New("errors were reported")

// app holds the state shared by every command of one invocation.
type app struct {
	configPath string
	logLevel   string
	debug      bool

	cfg *config.Config
	in  io.Reader
}

// NewRootCommand builds the dyphal command tree.
func NewRootCommand() *cobra.Command {
	a := &app{in: os.Stdin}

	root := &cobra.Command{
		Use:   "dyphal",
		Short: "Generate web photo albums for the Dyphal viewer",
		Long: `Dyphal builds static web photo albums. Photos are resized, their
metadata is extracted, and the album is written as a JSON description
next to the viewer template, ready to be copied to any web server.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default "+config.DefaultPath()+")")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.BoolVar(&a.debug, "debug", false, "shorthand for --log-level debug")

	root.AddCommand(
		a.generateCommand(),
		a.openCommand(),
		a.infoCommand(),
		a.installTemplateCommand(),
		a.importCatalogCommand(),
		a.serveCommand(),
		a.publishCommand(),
		a.configCommand(),
		a.checkCommand(),
		versionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.cfg = config.Load(a.configPath)

	level := a.cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	if a.debug {
		level = "debug"
	}
	if level != "" {
		l, ok := logging.ParseLevel(level)
		if !ok {
			return fmt.Errorf("unknown log level %q", level)
		}
		logging.SetLevel(l)
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	memory.ConfigureLimit()
	log.Debug("running %s with configuration %s", cmd.CommandPath(), a.cfg.Path())
	return nil
}

// save writes the configuration, logging rather than failing when it
// cannot be written.
func (a *app) save() {
	if err := a.cfg.Save(); err != nil {
		log.Warn("could not save configuration: %v", err)
	}
}

// reportErrors returns errReported when the session collected any error
// messages. They have already been logged.
func reportErrors(messages []string) error {
	if len(messages) > 0 {
		return errReported
	}
	return nil
}
