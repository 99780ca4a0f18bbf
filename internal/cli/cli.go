package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/vk/blockflow/internal/app"
	"github.com/vk/blockflow/internal/config"
	"github.com/vk/blockflow/internal/flowerr"
)

// DefaultConfigPath is read when --config is not given. Its absence is not
// an error.
const DefaultConfigPath = "blockflow.hcl"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) *ExitError {
	return &ExitError{Code: 2, Message: err.Error()}
}

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	outW   io.Writer
	errW   io.Writer
	collab *app.Collaborators

	configPath string
	logLevel   string
	logFormat  string
	workers    int
	addr       string
}

// Execute runs the command line in args. Output goes to outW, logs and
// diagnostics to errW. collab may be nil, in which case the application
// builds its collaborators from the configuration.
func Execute(ctx context.Context, args []string, outW, errW io.Writer, collab *app.Collaborators) error {
	cmd := NewRootCommand(outW, errW, collab)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

// NewRootCommand builds the blockflow command tree.
func NewRootCommand(outW, errW io.Writer, collab *app.Collaborators) *cobra.Command {
	o := &rootOptions{outW: outW, errW: errW, collab: collab}

	root := &cobra.Command{
		Use:   "blockflow",
		Short: "blockflow - compile node-graph workflows into pipelines and run them.",
		Long: `blockflow accepts a workflow of typed nodes, orders it into a linear
pipeline, and runs it on a pool of background workers. Progress can be
polled over HTTP or streamed over socket.io.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&o.configPath, "config", DefaultConfigPath, "Path to the HCL settings file.")
	flags.StringVar(&o.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	flags.StringVar(&o.logFormat, "log-format", "json", "Log output format. Options: 'text' or 'json'.")
	flags.IntVar(&o.workers, "workers", 4, "Number of concurrent engine workers.")

	root.AddCommand(
		newServeCommand(o),
		newRunCommand(o),
		newValidateCommand(o),
		newStatusCommand(o),
		newWatchCommand(o),
	)
	return root
}

// settings resolves defaults, then the settings file, then explicitly set
// flags.
func (o *rootOptions) settings(cmd *cobra.Command) (*app.Config, error) {
	optional := !cmd.Flags().Changed("config")
	s, err := config.Load(cmd.Context(), o.configPath, config.Defaults(), optional)
	if err != nil {
		return nil, usageError(err)
	}

	if cmd.Flags().Changed("log-level") || s.LogLevel == "" {
		s.LogLevel = o.logLevel
	}
	if cmd.Flags().Changed("log-format") || s.LogFormat == "" {
		s.LogFormat = o.logFormat
	}
	if cmd.Flags().Changed("workers") {
		s.Workers = o.workers
	}
	if o.addr != "" {
		s.Addr = o.addr
	}

	cfg, err := app.NewConfig(s)
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// newApp builds the application. Startup panics surface as errors.
func (o *rootOptions) newApp(cmd *cobra.Command) (a *app.App, err error) {
	cfg, err := o.settings(cmd)
	if err != nil {
		return nil, err
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("application startup panicked: %v", r)
		}
	}()

	var collab *app.Collaborators
	if o.collab != nil {
		c := *o.collab
		collab = &c
	}
	return app.NewApp(o.errW, cfg, collab)
}

// workflowError maps compile errors to the usage exit code.
func workflowError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	if flowerr.IsCompileError(err) {
		return &ExitError{Code: 2, Message: fmt.Sprintf("invalid workflow: %v", err)}
	}
	return err
}
