package cli

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/vk/blockflow/internal/client"
	"github.com/vk/blockflow/internal/taskstore"
	"github.com/vk/blockflow/internal/tracker"
)

const defaultServer = "http://localhost:8000"

func newServeCommand(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine workers and the HTTP/socket.io API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := o.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&o.addr, "addr", "", "Listen address, overriding the settings file.")
	return cmd
}

func newRunCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run FILE",
		Short: "Run a workflow file in-process and stream its status as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			final, err := a.RunFile(cmd.Context(), args[0], cmd.OutOrStdout())
			if err != nil {
				return workflowError(err)
			}
			if final.State == taskstore.StateFailure {
				return &ExitError{Code: 1, Message: fmt.Sprintf("workflow failed: %s", final.Error)}
			}
			return nil
		},
	}
}

func newValidateCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Compile a workflow file and print the resulting pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := o.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			chain, err := a.Validate(cmd.Context(), args[0])
			if err != nil {
				return workflowError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %s is valid: %s\n", args[0], strings.Join(chain.Tasks(), " -> "))
			return nil
		},
	}
}

func newStatusCommand(_ *rootOptions) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "status HANDLE",
		Short: "Fetch the current status of a submitted workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := client.New(server).Status(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printStatus(cmd, st)
		},
	}
	cmd.Flags().StringVar(&server, "server", defaultServer, "Base URL of a running blockflow server.")
	return cmd
}

func newWatchCommand(_ *rootOptions) *cobra.Command {
	var server string
	cmd := &cobra.Command{
		Use:   "watch HANDLE",
		Short: "Stream live status of a submitted workflow until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var printErr error
			last, err := client.New(server).Watch(cmd.Context(), args[0], func(st tracker.Status) {
				if printErr == nil {
					printErr = printStatus(cmd, st)
				}
			})
			if err != nil {
				return err
			}
			if printErr != nil {
				return printErr
			}
			if last.State == taskstore.StateFailure {
				return &ExitError{Code: 1, Message: fmt.Sprintf("workflow failed: %s", last.Error)}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", defaultServer, "Base URL of a running blockflow server.")
	return cmd
}

func printStatus(cmd *cobra.Command, st tracker.Status) error {
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode status: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}
