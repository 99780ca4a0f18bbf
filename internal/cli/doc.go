// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It
// translates flags and the settings file into the application's
// configuration and dispatches to the serve, run, validate, status and watch
// commands.
package cli
