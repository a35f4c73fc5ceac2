// Package cliutil provides the JSON result envelope and exit-code mapping
// shared by every cmd/cncli subcommand, per spec.md §6/§7.
package cliutil

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Status is the outer status field of every command's JSON result.
type Status string

const (
	StatusOK       Status = "ok"
	StatusError    Status = "error"
	StatusOrphaned Status = "orphaned"
)

// Envelope is the single JSON object every command prints to stdout.
type Envelope struct {
	Status       Status `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Data         any    `json:"data,omitempty"`
}

// Emit writes env to stdout as JSON and returns the process exit code
// that mirrors its status: 0 for "ok", 1 otherwise.
func Emit(env Envelope) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(env); err != nil {
		fmt.Fprintln(os.Stderr, "cncli: failed to encode result:", err)
		return 1
	}
	if env.Status == StatusOK {
		return 0
	}
	return 1
}

// Ok builds a success envelope carrying data.
func Ok(data any) Envelope {
	return Envelope{Status: StatusOK, Data: data}
}

// Orphaned builds an "orphaned" envelope carrying data, used by validate
// when the looked-up block is orphaned.
func Orphaned(data any) Envelope {
	return Envelope{Status: StatusOrphaned, Data: data}
}

// Error builds an error envelope from err.
func Error(err error) Envelope {
	return Envelope{Status: StatusError, ErrorMessage: err.Error()}
}

// Run executes fn and emits its result as a JSON envelope, returning the
// process exit code. Command calls this from each subcommand's cobra Run
// function so the error-to-exit-code mapping is centralised in one place.
func Run(fn func() (any, error)) int {
	data, err := fn()
	if err != nil {
		return Emit(Error(err))
	}
	return Emit(Ok(data))
}

// Command adapts fn into a cobra Run function: it executes fn, emits the
// resulting envelope as JSON, and exits the process with the matching
// status code. Every cncli subcommand's Run field is built this way so the
// exit-code mapping in spec.md §7 is centralised.
func Command(fn func() (any, error)) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		os.Exit(Run(fn))
	}
}

// CommandEnvelope is like Command but for handlers that need to choose a
// non-"ok" success status (e.g. validate's "orphaned" result).
func CommandEnvelope(fn func() (Envelope, error)) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		env, err := fn()
		if err != nil {
			os.Exit(Emit(Error(err)))
		}
		os.Exit(Emit(env))
	}
}
