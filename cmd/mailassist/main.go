// Command mailassist drives the provider layer from the command line: it
// sends completions, lists models and manages stored API keys.
//
// Configuration is read from a YAML file (see pkg/config) and
// MAILASSIST_* environment variables.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

const usage = `Usage:
  mailassist <command> [flags] [args]

Commands:
  complete    send a prompt to a provider and print the reply
  models      list the models served by one or all providers
  providers   list the configured providers
  set-key     store the API key for a provider (read from stdin)
  delete-key  remove the stored API key for a provider

Run "mailassist <command> -h" for command flags.`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "interrupted")
			os.Exit(130)
		}
		slog.Error("mailassist failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return errors.New("no command given")
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "complete":
		return runComplete(ctx, rest, stdin, stdout, stderr)
	case "models":
		return runModels(ctx, rest, stdout, stderr)
	case "providers":
		return runProviders(ctx, rest, stdout, stderr)
	case "set-key":
		return runSetKey(ctx, rest, stdin, stdout, stderr)
	case "delete-key":
		return runDeleteKey(ctx, rest, stdout, stderr)
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	default:
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
