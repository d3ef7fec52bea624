package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
	"github.com/rabitem/MailAssistantService-sub002/pkg/retry"
	"github.com/rabitem/MailAssistantService-sub002/pkg/secrets"
)

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to configuration file")
	return fs, configPath
}

func parse(fs *flag.FlagSet, args []string) (bool, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return false, nil
		}
		return false, fmt.Errorf("parse %s flags: %w", fs.Name(), err)
	}
	return true, nil
}

func runComplete(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("complete", stderr)
	providerID := fs.String("provider", "", "provider ID (default: default_provider)")
	model := fs.String("model", "", "model (default: the provider's first model)")
	system := fs.String("system", "", "system prompt")
	temperature := fs.Float64("temperature", -1, "sampling temperature, 0.0-2.0")
	maxTokens := fs.Int("max-tokens", 0, "maximum tokens to generate")
	noStream := fs.Bool("no-stream", false, "wait for the full reply instead of streaming")
	showUsage := fs.Bool("usage", false, "print token usage to stderr")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	prompt, err := readPrompt(fs.Args(), stdin)
	if err != nil {
		return err
	}

	a, err := setup(ctx, *configPath, stderr, true)
	if err != nil {
		return err
	}
	defer a.close()

	id := *providerID
	if id == "" {
		id = a.cfg.DefaultProvider
	}
	p, err := a.registry.Lookup(id)
	if err != nil {
		return err
	}
	if *model == "" {
		*model = p.Descriptor().DefaultModel()
	}

	req := &provider.CompletionRequest{Model: *model}
	if *system != "" {
		req.Messages = append(req.Messages, provider.Message{Role: provider.RoleSystem, Content: *system})
	}
	req.Messages = append(req.Messages, provider.Message{Role: provider.RoleUser, Content: prompt})
	if *temperature >= 0 {
		req.Temperature = provider.Float(*temperature)
	}
	if *maxTokens > 0 {
		req.MaxTokens = provider.Int(*maxTokens)
	}

	// A failure after output has started is not retried.
	printed := false
	onChunk := func(c *provider.CompletionChunk) {
		for _, choice := range c.Choices {
			if choice.Index == 0 && choice.Delta.Content != nil {
				io.WriteString(stdout, *choice.Delta.Content)
				printed = true
			}
		}
	}

	resp, err := retry.DoValue(ctx, a.retryPolicy(), func(ctx context.Context) (*provider.CompletionResponse, error) {
		var resp *provider.CompletionResponse
		var err error
		if *noStream {
			resp, err = p.Complete(ctx, req)
		} else {
			resp, err = a.registry.Send(ctx, id, req, onChunk)
		}
		if err != nil && printed {
			return nil, retry.Permanent(err)
		}
		return resp, err
	})
	if printed {
		fmt.Fprintln(stdout)
	}
	if err != nil {
		return err
	}

	if !printed && len(resp.Choices) > 0 {
		fmt.Fprintln(stdout, resp.Choices[0].Message.Content)
	}
	if *showUsage && resp.Usage != nil {
		fmt.Fprintf(stderr, "usage: prompt=%d completion=%d total=%d\n",
			resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	}
	return nil
}

// readPrompt joins the positional arguments, or reads stdin when there are
// none or the only argument is "-".
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 && !(len(args) == 1 && args[0] == "-") {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading prompt: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", errors.New("empty prompt")
	}
	return prompt, nil
}

func runModels(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("models", stderr)
	providerID := fs.String("provider", "", "only list this provider's models")
	if ok, err := parse(fs, args); !ok {
		return err
	}

	a, err := setup(ctx, *configPath, stderr, true)
	if err != nil {
		return err
	}
	defer a.close()

	if *providerID != "" {
		p, err := a.registry.Lookup(*providerID)
		if err != nil {
			return err
		}
		list, err := retry.DoValue(ctx, a.retryPolicy(), p.ListModels)
		if err != nil {
			return err
		}
		for _, id := range list.IDs() {
			fmt.Fprintln(stdout, id)
		}
		return nil
	}

	all, err := a.registry.ListAllModels(ctx)
	if err != nil {
		return err
	}
	for _, d := range a.registry.Descriptors() {
		for _, m := range all[d.ID] {
			fmt.Fprintf(stdout, "%s\t%s\n", d.ID, m)
		}
	}
	return nil
}

func runProviders(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("providers", stderr)
	if ok, err := parse(fs, args); !ok {
		return err
	}

	a, err := setup(ctx, *configPath, stderr, true)
	if err != nil {
		return err
	}
	defer a.close()

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tBASE URL\tSTREAMING\tDEFAULT MODEL\tKEY")
	for _, d := range a.registry.Descriptors() {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n",
			d.ID, d.BaseURL, d.SupportsStreaming, d.DefaultModel(), keyStatus(ctx, a.store, d))
	}
	return tw.Flush()
}

func keyStatus(ctx context.Context, store secrets.Store, d provider.Descriptor) string {
	_, err := store.Get(ctx, d.ID)
	switch {
	case err == nil:
		return "stored"
	case errors.Is(err, secrets.ErrNotFound) && d.CredentialOptional:
		return "optional"
	case errors.Is(err, secrets.ErrNotFound):
		return "missing"
	default:
		return "error: " + err.Error()
	}
}

func runSetKey(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("set-key", stderr)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("set-key requires exactly one provider ID")
	}
	id := fs.Arg(0)

	a, err := setup(ctx, *configPath, stderr, false)
	if err != nil {
		return err
	}
	defer a.close()

	if _, ok := a.cfg.Provider(id); !ok {
		return fmt.Errorf("%w: %s", provider.ErrUnknownProvider, id)
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading key: %w", err)
	}
	key := strings.TrimSpace(line)
	if err := secrets.ValidateCredential(key); err != nil {
		return err
	}

	if err := a.store.Set(ctx, id, key); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "stored API key for %s\n", id)
	return nil
}

func runDeleteKey(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, configPath := newFlagSet("delete-key", stderr)
	if ok, err := parse(fs, args); !ok {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("delete-key requires exactly one provider ID")
	}
	id := fs.Arg(0)

	a, err := setup(ctx, *configPath, stderr, false)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.Delete(ctx, id); err != nil {
		if errors.Is(err, secrets.ErrNotFound) {
			return fmt.Errorf("no API key stored for %s", id)
		}
		return err
	}
	fmt.Fprintf(stdout, "deleted API key for %s\n", id)
	return nil
}
