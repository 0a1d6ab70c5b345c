// Package runcmder implements the root promptrun command: parse a JSON
// request envelope, make one call to the API, print SUCCESS or ERROR.
package runcmder

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptworksco/promptrun/internal/config"
	"github.com/promptworksco/promptrun/pkg/llm"
	"github.com/promptworksco/promptrun/pkg/logger"
	"github.com/promptworksco/promptrun/pkg/openai"
	"github.com/promptworksco/promptrun/pkg/transcript"
)

const runLongDesc string = `Send one prompt to an OpenAI-compatible API and print the result.

The single positional argument is a JSON object:

  {"api_key": "...", "mode": "chat", "model": "gpt-4o", "prompt": "...", "temperature": 0.7}

"mode" is "chat" (chat completions) or "completion" (legacy completions);
"temperature" is optional and defaults to 0.5.

On success the output is the line SUCCESS followed by the generated text.
On any failure the output is the line ERROR followed by an error trace.
Both go to stdout and the process exits 0 either way; logs go to stderr.

Examples:
  promptrun '{"api_key":"sk-...","mode":"chat","model":"gpt-4o","prompt":"Say hi"}'
  promptrun --base-url http://localhost:8000 --record '{"api_key":"x","mode":"completion","model":"m","prompt":"2+2="}'`

const runShortDesc string = "Run one prompt against an OpenAI-compatible API"

type runCommander struct {
	baseURL    string
	timeout    time.Duration
	record     bool
	recordSet  bool // whether --record was given explicitly
	sqlitePath string
	configPath string
	debug      bool
}

// runResult is what a successful exchange produces: the text to print and,
// when recording is on, the transcript record to store.
type runResult struct {
	text   string
	rec    *transcript.Record
	dbPath string
}

// NewRunCmd builds the root command. Subcommands (like history) are attached
// by main.
func NewRunCmd() *cobra.Command {
	cmder := &runCommander{}

	// SilenceErrors stays off: the run path never returns an error (it owns
	// the SUCCESS/ERROR protocol), but subcommand failures must reach stderr.
	cmd := &cobra.Command{
		Use:          "promptrun <request-json>",
		Short:        runShortDesc,
		Long:         runLongDesc,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.recordSet = cmd.Flags().Changed("record")
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.baseURL, "base-url", "u", "", "API root (default https://api.openai.com)")
	cmd.Flags().DurationVarP(&cmder.timeout, "timeout", "t", 0, "Per-request timeout (e.g., 90s)")
	cmd.Flags().BoolVarP(&cmder.record, "record", "r", false, "Record the exchange as a transcript")
	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to the transcript SQLite database")
	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to the config file")
	cmd.Flags().BoolVarP(&cmder.debug, "debug", "d", false, "Enable debug logging")

	return cmd
}

// run prints the SUCCESS/ERROR protocol. It always returns nil once one of
// the two lines was written: the output itself is the interface, not the
// exit code.
func (c *runCommander) run(ctx context.Context, cmd *cobra.Command, args []string) error {
	log := logger.NewLogger(c.debug)
	defer log.Sync()

	out := cmd.OutOrStdout()

	result, err := c.execute(ctx, log, args)
	if err != nil {
		fmt.Fprintln(out, "ERROR")
		fmt.Fprintf(out, "%+v\n", err)
		return nil
	}

	fmt.Fprintln(out, "SUCCESS")
	fmt.Fprintln(out, result.text)

	// A storage failure must not turn a printed SUCCESS into anything else.
	if result.rec != nil {
		c.store(ctx, log, result.dbPath, result.rec)
	}

	return nil
}

// execute performs the single request and returns the generated text.
func (c *runCommander) execute(ctx context.Context, log *zap.Logger, args []string) (*runResult, error) {
	if len(args) != 1 {
		return nil, errors.Errorf("expected exactly one request argument, got %d", len(args))
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	env, err := llm.ParseEnvelope(args[0])
	if err != nil {
		return nil, err
	}

	temperature := env.TemperatureOr(lo.FromPtrOr(cfg.Temperature, llm.DefaultTemperature))

	timeout := c.timeout
	if timeout == 0 {
		if timeout, err = cfg.RequestTimeout(); err != nil {
			return nil, err
		}
	}

	baseURL := c.baseURL
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}

	client := openai.New(openai.Config{
		BaseURL: baseURL,
		APIKey:  env.APIKey,
		Timeout: timeout,
	}, log)

	log.Debug("dispatching request",
		zap.String("mode", string(env.Mode)),
		zap.String("model", env.Model),
		zap.Float64("temperature", temperature),
	)

	var text string
	var usage llm.Usage

	switch env.Mode {
	case llm.ModeChat:
		resp, err := client.CreateChatCompletion(ctx, llm.ChatRequest{
			Model:       env.Model,
			Messages:    llm.UserMessage(env.Prompt),
			Temperature: &temperature,
		})
		if err != nil {
			return nil, err
		}
		text = resp.Choices[0].Message.Content
		usage = resp.Usage

	case llm.ModeCompletion:
		resp, err := client.CreateCompletion(ctx, llm.CompletionRequest{
			Model:       env.Model,
			Prompt:      env.Prompt,
			Temperature: &temperature,
		})
		if err != nil {
			return nil, err
		}
		text = resp.Choices[0].Text
		usage = resp.Usage

	default:
		// Validate already rejected other modes.
		return nil, errors.Errorf("unknown mode %q", env.Mode)
	}

	result := &runResult{text: text}

	// The flag beats the config file, including an explicit --record=false.
	record := cfg.Record
	if c.recordSet {
		record = c.record
	}

	if record {
		result.rec = transcript.NewRecord(transcript.Exchange{
			Mode:        string(env.Mode),
			Model:       env.Model,
			Prompt:      env.Prompt,
			Response:    text,
			Temperature: temperature,
		}, usage.PromptTokens, usage.CompletionTokens)

		if result.dbPath, err = config.ResolveSQLitePath(c.sqlitePath, cfg); err != nil {
			log.Warn("could not resolve transcript database", zap.Error(err))
			result.rec = nil
		}
	}

	return result, nil
}

// store writes the transcript record, logging failures instead of surfacing them.
func (c *runCommander) store(ctx context.Context, log *zap.Logger, dbPath string, rec *transcript.Record) {
	storer, err := transcript.NewSQLiteStorer(dbPath)
	if err != nil {
		log.Warn("could not open transcript database", zap.String("path", dbPath), zap.Error(err))
		return
	}
	defer storer.Close()

	isNew, err := storer.Put(ctx, rec)
	if err != nil {
		log.Warn("could not store transcript", zap.Error(err))
		return
	}

	log.Debug("transcript stored",
		zap.String("id", rec.ID[:16]),
		zap.Bool("new", isNew),
	)
}
