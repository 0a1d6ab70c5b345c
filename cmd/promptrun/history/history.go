// Package historycmder implements browsing of recorded transcripts.
package historycmder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/promptworksco/promptrun/internal/config"
	"github.com/promptworksco/promptrun/pkg/transcript"
)

const historyLongDesc string = `List recorded transcripts, newest first.

Transcripts are written when a request runs with --record (or record = true
in the config file). Use "history show <id>" to print a single transcript;
any unambiguous id prefix works.

Examples:
  promptrun history
  promptrun history --limit 5
  promptrun history show 3fa2`

const historyShortDesc string = "Browse recorded transcripts"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	modelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
)

type historyCommander struct {
	sqlitePath string
	configPath string
	limit      int
	plain      bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.list(cmd.Context(), cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to the transcript SQLite database")
	cmd.PersistentFlags().StringVarP(&cmder.configPath, "config", "c", "", "Path to the config file")
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", 20, "Max transcripts to list")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.show(cmd.Context(), cmd, args[0])
		},
	}
	showCmd.Flags().BoolVar(&cmder.plain, "plain", false, "Disable markdown rendering")
	cmd.AddCommand(showCmd)

	return cmd
}

func (c *historyCommander) openStorer() (*transcript.SQLiteStorer, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	dbPath, err := config.ResolveSQLitePath(c.sqlitePath, cfg)
	if err != nil {
		return nil, err
	}

	storer, err := transcript.NewSQLiteStorer(dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open transcript database %s", dbPath)
	}

	return storer, nil
}

func (c *historyCommander) list(ctx context.Context, cmd *cobra.Command) error {
	storer, err := c.openStorer()
	if err != nil {
		return err
	}
	defer storer.Close()

	records, err := storer.Recent(ctx, c.limit)
	if err != nil {
		return errors.Wrap(err, "could not list transcripts")
	}

	out := cmd.OutOrStdout()

	if len(records) == 0 {
		fmt.Fprintln(out, "No transcripts recorded.")
		return nil
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-12s  %-16s  %-10s  %-24s  %s",
		"ID", "WHEN", "MODE", "MODEL", "PROMPT")))

	for _, rec := range records {
		fmt.Fprintf(out, "%s  %-16s  %-10s  %s  %s\n",
			idStyle.Render(fmt.Sprintf("%-12s", rec.ID[:12])),
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.Mode,
			modelStyle.Render(fmt.Sprintf("%-24s", truncate(rec.Model, 24))),
			truncate(rec.Prompt, 48),
		)
	}

	return nil
}

func (c *historyCommander) show(ctx context.Context, cmd *cobra.Command, idPrefix string) error {
	storer, err := c.openStorer()
	if err != nil {
		return err
	}
	defer storer.Close()

	rec, err := c.resolve(ctx, storer, idPrefix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	fmt.Fprintln(out, sectionStyle.Render("Transcript ")+idStyle.Render(rec.ID))
	fmt.Fprintf(out, "%s  %s/%s  temperature=%.2f  tokens=%d+%d\n\n",
		rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		rec.Mode, rec.Model, rec.Temperature, rec.PromptTokens, rec.CompletionTokens)

	fmt.Fprintln(out, sectionStyle.Render("Prompt"))
	fmt.Fprintln(out, rec.Prompt)
	fmt.Fprintln(out)
	fmt.Fprintln(out, sectionStyle.Render("Response"))
	fmt.Fprintln(out, c.renderResponse(rec.Response))

	return nil
}

// resolve finds a record by full ID or unambiguous prefix.
func (c *historyCommander) resolve(ctx context.Context, storer transcript.Storer, idPrefix string) (*transcript.Record, error) {
	if rec, err := storer.Get(ctx, idPrefix); err == nil {
		return rec, nil
	}

	records, err := storer.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not list transcripts")
	}

	var matches []*transcript.Record
	for _, rec := range records {
		if strings.HasPrefix(rec.ID, idPrefix) {
			matches = append(matches, rec)
		}
	}

	switch len(matches) {
	case 0:
		return nil, errors.Errorf("no transcript matches %q", idPrefix)
	case 1:
		return matches[0], nil
	default:
		return nil, errors.Errorf("%d transcripts match %q, use a longer prefix", len(matches), idPrefix)
	}
}

// renderResponse renders markdown when stdout is a terminal, unless --plain.
func (c *historyCommander) renderResponse(response string) string {
	if c.plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		return response
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return response
	}

	rendered, err := renderer.Render(response)
	if err != nil {
		return response
	}

	return strings.TrimRight(rendered, "\n")
}

// truncate shortens s to at most n display runes. Slicing by rune keeps
// multibyte prompts from being cut mid-character.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}

	return string(runes[:n-3]) + "..."
}
