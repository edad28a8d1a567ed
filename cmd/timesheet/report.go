package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"timetracker/internal/config"
	"timetracker/internal/present"
	"timetracker/internal/timesheet"

	"github.com/spf13/cobra"
)

type reportOptions struct {
	input    string
	start    string
	timezone string
	format   string
	channel  string
	logURL   string
	inWords  []string
	outWords []string
}

// exportMessage is one message of the channel export.
type exportMessage struct {
	ID       string          `json:"id"`
	AuthorID string          `json:"author_id"`
	Author   string          `json:"author"`
	Mentions []exportMention `json:"mentions"`
	Content  string          `json:"content"`
	Time     time.Time       `json:"timestamp"`
}

type exportMention struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newReportCmd() *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the timesheets of a pay period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.input, "input", "", "JSON export of the channel messages")
	flags.StringVar(&opts.start, "start", "", "first day of the pay period (mm/dd/yy)")
	flags.StringVar(&opts.timezone, "timezone", config.DefaultTimezone, "time zone the clocks are read in")
	flags.StringVar(&opts.format, "format", "text", "output format: text, csv, json")
	flags.StringVar(&opts.channel, "channel", "export", "channel name shown in text reports")
	flags.StringVar(&opts.logURL, "log-url", "", "link printed next to reports with clock errors")
	flags.StringSliceVar(&opts.inWords, "in-words", config.DefaultInWords, "clock in words")
	flags.StringSliceVar(&opts.outWords, "out-words", config.DefaultOutWords, "clock out words")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func runReport(ctx context.Context, out io.Writer, opts *reportOptions) error {
	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return badInput(fmt.Errorf("invalid timezone %q: %w", opts.timezone, err))
	}
	anchor, err := timesheet.ParseAnchorDate(opts.start, loc)
	if err != nil {
		return badInput(err)
	}
	switch opts.format {
	case "text", "csv", "json":
	default:
		return badInput(fmt.Errorf("unknown format %q", opts.format))
	}

	f, err := os.Open(opts.input)
	if err != nil {
		return badInput(fmt.Errorf("error opening export: %w", err))
	}
	defer f.Close()

	messages, err := loadExport(f)
	if err != nil {
		return badInput(err)
	}

	classifier := timesheet.NewClassifier(opts.inWords, opts.outWords)
	reports, err := timesheet.NewSheet(classifier, timesheet.NewPayPeriod(anchor)).Build(ctx, messages, nil)
	if err != nil {
		return err
	}

	switch opts.format {
	case "csv":
		data, err := present.CSV(reports)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	case "json":
		data, err := present.JSON(reports)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	if len(reports) == 0 {
		_, err = fmt.Fprintln(out, "No clocks found for that pay period.")
		return err
	}
	for _, r := range reports {
		if _, err := fmt.Fprint(out, present.MemberText(r, opts.channel, opts.logURL, config.DefaultTimestampFormat, loc)); err != nil {
			return err
		}
	}
	if anomalies := present.AnomalyLog(reports, config.DefaultTimestampFormat, loc); anomalies != "" {
		_, err = fmt.Fprint(out, "\n", anomalies)
	}
	return err
}

// loadExport decodes a channel export into raw messages.
func loadExport(r io.Reader) ([]timesheet.RawMessage, error) {
	var exported []exportMessage
	if err := json.NewDecoder(r).Decode(&exported); err != nil {
		return nil, fmt.Errorf("error decoding export: %w", err)
	}

	messages := make([]timesheet.RawMessage, 0, len(exported))
	for n, m := range exported {
		if m.Time.IsZero() {
			return nil, fmt.Errorf("message %d (%s) has no timestamp", n, m.ID)
		}
		msg := timesheet.RawMessage{
			ID:         m.ID,
			AuthorID:   m.AuthorID,
			AuthorName: m.Author,
			Content:    m.Content,
			CreatedAt:  m.Time,
		}
		for _, mention := range m.Mentions {
			msg.Mentions = append(msg.Mentions, timesheet.Member{ID: mention.ID, Name: mention.Name})
		}
		messages = append(messages, msg)
	}
	return messages, nil
}
