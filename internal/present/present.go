// Package present renders member timesheets as chat text, CSV, JSON and the
// plain text anomaly log.
package present

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"timetracker/internal/timesheet"
)

const (
	// MessageLimit is the largest message Discord accepts.
	MessageLimit = 2000

	weekLayout = "01/02/06 (Monday)"
	separator  = "---------------"
)

// MessageLine renders one clock message as "<timestamp><author>: @<member> <rest>".
func MessageLine(msg timesheet.RawMessage, layout string, loc *time.Location) string {
	member := ""
	if m, ok := msg.Member(); ok {
		member = m.Name
	}
	return msg.CreatedAt.In(loc).Format(layout) + msg.AuthorName + ": @" + member + stripMention(msg.Content)
}

// stripMention removes the leading <@id> token from a message.
func stripMention(content string) string {
	if !strings.HasPrefix(content, "<@") {
		return " " + content
	}
	_, rest, found := strings.Cut(content, ">")
	if !found {
		return " " + content
	}
	return rest
}

// MemberText renders the report a payroll admin receives for one member.
func MemberText(report timesheet.MemberReport, channelName, logURL, layout string, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "__**%s** (%s):__\n\n", report.Member.Name, channelName)

	for i, week := range report.Weeks {
		for _, e := range report.Entries {
			if e.Position == weekPosition(i) {
				b.WriteString(MessageLine(e.Message, layout, loc))
				b.WriteByte('\n')
			}
		}
		fmt.Fprintf(&b, "\n%s - %s: %s hours\n\n",
			week.Week.Start.Format(weekLayout), week.Week.End.Format(weekLayout), week.Subtotal)
	}

	fmt.Fprintf(&b, "Total: %s hours\n", report.Total)
	b.WriteString(anomalyNotice(report, logURL))
	b.WriteString(separator)
	b.WriteByte('\n')
	return b.String()
}

func weekPosition(i int) timesheet.Position {
	if i == 0 {
		return timesheet.WeekOne
	}
	return timesheet.WeekTwo
}

func anomalyNotice(report timesheet.MemberReport, logURL string) string {
	var reason string
	switch hasInvalid, hasSingle := len(report.Invalid) > 0, len(report.Orphans) > 0; {
	case hasInvalid && hasSingle:
		reason = "Having single or incorrectly formatted clocks."
	case hasInvalid:
		reason = "Invalid format for clocks."
	case hasSingle:
		reason = "Single clocks."
	default:
		return ""
	}
	notice := "Hours calculated may be invalid due to:\n" + reason + "\n"
	if logURL != "" {
		notice += "Check " + logURL + " for more info.\n"
	}
	return notice
}

// ClockList renders the clocks of one member, newest last.
func ClockList(entries []timesheet.Entry, layout string, loc *time.Location) string {
	if len(entries) == 0 {
		return "N/A"
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, MessageLine(e.Message, layout, loc))
	}
	return strings.Join(lines, "\n")
}

// Split breaks text into chunks no longer than limit, preferring line
// boundaries. Lines longer than limit are cut.
func Split(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		if text == "" {
			return nil
		}
		return []string{text}
	}

	var (
		chunks  []string
		current strings.Builder
	)
	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			flush()
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if current.Len()+len(line) > limit {
			flush()
		}
		current.WriteString(line)
	}
	flush()
	return chunks
}

// CSV renders one row per member with the week subtotals and total.
func CSV(reports []timesheet.MemberReport) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	if err := writer.Write([]string{"member", "week_1", "week_2", "total", "invalid", "single"}); err != nil {
		return nil, err
	}
	for _, r := range reports {
		row := []string{
			r.Member.Name,
			r.Weeks[0].Subtotal.String(),
			r.Weeks[1].Subtotal.String(),
			r.Total.String(),
			strconv.Itoa(len(r.Invalid)),
			strconv.Itoa(len(r.Orphans)),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("error writing csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("error writing csv: %w", err)
	}
	return b.Bytes(), nil
}

// AnomalyLog renders the invalid and single clocks of every member that has
// any. It returns an empty string when nothing needs attention.
func AnomalyLog(reports []timesheet.MemberReport, layout string, loc *time.Location) string {
	var b strings.Builder
	for _, r := range reports {
		if !r.HasAnomalies() {
			continue
		}
		fmt.Fprintf(&b, "%s's clock errors:\n\n", r.Member.Name)
		if len(r.Invalid) > 0 {
			b.WriteString("Invalid Clocks:\n")
			for _, inv := range r.Invalid {
				fmt.Fprintf(&b, "%s (%v)\n", MessageLine(inv.Message, layout, loc), inv.Reason)
			}
			b.WriteByte('\n')
		}
		if len(r.Orphans) > 0 {
			b.WriteString("Single Clocks:\n")
			for _, o := range r.Orphans {
				fmt.Fprintf(&b, "%s (%s)\n", MessageLine(o.Event.Source, layout, loc), o.Reason)
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type jsonWeek struct {
	Start string  `json:"start"`
	End   string  `json:"end"`
	Hours float64 `json:"hours"`
	Pairs int     `json:"pairs"`
}

type jsonAnomaly struct {
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	PostedAt  time.Time `json:"posted_at"`
	Reason    string    `json:"reason"`
}

type jsonReport struct {
	MemberID string        `json:"member_id"`
	Member   string        `json:"member"`
	Weeks    []jsonWeek    `json:"weeks"`
	Total    float64       `json:"total"`
	Invalid  []jsonAnomaly `json:"invalid"`
	Single   []jsonAnomaly `json:"single"`
}

// JSON renders the reports as an indented JSON array.
func JSON(reports []timesheet.MemberReport) ([]byte, error) {
	out := make([]jsonReport, 0, len(reports))
	for _, r := range reports {
		jr := jsonReport{
			MemberID: r.Member.ID,
			Member:   r.Member.Name,
			Total:    r.Total.Float64(),
			Invalid:  []jsonAnomaly{},
			Single:   []jsonAnomaly{},
		}
		for _, w := range r.Weeks {
			jr.Weeks = append(jr.Weeks, jsonWeek{
				Start: w.Week.Start.Format(time.DateOnly),
				End:   w.Week.End.Format(time.DateOnly),
				Hours: w.Subtotal.Float64(),
				Pairs: len(w.Pairs),
			})
		}
		for _, inv := range r.Invalid {
			jr.Invalid = append(jr.Invalid, jsonAnomaly{
				MessageID: inv.Message.ID,
				Content:   inv.Message.Content,
				PostedAt:  inv.Message.CreatedAt,
				Reason:    fmt.Sprint(inv.Reason),
			})
		}
		for _, o := range r.Orphans {
			jr.Single = append(jr.Single, jsonAnomaly{
				MessageID: o.Event.Source.ID,
				Content:   o.Event.Source.Content,
				PostedAt:  o.Event.Source.CreatedAt,
				Reason:    o.Reason.String(),
			})
		}
		out = append(out, jr)
	}
	return json.MarshalIndent(out, "", "  ")
}
