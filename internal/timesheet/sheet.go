package timesheet

import (
	"context"
	"errors"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Sheet builds the reports of every member of a channel for one pay period.
type Sheet struct {
	classifier *Classifier
	period     PayPeriod
}

func NewSheet(classifier *Classifier, period PayPeriod) *Sheet {
	return &Sheet{classifier: classifier, period: period}
}

func (s *Sheet) Period() PayPeriod {
	return s.period
}

type memberClocks struct {
	member  Member
	events  []ClockEvent
	invalid []InvalidClock
}

// Build classifies messages and returns one report per member, sorted by
// member name. Every member in members gets a report, even without clocks;
// mentioned members missing from members are added.
func (s *Sheet) Build(ctx context.Context, messages []RawMessage, members []Member) ([]MemberReport, error) {
	byID := make(map[string]*memberClocks, len(members))
	var order []*memberClocks
	track := func(m Member) *memberClocks {
		if mc, ok := byID[m.ID]; ok {
			return mc
		}
		mc := &memberClocks{member: m}
		byID[m.ID] = mc
		order = append(order, mc)
		return mc
	}
	for _, m := range members {
		track(m)
	}

	loc := s.period.Start.Location()
	for _, msg := range s.clockMessages(messages) {
		member, _ := msg.Member()
		mc := track(member)

		event, err := s.classifier.Classify(msg, loc)
		var invalid *InvalidClock
		switch {
		case errors.As(err, &invalid):
			mc.invalid = append(mc.invalid, *invalid)
		case err == nil:
			mc.events = append(mc.events, event)
		}
	}

	reports := make([]MemberReport, len(order))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, mc := range order {
		i, mc := i, mc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			reports[i] = BuildReport(s.period, mc.member, mc.events, mc.invalid)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].Member.Name != reports[j].Member.Name {
			return reports[i].Member.Name < reports[j].Member.Name
		}
		return reports[i].Member.ID < reports[j].Member.ID
	})
	return reports, nil
}

// Clocks returns the clock attempts for member inside the period, oldest first.
func (s *Sheet) Clocks(messages []RawMessage, member Member) []Entry {
	loc := s.period.Start.Location()
	var entries []Entry
	for _, msg := range s.clockMessages(messages) {
		if m, _ := msg.Member(); m.ID != member.ID {
			continue
		}
		_, err := s.classifier.Classify(msg, loc)
		entries = append(entries, Entry{
			Message:  msg,
			Position: s.period.Classify(msg.CreatedAt),
			Valid:    err == nil,
		})
	}
	return entries
}

// clockMessages keeps the in-period messages that mention someone and look
// like a clock, ordered oldest first.
func (s *Sheet) clockMessages(messages []RawMessage) []RawMessage {
	var out []RawMessage
	for _, msg := range messages {
		if _, ok := msg.Member(); !ok {
			continue
		}
		if !s.period.Contains(msg.CreatedAt) || !s.classifier.MentionsClockWord(msg.Content) {
			continue
		}
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
