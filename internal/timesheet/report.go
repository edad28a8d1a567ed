package timesheet

import (
	"sort"
)

// Entry is one clock attempt as shown in a report, valid or not.
type Entry struct {
	Message  RawMessage
	Position Position
	Valid    bool
}

// WeekReport holds the matched intervals of one week.
type WeekReport struct {
	Week     Week
	Pairs    []PairedInterval
	Subtotal Hours
}

// MemberReport is the timesheet of one member for one pay period.
type MemberReport struct {
	Member  Member
	Period  PayPeriod
	Entries []Entry
	Weeks   [2]WeekReport
	Total   Hours
	Orphans []Orphan
	Invalid []InvalidClock
}

func (r MemberReport) HasAnomalies() bool {
	return len(r.Orphans) > 0 || len(r.Invalid) > 0
}

// BuildReport buckets a member's events into the two weeks of period, pairs
// each week on its own and totals the durations. Events outside the period
// are dropped. The inputs are not modified.
func BuildReport(period PayPeriod, member Member, events []ClockEvent, invalid []InvalidClock) MemberReport {
	weeks := period.Weeks()
	report := MemberReport{
		Member: member,
		Period: period,
		Weeks: [2]WeekReport{
			{Week: weeks[0]},
			{Week: weeks[1]},
		},
	}

	sorted := make([]ClockEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Source.CreatedAt.Before(sorted[j].Source.CreatedAt)
	})

	var byWeek [2][]ClockEvent
	for _, e := range sorted {
		pos := period.Classify(e.Source.CreatedAt)
		switch pos {
		case WeekOne:
			byWeek[0] = append(byWeek[0], e)
		case WeekTwo:
			byWeek[1] = append(byWeek[1], e)
		default:
			continue
		}
		report.Entries = append(report.Entries, Entry{Message: e.Source, Position: pos, Valid: true})
	}

	for i := range byWeek {
		pairs, orphans := Pair(byWeek[i])
		report.Weeks[i].Pairs = pairs
		for _, p := range pairs {
			report.Weeks[i].Subtotal += p.Duration
		}
		report.Total += report.Weeks[i].Subtotal
		report.Orphans = append(report.Orphans, orphans...)
	}

	if len(invalid) > 0 {
		report.Invalid = make([]InvalidClock, len(invalid))
		copy(report.Invalid, invalid)
		for _, inv := range invalid {
			report.Entries = append(report.Entries, Entry{
				Message:  inv.Message,
				Position: period.Classify(inv.Message.CreatedAt),
			})
		}
		sort.SliceStable(report.Entries, func(i, j int) bool {
			return report.Entries[i].Message.CreatedAt.Before(report.Entries[j].Message.CreatedAt)
		})
	}

	return report
}
