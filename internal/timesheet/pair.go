package timesheet

// OrphanReason says which side of a clock pair is missing.
type OrphanReason int

const (
	MissingOut OrphanReason = iota
	MissingIn
)

func (r OrphanReason) String() string {
	if r == MissingOut {
		return "missing clock out"
	}
	return "missing clock in"
}

// PairedInterval is a clock in matched with the clock out that follows it.
type PairedInterval struct {
	In       ClockEvent
	Out      ClockEvent
	Duration Hours
}

// Orphan is a clock event that found no partner within its week.
type Orphan struct {
	Event  ClockEvent
	Reason OrphanReason
}

// Pair matches adjacent In/Out events of one member within one week. events
// must be ordered oldest to newest. Every event ends up either in exactly one
// interval or in the orphan list.
func Pair(events []ClockEvent) ([]PairedInterval, []Orphan) {
	var (
		pairs   []PairedInterval
		orphans []Orphan
	)
	for i := 0; i < len(events); {
		current := events[i]
		if current.Direction == Out {
			orphans = append(orphans, Orphan{Event: current, Reason: MissingIn})
			i++
			continue
		}

		if i+1 < len(events) {
			next := events[i+1]
			// an out stamped before its in is never paired; it gets rescanned as a lone out
			if next.Direction == Out && !next.At.Before(current.At) {
				pairs = append(pairs, PairedInterval{
					In:       current,
					Out:      next,
					Duration: HoursBetween(current.At, next.At),
				})
				i += 2
				continue
			}
		}

		orphans = append(orphans, Orphan{Event: current, Reason: MissingOut})
		i++
	}
	return pairs, orphans
}
