package timesheet

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoMeridiem    = errors.New("clock does not end with AM or PM")
	ErrMalformedTime = errors.New("clock time is not in HH:MM AM/PM format")
	ErrNoDirection   = errors.New("clock has no clock in or clock out word")
)

// trailing "9:05 AM", "09:05AM", "12:30 pm"
var clockTimePattern = regexp.MustCompile(`(?i)(?:^|[^0-9])([0-9]{1,2}):([0-9]{2}) ?([ap]m)$`)

// Member identifies a tracked channel member.
type Member struct {
	ID   string
	Name string
}

// RawMessage is a chat message as fetched from the channel history.
type RawMessage struct {
	ID         string
	AuthorID   string
	AuthorName string
	Mentions   []Member
	Content    string
	CreatedAt  time.Time
	ChannelID  string
	GuildID    string
}

// Member returns the first mentioned member, which is who the clock is for.
func (m RawMessage) Member() (Member, bool) {
	if len(m.Mentions) == 0 {
		return Member{}, false
	}
	return m.Mentions[0], true
}

// Direction of a clock event.
type Direction int

const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "In"
	}
	return "Out"
}

// ClockEvent is a well-formed clock message with its time rounded to a quarter hour.
type ClockEvent struct {
	Direction Direction
	At        time.Time
	Member    Member
	Source    RawMessage
}

// InvalidClock is a clock attempt that could not be classified.
type InvalidClock struct {
	Message RawMessage
	Reason  error
}

func (c *InvalidClock) Error() string {
	return fmt.Sprintf("invalid clock %q: %v", c.Message.Content, c.Reason)
}

func (c *InvalidClock) Unwrap() error {
	return c.Reason
}

// Classifier turns raw messages into clock events using the configured words.
type Classifier struct {
	inWords  []string
	outWords []string
}

func NewClassifier(inWords, outWords []string) *Classifier {
	return &Classifier{
		inWords:  normalizeWords(inWords),
		outWords: normalizeWords(outWords),
	}
}

func normalizeWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Join(strings.Fields(strings.ToLower(w)), " ")
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// MentionsClockWord reports whether content contains any clock word at all,
// even as part of another word. Messages failing this are ordinary chatter.
func (c *Classifier) MentionsClockWord(content string) bool {
	lower := strings.ToLower(content)
	for _, w := range c.inWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	for _, w := range c.outWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// Classify parses msg as a clock event. Errors are always *InvalidClock.
func (c *Classifier) Classify(msg RawMessage, loc *time.Location) (ClockEvent, error) {
	invalid := func(reason error) (ClockEvent, error) {
		return ClockEvent{}, &InvalidClock{Message: msg, Reason: reason}
	}

	content := strings.TrimSpace(msg.Content)
	lower := strings.ToLower(content)
	if !strings.HasSuffix(lower, "am") && !strings.HasSuffix(lower, "pm") {
		return invalid(ErrNoMeridiem)
	}

	hour, minute, err := parseClockTime(content)
	if err != nil {
		return invalid(err)
	}

	direction, ok := c.direction(lower)
	if !ok {
		return invalid(ErrNoDirection)
	}

	if rounded := RoundToQuarter(minute); rounded == 60 {
		hour++
		minute = 0
	} else {
		minute = rounded
	}

	created := msg.CreatedAt.In(loc)
	at := time.Date(created.Year(), created.Month(), created.Day(), hour, minute, 0, 0, loc)

	member, _ := msg.Member()
	return ClockEvent{
		Direction: direction,
		At:        at,
		Member:    member,
		Source:    msg,
	}, nil
}

// parseClockTime returns the 24-hour hour and the raw minute of the trailing time.
func parseClockTime(content string) (int, int, error) {
	match := clockTimePattern.FindStringSubmatch(content)
	if match == nil {
		return 0, 0, ErrMalformedTime
	}
	hour, err := strconv.Atoi(match[1])
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, ErrMalformedTime
	}
	minute, err := strconv.Atoi(match[2])
	if err != nil || minute > 59 {
		return 0, 0, ErrMalformedTime
	}

	pm := strings.EqualFold(match[3], "pm")
	switch {
	case hour == 12 && !pm:
		hour = 0
	case hour != 12 && pm:
		hour += 12
	}
	return hour, minute, nil
}

func (c *Classifier) direction(lower string) (Direction, bool) {
	padded := " " + strings.Join(strings.Fields(lower), " ") + " "
	for _, w := range c.inWords {
		if strings.Contains(padded, " "+w+" ") {
			return In, true
		}
	}
	for _, w := range c.outWords {
		if strings.Contains(padded, " "+w+" ") {
			return Out, true
		}
	}
	return 0, false
}
