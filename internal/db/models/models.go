package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ServerSettings are the per guild overrides of the tracker configuration.
// Empty values fall back to the config file.
type ServerSettings struct {
	ID          uuid.UUID      `db:"id"`
	ServerID    string         `db:"server_id"`
	TrackerRole string         `db:"tracker_role"`
	Timezone    string         `db:"timezone"`
	InWords     pq.StringArray `db:"in_words"`
	OutWords    pq.StringArray `db:"out_words"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

type AnomalyKind string

const (
	AnomalyInvalid AnomalyKind = "invalid"
	AnomalySingle  AnomalyKind = "single"
)

// AnomalyRun is one /times invocation whose anomalies were logged.
type AnomalyRun struct {
	ID          uuid.UUID `db:"id"`
	ServerID    string    `db:"server_id"`
	ChannelID   string    `db:"channel_id"`
	ChannelName string    `db:"channel_name"`
	PeriodStart time.Time `db:"period_start"`
	RequestedBy string    `db:"requested_by"`
	CreatedAt   time.Time `db:"created_at"`
}

// Anomaly is an invalid or single clock found during a run.
type Anomaly struct {
	ID         uuid.UUID   `db:"id"`
	RunID      uuid.UUID   `db:"run_id"`
	MemberID   string      `db:"member_id"`
	MemberName string      `db:"member_name"`
	Kind       AnomalyKind `db:"kind"`
	Reason     string      `db:"reason"`
	MessageID  string      `db:"message_id"`
	Author     string      `db:"author"`
	Content    string      `db:"content"`
	PostedAt   time.Time   `db:"posted_at"`
}
