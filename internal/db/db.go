package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timetracker/internal/config"
	"timetracker/internal/db/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

type DB struct {
	*pgxpool.Pool
}

func New(config config.Database) (*DB, error) {
	// Create a configuration object
	cfg, err := pgxpool.ParseConfig(config.URL())
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Configure connection pool and statement cache
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating connection pool: %w", err)
	}

	return &DB{pool}, nil
}

// GetOrCreateServerSettings returns the guild settings, inserting a row
// seeded from defaults the first time a guild is seen.
func (db *DB) GetOrCreateServerSettings(ctx context.Context, serverID string, defaults config.Tracker) (*models.ServerSettings, error) {
	query := `
		SELECT id, server_id, tracker_role, timezone, in_words, out_words, created_at, updated_at
		FROM server_settings
		WHERE server_id = $1`

	settings := &models.ServerSettings{}
	err := db.QueryRow(ctx, query, serverID).Scan(
		&settings.ID,
		&settings.ServerID,
		&settings.TrackerRole,
		&settings.Timezone,
		&settings.InWords,
		&settings.OutWords,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("error getting server settings: %w", err)
	}

	now := time.Now()
	settings = &models.ServerSettings{
		ID:          uuid.New(),
		ServerID:    serverID,
		TrackerRole: defaults.Role,
		Timezone:    defaults.Timezone,
		InWords:     pq.StringArray(defaults.InWords),
		OutWords:    pq.StringArray(defaults.OutWords),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	insertQuery := `
		INSERT INTO server_settings (id, server_id, tracker_role, timezone, in_words, out_words, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (server_id) DO NOTHING`

	_, err = db.Exec(ctx, insertQuery,
		settings.ID.String(),
		settings.ServerID,
		settings.TrackerRole,
		settings.Timezone,
		settings.InWords,
		settings.OutWords,
		settings.CreatedAt,
		settings.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("error creating server settings: %w", err)
	}
	return settings, nil
}

// UpdateClockWords replaces the in and out word lists of a guild.
func (db *DB) UpdateClockWords(ctx context.Context, serverID string, inWords, outWords []string) error {
	query := `
		UPDATE server_settings
		SET in_words = $1, out_words = $2, updated_at = NOW()
		WHERE server_id = $3`

	_, err := db.Exec(ctx, query, pq.StringArray(inWords), pq.StringArray(outWords), serverID)
	return err
}

func (db *DB) UpdateTrackerRole(ctx context.Context, serverID, role string) error {
	query := `
		UPDATE server_settings
		SET tracker_role = $1, updated_at = NOW()
		WHERE server_id = $2`

	_, err := db.Exec(ctx, query, role, serverID)
	return err
}

func (db *DB) UpdateTimezone(ctx context.Context, serverID, timezone string) error {
	query := `
		UPDATE server_settings
		SET timezone = $1, updated_at = NOW()
		WHERE server_id = $2`

	_, err := db.Exec(ctx, query, timezone, serverID)
	return err
}

// SaveAnomalyLog replaces the stored anomaly log of a channel with the
// given run. The run ID and anomaly run IDs are assigned here.
func (db *DB) SaveAnomalyLog(ctx context.Context, run *models.AnomalyRun, anomalies []models.Anomaly) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `DELETE FROM anomaly_runs WHERE server_id = $1 AND channel_id = $2`,
		run.ServerID, run.ChannelID)
	if err != nil {
		return fmt.Errorf("error clearing previous log: %w", err)
	}

	run.ID = uuid.New()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO anomaly_runs (id, server_id, channel_id, channel_name, period_start, requested_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		run.ID.String(),
		run.ServerID,
		run.ChannelID,
		run.ChannelName,
		run.PeriodStart,
		run.RequestedBy,
		run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("error creating anomaly run: %w", err)
	}

	for i := range anomalies {
		a := &anomalies[i]
		a.ID = uuid.New()
		a.RunID = run.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO anomalies (id, run_id, member_id, member_name, kind, reason, message_id, author, content, posted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			a.ID.String(),
			a.RunID.String(),
			a.MemberID,
			a.MemberName,
			string(a.Kind),
			a.Reason,
			a.MessageID,
			a.Author,
			a.Content,
			a.PostedAt,
		)
		if err != nil {
			return fmt.Errorf("error creating anomaly: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// GetLatestAnomalyLog returns the stored run of a channel with its
// anomalies, or nil when the channel has never been reported on.
func (db *DB) GetLatestAnomalyLog(ctx context.Context, serverID, channelID string) (*models.AnomalyRun, []models.Anomaly, error) {
	query := `
		SELECT id, server_id, channel_id, channel_name, period_start, requested_by, created_at
		FROM anomaly_runs
		WHERE server_id = $1 AND channel_id = $2
		ORDER BY created_at DESC
		LIMIT 1`

	run := &models.AnomalyRun{}
	err := db.QueryRow(ctx, query, serverID, channelID).Scan(
		&run.ID,
		&run.ServerID,
		&run.ChannelID,
		&run.ChannelName,
		&run.PeriodStart,
		&run.RequestedBy,
		&run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("error getting anomaly run: %w", err)
	}

	rows, err := db.Query(ctx, `
		SELECT id, run_id, member_id, member_name, kind, reason, message_id, author, content, posted_at
		FROM anomalies
		WHERE run_id = $1
		ORDER BY member_name, posted_at`, run.ID.String())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var anomalies []models.Anomaly
	for rows.Next() {
		var a models.Anomaly
		var kind string
		err := rows.Scan(
			&a.ID,
			&a.RunID,
			&a.MemberID,
			&a.MemberName,
			&kind,
			&a.Reason,
			&a.MessageID,
			&a.Author,
			&a.Content,
			&a.PostedAt,
		)
		if err != nil {
			return nil, nil, err
		}
		a.Kind = models.AnomalyKind(kind)
		anomalies = append(anomalies, a)
	}
	return run, anomalies, rows.Err()
}
