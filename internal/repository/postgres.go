package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentra-systems/sentra/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository opens a connection pool and verifies it.
func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// SaveDecision archives one decision, replacing any earlier row for the
// same event.
func (r *PostgresRepository) SaveDecision(ctx context.Context, scored models.ScoredEvent, dec models.Decision) error {
	query := `
		INSERT INTO decisions (
			event_id, event_ts, source_ip, dest_ip, port, protocol,
			risk_score, attack_type, access_decision, automated_response, decided_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO UPDATE SET
			risk_score = EXCLUDED.risk_score,
			attack_type = EXCLUDED.attack_type,
			access_decision = EXCLUDED.access_decision,
			automated_response = EXCLUDED.automated_response,
			decided_at = EXCLUDED.decided_at
	`

	_, err := r.pool.Exec(ctx, query,
		dec.EventID, scored.Timestamp, scored.SourceIP, scored.DestIP,
		scored.Port, scored.Protocol, dec.RiskScore, string(dec.AttackType),
		string(dec.AccessDecision), dec.AutomatedResponse, dec.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("save decision: %w", err)
	}
	return nil
}

// GetDecision returns the archived decision for an event ID.
func (r *PostgresRepository) GetDecision(ctx context.Context, eventID string) (*DecisionRecord, error) {
	query := `
		SELECT event_id, event_ts, source_ip, dest_ip, port, protocol,
		       risk_score, attack_type, access_decision, automated_response,
		       decided_at, created_at
		FROM decisions
		WHERE event_id = $1
	`

	rec := &DecisionRecord{}
	err := r.pool.QueryRow(ctx, query, eventID).Scan(
		&rec.EventID, &rec.Timestamp, &rec.SourceIP, &rec.DestIP,
		&rec.Port, &rec.Protocol, &rec.RiskScore, &rec.AttackType,
		&rec.AccessDecision, &rec.AutomatedResponse, &rec.DecidedAt, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDecisionNotFound
		}
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return rec, nil
}

// ListDecisions returns a filtered, paginated page of the archive.
func (r *PostgresRepository) ListDecisions(ctx context.Context, req *ListDecisionsRequest) ([]*DecisionRecord, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argPos := 1

	if req.AccessDecision != "" {
		where = append(where, fmt.Sprintf("access_decision = $%d", argPos))
		args = append(args, string(req.AccessDecision))
		argPos++
	}
	if req.AttackType != "" {
		where = append(where, fmt.Sprintf("attack_type = $%d", argPos))
		args = append(args, string(req.AttackType))
		argPos++
	}
	if req.SourceIP != "" {
		where = append(where, fmt.Sprintf("source_ip = $%d", argPos))
		args = append(args, req.SourceIP)
		argPos++
	}
	if !req.Since.IsZero() {
		where = append(where, fmt.Sprintf("event_ts >= $%d", argPos))
		args = append(args, req.Since)
		argPos++
	}

	whereClause := "WHERE " + strings.Join(where, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM decisions %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count decisions: %w", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = 50
	}
	args = append(args, limit, (page-1)*limit)

	query := fmt.Sprintf(`
		SELECT event_id, event_ts, source_ip, dest_ip, port, protocol,
		       risk_score, attack_type, access_decision, automated_response,
		       decided_at, created_at
		FROM decisions
		%s
		ORDER BY event_ts DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	records := []*DecisionRecord{}
	for rows.Next() {
		rec := &DecisionRecord{}
		if err := rows.Scan(
			&rec.EventID, &rec.Timestamp, &rec.SourceIP, &rec.DestIP,
			&rec.Port, &rec.Protocol, &rec.RiskScore, &rec.AttackType,
			&rec.AccessDecision, &rec.AutomatedResponse, &rec.DecidedAt, &rec.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan decision: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration: %w", err)
	}

	return records, total, nil
}

// SaveAlert upserts dispatch history for a fingerprint.
func (r *PostgresRepository) SaveAlert(ctx context.Context, rec *models.AlertRecord) error {
	query := `
		INSERT INTO alerts (
			fingerprint, source_ip, attack_type, decision,
			first_seen, last_seen, occurrence_count, channels_notified
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (fingerprint) DO UPDATE SET
			last_seen = EXCLUDED.last_seen,
			occurrence_count = EXCLUDED.occurrence_count,
			channels_notified = EXCLUDED.channels_notified
	`

	_, err := r.pool.Exec(ctx, query,
		rec.Fingerprint, rec.SourceIP, string(rec.AttackType), string(rec.Decision),
		rec.FirstSeen, rec.LastSeen, rec.OccurrenceCount, rec.ChannelsNotified,
	)
	if err != nil {
		return fmt.Errorf("save alert: %w", err)
	}
	return nil
}

// DecisionCounts aggregates the archive per outcome.
func (r *PostgresRepository) DecisionCounts(ctx context.Context) (map[models.AccessDecision]int, error) {
	rows, err := r.pool.Query(ctx, "SELECT access_decision, COUNT(*) FROM decisions GROUP BY access_decision")
	if err != nil {
		return nil, fmt.Errorf("count decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.AccessDecision]int)
	for rows.Next() {
		var decision string
		var count int
		if err := rows.Scan(&decision, &count); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.AccessDecision(decision)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return counts, nil
}

// Close closes the connection pool.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}
