package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/carrypal/internal/escrow"
	"github.com/sudo-init-do/carrypal/internal/match"
)

const selectMatch = `
	SELECT m.id, m.package_id, m.trip_id, m.sender_id, m.traveler_id, m.proposed_by,
	       m.status, m.agreed_reward::text, COALESCE(m.tracking_code, ''), COALESCE(m.disputed_from, ''),
	       m.delivered_at, m.created_at, m.updated_at,
	       e.amount::text, e.state, COALESCE(e.capture_id, ''), e.updated_at
	FROM matches m
	JOIN escrow_records e ON e.match_id = m.id`

func scanMatch(row pgx.Row) (match.Match, error) {
	var (
		m                 match.Match
		status, disputed  string
		reward, escrowAmt string
		escrowState       string
	)
	err := row.Scan(
		&m.ID, &m.PackageID, &m.TripID, &m.SenderID, &m.TravelerID, &m.ProposedBy,
		&status, &reward, &m.TrackingCode, &disputed,
		&m.DeliveredAt, &m.CreatedAt, &m.UpdatedAt,
		&escrowAmt, &escrowState, &m.Escrow.CaptureID, &m.Escrow.UpdatedAt,
	)
	if err != nil {
		return match.Match{}, err
	}
	m.Status = match.Status(status)
	m.DisputedFrom = match.Status(disputed)
	m.Escrow.MatchID = m.ID
	m.Escrow.State = escrow.State(escrowState)
	if m.AgreedReward, err = parseAmount(reward); err != nil {
		return match.Match{}, err
	}
	if m.Escrow.Amount, err = parseAmount(escrowAmt); err != nil {
		return match.Match{}, err
	}
	return m, nil
}

func (s *Store) CreateMatch(ctx context.Context, m match.Match, t match.Transition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create match: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO matches (id, package_id, trip_id, sender_id, traveler_id, proposed_by, status,
		                      agreed_reward, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9, $10)`,
		m.ID, m.PackageID, m.TripID, m.SenderID, m.TravelerID, m.ProposedBy, string(m.Status),
		m.AgreedReward.String(), m.CreatedAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return match.ErrActiveExists
	}
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	if err := writeEscrow(ctx, tx, m.Escrow, true); err != nil {
		return err
	}
	if err := insertTransition(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create match: %w", err)
	}
	return nil
}

func (s *Store) GetMatch(ctx context.Context, id string) (match.Match, error) {
	m, err := scanMatch(s.pool.QueryRow(ctx, selectMatch+` WHERE m.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return match.Match{}, match.ErrNotFound
	}
	if err != nil {
		return match.Match{}, fmt.Errorf("load match: %w", err)
	}
	return m, nil
}

// UpdateMatch locks the match and escrow rows for the whole read-modify-write.
func (s *Store) UpdateMatch(ctx context.Context, id string, fn func(m *match.Match) (match.Transition, error)) (match.Match, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return match.Match{}, fmt.Errorf("begin update match: %w", err)
	}
	defer tx.Rollback(ctx)

	m, err := scanMatch(tx.QueryRow(ctx, selectMatch+` WHERE m.id = $1 FOR UPDATE OF m, e`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return match.Match{}, match.ErrNotFound
	}
	if err != nil {
		return match.Match{}, fmt.Errorf("lock match: %w", err)
	}

	t, err := fn(&m)
	if err != nil {
		return match.Match{}, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE matches
		 SET status = $1, tracking_code = $2, disputed_from = $3, delivered_at = $4, updated_at = $5
		 WHERE id = $6`,
		string(m.Status), nullable(m.TrackingCode), nullable(string(m.DisputedFrom)), m.DeliveredAt, m.UpdatedAt, m.ID,
	)
	if err != nil {
		return match.Match{}, fmt.Errorf("update match: %w", err)
	}
	if err := writeEscrow(ctx, tx, m.Escrow, false); err != nil {
		return match.Match{}, err
	}
	if err := insertTransition(ctx, tx, t); err != nil {
		return match.Match{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return match.Match{}, fmt.Errorf("commit update match: %w", err)
	}
	return m, nil
}

func writeEscrow(ctx context.Context, tx pgx.Tx, rec escrow.Record, insert bool) error {
	query := `UPDATE escrow_records SET amount = $2::numeric, state = $3, capture_id = $4, updated_at = $5 WHERE match_id = $1`
	if insert {
		query = `INSERT INTO escrow_records (match_id, amount, state, capture_id, updated_at) VALUES ($1, $2::numeric, $3, $4, $5)`
	}
	if _, err := tx.Exec(ctx, query, rec.MatchID, rec.Amount.String(), string(rec.State), nullable(rec.CaptureID), rec.UpdatedAt); err != nil {
		return fmt.Errorf("write escrow: %w", err)
	}
	return nil
}

func insertTransition(ctx context.Context, tx pgx.Tx, t match.Transition) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO match_events (match_id, from_status, to_status, actor_id, reason, at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.MatchID, nullable(string(t.From)), string(t.To), t.ActorID, t.Reason, t.At,
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

func (s *Store) ListMatchesForUser(ctx context.Context, userID string, status match.Status) ([]match.Match, error) {
	return s.queryMatches(ctx,
		selectMatch+`
		 WHERE (m.sender_id = $1 OR m.traveler_id = $1) AND ($2::text = '' OR m.status = $2::text)
		 ORDER BY m.created_at DESC, m.id`,
		userID, string(status),
	)
}

func (s *Store) ListMatchesByStatus(ctx context.Context, status match.Status) ([]match.Match, error) {
	return s.queryMatches(ctx, selectMatch+` WHERE m.status = $1 ORDER BY m.updated_at, m.id`, string(status))
}

func (s *Store) queryMatches(ctx context.Context, query string, args ...any) ([]match.Match, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []match.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MatchHistory(ctx context.Context, id string) ([]match.Transition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT match_id, COALESCE(from_status, ''), to_status, actor_id, reason, at
		 FROM match_events WHERE match_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var out []match.Transition
	for rows.Next() {
		var t match.Transition
		var from, to string
		if err := rows.Scan(&t.MatchID, &from, &to, &t.ActorID, &t.Reason, &t.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		t.From, t.To = match.Status(from), match.Status(to)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, match.ErrNotFound
	}
	return out, nil
}

func (s *Store) DeliveredBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM matches WHERE status = 'DELIVERED' AND delivered_at <= $1 ORDER BY id`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list delivered matches: %w", err)
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
