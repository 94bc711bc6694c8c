package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/carrypal/internal/listing"
)

const (
	tripColumns = `id, traveler_id, origin_city, origin_lat, origin_lng,
	       destination_city, destination_lat, destination_lng,
	       departure_date, capacity_kg, notes, status, created_at`
	packageColumns = `id, sender_id, origin_city, origin_lat, origin_lng,
	       destination_city, destination_lat, destination_lng,
	       weight_kg, reward::text, ready_by, description, status, created_at`

	// notMatched excludes listings held by a match that is still running.
	notMatched = `NOT EXISTS (
	       SELECT 1 FROM matches m WHERE m.%s = %s.id AND m.status NOT IN ('COMPLETED','CANCELLED'))`
)

func scanTrip(row pgx.Row) (listing.Trip, error) {
	var t listing.Trip
	var status string
	err := row.Scan(&t.ID, &t.TravelerID, &t.Origin.City, &t.Origin.Lat, &t.Origin.Lng,
		&t.Destination.City, &t.Destination.Lat, &t.Destination.Lng,
		&t.DepartureDate, &t.CapacityKg, &t.Notes, &status, &t.CreatedAt)
	t.Status = listing.Status(status)
	return t, err
}

func scanPackage(row pgx.Row) (listing.Package, error) {
	var p listing.Package
	var status, reward string
	var readyBy *time.Time
	err := row.Scan(&p.ID, &p.SenderID, &p.Origin.City, &p.Origin.Lat, &p.Origin.Lng,
		&p.Destination.City, &p.Destination.Lat, &p.Destination.Lng,
		&p.WeightKg, &reward, &readyBy, &p.Description, &status, &p.CreatedAt)
	if err != nil {
		return listing.Package{}, err
	}
	p.Status = listing.Status(status)
	if readyBy != nil {
		p.ReadyBy = *readyBy
	}
	p.Reward, err = parseAmount(reward)
	return p, err
}

func (s *Store) CreateTrip(ctx context.Context, t listing.Trip) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trips (`+tripColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		t.ID, t.TravelerID, t.Origin.City, t.Origin.Lat, t.Origin.Lng,
		t.Destination.City, t.Destination.Lat, t.Destination.Lng,
		t.DepartureDate, t.CapacityKg, t.Notes, string(t.Status), t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (s *Store) GetTrip(ctx context.Context, id string) (listing.Trip, error) {
	t, err := scanTrip(s.pool.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return listing.Trip{}, listing.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTripsByTraveler(ctx context.Context, travelerID string) ([]listing.Trip, error) {
	return s.queryTrips(ctx, `SELECT `+tripColumns+` FROM trips WHERE traveler_id = $1 ORDER BY created_at DESC, id`, travelerID)
}

func (s *Store) OpenTrips(ctx context.Context) ([]listing.Trip, error) {
	return s.queryTrips(ctx, `SELECT `+tripColumns+` FROM trips
		 WHERE status = 'open' AND `+fmt.Sprintf(notMatched, "trip_id", "trips")+`
		 ORDER BY created_at DESC, id`)
}

func (s *Store) queryTrips(ctx context.Context, query string, args ...any) ([]listing.Trip, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()
	var out []listing.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SetTripStatus(ctx context.Context, id string, status listing.Status) error {
	ct, err := s.pool.Exec(ctx, `UPDATE trips SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update trip status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return listing.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePackage(ctx context.Context, p listing.Package) error {
	var readyBy *time.Time
	if !p.ReadyBy.IsZero() {
		readyBy = &p.ReadyBy
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO packages (id, sender_id, origin_city, origin_lat, origin_lng,
		                       destination_city, destination_lat, destination_lng,
		                       weight_kg, reward, ready_by, description, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11, $12, $13, $14)`,
		p.ID, p.SenderID, p.Origin.City, p.Origin.Lat, p.Origin.Lng,
		p.Destination.City, p.Destination.Lat, p.Destination.Lng,
		p.WeightKg, p.Reward.String(), readyBy, p.Description, string(p.Status), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert package: %w", err)
	}
	return nil
}

func (s *Store) GetPackage(ctx context.Context, id string) (listing.Package, error) {
	p, err := scanPackage(s.pool.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return listing.Package{}, listing.ErrNotFound
	}
	return p, err
}

func (s *Store) ListPackagesBySender(ctx context.Context, senderID string) ([]listing.Package, error) {
	return s.queryPackages(ctx, `SELECT `+packageColumns+` FROM packages WHERE sender_id = $1 ORDER BY created_at DESC, id`, senderID)
}

func (s *Store) OpenPackages(ctx context.Context) ([]listing.Package, error) {
	return s.queryPackages(ctx, `SELECT `+packageColumns+` FROM packages
		 WHERE status = 'open' AND `+fmt.Sprintf(notMatched, "package_id", "packages")+`
		 ORDER BY created_at DESC, id`)
}

func (s *Store) queryPackages(ctx context.Context, query string, args ...any) ([]listing.Package, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query packages: %w", err)
	}
	defer rows.Close()
	var out []listing.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan package: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SetPackageStatus(ctx context.Context, id string, status listing.Status) error {
	ct, err := s.pool.Exec(ctx, `UPDATE packages SET status = $1 WHERE id = $2`, string(status), id)
	if err != nil {
		return fmt.Errorf("update package status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return listing.ErrNotFound
	}
	return nil
}
