package db

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool and pings Postgres.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	log.Println("[db] connected to Postgres")
	return pool, nil
}

// EnsureSchema creates every table the server needs. Each step is
// idempotent, so it runs on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"users", ensureUsersTable},
		{"wallets", ensureWalletTables},
		{"listings", ensureListingTables},
		{"matches", ensureMatchTables},
		{"notifications", ensureNotificationsTable},
		{"reviews", ensureReviewsTable},
	}
	for _, step := range steps {
		if err := step.fn(ctx, pool); err != nil {
			return fmt.Errorf("ensure %s schema: %w", step.name, err)
		}
	}
	log.Println("[db] schema ensured")
	return nil
}

func ensureUsersTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL DEFAULT '',
            email TEXT NOT NULL DEFAULT '',
            role TEXT NOT NULL DEFAULT 'member',
            bio TEXT NOT NULL DEFAULT '',
            avatar_url TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check;
        ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('member','arbiter'));
        CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
    `)
	return err
}

func ensureWalletTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS wallets (
            id BIGSERIAL PRIMARY KEY,
            user_id TEXT NOT NULL UNIQUE,
            balance NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
            escrow NUMERIC(14,2) NOT NULL DEFAULT 0 CHECK (escrow >= 0),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS payment_captures (
            id TEXT PRIMARY KEY,
            payer_id TEXT NOT NULL,
            amount NUMERIC(14,2) NOT NULL,
            reference TEXT NOT NULL,
            token TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL CHECK (status IN ('held','paid_out','voided')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE TABLE IF NOT EXISTS transactions (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            amount NUMERIC(14,2) NOT NULL,
            type TEXT NOT NULL,
            status TEXT NOT NULL,
            reference TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at);
    `)
	return err
}

func ensureListingTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS trips (
            id TEXT PRIMARY KEY,
            traveler_id TEXT NOT NULL,
            origin_city TEXT NOT NULL,
            origin_lat DOUBLE PRECISION NULL,
            origin_lng DOUBLE PRECISION NULL,
            destination_city TEXT NOT NULL,
            destination_lat DOUBLE PRECISION NULL,
            destination_lng DOUBLE PRECISION NULL,
            departure_date TIMESTAMP WITH TIME ZONE NOT NULL,
            capacity_kg DOUBLE PRECISION NOT NULL CHECK (capacity_kg > 0),
            notes TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','closed')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_trips_traveler ON trips(traveler_id);
        CREATE INDEX IF NOT EXISTS idx_trips_open ON trips(status) WHERE status = 'open';

        CREATE TABLE IF NOT EXISTS packages (
            id TEXT PRIMARY KEY,
            sender_id TEXT NOT NULL,
            origin_city TEXT NOT NULL,
            origin_lat DOUBLE PRECISION NULL,
            origin_lng DOUBLE PRECISION NULL,
            destination_city TEXT NOT NULL,
            destination_lat DOUBLE PRECISION NULL,
            destination_lng DOUBLE PRECISION NULL,
            weight_kg DOUBLE PRECISION NOT NULL CHECK (weight_kg > 0),
            reward NUMERIC(14,2) NOT NULL CHECK (reward > 0),
            ready_by TIMESTAMP WITH TIME ZONE NULL,
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open','closed')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_packages_sender ON packages(sender_id);
        CREATE INDEX IF NOT EXISTS idx_packages_open ON packages(status) WHERE status = 'open';
    `)
	return err
}

// ensureMatchTables creates matches with one escrow row each and the
// transition log. The partial unique indexes keep a package or trip in at
// most one active match.
func ensureMatchTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS matches (
            id TEXT PRIMARY KEY,
            package_id TEXT NOT NULL REFERENCES packages(id),
            trip_id TEXT NOT NULL REFERENCES trips(id),
            sender_id TEXT NOT NULL,
            traveler_id TEXT NOT NULL,
            proposed_by TEXT NOT NULL,
            status TEXT NOT NULL CHECK (status IN (
                'PROPOSED','ACCEPTED','CONFIRMED','PICKED_UP','IN_TRANSIT',
                'DELIVERED','COMPLETED','CANCELLED','DISPUTED'
            )),
            agreed_reward NUMERIC(14,2) NOT NULL CHECK (agreed_reward > 0),
            tracking_code TEXT NULL,
            disputed_from TEXT NULL,
            delivered_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE NOT NULL,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_matches_sender ON matches(sender_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_matches_traveler ON matches(traveler_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_matches_delivered ON matches(delivered_at) WHERE status = 'DELIVERED';
        CREATE UNIQUE INDEX IF NOT EXISTS uq_matches_active_package ON matches(package_id)
            WHERE status NOT IN ('COMPLETED','CANCELLED');
        CREATE UNIQUE INDEX IF NOT EXISTS uq_matches_active_trip ON matches(trip_id)
            WHERE status NOT IN ('COMPLETED','CANCELLED');

        CREATE TABLE IF NOT EXISTS escrow_records (
            match_id TEXT PRIMARY KEY REFERENCES matches(id) ON DELETE CASCADE,
            amount NUMERIC(14,2) NOT NULL DEFAULT 0,
            state TEXT NOT NULL CHECK (state IN (
                'NONE','HELD','PENDING_RELEASE','RELEASED','REFUNDED','DISPUTED_HOLD'
            )),
            capture_id TEXT NULL,
            updated_at TIMESTAMP WITH TIME ZONE NOT NULL
        );

        CREATE TABLE IF NOT EXISTS match_events (
            id BIGSERIAL PRIMARY KEY,
            match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
            from_status TEXT NULL,
            to_status TEXT NOT NULL,
            actor_id TEXT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            at TIMESTAMP WITH TIME ZONE NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_match_events_match ON match_events(match_id, id);
    `)
	return err
}

func ensureNotificationsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            type TEXT NOT NULL,
            event TEXT NOT NULL,
            title TEXT NOT NULL,
            message TEXT NOT NULL,
            match_id TEXT NULL,
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE is_read = FALSE;
    `)
	return err
}

func ensureReviewsTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS reviews (
            id TEXT PRIMARY KEY,
            match_id TEXT NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
            reviewer_id TEXT NOT NULL,
            reviewee_id TEXT NOT NULL,
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            comment TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (match_id, reviewer_id)
        );
        CREATE INDEX IF NOT EXISTS idx_reviews_reviewee ON reviews(reviewee_id, created_at);
    `)
	return err
}
