package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/levenlabs/go-lflag"

	"github.com/solarfleet/solarfleet/pkg/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS plants (
	id          TEXT PRIMARY KEY,
	public_code TEXT NOT NULL DEFAULT '',
	owner_id    TEXT NOT NULL DEFAULT '',
	vendor      TEXT NOT NULL,
	credentials JSONB NOT NULL DEFAULT '{}',
	status      SMALLINT NOT NULL DEFAULT 0,
	e_total     DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at  TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS notifications (
	id         UUID PRIMARY KEY,
	user_id    TEXT NOT NULL,
	message    TEXT NOT NULL,
	read       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS notifications_unread_idx ON notifications (user_id, message) WHERE NOT read;
`

// PostgresProvider implements Database on PostgreSQL through a pgx pool.
type PostgresProvider struct {
	pool *pgxpool.Pool
	dsn  string
}

func configuredPostgres() *PostgresProvider {
	dsn := lflag.String("postgres-dsn", "", "PostgreSQL connection string, used when storage-provider is postgres")

	p := &PostgresProvider{}
	lflag.Do(func() {
		p.dsn = *dsn
	})
	return p
}

// Validate checks if the provider is properly configured.
func (p *PostgresProvider) Validate() error {
	if p.dsn == "" {
		return errors.New("postgres-dsn is required")
	}
	return nil
}

// Init connects the pool and creates the tables if needed.
func (p *PostgresProvider) Init(ctx context.Context) error {
	pool, err := pgxpool.New(ctx, p.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	p.pool = pool
	return nil
}

// Close closes the connection pool.
func (p *PostgresProvider) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

const plantColumns = `id, public_code, owner_id, vendor, credentials, status, e_total, updated_at`

func scanPlant(row pgx.Row) (types.Plant, error) {
	var (
		plant     types.Plant
		creds     []byte
		updatedAt *time.Time
	)
	if err := row.Scan(&plant.ID, &plant.PublicCode, &plant.OwnerID, &plant.Vendor, &creds, &plant.Status, &plant.ETotal, &updatedAt); err != nil {
		return types.Plant{}, err
	}
	if len(creds) > 0 {
		if err := json.Unmarshal(creds, &plant.Credentials); err != nil {
			return types.Plant{}, fmt.Errorf("failed to unmarshal credentials of plant %s: %w", plant.ID, err)
		}
	}
	if updatedAt != nil {
		plant.UpdatedAt = *updatedAt
	}
	return plant, nil
}

// ListPlants returns all plants ordered by id.
func (p *PostgresProvider) ListPlants(ctx context.Context) ([]types.Plant, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+plantColumns+` FROM plants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	defer rows.Close()

	var plants []types.Plant
	for rows.Next() {
		plant, err := scanPlant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plant: %w", err)
		}
		plants = append(plants, plant)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plants: %w", err)
	}
	return plants, nil
}

// GetPlant returns a plant by id.
func (p *PostgresProvider) GetPlant(ctx context.Context, id string) (types.Plant, error) {
	plant, err := scanPlant(p.pool.QueryRow(ctx, `SELECT `+plantColumns+` FROM plants WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.Plant{}, fmt.Errorf("%w: %s", ErrPlantNotFound, id)
		}
		return types.Plant{}, fmt.Errorf("failed to get plant %s: %w", id, err)
	}
	return plant, nil
}

// PutPlant upserts a plant.
func (p *PostgresProvider) PutPlant(ctx context.Context, plant types.Plant) error {
	creds, err := json.Marshal(plant.Credentials)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials of plant %s: %w", plant.ID, err)
	}
	var updatedAt *time.Time
	if !plant.UpdatedAt.IsZero() {
		updatedAt = &plant.UpdatedAt
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO plants (`+plantColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			public_code = $2,
			owner_id = $3,
			vendor = $4,
			credentials = $5,
			status = $6,
			e_total = $7,
			updated_at = $8
	`, plant.ID, plant.PublicCode, plant.OwnerID, plant.Vendor, creds, int(plant.Status), plant.ETotal, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to put plant %s: %w", plant.ID, err)
	}
	return nil
}

// UpdatePlantStatus writes the polled fields of one plant.
func (p *PostgresProvider) UpdatePlantStatus(ctx context.Context, id string, update types.PlantUpdate) error {
	tag, err := p.pool.Exec(ctx,
		`UPDATE plants SET status = $2, e_total = $3, updated_at = $4 WHERE id = $1`,
		id, int(update.Status), update.ETotal, update.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update plant %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrPlantNotFound, id)
	}
	return nil
}

// FindUnreadNotification returns the oldest unread match or nil.
func (p *PostgresProvider) FindUnreadNotification(ctx context.Context, userID, message string) (*types.Notification, error) {
	var n types.Notification
	err := p.pool.QueryRow(ctx, `
		SELECT id::text, user_id, message, read, created_at
		FROM notifications
		WHERE user_id = $1 AND message = $2 AND NOT read
		ORDER BY created_at
		LIMIT 1
	`, userID, message).Scan(&n.ID, &n.UserID, &n.Message, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	return &n, nil
}

// CreateNotification inserts an unread notification.
func (p *PostgresProvider) CreateNotification(ctx context.Context, userID, message string) (types.Notification, error) {
	n := types.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO notifications (id, user_id, message, read, created_at) VALUES ($1, $2, $3, FALSE, $4)`,
		n.ID, n.UserID, n.Message, n.CreatedAt,
	)
	if err != nil {
		return types.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// MarkNotificationRead flags a notification as read.
func (p *PostgresProvider) MarkNotificationRead(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}
	tag, err := p.pool.Exec(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification %s read: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotificationNotFound, id)
	}
	return nil
}
