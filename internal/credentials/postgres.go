package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/akorchev/gptbot/core/logger"
)

// Postgres persists encrypted secrets in the credentials table.
type Postgres struct {
	db     *sqlx.DB
	cipher *Cipher
	locks  userLocks
}

// NewPostgres wires the store to an established connection pool. The cipher
// is mandatory; callers construct it first so a missing encryption key fails
// the process before any storage is touched.
func NewPostgres(db *sqlx.DB, cipher *Cipher) (*Postgres, error) {
	if db == nil {
		return nil, fmt.Errorf("credentials: nil db")
	}
	if cipher == nil {
		return nil, fmt.Errorf("credentials: nil cipher")
	}
	return &Postgres{db: db, cipher: cipher}, nil
}

// Get fetches and decrypts the stored secret for a user.
func (p *Postgres) Get(ctx context.Context, userID int64) (string, bool, error) {
	mu := p.locks.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	var encrypted string
	err := p.db.GetContext(ctx, &encrypted,
		`SELECT encrypted_secret FROM credentials WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		logger.Debug(ctx, "service.credentials", "credentials.get",
			slog.String("status", "ok"),
			slog.String("cache", "miss"),
			slog.Int64("user_id", userID),
			slog.Duration("duration", logger.Took(start)),
		)
		return "", false, nil
	}
	if err != nil {
		logger.Error(ctx, "service.credentials", "credentials.get",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return "", false, fmt.Errorf("%w: get user %d: %v", ErrUnavailable, userID, err)
	}

	secret, err := p.cipher.Decrypt(encrypted)
	if err != nil {
		logger.Error(ctx, "service.credentials", "credentials.decrypt",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return "", false, fmt.Errorf("credentials: decrypt user %d: %w", userID, err)
	}
	return secret, true, nil
}

// Put encrypts the secret and upserts it in one statement, replacing any
// previous record for the user.
func (p *Postgres) Put(ctx context.Context, userID int64, secret string) error {
	encrypted, err := p.cipher.Encrypt(secret)
	if err != nil {
		return err
	}

	mu := p.locks.lock(userID)
	mu.Lock()
	defer mu.Unlock()

	start := time.Now()
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO credentials (user_id, encrypted_secret, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id)
		 DO UPDATE SET encrypted_secret = EXCLUDED.encrypted_secret, updated_at = now()`,
		userID, encrypted)
	if err != nil {
		logger.Error(ctx, "service.credentials", "credentials.put",
			slog.String("status", "fail"),
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%w: put user %d: %v", ErrUnavailable, userID, err)
	}
	logger.Info(ctx, "service.credentials", "credentials.put",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
