package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"identity_service/internal/config"
	"identity_service/internal/models"
	"identity_service/internal/storage"
	"identity_service/internal/storage/postgres/migrations"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const uniqueViolationCode = "23505"

type PostgresRepo struct {
	pool *pgxpool.Pool
	dsn  string
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool, dsn: dsn}, nil
}

// RunMigrations applies the embedded schema. Goose needs database/sql, so it
// runs over a short-lived stdlib connection instead of the pool.
func (r *PostgresRepo) RunMigrations(ctx context.Context) error {
	const op = "storage.postgres.RunMigrations"

	db, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return fmt.Errorf("%s: failed to open connection: %w", op, err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, name, surname, email, passHash string) (models.User, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (name, surname, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at;
	`

	user := models.User{
		Name:     name,
		Surname:  surname,
		Email:    email,
		PassHash: passHash,
	}

	err := r.pool.QueryRow(ctx, query, name, surname, email, passHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return models.User{}, storage.ErrUserExists
		}

		return models.User{}, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return user, nil
}

func (r *PostgresRepo) UserByEmail(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, name, surname, email, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	query := `
		SELECT id, name, surname, email, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User

	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Surname,
		&u.Email,
		&u.PassHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

func (r *PostgresRepo) SaveRefreshToken(ctx context.Context, rt models.RefreshToken) error {
	const op = "storage.postgres.SaveRefreshToken"

	const query = `
		INSERT INTO refresh_tokens (user_id, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, rt.UserID, rt.Token, rt.ExpiresAt, rt.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) RefreshTokenByValueAndUser(ctx context.Context, token string, userID int64) (models.RefreshToken, error) {
	const query = `
		SELECT id, user_id, token, expires_at, created_at
		FROM refresh_tokens
		WHERE token = $1 AND user_id = $2;
	`

	var rt models.RefreshToken

	err := r.pool.QueryRow(ctx, query, token, userID).
		Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, storage.ErrRefreshTokenNotFound
		}

		return models.RefreshToken{}, err
	}

	return rt, nil
}

// RotateRefreshToken consumes oldToken and stores next in one transaction.
// The delete is conditional on exactly one row: of two concurrent rotations
// of the same token, the loser gets ErrRefreshTokenNotFound and the store
// never holds both replacements.
func (r *PostgresRepo) RotateRefreshToken(ctx context.Context, oldToken string, next models.RefreshToken) error {
	const op = "storage.postgres.RotateRefreshToken"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: failed to begin tx: %w", op, err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE token = $1 AND user_id = $2`,
		oldToken, next.UserID,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to delete old token: %w", op, err)
	}

	if tag.RowsAffected() != 1 {
		return storage.ErrRefreshTokenNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO refresh_tokens (user_id, token, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		next.UserID, next.Token, next.ExpiresAt, next.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert new token: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: failed to commit: %w", op, err)
	}

	return nil
}

// DeleteRefreshToken removes a token by value. Deleting a token that does
// not exist is not an error, which keeps revocation idempotent.
func (r *PostgresRepo) DeleteRefreshToken(ctx context.Context, token string) error {
	const op = "storage.postgres.DeleteRefreshToken"

	query := `DELETE FROM refresh_tokens WHERE token = $1`

	if _, err := r.pool.Exec(ctx, query, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
