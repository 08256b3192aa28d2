// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"

	"github.com/mmeshcher/promo-system/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrPromotionExists возвращается при попытке создать промокод с уже занятым кодом.
var (
	ErrPromotionExists = errors.New("promotion code already exists")
	// ErrPromotionNotFound возвращается, если промокод не найден.
	ErrPromotionNotFound = errors.New("promotion not found")
	// ErrPromotionExhausted возвращается, если лимит использований промокода исчерпан.
	ErrPromotionExhausted = errors.New("promotion usage limit reached")
)

const promotionColumns = `id, code, nom, description, type, valeur, date_debut, date_fin,
	 utilisation_max, utilisation_actuelle, montant_min, livraison_gratuite, active,
	 created_at, updated_at`

// PostgresRepository предоставляет доступ к хранилищу промокодов в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет операцию при взаимных блокировках, сбоях сериализации
// и обрывах соединения. Ошибки контекста и бизнес-ошибки не повторяются.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				return retry.RetryableError(err)
			}
			return err
		}

		if isConnectionError(err) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanPromotion(row pgx.Row) (*model.Promotion, error) {
	var p model.Promotion
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Type, &p.Value,
		&p.StartDate, &p.EndDate, &p.MaxUses, &p.CurrentUses, &p.MinAmount,
		&p.FreeShipping, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("scan promotion: %w", err)
	}
	return &p, nil
}

// CreatePromotion сохраняет новый промокод и возвращает его с заполненными
// идентификатором и временными метками.
func (r *PostgresRepository) CreatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error) {
	var created *model.Promotion

	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`INSERT INTO promotions
			 (code, nom, description, type, valeur, date_debut, date_fin,
			  utilisation_max, montant_min, livraison_gratuite, active)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING `+promotionColumns,
			p.Code, p.Name, p.Description, string(p.Type), p.Value,
			p.StartDate, p.EndDate, p.MaxUses, p.MinAmount, p.FreeShipping, p.Active,
		)

		var scanErr error
		created, scanErr = scanPromotion(row)
		return scanErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrPromotionExists, p.Code)
		}
		return nil, fmt.Errorf("create promotion: %w", err)
	}

	return created, nil
}

// GetPromotionByCode возвращает промокод по его коду.
func (r *PostgresRepository) GetPromotionByCode(ctx context.Context, code string) (*model.Promotion, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE code = $1`,
		code,
	)

	p, err := scanPromotion(row)
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("get promotion by code: %w", err)
	}

	return p, nil
}

// GetPromotionByID возвращает промокод по идентификатору.
func (r *PostgresRepository) GetPromotionByID(ctx context.Context, id int64) (*model.Promotion, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE id = $1`,
		id,
	)

	p, err := scanPromotion(row)
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("get promotion by id: %w", err)
	}

	return p, nil
}

func (r *PostgresRepository) queryPromotions(ctx context.Context, query string, args ...any) ([]model.Promotion, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select promotions: %w", err)
	}
	defer rows.Close()

	var res []model.Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListPromotions возвращает все промокоды, новые первыми.
func (r *PostgresRepository) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	return r.queryPromotions(ctx,
		`SELECT `+promotionColumns+` FROM promotions ORDER BY created_at DESC`,
	)
}

// ListActivePromotions возвращает промокоды, действующие в указанный момент времени.
func (r *PostgresRepository) ListActivePromotions(ctx context.Context, now time.Time) ([]model.Promotion, error) {
	return r.queryPromotions(ctx,
		`SELECT `+promotionColumns+` FROM promotions
		 WHERE active AND date_debut <= $1 AND date_fin >= $1
		 ORDER BY date_fin`,
		now,
	)
}

// UpdatePromotion обновляет промокод по идентификатору и возвращает новое состояние.
func (r *PostgresRepository) UpdatePromotion(ctx context.Context, p *model.Promotion) (*model.Promotion, error) {
	var updated *model.Promotion

	err := r.withRetry(ctx, func() error {
		row := r.pool.QueryRow(ctx,
			`UPDATE promotions
			 SET code = $2, nom = $3, description = $4, type = $5, valeur = $6,
			     date_debut = $7, date_fin = $8, utilisation_max = $9,
			     montant_min = $10, livraison_gratuite = $11, active = $12,
			     updated_at = now()
			 WHERE id = $1
			 RETURNING `+promotionColumns,
			p.ID, p.Code, p.Name, p.Description, string(p.Type), p.Value,
			p.StartDate, p.EndDate, p.MaxUses, p.MinAmount, p.FreeShipping, p.Active,
		)

		var scanErr error
		updated, scanErr = scanPromotion(row)
		return scanErr
	})
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return nil, ErrPromotionNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", ErrPromotionExists, p.Code)
		}
		return nil, fmt.Errorf("update promotion: %w", err)
	}

	return updated, nil
}

// DeletePromotion удаляет промокод по идентификатору.
func (r *PostgresRepository) DeletePromotion(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return ErrPromotionNotFound
	}

	return nil
}

// SetPromotionActive включает или выключает промокод и возвращает новое состояние.
func (r *PostgresRepository) SetPromotionActive(ctx context.Context, id int64, active bool) (*model.Promotion, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE promotions SET active = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+promotionColumns,
		id, active,
	)

	p, err := scanPromotion(row)
	if err != nil {
		if errors.Is(err, ErrPromotionNotFound) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("set promotion active: %w", err)
	}

	return p, nil
}

// IncrementPromotionUses атомарно расходует одно использование промокода.
// Счётчик не может превысить utilisation_max.
func (r *PostgresRepository) IncrementPromotionUses(ctx context.Context, code string) error {
	return r.withRetry(ctx, func() error {
		cmdTag, err := r.pool.Exec(ctx,
			`UPDATE promotions
			 SET utilisation_actuelle = utilisation_actuelle + 1, updated_at = now()
			 WHERE code = $1
			   AND (utilisation_max IS NULL OR utilisation_actuelle < utilisation_max)`,
			code,
		)
		if err != nil {
			return fmt.Errorf("increment promotion uses: %w", err)
		}

		if cmdTag.RowsAffected() == 1 {
			return nil
		}

		var exists bool
		err = r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM promotions WHERE code = $1)`,
			code,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check promotion exists: %w", err)
		}

		if !exists {
			return ErrPromotionNotFound
		}
		return ErrPromotionExhausted
	})
}
