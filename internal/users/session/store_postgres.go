// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira-auth/internal/platform/database/schema"
	"github.com/taibuivan/yomira-auth/pkg/pagination"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// PostgresRepository implements [Repository] on the partitioned users.session table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of [Repository].
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create inserts one session row.

Description: Rows are routed to the partition matching DeviceClass by
Postgres; an unknown class has no partition and fails the insert.
*/
func (repository *PostgresRepository) Create(context context.Context, session *Session) error {
	if !session.DeviceClass.Valid() {
		return fmt.Errorf("postgres_session_repo_create_failed: unknown device class %q", session.DeviceClass)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)`,
		schema.UserSession.Table,
		schema.UserSession.ID, schema.UserSession.AccountID, schema.UserSession.UserAgent,
		schema.UserSession.DeviceClass, schema.UserSession.CreatedAt,
	)

	session.ID = uuid.New()
	session.CreatedAt = time.Now().UTC()

	if _, err := repository.pool.Exec(context, query,
		session.ID,
		session.UserID,
		session.UserAgent,
		string(session.DeviceClass),
		session.CreatedAt,
	); err != nil {
		return fmt.Errorf("postgres_session_repo_create_failed: %w", err)
	}

	return nil
}

/*
ListByUser reads one page of sessions with the user's total in a single query.

Description: COUNT(*) OVER() is evaluated before LIMIT, so every row carries
the full total. An empty page carries none, so the total is then read with a
second COUNT.
*/
func (repository *PostgresRepository) ListByUser(context context.Context, userID string, params pagination.Params) ([]Session, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, COUNT(*) OVER()
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC, %s DESC
		LIMIT $2 OFFSET $3`,
		schema.UserSession.ID, schema.UserSession.AccountID, schema.UserSession.UserAgent,
		schema.UserSession.DeviceClass, schema.UserSession.CreatedAt,
		schema.UserSession.Table,
		schema.UserSession.AccountID,
		schema.UserSession.CreatedAt, schema.UserSession.ID,
	)

	rows, err := repository.pool.Query(context, query, userID, params.PageSize, params.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_session_repo_list_failed: %w", err)
	}

	total := 0
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Session, error) {
		var (
			session     Session
			deviceClass string
		)
		scanErr := row.Scan(&session.ID, &session.UserID, &session.UserAgent, &deviceClass, &session.CreatedAt, &total)
		session.DeviceClass = DeviceClass(deviceClass)
		return session, scanErr
	})
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_session_repo_list_scan_failed: %w", err)
	}

	if len(sessions) == 0 {
		countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
			schema.UserSession.Table, schema.UserSession.AccountID)
		if err := repository.pool.QueryRow(context, countQuery, userID).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("postgres_session_repo_count_failed: %w", err)
		}
		return []Session{}, total, nil
	}

	return sessions, total, nil
}
