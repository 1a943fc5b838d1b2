// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account (Postgres) implements the credential store on PostgreSQL.

# Schema Table Mapping
  - users.account: Identity and password hash.
  - users.role: Named roles.
  - users.accountrole: User-role grants.
  - users.socialaccount: Provider subject links.

Uniqueness of emails, role names and (provider, subject) pairs is enforced by
the database; violations surface as apperr.Conflict through dberr.
*/
package account

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/platform/database/schema"
	"github.com/taibuivan/yomira-auth/internal/platform/dberr"
	"github.com/taibuivan/yomira-auth/internal/platform/postgres"
	"github.com/taibuivan/yomira-auth/pkg/uuid"
)

// # Store

// PostgresStore implements [Store] on a pgx pool.
type PostgresStore struct {
	unit       *postgresUnit
	transactor *postgres.Transactor
}

// NewPostgresStore binds the credential store to pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		unit:       &postgresUnit{db: pool},
		transactor: postgres.NewTransactor(pool),
	}
}

func (store *PostgresStore) Users() UserRepository                   { return store.unit.Users() }
func (store *PostgresStore) Roles() RoleRepository                   { return store.unit.Roles() }
func (store *PostgresStore) SocialAccounts() SocialAccountRepository { return store.unit.SocialAccounts() }

// WithinTx runs fn with repositories bound to a single transaction.
func (store *PostgresStore) WithinTx(context context.Context, fn func(UnitOfWork) error) error {
	return store.transactor.InTx(context, func(tx postgres.DBTX) error {
		return fn(&postgresUnit{db: tx})
	})
}

type postgresUnit struct {
	db postgres.DBTX
}

func (unit *postgresUnit) Users() UserRepository { return &userRepository{db: unit.db} }
func (unit *postgresUnit) Roles() RoleRepository { return &roleRepository{db: unit.db} }
func (unit *postgresUnit) SocialAccounts() SocialAccountRepository {
	return &socialAccountRepository{db: unit.db}
}

// # User Repository

type userRepository struct {
	db postgres.DBTX
}

/*
Create persists a new user record into the users.account table.

Parameters:
  - context: context.Context
  - user: *User (ID and timestamps are filled when empty)

Returns:
  - error: apperr.Conflict on a duplicate email, or database errors
*/
func (repository *userRepository) Create(context context.Context, user *User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)`,
		schema.UserAccount.Table,
		schema.UserAccount.ID, schema.UserAccount.Email, schema.UserAccount.Password,
		schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
	)

	if user.ID == "" {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Roles == nil {
		user.Roles = []Role{}
	}

	_, err := repository.db.Exec(context, query,
		user.ID, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return wrapStoreError(err, "User", "postgres_user_repo_create_failed")
	}

	return nil
}

// FindByID retrieves a user and its roles by primary key.
func (repository *userRepository) FindByID(context context.Context, id string) (*User, error) {
	return repository.findOne(context, schema.UserAccount.ID, id)
}

// FindByEmail retrieves a user and its roles by unique email.
func (repository *userRepository) FindByEmail(context context.Context, email string) (*User, error) {
	return repository.findOne(context, schema.UserAccount.Email, email)
}

func (repository *userRepository) findOne(context context.Context, column, value string) (*User, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1`,
		schema.UserAccount.ID, schema.UserAccount.Email, schema.UserAccount.Password,
		schema.UserAccount.CreatedAt, schema.UserAccount.UpdatedAt,
		schema.UserAccount.Table, column,
	)

	user := &User{}
	err := repository.db.QueryRow(context, query, value).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, wrapStoreError(err, "User", "postgres_user_repo_find_failed")
	}

	roles, err := repository.ListRoles(context, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	return user, nil
}

// UpdatePassword replaces only the password hash.
func (repository *userRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = $3 WHERE %s = $1`,
		schema.UserAccount.Table, schema.UserAccount.Password, schema.UserAccount.UpdatedAt, schema.UserAccount.ID,
	)

	tag, err := repository.db.Exec(context, query, userID, newHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}
	return nil
}

// ListRoles returns the user's roles ordered by name.
func (repository *userRepository) ListRoles(context context.Context, userID string) ([]Role, error) {
	query := fmt.Sprintf(`
		SELECT r.%s, r.%s, r.%s, r.%s
		FROM %s r
		JOIN %s ar ON ar.%s = r.%s
		WHERE ar.%s = $1
		ORDER BY r.%s`,
		schema.UserRole.ID, schema.UserRole.Name, schema.UserRole.Description, schema.UserRole.CreatedAt,
		schema.UserRole.Table,
		schema.UserAccountRole.Table, schema.UserAccountRole.RoleID, schema.UserRole.ID,
		schema.UserAccountRole.AccountID,
		schema.UserRole.Name,
	)

	rows, err := repository.db.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_user_repo_list_roles_failed: %w", err)
	}
	return collectRoles(rows)
}

/*
AddRole grants a role to a user.

Description: ON CONFLICT DO NOTHING on the composite primary key makes the
grant idempotent, including under concurrent callers.
*/
func (repository *userRepository) AddRole(context context.Context, userID, roleID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3)
		ON CONFLICT (%s, %s) DO NOTHING`,
		schema.UserAccountRole.Table,
		schema.UserAccountRole.AccountID, schema.UserAccountRole.RoleID, schema.UserAccountRole.CreatedAt,
		schema.UserAccountRole.AccountID, schema.UserAccountRole.RoleID,
	)

	if _, err := repository.db.Exec(context, query, userID, roleID, time.Now().UTC()); err != nil {
		return fmt.Errorf("postgres_user_repo_add_role_failed: %w", err)
	}
	return nil
}

// RemoveRole deletes a grant. Missing grants are ignored.
func (repository *userRepository) RemoveRole(context context.Context, userID, roleID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = $2`,
		schema.UserAccountRole.Table, schema.UserAccountRole.AccountID, schema.UserAccountRole.RoleID,
	)

	if _, err := repository.db.Exec(context, query, userID, roleID); err != nil {
		return fmt.Errorf("postgres_user_repo_remove_role_failed: %w", err)
	}
	return nil
}

// # Role Repository

type roleRepository struct {
	db postgres.DBTX
}

func (repository *roleRepository) selectColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s",
		schema.UserRole.ID, schema.UserRole.Name, schema.UserRole.Description, schema.UserRole.CreatedAt)
}

/*
Ensure returns the named role, creating it first if needed.

Description: The insert uses ON CONFLICT DO NOTHING against the unique name
index, so concurrent callers converge on one row; the follow-up select reads
whichever row won.
*/
func (repository *roleRepository) Ensure(context context.Context, name string) (*Role, error) {
	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3)
		ON CONFLICT (%s) DO NOTHING`,
		schema.UserRole.Table, schema.UserRole.ID, schema.UserRole.Name, schema.UserRole.CreatedAt,
		schema.UserRole.Name,
	)

	if _, err := repository.db.Exec(context, insert, uuid.New(), name, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("postgres_role_repo_ensure_failed: %w", err)
	}

	return repository.FindByName(context, name)
}

// Create inserts a new role.
func (repository *roleRepository) Create(context context.Context, role *Role) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s) VALUES ($1, $2, $3, $4)`,
		schema.UserRole.Table,
		schema.UserRole.ID, schema.UserRole.Name, schema.UserRole.Description, schema.UserRole.CreatedAt,
	)

	if role.ID == "" {
		role.ID = uuid.New()
	}
	if role.CreatedAt.IsZero() {
		role.CreatedAt = time.Now().UTC()
	}

	if _, err := repository.db.Exec(context, query, role.ID, role.Name, role.Description, role.CreatedAt); err != nil {
		return wrapStoreError(err, "Role", "postgres_role_repo_create_failed")
	}
	return nil
}

// FindByName retrieves a role by its unique name.
func (repository *roleRepository) FindByName(context context.Context, name string) (*Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		repository.selectColumns(), schema.UserRole.Table, schema.UserRole.Name)

	role := &Role{}
	err := repository.db.QueryRow(context, query, name).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		return nil, wrapStoreError(err, "Role", "postgres_role_repo_find_failed")
	}
	return role, nil
}

// List returns every role ordered by name.
func (repository *roleRepository) List(context context.Context) ([]Role, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s`,
		repository.selectColumns(), schema.UserRole.Table, schema.UserRole.Name)

	rows, err := repository.db.Query(context, query)
	if err != nil {
		return nil, fmt.Errorf("postgres_role_repo_list_failed: %w", err)
	}
	return collectRoles(rows)
}

// UpdateDescription rewrites the description of an existing role.
func (repository *roleRepository) UpdateDescription(context context.Context, name string, description *string) (*Role, error) {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1 RETURNING %s`,
		schema.UserRole.Table, schema.UserRole.Description, schema.UserRole.Name, repository.selectColumns())

	role := &Role{}
	err := repository.db.QueryRow(context, query, name, description).Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
	if err != nil {
		return nil, wrapStoreError(err, "Role", "postgres_role_repo_update_failed")
	}
	return role, nil
}

// Delete removes a role; grants go with it through ON DELETE CASCADE.
func (repository *roleRepository) Delete(context context.Context, name string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.UserRole.Table, schema.UserRole.Name)

	tag, err := repository.db.Exec(context, query, name)
	if err != nil {
		return fmt.Errorf("postgres_role_repo_delete_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Role")
	}
	return nil
}

// # Social Account Repository

type socialAccountRepository struct {
	db postgres.DBTX
}

// FindBySubject resolves a provider subject to its local link.
func (repository *socialAccountRepository) FindBySubject(context context.Context, provider, subjectID string) (*SocialAccount, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2`,
		schema.UserSocialAccount.ID, schema.UserSocialAccount.AccountID, schema.UserSocialAccount.Provider,
		schema.UserSocialAccount.SubjectID, schema.UserSocialAccount.CreatedAt,
		schema.UserSocialAccount.Table,
		schema.UserSocialAccount.Provider, schema.UserSocialAccount.SubjectID,
	)

	link := &SocialAccount{}
	err := repository.db.QueryRow(context, query, provider, subjectID).Scan(
		&link.ID, &link.UserID, &link.Provider, &link.SubjectID, &link.CreatedAt,
	)
	if err != nil {
		return nil, wrapStoreError(err, "Social account", "postgres_social_repo_find_failed")
	}
	return link, nil
}

// Create inserts a provider link.
func (repository *socialAccountRepository) Create(context context.Context, link *SocialAccount) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s, %s) VALUES ($1, $2, $3, $4, $5)`,
		schema.UserSocialAccount.Table,
		schema.UserSocialAccount.ID, schema.UserSocialAccount.AccountID, schema.UserSocialAccount.Provider,
		schema.UserSocialAccount.SubjectID, schema.UserSocialAccount.CreatedAt,
	)

	if link.ID == "" {
		link.ID = uuid.New()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}

	_, err := repository.db.Exec(context, query, link.ID, link.UserID, link.Provider, link.SubjectID, link.CreatedAt)
	if err != nil {
		return wrapStoreError(err, "Social account", "postgres_social_repo_create_failed")
	}
	return nil
}

// # Helpers

func collectRoles(rows pgx.Rows) ([]Role, error) {
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) {
		var role Role
		err := row.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt)
		return role, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres_role_scan_failed: %w", err)
	}
	return roles, nil
}

// wrapStoreError classifies not-found and unique violations; anything else is
// returned as a tagged internal error.
func wrapStoreError(err error, resource, tag string) error {
	classified := dberr.Wrap(err, resource)
	if appError := apperr.As(classified); appError != nil && appError.HTTPStatus < 500 {
		return classified
	}
	return fmt.Errorf("%s: %w", tag, err)
}
