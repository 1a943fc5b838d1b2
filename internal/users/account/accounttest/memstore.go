// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package accounttest provides an in-memory [account.Store] for tests.

Transactions work on a copy of the committed state that replaces it only when
the callback succeeds, so rollback behaviour is observable without a database.
Unique constraints surface as apperr.Conflict, matching the Postgres store.
*/
package accounttest

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/taibuivan/yomira-auth/internal/platform/apperr"
	"github.com/taibuivan/yomira-auth/internal/users/account"
)

type state struct {
	users  map[string]account.User
	roles  map[string]account.Role
	grants map[string]map[string]bool
	links  map[string]account.SocialAccount
}

func newState() *state {
	return &state{
		users:  map[string]account.User{},
		roles:  map[string]account.Role{},
		grants: map[string]map[string]bool{},
		links:  map[string]account.SocialAccount{},
	}
}

func (s *state) clone() *state {
	copied := newState()
	for key, value := range s.users {
		copied.users[key] = value
	}
	for key, value := range s.roles {
		copied.roles[key] = value
	}
	for key, value := range s.grants {
		inner := make(map[string]bool, len(value))
		for roleID := range value {
			inner[roleID] = true
		}
		copied.grants[key] = inner
	}
	for key, value := range s.links {
		copied.links[key] = value
	}
	return copied
}

// Store is a goroutine-safe in-memory credential store.
type Store struct {
	mu        sync.Mutex
	committed *state

	// BeforeLinkCreate, when set, runs inside SocialAccounts().Create against
	// the committed state. Returning an error aborts the create with it.
	BeforeLinkCreate func(committed Seeder) error

	// FailAddRole, when set, is returned by every Users().AddRole call.
	FailAddRole error
}

// New returns an empty [Store].
func New() *Store {
	return &Store{committed: newState()}
}

// Users implements account.UnitOfWork on the committed state.
func (store *Store) Users() account.UserRepository {
	return &users{unit: store.direct()}
}

// Roles implements account.UnitOfWork on the committed state.
func (store *Store) Roles() account.RoleRepository {
	return &roles{unit: store.direct()}
}

// SocialAccounts implements account.UnitOfWork on the committed state.
func (store *Store) SocialAccounts() account.SocialAccountRepository {
	return &links{unit: store.direct()}
}

// WithinTx runs fn on a private copy and publishes it when fn succeeds.
func (store *Store) WithinTx(context context.Context, fn func(account.UnitOfWork) error) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	working := store.committed.clone()
	if err := fn(&unit{store: store, data: working, locker: noLock{}}); err != nil {
		return err
	}
	store.committed = working
	return nil
}

// UserCount returns the number of committed users.
func (store *Store) UserCount() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.committed.users)
}

// LinkCount returns the number of committed provider links.
func (store *Store) LinkCount() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.committed.links)
}

func (store *Store) direct() *unit {
	return &unit{store: store, data: nil, locker: &store.mu}
}

// Seeder writes straight into a state, bypassing constraints.
type Seeder struct{ data *state }

// AddLinkedUser inserts a user and its provider link and returns the user ID.
func (seeder Seeder) AddLinkedUser(email, provider, subjectID string) string {
	id := uuid.NewString()
	now := time.Now().UTC()
	seeder.data.users[id] = account.User{ID: id, Email: email, CreatedAt: now, UpdatedAt: now}
	seeder.data.links[linkKey(provider, subjectID)] = account.SocialAccount{
		ID: uuid.NewString(), UserID: id, Provider: provider, SubjectID: subjectID, CreatedAt: now,
	}
	return id
}

// # Unit

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

type unit struct {
	store  *Store
	data   *state
	locker sync.Locker
}

func (u *unit) Users() account.UserRepository                   { return &users{unit: u} }
func (u *unit) Roles() account.RoleRepository                   { return &roles{unit: u} }
func (u *unit) SocialAccounts() account.SocialAccountRepository { return &links{unit: u} }

// view locks and returns the state this unit operates on.
func (u *unit) view() (*state, func()) {
	u.locker.Lock()
	if u.data != nil {
		return u.data, u.locker.Unlock
	}
	return u.store.committed, u.locker.Unlock
}

func (s *state) userWithRoles(id string) *account.User {
	user := s.users[id]
	user.Roles = s.rolesOf(id)
	return &user
}

func (s *state) rolesOf(userID string) []account.Role {
	granted := []account.Role{}
	for _, role := range s.roles {
		if s.grants[userID][role.ID] {
			granted = append(granted, role)
		}
	}
	slices.SortFunc(granted, func(a, b account.Role) int { return strings.Compare(a.Name, b.Name) })
	return granted
}

func linkKey(provider, subjectID string) string {
	return provider + "\x00" + subjectID
}

// # Users

type users struct{ unit *unit }

func (repository *users) Create(_ context.Context, user *account.User) error {
	data, unlock := repository.unit.view()
	defer unlock()

	for _, existing := range data.users {
		if existing.Email == user.Email {
			return apperr.Conflict("User already exists")
		}
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt, user.UpdatedAt = now, now

	stored := *user
	stored.Roles = nil
	data.users[user.ID] = stored
	return nil
}

func (repository *users) FindByID(_ context.Context, id string) (*account.User, error) {
	data, unlock := repository.unit.view()
	defer unlock()

	if _, ok := data.users[id]; !ok {
		return nil, apperr.NotFound("User")
	}
	return data.userWithRoles(id), nil
}

func (repository *users) FindByEmail(_ context.Context, email string) (*account.User, error) {
	data, unlock := repository.unit.view()
	defer unlock()

	for id, user := range data.users {
		if user.Email == email {
			return data.userWithRoles(id), nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repository *users) UpdatePassword(_ context.Context, userID, newHash string) error {
	data, unlock := repository.unit.view()
	defer unlock()

	user, ok := data.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = newHash
	user.UpdatedAt = time.Now().UTC()
	data.users[userID] = user
	return nil
}

func (repository *users) ListRoles(_ context.Context, userID string) ([]account.Role, error) {
	data, unlock := repository.unit.view()
	defer unlock()
	return data.rolesOf(userID), nil
}

func (repository *users) AddRole(_ context.Context, userID, roleID string) error {
	if repository.unit.store.FailAddRole != nil {
		return repository.unit.store.FailAddRole
	}

	data, unlock := repository.unit.view()
	defer unlock()

	if data.grants[userID] == nil {
		data.grants[userID] = map[string]bool{}
	}
	data.grants[userID][roleID] = true
	return nil
}

func (repository *users) RemoveRole(_ context.Context, userID, roleID string) error {
	data, unlock := repository.unit.view()
	defer unlock()

	delete(data.grants[userID], roleID)
	return nil
}

// # Roles

type roles struct{ unit *unit }

func (repository *roles) Ensure(_ context.Context, name string) (*account.Role, error) {
	data, unlock := repository.unit.view()
	defer unlock()

	if role, ok := data.roles[name]; ok {
		return &role, nil
	}
	role := account.Role{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	data.roles[name] = role
	return &role, nil
}

func (repository *roles) Create(_ context.Context, role *account.Role) error {
	data, unlock := repository.unit.view()
	defer unlock()

	if _, ok := data.roles[role.Name]; ok {
		return apperr.Conflict("Role already exists")
	}
	role.ID = uuid.NewString()
	role.CreatedAt = time.Now().UTC()
	data.roles[role.Name] = *role
	return nil
}

func (repository *roles) FindByName(_ context.Context, name string) (*account.Role, error) {
	data, unlock := repository.unit.view()
	defer unlock()

	role, ok := data.roles[name]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	return &role, nil
}

func (repository *roles) List(_ context.Context) ([]account.Role, error) {
	data, unlock := repository.unit.view()
	defer unlock()

	list := make([]account.Role, 0, len(data.roles))
	for _, role := range data.roles {
		list = append(list, role)
	}
	slices.SortFunc(list, func(a, b account.Role) int { return strings.Compare(a.Name, b.Name) })
	return list, nil
}

func (repository *roles) UpdateDescription(_ context.Context, name string, description *string) (*account.Role, error) {
	data, unlock := repository.unit.view()
	defer unlock()

	role, ok := data.roles[name]
	if !ok {
		return nil, apperr.NotFound("Role")
	}
	role.Description = description
	data.roles[name] = role
	return &role, nil
}

func (repository *roles) Delete(_ context.Context, name string) error {
	data, unlock := repository.unit.view()
	defer unlock()

	role, ok := data.roles[name]
	if !ok {
		return apperr.NotFound("Role")
	}
	delete(data.roles, name)
	for _, granted := range data.grants {
		delete(granted, role.ID)
	}
	return nil
}

// # Social Accounts

type links struct{ unit *unit }

func (repository *links) FindBySubject(_ context.Context, provider, subjectID string) (*account.SocialAccount, error) {
	data, unlock := repository.unit.view()
	defer unlock()

	link, ok := data.links[linkKey(provider, subjectID)]
	if !ok {
		return nil, apperr.NotFound("Social account")
	}
	return &link, nil
}

func (repository *links) Create(_ context.Context, link *account.SocialAccount) error {
	store := repository.unit.store
	if hook := store.BeforeLinkCreate; hook != nil {
		store.BeforeLinkCreate = nil
		if err := hook(Seeder{data: store.committed}); err != nil {
			return err
		}
	}

	data, unlock := repository.unit.view()
	defer unlock()

	key := linkKey(link.Provider, link.SubjectID)
	if _, ok := data.links[key]; ok {
		return apperr.Conflict("Social account already exists")
	}
	link.ID = uuid.NewString()
	link.CreatedAt = time.Now().UTC()
	data.links[key] = *link
	return nil
}
