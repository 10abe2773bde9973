// Package store owns the client session state: authentication, the current
// user, the bearer token, plans, favorites and the last action error.
//
// State changes only through the mutation methods. Actions perform one API
// call and then commit a mutation; on failure they record the message with
// SetError and return an *ActionError carrying the same message.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"travelplanner/internal/apiclient"
	"travelplanner/internal/tokenstore"
	"travelplanner/pkg/domain"
)

// API is the remote surface the store calls. *apiclient.Client implements it.
type API interface {
	Login(ctx context.Context, creds domain.Credentials) (apiclient.AuthResult, error)
	Signup(ctx context.Context, data domain.SignupData) (apiclient.AuthResult, error)
	CreatePlan(ctx context.Context, token string, input domain.PlanInput) (domain.Plan, error)
	ListPlans(ctx context.Context, token string) ([]domain.Plan, error)
	ListFavorites(ctx context.Context, token string) ([]domain.Favorite, error)
	AddFavorite(ctx context.Context, token, planID string) (domain.Favorite, error)
	RemoveFavorite(ctx context.Context, token, favoriteID string) error
	GetPlan(ctx context.Context, token, planID string) (domain.Plan, error)
	DeletePlan(ctx context.Context, token, planID string) error
	ListPublicPlans(ctx context.Context) ([]domain.Plan, error)
	LikePlan(ctx context.Context, token, planID string) (int64, error)
}

// State is a snapshot of the session.
type State struct {
	IsAuthenticated bool              `json:"isAuthenticated"`
	User            domain.User       `json:"user"`
	Token           string            `json:"-"`
	Plans           []domain.Plan     `json:"plans"`
	Favorites       []domain.Favorite `json:"favorites"`
	Error           string            `json:"error,omitempty"`
}

func (s State) clone() State {
	out := s
	out.User = s.User.Clone()
	out.Plans = domain.CloneRecords(s.Plans)
	out.Favorites = domain.CloneRecords(s.Favorites)
	return out
}

// Listener observes committed mutations.
type Listener func(m Mutation, s State)

// Store is the single writer of session state.
type Store struct {
	api     API
	storage tokenstore.Storage
	logger  *slog.Logger

	mu    sync.RWMutex
	state State

	// persistMu orders auth commits with their token writes so storage
	// always ends up matching the last auth mutation.
	persistMu sync.Mutex

	subMu     sync.Mutex
	nextSubID int
	listeners map[int]Listener
}

// Config wires store dependencies.
type Config struct {
	API     API
	Storage tokenstore.Storage
	Logger  *slog.Logger
	// Now is used to discard an expired persisted token; defaults to time.Now.
	Now func() time.Time
}

// New builds a store and rehydrates the token from storage. A restored token
// does not make the session authenticated; only SetAuth does.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.API == nil {
		return nil, fmt.Errorf("store requires an API client")
	}
	if cfg.Storage == nil {
		cfg.Storage = tokenstore.NewMemoryStorage()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	token, err := tokenstore.LoadToken(ctx, cfg.Storage, cfg.Now())
	if err != nil {
		return nil, err
	}
	return &Store{
		api:     cfg.API,
		storage: cfg.Storage,
		logger:  cfg.Logger,
		state: State{
			Token:     token,
			Plans:     []domain.Plan{},
			Favorites: []domain.Favorite{},
		},
		listeners: make(map[int]Listener),
	}, nil
}

// Subscribe registers fn for every committed mutation and returns a cancel func.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) notify(m Mutation, snap State) {
	s.subMu.Lock()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.subMu.Unlock()
	for _, fn := range listeners {
		fn(m, snap)
	}
}

// commit applies fn under the write lock and then notifies listeners.
func (s *Store) commit(m Mutation, fn func(*State)) {
	s.publish(m, s.apply(fn))
}

// apply runs fn under the write lock and returns the resulting snapshot.
func (s *Store) apply(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	return s.state.clone()
}

func (s *Store) publish(m Mutation, snap State) {
	s.logger.Debug("store mutation", "mutation", string(m))
	s.notify(m, snap)
}

// Getters.

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsAuthenticated
}

// CurrentUser returns a copy of the user, nil when logged out.
func (s *Store) CurrentUser() domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.User.Clone()
}

func (s *Store) UserPlans() []domain.Plan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneRecords(s.state.Plans)
}

func (s *Store) UserFavorites() []domain.Favorite {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneRecords(s.state.Favorites)
}

// Error returns the last action failure message, "" if none.
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Error
}

// Token returns the bearer token, "" when absent.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Token
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}
