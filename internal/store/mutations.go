package store

import (
	"context"
	"time"

	"travelplanner/internal/tokenstore"
	"travelplanner/pkg/domain"
)

// Mutation names a state transition.
type Mutation string

const (
	MutationSetAuth        Mutation = "setAuth"
	MutationClearAuth      Mutation = "clearAuth"
	MutationSetPlans       Mutation = "setPlans"
	MutationAddPlan        Mutation = "addPlan"
	MutationUpdatePlan     Mutation = "updatePlan"
	MutationRemovePlan     Mutation = "removePlan"
	MutationSetFavorites   Mutation = "setFavorites"
	MutationAddFavorite    Mutation = "addFavorite"
	MutationRemoveFavorite Mutation = "removeFavorite"
	MutationSetError       Mutation = "setError"
)

const persistTimeout = 5 * time.Second

// SetAuth marks the session authenticated and persists the token.
// An empty token is a logout: it behaves exactly like ClearAuth.
// Persistence failures are logged; the in-memory session is still set.
func (s *Store) SetAuth(token string, user domain.User) {
	if token == "" {
		s.ClearAuth()
		return
	}
	snap := s.applyAuth(func(st *State) {
		st.IsAuthenticated = true
		st.Token = token
		st.User = user.Clone()
		if st.User == nil {
			st.User = domain.User{}
		}
	}, func(ctx context.Context) error {
		return s.storage.Set(ctx, tokenstore.TokenKey, token)
	})
	s.publish(MutationSetAuth, snap)
}

// ClearAuth logs the session out and removes the persisted token. Idempotent.
func (s *Store) ClearAuth() {
	snap := s.applyAuth(func(st *State) {
		st.IsAuthenticated = false
		st.Token = ""
		st.User = nil
	}, func(ctx context.Context) error {
		return s.storage.Delete(ctx, tokenstore.TokenKey)
	})
	s.publish(MutationClearAuth, snap)
}

// applyAuth commits an auth change and its token write as one step with
// respect to other auth changes.
func (s *Store) applyAuth(fn func(*State), persist func(context.Context) error) State {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	snap := s.apply(fn)
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := persist(ctx); err != nil {
		s.logger.Warn("persist token failed", "err", err)
	}
	return snap
}

// SetPlans replaces the plan list.
func (s *Store) SetPlans(plans []domain.Plan) {
	s.commit(MutationSetPlans, func(st *State) {
		st.Plans = nonNil(domain.CloneRecords(plans))
	})
}

// AddPlan appends plan. A nil plan leaves the list unchanged.
func (s *Store) AddPlan(plan domain.Plan) {
	s.commit(MutationAddPlan, func(st *State) {
		if plan != nil {
			st.Plans = append(st.Plans, plan.Clone())
		}
	})
}

// UpdatePlan replaces the listed plan with the same id. Plans not in the
// list are left out.
func (s *Store) UpdatePlan(plan domain.Plan) {
	id := plan.ID()
	s.commit(MutationUpdatePlan, func(st *State) {
		if id == "" {
			return
		}
		for i, p := range st.Plans {
			if p.ID() == id {
				st.Plans[i] = plan.Clone()
			}
		}
	})
}

// RemovePlan drops every plan whose id equals id, keeping order.
func (s *Store) RemovePlan(id string) {
	s.commit(MutationRemovePlan, func(st *State) {
		kept := make([]domain.Plan, 0, len(st.Plans))
		for _, p := range st.Plans {
			if p.ID() != id {
				kept = append(kept, p)
			}
		}
		st.Plans = kept
	})
}

// SetFavorites replaces the favorites list.
func (s *Store) SetFavorites(favs []domain.Favorite) {
	s.commit(MutationSetFavorites, func(st *State) {
		st.Favorites = nonNil(domain.CloneRecords(favs))
	})
}

// AddFavorite appends fav. A nil favorite leaves the list unchanged.
func (s *Store) AddFavorite(fav domain.Favorite) {
	s.commit(MutationAddFavorite, func(st *State) {
		if fav != nil {
			st.Favorites = append(st.Favorites, fav.Clone())
		}
	})
}

// RemoveFavorite drops every favorite whose id equals id, keeping order.
func (s *Store) RemoveFavorite(id string) {
	s.commit(MutationRemoveFavorite, func(st *State) {
		kept := make([]domain.Favorite, 0, len(st.Favorites))
		for _, f := range st.Favorites {
			if f.ID() != id {
				kept = append(kept, f)
			}
		}
		st.Favorites = kept
	})
}

// SetError overwrites the last error message.
func (s *Store) SetError(msg string) {
	s.commit(MutationSetError, func(st *State) {
		st.Error = msg
	})
}

func nonNil(in []domain.Record) []domain.Record {
	if in == nil {
		return []domain.Record{}
	}
	return in
}
