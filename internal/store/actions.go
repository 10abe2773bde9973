package store

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"travelplanner/internal/apiclient"
	"travelplanner/pkg/domain"
)

// Default failure messages used when the server sends no message.
const (
	MsgLoginFailed          = "Login failed"
	MsgSignupFailed         = "Signup failed"
	MsgCreatePlanFailed     = "Failed to create plan"
	MsgFetchPlansFailed     = "Failed to fetch plans"
	MsgFetchFavoritesFailed = "Failed to fetch favorites"
	MsgAddFavoriteFailed    = "Failed to add to favorites"
	MsgRemoveFavoriteFailed = "Failed to remove from favorites"
	MsgFetchPlanFailed      = "Failed to fetch plan"
	MsgDeletePlanFailed     = "Failed to delete plan"
	MsgFetchPublicFailed    = "Failed to fetch public plans"
	MsgLikePlanFailed       = "Failed to like plan"
)

// ErrMissingToken is wrapped when a successful auth response carries no token.
var ErrMissingToken = errors.New("auth response carried no token")

// ActionError is the single failure kind returned by actions. Message is
// the same text recorded in state.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// failureMessage prefers the server's message over the action default.
func failureMessage(err error, fallback string) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func (s *Store) fail(ctx context.Context, action, fallback string, err error) error {
	msg := failureMessage(err, fallback)
	s.SetError(msg)
	s.logger.WarnContext(ctx, "store action failed", "action", action, "message", msg, "err", err)
	return &ActionError{Action: action, Message: msg, Err: err}
}

// Login authenticates and stores the session.
func (s *Store) Login(ctx context.Context, creds domain.Credentials) (apiclient.AuthResult, error) {
	res, err := s.api.Login(ctx, creds)
	if err == nil && res.Token == "" {
		err = ErrMissingToken
	}
	if err != nil {
		return apiclient.AuthResult{}, s.fail(ctx, "login", MsgLoginFailed, err)
	}
	s.SetAuth(res.Token, res.User)
	return res, nil
}

// Signup registers a user and stores the session.
func (s *Store) Signup(ctx context.Context, data domain.SignupData) (apiclient.AuthResult, error) {
	res, err := s.api.Signup(ctx, data)
	if err == nil && res.Token == "" {
		err = ErrMissingToken
	}
	if err != nil {
		return apiclient.AuthResult{}, s.fail(ctx, "signup", MsgSignupFailed, err)
	}
	s.SetAuth(res.Token, res.User)
	return res, nil
}

// Logout clears the session locally. It makes no network call.
func (s *Store) Logout() {
	s.ClearAuth()
}

// CreatePlan creates a plan and appends it.
func (s *Store) CreatePlan(ctx context.Context, input domain.PlanInput) (domain.Plan, error) {
	plan, err := s.api.CreatePlan(ctx, s.Token(), input)
	if err != nil {
		return nil, s.fail(ctx, "createPlan", MsgCreatePlanFailed, err)
	}
	s.AddPlan(plan)
	return plan, nil
}

// FetchPlans replaces the plan list with the server's.
func (s *Store) FetchPlans(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.api.ListPlans(ctx, s.Token())
	if err != nil {
		return nil, s.fail(ctx, "fetchPlans", MsgFetchPlansFailed, err)
	}
	s.SetPlans(plans)
	return plans, nil
}

// FetchPlan reads one plan and refreshes its entry in the plan list when
// the list holds it.
func (s *Store) FetchPlan(ctx context.Context, planID string) (domain.Plan, error) {
	plan, err := s.api.GetPlan(ctx, s.Token(), domain.NormalizeID(planID))
	if err == nil && plan == nil {
		err = errors.New("plan response was empty")
	}
	if err != nil {
		return nil, s.fail(ctx, "fetchPlan", MsgFetchPlanFailed, err)
	}
	s.UpdatePlan(plan)
	return plan, nil
}

// DeletePlan deletes the plan remotely, then drops it locally.
func (s *Store) DeletePlan(ctx context.Context, planID string) error {
	planID = domain.NormalizeID(planID)
	if err := s.api.DeletePlan(ctx, s.Token(), planID); err != nil {
		return s.fail(ctx, "deletePlan", MsgDeletePlanFailed, err)
	}
	s.RemovePlan(planID)
	return nil
}

// FetchPublicPlans lists public plans. They are not the user's plans, so
// state only changes on failure.
func (s *Store) FetchPublicPlans(ctx context.Context) ([]domain.Plan, error) {
	plans, err := s.api.ListPublicPlans(ctx)
	if err != nil {
		return nil, s.fail(ctx, "fetchPublicPlans", MsgFetchPublicFailed, err)
	}
	return plans, nil
}

// LikePlan likes a public plan and returns the new like count.
func (s *Store) LikePlan(ctx context.Context, planID string) (int64, error) {
	likes, err := s.api.LikePlan(ctx, s.Token(), domain.NormalizeID(planID))
	if err != nil {
		return 0, s.fail(ctx, "likePlan", MsgLikePlanFailed, err)
	}
	return likes, nil
}

// FetchFavorites replaces the favorites list with the server's.
func (s *Store) FetchFavorites(ctx context.Context) ([]domain.Favorite, error) {
	favs, err := s.api.ListFavorites(ctx, s.Token())
	if err != nil {
		return nil, s.fail(ctx, "fetchFavorites", MsgFetchFavoritesFailed, err)
	}
	s.SetFavorites(favs)
	return favs, nil
}

// AddToFavorites favorites planID and appends the returned favorite.
func (s *Store) AddToFavorites(ctx context.Context, planID string) (domain.Favorite, error) {
	fav, err := s.api.AddFavorite(ctx, s.Token(), domain.NormalizeID(planID))
	if err != nil {
		return nil, s.fail(ctx, "addToFavorites", MsgAddFavoriteFailed, err)
	}
	s.AddFavorite(fav)
	return fav, nil
}

// RemoveFromFavorites deletes the favorite remotely, then locally.
func (s *Store) RemoveFromFavorites(ctx context.Context, favoriteID string) error {
	favoriteID = domain.NormalizeID(favoriteID)
	if err := s.api.RemoveFavorite(ctx, s.Token(), favoriteID); err != nil {
		return s.fail(ctx, "removeFromFavorites", MsgRemoveFavoriteFailed, err)
	}
	s.RemoveFavorite(favoriteID)
	return nil
}

// Sync fetches plans and favorites concurrently. One failing fetch does not
// cancel the other; each records its own failure and the first error is
// returned.
func (s *Store) Sync(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error {
		_, err := s.FetchPlans(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.FetchFavorites(ctx)
		return err
	})
	return g.Wait()
}
