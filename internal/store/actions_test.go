package store

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"

	"travelplanner/internal/apiclient"
	"travelplanner/internal/tokenstore"
	"travelplanner/pkg/domain"
)

func TestLoginScenario(t *testing.T) {
	s, storage := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/auth/login" {
			http.NotFound(w, r)
			return
		}
		var creds domain.Credentials
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Email != "a" || creds.Password != "b" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"token":"T","user":{"id":1}}`))
	}))

	res, err := s.Login(context.Background(), domain.Credentials{Email: "a", Password: "b"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "T" {
		t.Fatalf("result token = %q", res.Token)
	}
	if !s.IsAuthenticated() || s.Token() != "T" {
		t.Fatalf("state after login: %+v", s.Snapshot())
	}
	if s.CurrentUser().ID() != "1" {
		t.Fatalf("user = %v", s.CurrentUser())
	}
	if got, ok, _ := storage.Get(context.Background(), tokenstore.TokenKey); !ok || got != "T" {
		t.Fatalf("persisted token = %q ok %v", got, ok)
	}
}

func TestLoginAndSignupFailures(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
		case "/api/auth/signup":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Email already registered"}`))
		}
	}))
	ctx := context.Background()

	_, err := s.Login(ctx, domain.Credentials{Email: "a", Password: "wrong"})
	var actErr *ActionError
	if !errors.As(err, &actErr) || actErr.Message != "Invalid credentials" || actErr.Action != "login" {
		t.Fatalf("login error = %v", err)
	}
	if s.Error() != "Invalid credentials" || s.IsAuthenticated() {
		t.Fatalf("state after failed login: %+v", s.Snapshot())
	}

	_, err = s.Signup(ctx, domain.SignupData{Email: "a", Password: "b", FullName: "A"})
	if !errors.As(err, &actErr) || actErr.Message != MsgSignupFailed {
		t.Fatalf("signup error = %v", err)
	}
	if s.Error() != MsgSignupFailed {
		t.Fatalf("error = %q", s.Error())
	}
}

func TestAuthResponseWithoutTokenFails(t *testing.T) {
	s, storage := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":1}}`))
	}))
	ctx := context.Background()

	_, err := s.Login(ctx, domain.Credentials{Email: "a", Password: "b"})
	var actErr *ActionError
	if !errors.As(err, &actErr) || actErr.Message != MsgLoginFailed || !errors.Is(err, ErrMissingToken) {
		t.Fatalf("login error = %v", err)
	}
	_, err = s.Signup(ctx, domain.SignupData{Email: "a", Password: "b", FullName: "A"})
	if err == nil || err.Error() != MsgSignupFailed || !errors.Is(err, ErrMissingToken) {
		t.Fatalf("signup error = %v", err)
	}
	if s.IsAuthenticated() || s.CurrentUser() != nil || s.Error() != MsgSignupFailed {
		t.Fatalf("state after tokenless auth: %+v", s.Snapshot())
	}
	if _, ok, _ := storage.Get(ctx, tokenstore.TokenKey); ok {
		t.Fatalf("tokenless auth persisted a token")
	}
}

func TestSignupAuthenticates(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var data domain.SignupData
		_ = json.NewDecoder(r.Body).Decode(&data)
		if r.URL.Path != "/api/auth/signup" || data.FullName != "Ada" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"message":"User registered successfully","token":"S","user":{"id":5,"full_name":"Ada"}}`))
	}))
	if _, err := s.Signup(context.Background(), domain.SignupData{Email: "ada@example.com", Password: "pw", FullName: "Ada"}); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if !s.IsAuthenticated() || s.Token() != "S" || s.CurrentUser()["full_name"] != "Ada" {
		t.Fatalf("state after signup: %+v", s.Snapshot())
	}
}

func TestLogoutClearsSessionWithoutNetwork(t *testing.T) {
	var calls int32
	s, storage := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	s.SetAuth("T", domain.User{"id": 1})
	s.Logout()
	if s.IsAuthenticated() || s.Token() != "" {
		t.Fatalf("state after logout: %+v", s.Snapshot())
	}
	if _, ok, _ := storage.Get(context.Background(), tokenstore.TokenKey); ok {
		t.Fatalf("logout should remove persisted token")
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("logout must not call the API")
	}
}

func TestFetchPlansReplacesList(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/plans" || r.Header.Get("Authorization") != "Bearer T" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"plans":[{"id":1},{"id":2}]}`))
	}))
	s.SetAuth("T", domain.User{"id": 1})
	s.SetPlans([]domain.Plan{rec(9), rec(8), rec(7)})

	if _, err := s.FetchPlans(context.Background()); err != nil {
		t.Fatalf("fetch plans: %v", err)
	}
	want := []domain.Plan{{"id": json.Number("1")}, {"id": json.Number("2")}}
	if got := s.UserPlans(); !reflect.DeepEqual(got, want) {
		t.Fatalf("plans = %v, want %v", got, want)
	}
}

func TestCreatePlanFailureUsesServerMessage(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"quota exceeded"}`))
	}))
	_, err := s.CreatePlan(context.Background(), domain.PlanInput{Title: "Trip"})
	if err == nil || err.Error() != "quota exceeded" {
		t.Fatalf("create plan error = %v", err)
	}
	if s.Error() != "quota exceeded" {
		t.Fatalf("state error = %q", s.Error())
	}
}

func TestCreatePlanFailureWithoutBodyUsesDefault(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	_, err := s.CreatePlan(context.Background(), domain.PlanInput{Title: "Trip"})
	if err == nil || err.Error() != MsgCreatePlanFailed {
		t.Fatalf("create plan error = %v", err)
	}
	if s.Error() != "Failed to create plan" {
		t.Fatalf("state error = %q", s.Error())
	}
}

func TestCreatePlanAppends(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/plans/create" || r.Header.Get("Authorization") != "Bearer T" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var in domain.PlanInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"plan": map[string]any{"id": 3, "title": in.Title}})
	}))
	s.SetAuth("T", domain.User{"id": 1})
	s.SetPlans([]domain.Plan{rec(1)})

	plan, err := s.CreatePlan(context.Background(), domain.PlanInput{Title: "Kyoto"})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	if plan["title"] != "Kyoto" {
		t.Fatalf("plan = %v", plan)
	}
	got := s.UserPlans()
	if len(got) != 2 || got[1].ID() != "3" {
		t.Fatalf("plans = %v", got)
	}
}

func TestSuccessDoesNotClearError(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"plans":[]}`))
	}))
	s.SetError("old failure")
	if _, err := s.FetchPlans(context.Background()); err != nil {
		t.Fatalf("fetch plans: %v", err)
	}
	if s.Error() != "old failure" {
		t.Fatalf("error should persist across successes, got %q", s.Error())
	}
}

func TestFavoritesActions(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/favorites/10":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"favorite":{"id":100,"plan_id":10}}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/favorites/100":
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"message":"Plan removed from favorites"}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNotFound)
		case r.Method == http.MethodGet && r.URL.Path == "/api/favorites":
			_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
		default:
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"message":"Can only favorite public plans"}`))
		}
	}))
	ctx := context.Background()

	if _, err := s.FetchFavorites(ctx); err != nil {
		t.Fatalf("fetch favorites: %v", err)
	}
	fav, err := s.AddToFavorites(ctx, " 10 ")
	if err != nil {
		t.Fatalf("add to favorites: %v", err)
	}
	if fav.ID() != "100" || len(s.UserFavorites()) != 3 {
		t.Fatalf("favorites after add = %v", s.UserFavorites())
	}

	if _, err := s.AddToFavorites(ctx, "11"); err == nil || s.Error() != "Can only favorite public plans" {
		t.Fatalf("add private plan: err %v state %q", err, s.Error())
	}

	if err := s.RemoveFromFavorites(ctx, "100"); err != nil {
		t.Fatalf("remove favorite: %v", err)
	}
	if got := s.UserFavorites(); len(got) != 2 || got[0].ID() != "1" || got[1].ID() != "2" {
		t.Fatalf("favorites after remove = %v", got)
	}

	err = s.RemoveFromFavorites(ctx, "1")
	if err == nil || err.Error() != MsgRemoveFavoriteFailed {
		t.Fatalf("remove missing favorite error = %v", err)
	}
	if len(s.UserFavorites()) != 2 {
		t.Fatalf("failed remove must not change local favorites")
	}
}

func TestPlanActions(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authed := r.Header.Get("Authorization") == "Bearer T"
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/plans/public":
			_, _ = w.Write([]byte(`[{"id":7,"is_public":true}]`))
		case !authed:
			w.WriteHeader(http.StatusUnauthorized)
		case r.Method == http.MethodGet && r.URL.Path == "/api/plans/2":
			_, _ = w.Write([]byte(`{"id":2,"title":"Lisbon","itinerary":[]}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/plans/5":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Plan not found"}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/plans/1":
			_, _ = w.Write([]byte(`{"message":"Plan deleted successfully"}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusForbidden)
		case r.Method == http.MethodPost && r.URL.Path == "/api/plans/7/like":
			_, _ = w.Write([]byte(`{"message":"Plan liked successfully","likes":4}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	ctx := context.Background()
	s.SetAuth("T", domain.User{"id": 1})
	s.SetPlans([]domain.Plan{{"id": 1, "title": "Rome"}, {"id": 2, "title": "old"}})

	plan, err := s.FetchPlan(ctx, " 2 ")
	if err != nil {
		t.Fatalf("fetch plan: %v", err)
	}
	if plan["title"] != "Lisbon" || s.UserPlans()[1]["title"] != "Lisbon" {
		t.Fatalf("plan %v, list %v", plan, s.UserPlans())
	}

	if _, err := s.FetchPlan(ctx, "5"); err == nil || s.Error() != "Plan not found" {
		t.Fatalf("fetch missing plan: err %v state %q", err, s.Error())
	}

	if err := s.DeletePlan(ctx, "1"); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	if got := s.UserPlans(); len(got) != 1 || got[0].ID() != "2" {
		t.Fatalf("plans after delete = %v", got)
	}
	if err := s.DeletePlan(ctx, "2"); err == nil || err.Error() != MsgDeletePlanFailed {
		t.Fatalf("forbidden delete error = %v", err)
	}
	if len(s.UserPlans()) != 1 {
		t.Fatalf("failed delete must not change local plans")
	}

	public, err := s.FetchPublicPlans(ctx)
	if err != nil || len(public) != 1 || public[0].ID() != "7" {
		t.Fatalf("public plans = %v, err %v", public, err)
	}
	if len(s.UserPlans()) != 1 {
		t.Fatalf("public plans must not replace the user's plans")
	}

	likes, err := s.LikePlan(ctx, "7")
	if err != nil || likes != 4 {
		t.Fatalf("like = %d, err %v", likes, err)
	}
}

func TestSyncFetchesBothAndReportsFailure(t *testing.T) {
	s, _ := newTestStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/plans":
			_, _ = w.Write([]byte(`{"plans":[{"id":1}]}`))
		case "/api/favorites":
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	err := s.Sync(context.Background())
	if err == nil || !strings.Contains(err.Error(), MsgFetchFavoritesFailed) {
		t.Fatalf("sync error = %v", err)
	}
	if len(s.UserPlans()) != 1 {
		t.Fatalf("plans should still be fetched, got %v", s.UserPlans())
	}
	if s.Error() != MsgFetchFavoritesFailed {
		t.Fatalf("state error = %q", s.Error())
	}
}

// failingAPI fails every call with err.
type failingAPI struct{ err error }

func (f *failingAPI) Login(context.Context, domain.Credentials) (apiclient.AuthResult, error) {
	return apiclient.AuthResult{}, f.err
}

func (f *failingAPI) Signup(context.Context, domain.SignupData) (apiclient.AuthResult, error) {
	return apiclient.AuthResult{}, f.err
}

func (f *failingAPI) CreatePlan(context.Context, string, domain.PlanInput) (domain.Plan, error) {
	return nil, f.err
}

func (f *failingAPI) ListPlans(context.Context, string) ([]domain.Plan, error) { return nil, f.err }

func (f *failingAPI) ListFavorites(context.Context, string) ([]domain.Favorite, error) {
	return nil, f.err
}

func (f *failingAPI) AddFavorite(context.Context, string, string) (domain.Favorite, error) {
	return nil, f.err
}

func (f *failingAPI) RemoveFavorite(context.Context, string, string) error { return f.err }

func (f *failingAPI) GetPlan(context.Context, string, string) (domain.Plan, error) {
	return nil, f.err
}

func (f *failingAPI) DeletePlan(context.Context, string, string) error { return f.err }

func (f *failingAPI) ListPublicPlans(context.Context) ([]domain.Plan, error) { return nil, f.err }

func (f *failingAPI) LikePlan(context.Context, string, string) (int64, error) { return 0, f.err }

func TestTransportFailureUsesDefaultMessage(t *testing.T) {
	s, err := New(context.Background(), Config{API: &failingAPI{err: errors.New("dial tcp: connection refused")}})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	ctx := context.Background()
	cases := []struct {
		name string
		run  func() error
		want string
	}{
		{"login", func() error { _, err := s.Login(ctx, domain.Credentials{}); return err }, MsgLoginFailed},
		{"signup", func() error { _, err := s.Signup(ctx, domain.SignupData{}); return err }, MsgSignupFailed},
		{"fetchPlans", func() error { _, err := s.FetchPlans(ctx); return err }, MsgFetchPlansFailed},
		{"fetchFavorites", func() error { _, err := s.FetchFavorites(ctx); return err }, MsgFetchFavoritesFailed},
		{"createPlan", func() error { _, err := s.CreatePlan(ctx, domain.PlanInput{Title: "Trip"}); return err }, MsgCreatePlanFailed},
		{"addToFavorites", func() error { _, err := s.AddToFavorites(ctx, "1"); return err }, MsgAddFavoriteFailed},
		{"removeFromFavorites", func() error { return s.RemoveFromFavorites(ctx, "1") }, MsgRemoveFavoriteFailed},
		{"fetchPlan", func() error { _, err := s.FetchPlan(ctx, "1"); return err }, MsgFetchPlanFailed},
		{"deletePlan", func() error { return s.DeletePlan(ctx, "1") }, MsgDeletePlanFailed},
		{"fetchPublicPlans", func() error { _, err := s.FetchPublicPlans(ctx); return err }, MsgFetchPublicFailed},
		{"likePlan", func() error { _, err := s.LikePlan(ctx, "1"); return err }, MsgLikePlanFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.run()
			if err == nil || err.Error() != tc.want {
				t.Fatalf("error = %v, want %q", err, tc.want)
			}
			if s.Error() != tc.want {
				t.Fatalf("state error = %q, want %q", s.Error(), tc.want)
			}
		})
	}
}
