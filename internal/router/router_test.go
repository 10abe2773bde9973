package router

import (
	"context"
	"reflect"
	"testing"
)

type fakeAuth bool

func (f fakeAuth) IsAuthenticated() bool { return bool(f) }

func TestResolve(t *testing.T) {
	cases := []struct {
		path   string
		view   View
		params map[string]string
	}{
		{"/", ViewHome, map[string]string{}},
		{"", ViewHome, map[string]string{}},
		{"/login", ViewLogin, map[string]string{}},
		{"/signup/", ViewSignup, map[string]string{}},
		{"/plans", ViewPlans, map[string]string{}},
		{"/plans/create", ViewCreatePlan, map[string]string{}},
		{"/plans/42", ViewPlanDetails, map[string]string{"id": "42"}},
		{"/plans/a%20b?tab=days", ViewPlanDetails, map[string]string{"id": "a b"}},
		{"/favorites?x=1", ViewFavorites, map[string]string{}},
		{"/about#team", ViewAbout, map[string]string{}},
		{"/plans/1/edit", ViewNotFound, map[string]string{}},
		{"/nope", ViewNotFound, map[string]string{}},
	}
	for _, tc := range cases {
		m := Resolve(tc.path)
		if m.Route.Name != tc.view {
			t.Fatalf("Resolve(%q) = %s, want %s", tc.path, m.Route.Name, tc.view)
		}
		if !reflect.DeepEqual(m.Params, tc.params) {
			t.Fatalf("Resolve(%q) params = %v, want %v", tc.path, m.Params, tc.params)
		}
	}
}

func TestRoutesReturnsCopy(t *testing.T) {
	routes := Routes()
	if len(routes) != 8 {
		t.Fatalf("expected 8 routes, got %d", len(routes))
	}
	routes[0].Name = "Mutated"
	if Routes()[0].Name != ViewHome {
		t.Fatalf("route table mutated through copy")
	}
}

func TestGuardIsTotal(t *testing.T) {
	all := append(Routes(), NotFound)
	for _, r := range all {
		for _, authed := range []bool{false, true} {
			d := Guard(r, authed)
			switch {
			case r.RequiresAuth() && !authed:
				if d.Outcome != RedirectLogin || d.Redirect != "/login" {
					t.Fatalf("%s auth=%v: got %+v, want redirect to /login", r.Name, authed, d)
				}
			case r.RequiresGuest() && authed:
				if d.Outcome != RedirectHome || d.Redirect != "/" {
					t.Fatalf("%s auth=%v: got %+v, want redirect to /", r.Name, authed, d)
				}
			default:
				if d.Outcome != Allow || d.Redirect != "" {
					t.Fatalf("%s auth=%v: got %+v, want allow", r.Name, authed, d)
				}
			}
		}
	}
}

func TestNavigate(t *testing.T) {
	ctx := context.Background()

	anon := New(fakeAuth(false), nil)
	nav := anon.Navigate(ctx, "/plans/7")
	if !nav.Redirected() || nav.Final.Route.Name != ViewLogin {
		t.Fatalf("anonymous /plans/7: %+v", nav)
	}
	if nav.Requested.Params["id"] != "7" {
		t.Fatalf("requested params = %v", nav.Requested.Params)
	}
	if anon.Current().Path != "/login" {
		t.Fatalf("current = %q", anon.Current().Path)
	}

	authed := New(fakeAuth(true), nil)
	nav = authed.Navigate(ctx, "/signup")
	if nav.Decision.Outcome != RedirectHome || nav.Final.Route.Name != ViewHome {
		t.Fatalf("authenticated /signup: %+v", nav)
	}
	nav = authed.Navigate(ctx, "/favorites")
	if nav.Redirected() || authed.Current().Route.Name != ViewFavorites {
		t.Fatalf("authenticated /favorites: %+v", nav)
	}

	nilAuth := New(nil, nil)
	if nav := nilAuth.Navigate(ctx, "/plans"); nav.Final.Path != "/login" {
		t.Fatalf("nil auth source should behave as anonymous: %+v", nav)
	}
}
