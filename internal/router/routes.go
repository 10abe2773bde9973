// Package router maps URL paths to views and applies the access guard.
package router

import (
	"net/url"
	"strings"
)

// View names a screen of the application.
type View string

const (
	ViewHome        View = "Home"
	ViewLogin       View = "Login"
	ViewSignup      View = "Signup"
	ViewPlans       View = "Plans"
	ViewCreatePlan  View = "CreatePlan"
	ViewPlanDetails View = "PlanDetails"
	ViewFavorites   View = "Favorites"
	ViewAbout       View = "About"
	ViewNotFound    View = "NotFound"
)

// Access is the guard flag a route declares.
type Access int

const (
	AccessNone Access = iota
	AccessRequiresAuth
	AccessRequiresGuest
)

func (a Access) String() string {
	switch a {
	case AccessRequiresAuth:
		return "requiresAuth"
	case AccessRequiresGuest:
		return "requiresGuest"
	default:
		return "none"
	}
}

// Route is one entry of the route table.
type Route struct {
	Path   string
	Name   View
	Access Access
}

// RequiresAuth reports whether only authenticated sessions may enter.
func (r Route) RequiresAuth() bool { return r.Access == AccessRequiresAuth }

// RequiresGuest reports whether only anonymous sessions may enter.
func (r Route) RequiresGuest() bool { return r.Access == AccessRequiresGuest }

// NotFound is the catch-all route for unmatched paths.
var NotFound = Route{Path: "*", Name: ViewNotFound}

var table = []Route{
	{Path: "/", Name: ViewHome},
	{Path: "/login", Name: ViewLogin, Access: AccessRequiresGuest},
	{Path: "/signup", Name: ViewSignup, Access: AccessRequiresGuest},
	{Path: "/plans", Name: ViewPlans, Access: AccessRequiresAuth},
	{Path: "/plans/create", Name: ViewCreatePlan, Access: AccessRequiresAuth},
	{Path: "/plans/:id", Name: ViewPlanDetails, Access: AccessRequiresAuth},
	{Path: "/favorites", Name: ViewFavorites, Access: AccessRequiresAuth},
	{Path: "/about", Name: ViewAbout},
}

// Routes returns a copy of the route table without the catch-all.
func Routes() []Route {
	out := make([]Route, len(table))
	copy(out, table)
	return out
}

// Match is a resolved path.
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
}

// Resolve finds the route for path. Static segments win over params, the
// query string and a trailing slash are ignored, and anything unmatched
// resolves to NotFound.
func Resolve(path string) Match {
	clean := cleanPath(path)
	segs := splitPath(clean)

	best := -1
	var bestParams map[string]string
	bestStatic := -1
	for i, r := range table {
		params, static, ok := matchSegments(splitPath(r.Path), segs)
		if !ok {
			continue
		}
		if static > bestStatic {
			best, bestParams, bestStatic = i, params, static
		}
	}
	if best < 0 {
		return Match{Route: NotFound, Path: clean, Params: map[string]string{}}
	}
	return Match{Route: table[best], Path: clean, Params: bestParams}
}

func cleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// matchSegments returns captured params and the count of static segments hit.
func matchSegments(pattern, segs []string) (map[string]string, int, bool) {
	if len(pattern) != len(segs) {
		return nil, 0, false
	}
	params := map[string]string{}
	static := 0
	for i, p := range pattern {
		if strings.HasPrefix(p, ":") {
			if segs[i] == "" {
				return nil, 0, false
			}
			v, err := url.PathUnescape(segs[i])
			if err != nil {
				v = segs[i]
			}
			params[p[1:]] = v
			continue
		}
		if p != segs[i] {
			return nil, 0, false
		}
		static++
	}
	return params, static, true
}
