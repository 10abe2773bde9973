package router

// Outcome is the single result of a guard pass.
type Outcome int

const (
	Allow Outcome = iota
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "allow"
	}
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// Decision is what the guard decided for a target route.
type Decision struct {
	Outcome Outcome
	// Redirect is the target path, empty on Allow.
	Redirect string
}

// Guard is total over (route, authenticated): exactly one outcome, no chaining.
func Guard(to Route, authenticated bool) Decision {
	switch {
	case to.RequiresAuth() && !authenticated:
		return Decision{Outcome: RedirectLogin, Redirect: LoginPath}
	case to.RequiresGuest() && authenticated:
		return Decision{Outcome: RedirectHome, Redirect: HomePath}
	default:
		return Decision{Outcome: Allow}
	}
}
