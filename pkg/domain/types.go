package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a JSON object whose shape is owned by the remote API.
// Numbers are kept as json.Number so ids round-trip without float rounding.
type Record map[string]any

// User is the profile returned by login and signup.
type User = Record

// Plan is a travel plan as returned by the plans endpoints.
type Plan = Record

// Favorite is a favorited plan reference.
type Favorite = Record

// ID renders the "id" field as a string. Missing ids yield "".
func (r Record) ID() string {
	if r == nil {
		return ""
	}
	switch v := r["id"].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Clone returns a deep copy of the record. Nested objects and arrays are
// copied so callers cannot reach shared state through them.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		if t == nil {
			return t
		}
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []Record:
		return CloneRecords(t)
	default:
		return v
	}
}

// CloneRecords copies a record slice; nil stays nil.
func CloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// Credentials are posted to auth/login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupData is posted to auth/signup.
type SignupData struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// PlanInput is posted to plans/create.
type PlanInput struct {
	Title       string         `json:"title"`
	Destination string         `json:"destination"`
	StartDate   string         `json:"start_date"`
	EndDate     string         `json:"end_date"`
	Budget      float64        `json:"budget"`
	Preferences map[string]any `json:"preferences"`
	IsPublic    bool           `json:"is_public,omitempty"`
}

// Health is the API liveness payload.
type Health struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// NormalizeID trims an id supplied by a caller (path segment, CLI arg).
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}
