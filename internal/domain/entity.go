// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// Activity is one stored interval of time spent in a single window.
// An interval never spans an idle/active transition.
type Activity struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Application string    `json:"application"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsBrowser   bool      `json:"is_browser"`
	URL         *string   `json:"url"` // Always nil: tab-level tracking is not implemented
	IsIdle      bool      `json:"is_idle"`
}

// DurationSeconds returns the interval length truncated to whole seconds.
func (a Activity) DurationSeconds() int64 {
	return int64(a.EndTime.Sub(a.StartTime) / time.Second)
}

// MergeResult reports what MergeOrInsert did with an observation.
type MergeResult struct {
	ID     int64
	Merged bool // true: an existing interval was extended; false: a new row was inserted
}

// Category groups applications and decides whether their time is productive.
type Category struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	IsProductive bool   `json:"is_productive"`
}

// AppCategory maps one application name to a category id.
type AppCategory struct {
	AppName    string `json:"app_name"`
	CategoryID string `json:"category_id"`
}

// CategorySnapshot is a consistent copy of the category directory.
type CategorySnapshot struct {
	Categories       []Category
	AppCategories    map[string]string // app name -> category id
	DailyGoalMinutes int64
}

// Lookup returns the category of an application, or nil when it is
// uncategorized or mapped to a category that no longer exists.
func (s CategorySnapshot) Lookup(app string) *Category {
	id, ok := s.AppCategories[app]
	if !ok {
		return nil
	}
	for i := range s.Categories {
		if s.Categories[i].ID == id {
			c := s.Categories[i]
			return &c
		}
	}
	return nil
}

// Window is the foreground window reported by the platform.
type Window struct {
	Title       string
	Application string
	PID         int
}

// InputSignature identifies the user-input state at one instant.
// Two equal signatures mean no input happened between them.
type InputSignature struct {
	X    int
	Y    int
	Keys []string // Currently pressed keys, order-insensitive
}

// Equal reports whether both signatures describe the same input state.
func (s InputSignature) Equal(other InputSignature) bool {
	if s.X != other.X || s.Y != other.Y || len(s.Keys) != len(other.Keys) {
		return false
	}
	seen := make(map[string]int, len(s.Keys))
	for _, k := range s.Keys {
		seen[k]++
	}
	for _, k := range other.Keys {
		if seen[k] == 0 {
			return false
		}
		seen[k]--
	}
	return true
}

// AppStats is the per-application breakdown within a stats range.
type AppStats struct {
	Application   string     `json:"application"`
	TotalDuration int64      `json:"total_duration"` // seconds
	IdleDuration  int64      `json:"idle_duration"`  // seconds
	Category      *Category  `json:"category"`
	Activities    []Activity `json:"activities"`
}

// Stats aggregates every interval contained in [Start, End].
type Stats struct {
	Start             time.Time  `json:"start"`
	End               time.Time  `json:"end"`
	TotalTime         int64      `json:"total_time"`      // seconds
	IdleTime          int64      `json:"idle_time"`       // seconds
	ProductiveTime    int64      `json:"productive_time"` // seconds, idle excluded
	ProductiveMinutes int64      `json:"productive_minutes"`
	DailyGoalMinutes  int64      `json:"daily_goal_minutes"`
	GoalPercentage    int64      `json:"goal_percentage"`
	TopApplications   []AppStats `json:"top_applications"` // at most 5, by total desc
	Activities        []Activity `json:"activities"`
}

// TodaySummary is the compact view shown in the tray and dashboard.
type TodaySummary struct {
	TrackedSeconds    int64     `json:"tracked_seconds"`
	ProductiveSeconds int64     `json:"productive_seconds"`
	GoalPercentage    int64     `json:"goal_percentage"`
	Title             string    `json:"title"`
	TrackedLabel      string    `json:"tracked_label"`
	ProductiveLabel   string    `json:"productive_label"`
	ProgressBar       string    `json:"progress_bar"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DaemonInfo is the registry record of the running tracker process.
// Persisted to a JSON file so CLI invocations can find the daemon.
type DaemonInfo struct {
	PID           int       `json:"pid"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat int64     `json:"last_heartbeat"`
	APIAddr       string    `json:"api_addr,omitempty"`
	Version       string    `json:"version,omitempty"`
}
