// Package state defines the persisted application state: the root AppState
// blob, per-user records and saved collections. The JSON layout matches the
// blobs written by earlier releases, so stored data keeps loading unchanged.
package state

import "time"

// GlobalSettings holds cross-user defaults.
type GlobalSettings struct {
	IsDarkMode bool `json:"isDarkMode"`
}

// Collection is a named, saved snapshot of chart identifiers a user can
// reopen later, independent of the live workbench.
type Collection struct {
	// ID is time-based, generated at creation and never reused.
	ID        string `json:"id"`
	Name      string `json:"name"`
	Charts    []int  `json:"charts"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// UserRecord is the persisted per-user slice of application state.
type UserRecord struct {
	// PasswordHash is empty when the user has never set a password; they
	// must set one before first login.
	PasswordHash string `json:"passwordHash,omitempty"`

	Collections    []Collection `json:"collections"`
	WorkbenchItems []int        `json:"workbenchItems"`
	IsDarkMode     bool         `json:"isDarkMode"`

	// Resumable UI state: a reload restores the user to where they left off.
	SavedView           string `json:"savedView,omitempty"`
	ActiveCollectionID  string `json:"activeCollectionId,omitempty"`
	EditingCollectionID string `json:"editingCollectionId,omitempty"`

	Preferences map[string]any `json:"preferences"`

	CreatedAt   string `json:"createdAt"`
	LastLogin   string `json:"lastLogin"`
	LastUpdated string `json:"lastUpdated,omitempty"`

	// IsMigrated marks records whose data originated from the
	// pre-user-system schema.
	IsMigrated bool `json:"isMigrated,omitempty"`
}

// AppState is the root persisted object, stored as a single namespaced blob.
type AppState struct {
	SchemaVersion  string                `json:"schemaVersion"`
	Users          map[string]UserRecord `json:"users"`
	CurrentUser    string                `json:"currentUser,omitempty"`
	GlobalSettings GlobalSettings        `json:"globalSettings"`
	LastSaved      string                `json:"lastSaved,omitempty"`

	// LegacyDataBackup retains pre-migration fields instead of deleting
	// them outright; see the multi-user migration.
	LegacyDataBackup map[string]any `json:"legacyDataBackup,omitempty"`
}

// Now returns the current UTC time in the ISO-8601 format used throughout
// the persisted state.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// DefaultAppState returns a fresh state for first run.
func DefaultAppState() AppState {
	return AppState{
		Users:          map[string]UserRecord{},
		GlobalSettings: GlobalSettings{IsDarkMode: true},
	}
}

// DefaultUserRecord returns a new user record with full defaults.
func DefaultUserRecord() UserRecord {
	now := Now()
	return UserRecord{
		Collections:    []Collection{},
		WorkbenchItems: []int{},
		IsDarkMode:     true,
		Preferences:    map[string]any{},
		CreatedAt:      now,
		LastLogin:      now,
	}
}

// Normalize backfills nil maps and slices after a JSON round-trip so
// callers never see nil where the defaults promise empty.
func (s *AppState) Normalize() {
	if s.Users == nil {
		s.Users = map[string]UserRecord{}
	}
	for name, rec := range s.Users {
		rec.normalize()
		s.Users[name] = rec
	}
}

func (r *UserRecord) normalize() {
	if r.Collections == nil {
		r.Collections = []Collection{}
	}
	if r.WorkbenchItems == nil {
		r.WorkbenchItems = []int{}
	}
	if r.Preferences == nil {
		r.Preferences = map[string]any{}
	}
	for i := range r.Collections {
		if r.Collections[i].Charts == nil {
			r.Collections[i].Charts = []int{}
		}
	}
}

// Clone returns a deep copy of the record. Sessions hold copies so
// in-memory edits never alias persisted slices.
func (r UserRecord) Clone() UserRecord {
	out := r
	out.WorkbenchItems = append([]int(nil), r.WorkbenchItems...)
	out.Collections = make([]Collection, len(r.Collections))
	for i, c := range r.Collections {
		c.Charts = append([]int(nil), c.Charts...)
		out.Collections[i] = c
	}
	out.Preferences = make(map[string]any, len(r.Preferences))
	for k, v := range r.Preferences {
		out.Preferences[k] = v
	}
	return out
}
