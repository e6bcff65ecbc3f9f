// Package store is the single point of read/write for the persisted
// application state: one namespaced JSON blob with defensive defaulting.
// All storage failures are non-fatal; callers get defaults or a false
// return, never a panic or an error they must not ignore.
package store

import (
	"encoding/json"
	"log"

	"github.com/TehSN/ocd-project/internal/state"
)

// Store reads and writes the application state through a Blob substrate.
// It is passed by handle to every component needing persistence so tests
// can swap in a MemoryBlob.
type Store struct {
	blob      Blob
	namespace string
}

func New(blob Blob, namespace string) *Store {
	return &Store{blob: blob, namespace: namespace}
}

// LoadState reads the namespaced entry. If it is absent, unreadable or not
// a well-formed object, a fresh default state is returned; stored fields
// are merged over defaults so missing top-level keys are backfilled.
func (s *Store) LoadState() state.AppState {
	raw, ok, err := s.blob.Read(s.namespace)
	if err != nil {
		log.Printf("store: load failed, using defaults: %v", err)
		return state.DefaultAppState()
	}
	if !ok {
		return state.DefaultAppState()
	}

	st := state.DefaultAppState()
	if err := json.Unmarshal(raw, &st); err != nil {
		log.Printf("store: invalid stored state, resetting to defaults: %v", err)
		return state.DefaultAppState()
	}
	st.Normalize()
	return st
}

// SaveState serializes the full state back to the namespaced entry,
// stamping lastSaved. Returns false on any write failure; no retry is
// attempted.
func (s *Store) SaveState(st state.AppState) bool {
	st.LastSaved = state.Now()
	raw, err := json.Marshal(st)
	if err != nil {
		log.Printf("store: marshal failed: %v", err)
		return false
	}
	if err := s.blob.Write(s.namespace, raw); err != nil {
		log.Printf("store: save failed: %v", err)
		return false
	}
	return true
}

// LoadRaw returns the stored blob decoded as a generic JSON map, for the
// migration engine, which must see legacy fields the typed model no
// longer carries. Absent or malformed data yields an empty map.
func (s *Store) LoadRaw() map[string]any {
	raw, ok, err := s.blob.Read(s.namespace)
	if err != nil || !ok {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// SaveRaw writes a generic JSON map back to the namespaced entry,
// stamping lastSaved. Used by the migration engine to persist its result.
func (s *Store) SaveRaw(m map[string]any) bool {
	m["lastSaved"] = state.Now()
	raw, err := json.Marshal(m)
	if err != nil {
		log.Printf("store: marshal failed: %v", err)
		return false
	}
	if err := s.blob.Write(s.namespace, raw); err != nil {
		log.Printf("store: save failed: %v", err)
		return false
	}
	return true
}

// LoadUserState returns the record for username merged over defaults.
// Unknown users get a fresh default record.
func (s *Store) LoadUserState(username string) state.UserRecord {
	st := s.LoadState()
	rec, ok := st.Users[username]
	if username == "" || !ok {
		return state.DefaultUserRecord()
	}
	return rec.Clone()
}

// SaveUserState merges a single user record into the full state and
// writes it back, stamping lastUpdated on the record.
func (s *Store) SaveUserState(username string, rec state.UserRecord) bool {
	if username == "" {
		log.Printf("store: cannot save user state without a username")
		return false
	}
	st := s.LoadState()
	rec.LastUpdated = state.Now()
	st.Users[username] = rec
	return s.SaveState(st)
}

// IsAvailable probes whether the substrate is writable at all, by writing
// and deleting a sentinel key. Used once at startup to decide whether to
// run in memory-only degraded mode.
func (s *Store) IsAvailable() bool {
	probe := s.namespace + "__probe__"
	if err := s.blob.Write(probe, []byte(`"ok"`)); err != nil {
		log.Printf("store: substrate not writable: %v", err)
		return false
	}
	if err := s.blob.Delete(probe); err != nil {
		log.Printf("store: probe cleanup failed: %v", err)
	}
	return true
}

// ClearAll removes the namespaced entry entirely.
func (s *Store) ClearAll() bool {
	if err := s.blob.Delete(s.namespace); err != nil {
		log.Printf("store: clear failed: %v", err)
		return false
	}
	return true
}

// Info describes the stored blob for the status page.
type Info struct {
	SizeBytes int  `json:"sizeBytes"`
	HasData   bool `json:"hasData"`
	UserCount int  `json:"userCount"`
}

// StorageInfo reports size and user count of the stored blob.
func (s *Store) StorageInfo() Info {
	raw, ok, err := s.blob.Read(s.namespace)
	if err != nil || !ok {
		return Info{}
	}
	st := s.LoadState()
	return Info{SizeBytes: len(raw), HasData: true, UserCount: len(st.Users)}
}
