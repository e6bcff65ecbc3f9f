package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TehSN/ocd-project/internal/state"
)

const testNS = "test-app-data"

func newTestStore() (*Store, *MemoryBlob) {
	blob := NewMemoryBlob()
	return New(blob, testNS), blob
}

func TestLoadStateDefaultsWhenEmpty(t *testing.T) {
	s, _ := newTestStore()
	st := s.LoadState()
	assert.NotNil(t, st.Users)
	assert.Empty(t, st.Users)
	assert.True(t, st.GlobalSettings.IsDarkMode)
	assert.Empty(t, st.CurrentUser)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, _ := newTestStore()

	st := state.DefaultAppState()
	rec := state.DefaultUserRecord()
	rec.WorkbenchItems = []int{3, 1}
	rec.Collections = []state.Collection{{ID: "c1", Name: "Favs", Charts: []int{1}}}
	st.Users["Harry"] = rec
	st.CurrentUser = "Harry"

	require.True(t, s.SaveState(st))

	got := s.LoadState()
	assert.Equal(t, "Harry", got.CurrentUser)
	assert.Equal(t, []int{3, 1}, got.Users["Harry"].WorkbenchItems)
	require.Len(t, got.Users["Harry"].Collections, 1)
	assert.Equal(t, "Favs", got.Users["Harry"].Collections[0].Name)
	assert.NotEmpty(t, got.LastSaved, "saving stamps lastSaved")
}

func TestLoadStateGarbageResetsToDefaults(t *testing.T) {
	s, blob := newTestStore()
	require.NoError(t, blob.Write(testNS, []byte("{not json")))

	st := s.LoadState()
	assert.Empty(t, st.Users)
	assert.True(t, st.GlobalSettings.IsDarkMode)
}

func TestLoadStateMergesOverDefaults(t *testing.T) {
	s, blob := newTestStore()
	// A blob missing most top-level keys still loads with defaults filled in.
	require.NoError(t, blob.Write(testNS, []byte(`{"currentUser":"Alexei"}`)))

	st := s.LoadState()
	assert.Equal(t, "Alexei", st.CurrentUser)
	assert.NotNil(t, st.Users)
	assert.True(t, st.GlobalSettings.IsDarkMode)
}

func TestLoadStateReadErrorFallsBack(t *testing.T) {
	s, blob := newTestStore()
	blob.ReadErr = errors.New("disk gone")
	st := s.LoadState()
	assert.Empty(t, st.Users)
}

func TestSaveStateReportsFailure(t *testing.T) {
	s, blob := newTestStore()
	blob.WriteErr = errors.New("disk full")
	assert.False(t, s.SaveState(state.DefaultAppState()))
}

func TestLoadRaw(t *testing.T) {
	s, blob := newTestStore()
	assert.Empty(t, s.LoadRaw(), "absent blob decodes to an empty map")

	require.NoError(t, blob.Write(testNS, []byte(`{"schemaVersion":"1.0.0","tempCollections":[]}`)))
	m := s.LoadRaw()
	assert.Equal(t, "1.0.0", m["schemaVersion"])
	assert.Contains(t, m, "tempCollections", "legacy keys survive the raw load")
}

func TestSaveRawStampsLastSaved(t *testing.T) {
	s, _ := newTestStore()
	require.True(t, s.SaveRaw(map[string]any{"schemaVersion": "1.2.0"}))
	m := s.LoadRaw()
	assert.Equal(t, "1.2.0", m["schemaVersion"])
	assert.NotEmpty(t, m["lastSaved"])
}

func TestLoadUserStateUnknownUserGetsDefaults(t *testing.T) {
	s, _ := newTestStore()
	rec := s.LoadUserState("Nobody")
	assert.Empty(t, rec.PasswordHash)
	assert.Empty(t, rec.WorkbenchItems)
	assert.True(t, rec.IsDarkMode)
	assert.NotEmpty(t, rec.CreatedAt)
}

func TestSaveUserState(t *testing.T) {
	s, _ := newTestStore()

	rec := state.DefaultUserRecord()
	rec.PasswordHash = "hash"
	rec.WorkbenchItems = []int{5}
	require.True(t, s.SaveUserState("Pantelis", rec))

	got := s.LoadUserState("Pantelis")
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Equal(t, []int{5}, got.WorkbenchItems)
	assert.NotEmpty(t, got.LastUpdated)

	assert.False(t, s.SaveUserState("", rec), "empty username is rejected")
}

func TestSaveUserStatePreservesOtherUsers(t *testing.T) {
	s, _ := newTestStore()

	a := state.DefaultUserRecord()
	a.PasswordHash = "a-hash"
	require.True(t, s.SaveUserState("Alexei", a))

	b := state.DefaultUserRecord()
	b.PasswordHash = "b-hash"
	require.True(t, s.SaveUserState("Harry", b))

	st := s.LoadState()
	assert.Len(t, st.Users, 2)
	assert.Equal(t, "a-hash", st.Users["Alexei"].PasswordHash)
}

func TestIsAvailable(t *testing.T) {
	s, blob := newTestStore()
	assert.True(t, s.IsAvailable())
	_, ok, _ := blob.Read(testNS + "__probe__")
	assert.False(t, ok, "probe key is cleaned up")

	blob.WriteErr = errors.New("read-only")
	assert.False(t, s.IsAvailable())
}

func TestClearAllAndStorageInfo(t *testing.T) {
	s, _ := newTestStore()
	assert.Equal(t, Info{}, s.StorageInfo())

	st := state.DefaultAppState()
	st.Users["Harry"] = state.DefaultUserRecord()
	st.Users["Alexei"] = state.DefaultUserRecord()
	require.True(t, s.SaveState(st))

	info := s.StorageInfo()
	assert.True(t, info.HasData)
	assert.Equal(t, 2, info.UserCount)
	assert.Greater(t, info.SizeBytes, 0)

	require.True(t, s.ClearAll())
	assert.Equal(t, Info{}, s.StorageInfo())
}
