// Package session owns the in-memory view state for the logged-in user
// and applies UI actions as transitions. Qualifying mutations schedule a
// debounced write of the user's slice of state; the write is a
// read-modify-write merge so fields outside the session's remit (notably
// passwordHash) are preserved.
package session

import (
	"fmt"
	"log"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/TehSN/ocd-project/internal/catalog"
	"github.com/TehSN/ocd-project/internal/common"
	"github.com/TehSN/ocd-project/internal/config"
	"github.com/TehSN/ocd-project/internal/state"
	"github.com/TehSN/ocd-project/internal/store"
)

// View identifies which screen is active. The string values are also the
// persisted savedView representation.
type View string

const (
	ViewNoUser           View = "nouser"
	ViewHome             View = "home"
	ViewWorkbench        View = "workbench"
	ViewCollectionDetail View = "collection"
	ViewCollectionsList  View = "collections"
)

// EnlargeOutcome is the result of an EnlargeChart transition.
type EnlargeOutcome string

const (
	// EnlargeOpened means the chart is now (or already was) in the
	// workbench and the view switched to it.
	EnlargeOpened EnlargeOutcome = "opened"
	// EnlargeChoiceRequired means the caller must resolve an Add vs
	// Replace decision before any state changes.
	EnlargeChoiceRequired EnlargeOutcome = "choice"
)

// Session is the view/session state machine. All methods are safe for
// concurrent use; UI callbacks are serialized on the internal mutex.
type Session struct {
	mu      sync.Mutex
	store   *store.Store
	catalog *catalog.Catalog
	window  time.Duration

	initialized bool
	username    string
	view        View

	workbench           []int
	collections         []state.Collection
	isDarkMode          bool
	activeCollectionID  string
	editingCollectionID string

	// pendingChart holds the chart awaiting an Add/Replace decision.
	pendingChart *int

	saveTimer *time.Timer
}

func New(st *store.Store, cat *catalog.Catalog, cfg *config.Config) *Session {
	return &Session{
		store:   st,
		catalog: cat,
		window:  cfg.AutosaveWindow,
		view:    ViewNoUser,
	}
}

// Start seeds the session from the (already migrated) stored state. When
// a resolvable currentUser is set, their last saved view is restored;
// otherwise the session enters NoUser to force explicit selection.
func (s *Session) Start() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true

	st := s.store.LoadState()
	if st.CurrentUser == "" {
		s.view = ViewNoUser
		return s.view
	}
	if _, ok := st.Users[st.CurrentUser]; !ok {
		log.Printf("session: currentUser %q has no record, forcing selection", st.CurrentUser)
		s.view = ViewNoUser
		return s.view
	}
	s.loginLocked(st.CurrentUser)
	return s.view
}

// Login loads the user's fields into session state and enters their saved
// view (default Home). The caller is responsible for authentication.
func (s *Session) Login(username string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.store.LoadState()
	if _, ok := st.Users[username]; !ok {
		return s.view, fmt.Errorf("%w: user %q", common.ErrNotFound, username)
	}
	st.CurrentUser = username
	if !s.store.SaveState(st) {
		log.Printf("session: could not persist currentUser")
	}
	s.loginLocked(username)
	return s.view, nil
}

func (s *Session) loginLocked(username string) {
	rec := s.store.LoadUserState(username)
	s.username = username
	s.workbench = rec.WorkbenchItems
	s.collections = rec.Collections
	s.isDarkMode = rec.IsDarkMode
	s.activeCollectionID = rec.ActiveCollectionID
	s.editingCollectionID = rec.EditingCollectionID
	s.pendingChart = nil
	s.view = restoreView(rec.SavedView)
}

func restoreView(saved string) View {
	switch View(saved) {
	case ViewHome, ViewWorkbench, ViewCollectionDetail, ViewCollectionsList:
		return View(saved)
	default:
		return ViewHome
	}
}

// SwitchUser flushes any pending write, clears currentUser (deleting no
// data) and enters NoUser.
func (s *Session) SwitchUser() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flushLocked()
	st := s.store.LoadState()
	st.CurrentUser = ""
	if !s.store.SaveState(st) {
		log.Printf("session: could not persist logout")
	}

	s.username = ""
	s.workbench = nil
	s.collections = nil
	s.activeCollectionID = ""
	s.editingCollectionID = ""
	s.pendingChart = nil
	s.view = ViewNoUser
	return s.view
}

// CurrentUser returns the logged-in username, or "".
func (s *Session) CurrentUser() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// Snapshot is a copy of the session state handed to the UI layer.
type Snapshot struct {
	Username            string             `json:"username,omitempty"`
	View                View               `json:"view"`
	WorkbenchItems      []int              `json:"workbenchItems"`
	Collections         []state.Collection `json:"collections"`
	IsDarkMode          bool               `json:"isDarkMode"`
	ActiveCollectionID  string             `json:"activeCollectionId,omitempty"`
	EditingCollectionID string             `json:"editingCollectionId,omitempty"`
	PendingChart        *int               `json:"pendingChart,omitempty"`
}

// Snapshot returns a copy of the current session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Username:            s.username,
		View:                s.view,
		WorkbenchItems:      append([]int{}, s.workbench...),
		Collections:         make([]state.Collection, len(s.collections)),
		IsDarkMode:          s.isDarkMode,
		ActiveCollectionID:  s.activeCollectionID,
		EditingCollectionID: s.editingCollectionID,
	}
	for i, c := range s.collections {
		c.Charts = append([]int(nil), c.Charts...)
		snap.Collections[i] = c
	}
	if s.pendingChart != nil {
		id := *s.pendingChart
		snap.PendingChart = &id
	}
	return snap
}

// WorkbenchCharts resolves the workbench to catalog charts, silently
// dropping identifiers the catalog no longer knows.
func (s *Session) WorkbenchCharts() []catalog.Chart {
	s.mu.Lock()
	ids := append([]int{}, s.workbench...)
	s.mu.Unlock()
	return s.catalog.Resolve(ids)
}

// EnlargeChart opens a chart in the workbench. If the chart is already
// open, the view just switches. From Home with a non-empty workbench, no
// state changes yet: the caller gets EnlargeChoiceRequired and must call
// ResolveEnlargeChoice. Otherwise the chart is appended directly.
func (s *Session) EnlargeChart(chartID int) (EnlargeOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUserLocked(); err != nil {
		return "", err
	}
	if _, ok := s.catalog.Lookup(chartID); !ok {
		return "", fmt.Errorf("%w: chart %d", common.ErrNotFound, chartID)
	}

	if containsInt(s.workbench, chartID) {
		s.view = ViewWorkbench
		s.scheduleSaveLocked()
		return EnlargeOpened, nil
	}
	if s.view == ViewHome && len(s.workbench) > 0 {
		id := chartID
		s.pendingChart = &id
		return EnlargeChoiceRequired, nil
	}

	s.workbench = append(s.workbench, chartID)
	s.view = ViewWorkbench
	s.scheduleSaveLocked()
	return EnlargeOpened, nil
}

// ResolveEnlargeChoice applies a pending Add/Replace decision: replace
// swaps the workbench for just the pending chart, add appends it.
func (s *Session) ResolveEnlargeChoice(replace bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pendingChart == nil {
		return fmt.Errorf("%w: no pending chart choice", common.ErrValidation)
	}
	chartID := *s.pendingChart
	s.pendingChart = nil

	if replace {
		s.workbench = []int{chartID}
	} else if !containsInt(s.workbench, chartID) {
		s.workbench = append(s.workbench, chartID)
	}
	s.view = ViewWorkbench
	s.scheduleSaveLocked()
	return nil
}

// CancelEnlargeChoice discards a pending Add/Replace decision.
func (s *Session) CancelEnlargeChoice() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingChart = nil
}

// CloseChart removes a chart from the workbench; the view is unchanged.
func (s *Session) CloseChart(chartID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.workbench[:0]
	for _, id := range s.workbench {
		if id != chartID {
			out = append(out, id)
		}
	}
	s.workbench = out
	s.scheduleSaveLocked()
}

// CloseAllCharts empties the workbench, abandons any collection edit and
// returns Home.
func (s *Session) CloseAllCharts() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workbench = []int{}
	s.editingCollectionID = ""
	s.view = ViewHome
	s.scheduleSaveLocked()
}

// ReorderWorkbench replaces the workbench order. The new order must be a
// permutation of the current items; anything else is rejected with no
// mutation.
func (s *Session) ReorderWorkbench(newOrder []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !samePermutation(s.workbench, newOrder) {
		return fmt.Errorf("%w: new order is not a permutation of the current workbench", common.ErrValidation)
	}
	s.workbench = append([]int{}, newOrder...)
	s.scheduleSaveLocked()
	return nil
}

// SaveCollection saves the current workbench as a collection. While a
// collection is being edited the existing entry is overwritten in place
// (same id, createdAt unchanged); otherwise a new collection is appended.
// Returns the affected collection's id.
func (s *Session) SaveCollection(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUserLocked(); err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: collection name is required", common.ErrValidation)
	}

	now := state.Now()
	if s.editingCollectionID != "" {
		id := s.editingCollectionID
		idx := s.findCollectionLocked(id)
		if idx < 0 {
			// The edited collection was deleted underneath us; fall
			// through and save as new.
			s.editingCollectionID = ""
		} else {
			s.collections[idx].Name = name
			s.collections[idx].Charts = append([]int{}, s.workbench...)
			s.collections[idx].UpdatedAt = now
			s.editingCollectionID = ""
			s.scheduleSaveLocked()
			return id, nil
		}
	}

	col := state.Collection{
		ID:        newCollectionID(),
		Name:      name,
		Charts:    append([]int{}, s.workbench...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.collections = append(s.collections, col)
	s.scheduleSaveLocked()
	return col.ID, nil
}

// OpenCollection shows a collection's detail view. Unknown ids no-op
// defensively.
func (s *Session) OpenCollection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findCollectionLocked(id) < 0 {
		return
	}
	s.activeCollectionID = id
	s.view = ViewCollectionDetail
	s.scheduleSaveLocked()
}

// EditCollection loads a collection's charts into the workbench (a copy,
// not an alias) and marks it as being edited.
func (s *Session) EditCollection(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findCollectionLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: collection %q", common.ErrNotFound, id)
	}
	s.workbench = append([]int{}, s.collections[idx].Charts...)
	s.activeCollectionID = ""
	s.editingCollectionID = id
	s.view = ViewWorkbench
	s.scheduleSaveLocked()
	return nil
}

// RenameCollection updates a collection's name; no view change.
func (s *Session) RenameCollection(id, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if newName == "" {
		return fmt.Errorf("%w: collection name is required", common.ErrValidation)
	}
	idx := s.findCollectionLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: collection %q", common.ErrNotFound, id)
	}
	s.collections[idx].Name = newName
	s.collections[idx].UpdatedAt = state.Now()
	s.scheduleSaveLocked()
	return nil
}

// DeleteCollection removes a collection. If it was the active one, the
// view falls back Home.
func (s *Session) DeleteCollection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.findCollectionLocked(id)
	if idx < 0 {
		return
	}
	s.collections = append(s.collections[:idx], s.collections[idx+1:]...)
	if s.editingCollectionID == id {
		s.editingCollectionID = ""
	}
	if s.activeCollectionID == id {
		s.activeCollectionID = ""
		s.view = ViewHome
	}
	s.scheduleSaveLocked()
}

// AddChartToCollection appends a chart to a collection, suppressing
// duplicates.
func (s *Session) AddChartToCollection(chartID int, collectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.catalog.Lookup(chartID); !ok {
		return fmt.Errorf("%w: chart %d", common.ErrNotFound, chartID)
	}
	idx := s.findCollectionLocked(collectionID)
	if idx < 0 {
		return fmt.Errorf("%w: collection %q", common.ErrNotFound, collectionID)
	}
	if containsInt(s.collections[idx].Charts, chartID) {
		return nil
	}
	s.collections[idx].Charts = append(s.collections[idx].Charts, chartID)
	s.collections[idx].UpdatedAt = state.Now()
	s.scheduleSaveLocked()
	return nil
}

// CreateCollectionWithChart creates a new collection seeded with a single
// chart. Returns the new collection's id.
func (s *Session) CreateCollectionWithChart(chartID int, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireUserLocked(); err != nil {
		return "", err
	}
	if name == "" {
		return "", fmt.Errorf("%w: collection name is required", common.ErrValidation)
	}
	if _, ok := s.catalog.Lookup(chartID); !ok {
		return "", fmt.Errorf("%w: chart %d", common.ErrNotFound, chartID)
	}

	now := state.Now()
	col := state.Collection{
		ID:        newCollectionID(),
		Name:      name,
		Charts:    []int{chartID},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.collections = append(s.collections, col)
	s.scheduleSaveLocked()
	return col.ID, nil
}

// NavigateHome / NavigateCollections switch the plain list views.
func (s *Session) NavigateHome() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeCollectionID = ""
	s.view = ViewHome
	s.scheduleSaveLocked()
}

func (s *Session) NavigateCollections() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ViewCollectionsList
	s.scheduleSaveLocked()
}

func (s *Session) NavigateWorkbench() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = ViewWorkbench
	s.scheduleSaveLocked()
}

// ToggleTheme flips the dark-mode preference. With a user logged in the
// per-user flag flips; otherwise the cross-user default does.
func (s *Session) ToggleTheme() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.username == "" {
		st := s.store.LoadState()
		st.GlobalSettings.IsDarkMode = !st.GlobalSettings.IsDarkMode
		s.store.SaveState(st)
		s.isDarkMode = st.GlobalSettings.IsDarkMode
		return s.isDarkMode
	}
	s.isDarkMode = !s.isDarkMode
	s.scheduleSaveLocked()
	return s.isDarkMode
}

// Flush writes any pending user-state change immediately. Used on user
// switch and shutdown.
func (s *Session) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// scheduleSaveLocked (re)arms the debounced write. Each qualifying change
// cancels any pending write and starts a new quiescence window, so only
// the latest state is written. No write is scheduled before initial load
// completes or while no user is logged in.
func (s *Session) scheduleSaveLocked() {
	if !s.initialized || s.username == "" {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.window, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.persistLocked()
	})
}

func (s *Session) flushLocked() {
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
	if s.username == "" {
		return
	}
	s.persistLocked()
}

// persistLocked merges the session-owned fields into the user's stored
// record. Read-modify-write: fields outside this set, notably
// passwordHash, are preserved.
func (s *Session) persistLocked() {
	if s.username == "" {
		return
	}
	rec := s.store.LoadUserState(s.username)
	rec.Collections = make([]state.Collection, len(s.collections))
	for i, c := range s.collections {
		c.Charts = append([]int(nil), c.Charts...)
		rec.Collections[i] = c
	}
	rec.WorkbenchItems = append([]int{}, s.workbench...)
	rec.IsDarkMode = s.isDarkMode
	rec.SavedView = string(s.view)
	rec.ActiveCollectionID = s.activeCollectionID
	rec.EditingCollectionID = s.editingCollectionID
	if !s.store.SaveUserState(s.username, rec) {
		log.Printf("session: autosave failed for %s; change may be lost on reload", s.username)
	}
}

func (s *Session) requireUserLocked() error {
	if s.username == "" {
		return fmt.Errorf("%w: no user logged in", common.ErrUnauthorized)
	}
	return nil
}

func (s *Session) findCollectionLocked(id string) int {
	for i, c := range s.collections {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func samePermutation(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]int{}, a...)
	bs := append([]int{}, b...)
	sort.Ints(as)
	sort.Ints(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// newCollectionID returns a time-based id: millisecond timestamp plus a
// short random suffix so ids stay unique within the same millisecond.
func newCollectionID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + strconv.FormatInt(rand.Int63n(1<<20), 36)
}
