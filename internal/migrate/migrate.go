// Package migrate evolves a stored application state from whatever schema
// version it was last saved at up to the latest known schema. Migrations
// operate on the raw decoded JSON map rather than the typed model, because
// pre-multi-user blobs carry fields the current structs no longer have.
package migrate

import (
	"log"
	"strconv"
	"strings"

	"github.com/TehSN/ocd-project/internal/state"
	"github.com/TehSN/ocd-project/internal/store"
)

// FallbackUser is the roster member that receives legacy single-profile
// data during the multi-user migration. This is deliberate baked-in
// policy, not inferable from data; do not extend it to new migrations
// without an equally explicit rule.
const FallbackUser = "Pantelis"

// legacyPlaceholderUser is the username the originally shipped multi-user
// migration created records under. Retired; the repair migration folds it
// into FallbackUser.
const legacyPlaceholderUser = "DefaultUser"

// Migration is one step in the ordered schema table.
type Migration struct {
	Version     string
	Description string
	Transform   func(data map[string]any) (map[string]any, error)
}

// Table is the ordered migration table. Versions strictly ascend.
var Table = []Migration{
	{
		Version:     "1.0.0",
		Description: "baseline structure",
		Transform:   migrateBaseline,
	},
	{
		Version:     "1.1.0",
		Description: "multi-user model",
		Transform:   migrateMultiUser,
	},
	{
		Version:     "1.2.0",
		Description: "placeholder user repair",
		Transform:   migratePlaceholderRepair,
	},
}

// Latest returns the highest version in the table.
func Latest() string {
	return Table[len(Table)-1].Version
}

// CompareVersions compares dot-separated numeric versions; missing
// components count as 0. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	ap := strings.Split(a, ".")
	bp := strings.Split(b, ".")
	n := len(ap)
	if len(bp) > n {
		n = len(bp)
	}
	for i := 0; i < n; i++ {
		av, bv := 0, 0
		if i < len(ap) {
			av, _ = strconv.Atoi(ap[i])
		}
		if i < len(bp) {
			bv, _ = strconv.Atoi(bp[i])
		}
		if av < bv {
			return -1
		}
		if av > bv {
			return 1
		}
	}
	return 0
}

// Apply folds the table's migrations over data, oldest applicable step
// first, stamping schemaVersion after each successful step. A failing
// step halts the fold and keeps the partial progress: partial migration
// beats total data loss. Already-current data is returned unchanged.
func Apply(data map[string]any) (map[string]any, int) {
	return applyTable(Table, data)
}

func applyTable(table []Migration, data map[string]any) (map[string]any, int) {
	from := "0.0.0"
	if v, ok := data["schemaVersion"].(string); ok && v != "" {
		from = v
	}
	latest := table[len(table)-1].Version
	if CompareVersions(from, latest) >= 0 {
		return data, 0
	}

	log.Printf("migrate: upgrading state from v%s to v%s", from, latest)
	applied := 0
	for _, m := range table {
		if CompareVersions(m.Version, from) <= 0 {
			continue
		}
		out, err := m.Transform(data)
		if err != nil {
			log.Printf("migrate: step v%s (%s) failed, keeping partial progress: %v", m.Version, m.Description, err)
			break
		}
		data = out
		data["schemaVersion"] = m.Version
		applied++
		log.Printf("migrate: applied v%s (%s)", m.Version, m.Description)
	}
	return data, applied
}

// Run loads the stored blob, migrates it and persists the result when any
// step applied. Safe to call on every startup; current data is a no-op.
// Returns the number of steps applied.
func Run(s *store.Store) int {
	data := s.LoadRaw()
	data, applied := Apply(data)
	if applied == 0 {
		return 0
	}
	if !s.SaveRaw(data) {
		log.Printf("migrate: failed to persist migrated state")
	}
	return applied
}

// migrateBaseline ensures users, currentUser and globalSettings exist
// with defaults.
func migrateBaseline(data map[string]any) (map[string]any, error) {
	if _, ok := data["users"].(map[string]any); !ok {
		data["users"] = map[string]any{}
	}
	if _, ok := data["currentUser"]; !ok {
		data["currentUser"] = nil
	}
	gs, _ := data["globalSettings"].(map[string]any)
	if gs == nil {
		gs = map[string]any{}
	}
	if _, ok := gs["isDarkMode"]; !ok {
		gs["isDarkMode"] = true
	}
	data["globalSettings"] = gs
	return data, nil
}

// migrateMultiUser folds the legacy single-profile fields (a flat
// collection list and a flat workbench state) into a record for
// FallbackUser, tags it as migrated and clears currentUser so the next
// start forces explicit user selection. The originals are retained under
// legacyDataBackup.
func migrateMultiUser(data map[string]any) (map[string]any, error) {
	tempCollections, _ := data["tempCollections"].([]any)
	tempWorkbench, _ := data["tempWorkbench"].(map[string]any)

	var workbenchItems []any
	if tempWorkbench != nil {
		workbenchItems, _ = tempWorkbench["items"].([]any)
	}

	if len(tempCollections) == 0 && len(workbenchItems) == 0 {
		// Nothing to fold; the blob either predates collections entirely
		// or was already born multi-user.
		delete(data, "tempCollections")
		delete(data, "tempWorkbench")
		return data, nil
	}

	users, _ := data["users"].(map[string]any)
	if users == nil {
		users = map[string]any{}
		data["users"] = users
	}

	if _, exists := users[FallbackUser]; !exists {
		now := state.Now()
		rec := map[string]any{
			"collections":    []any{},
			"workbenchItems": []any{},
			"isDarkMode":     true,
			"preferences":    map[string]any{},
			"createdAt":      now,
			"lastLogin":      now,
			"isMigrated":     true,
		}
		if tempCollections != nil {
			rec["collections"] = tempCollections
		}
		if workbenchItems != nil {
			rec["workbenchItems"] = workbenchItems
		}
		if tempWorkbench != nil {
			if v, ok := tempWorkbench["currentView"].(string); ok && v != "" {
				rec["savedView"] = v
			}
			if v, ok := tempWorkbench["activeCollectionId"]; ok {
				rec["activeCollectionId"] = v
			}
			if v, ok := tempWorkbench["editingCollectionId"]; ok {
				rec["editingCollectionId"] = v
			}
		}
		users[FallbackUser] = rec
	}

	backup := map[string]any{"migratedAt": state.Now()}
	if tempCollections != nil {
		backup["tempCollections"] = tempCollections
	}
	if tempWorkbench != nil {
		backup["tempWorkbench"] = tempWorkbench
	}
	data["legacyDataBackup"] = backup
	delete(data, "tempCollections")
	delete(data, "tempWorkbench")

	// Force explicit user selection on next start.
	data["currentUser"] = nil
	return data, nil
}

// migratePlaceholderRepair merges any record created under the retired
// placeholder username into FallbackUser's record. An existing password
// on the target wins over the placeholder's.
func migratePlaceholderRepair(data map[string]any) (map[string]any, error) {
	users, _ := data["users"].(map[string]any)
	if users == nil {
		return data, nil
	}
	placeholder, ok := users[legacyPlaceholderUser].(map[string]any)
	if !ok {
		return data, nil
	}

	target, _ := users[FallbackUser].(map[string]any)
	if target == nil {
		users[FallbackUser] = placeholder
	} else {
		for k, v := range placeholder {
			switch k {
			case "passwordHash":
				if s, _ := target[k].(string); s == "" {
					target[k] = v
				}
			case "collections":
				existing, _ := target[k].([]any)
				extra, _ := v.([]any)
				target[k] = appendMissingCollections(existing, extra)
			case "workbenchItems":
				if existing, _ := target[k].([]any); len(existing) == 0 {
					target[k] = v
				}
			default:
				if _, has := target[k]; !has {
					target[k] = v
				}
			}
		}
		target["isMigrated"] = true
	}

	delete(users, legacyPlaceholderUser)
	data["currentUser"] = nil
	return data, nil
}

// appendMissingCollections appends collections from extra whose ids are
// not already present in existing.
func appendMissingCollections(existing, extra []any) []any {
	seen := map[string]bool{}
	for _, c := range existing {
		if m, ok := c.(map[string]any); ok {
			if id, ok := m["id"].(string); ok {
				seen[id] = true
			}
		}
	}
	out := existing
	for _, c := range extra {
		if m, ok := c.(map[string]any); ok {
			if id, ok := m["id"].(string); ok && seen[id] {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}
