package migrate

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TehSN/ocd-project/internal/store"
)

func TestCompareVersions(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.1.0", -1},
		{"1.2.0", "1.1.0", 1},
		{"1.0", "1.0.0", 0},
		{"1", "1.0.1", -1},
		{"2", "1.9.9", 1},
		{"0.0.0", "1.0.0", -1},
		{"1.10.0", "1.9.0", 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, CompareVersions(c.a, c.b), "%s vs %s", c.a, c.b)
	}
}

func TestApplyFreshState(t *testing.T) {
	out, applied := Apply(map[string]any{})

	assert.Equal(t, len(Table), applied)
	assert.Equal(t, Latest(), out["schemaVersion"])

	users, ok := out["users"].(map[string]any)
	require.True(t, ok)
	assert.Empty(t, users, "fresh state must not invent user records")

	gs, ok := out["globalSettings"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, gs["isDarkMode"])
	assert.Nil(t, out["currentUser"])
}

func TestApplyCurrentStateIsNoOp(t *testing.T) {
	in := map[string]any{
		"schemaVersion": Latest(),
		"users":         map[string]any{"Harry": map[string]any{}},
	}
	out, applied := Apply(in)
	assert.Zero(t, applied)
	assert.Equal(t, in, out)
}

func TestApplyFutureVersionLeftAlone(t *testing.T) {
	in := map[string]any{"schemaVersion": "9.0.0"}
	out, applied := Apply(in)
	assert.Zero(t, applied)
	assert.Equal(t, "9.0.0", out["schemaVersion"])
}

func TestMultiUserFold(t *testing.T) {
	collections := []any{
		map[string]any{"id": "c1", "name": "Favourites", "charts": []any{float64(1), float64(3)}},
	}
	in := map[string]any{
		"tempCollections": collections,
		"tempWorkbench": map[string]any{
			"items":              []any{float64(2)},
			"currentView":        "workbench",
			"activeCollectionId": nil,
		},
	}

	out, applied := Apply(in)
	assert.Equal(t, len(Table), applied)

	users := out["users"].(map[string]any)
	rec, ok := users[FallbackUser].(map[string]any)
	require.True(t, ok, "legacy data must fold into the fallback user")
	assert.Equal(t, collections, rec["collections"])
	assert.Equal(t, []any{float64(2)}, rec["workbenchItems"])
	assert.Equal(t, "workbench", rec["savedView"])
	assert.Equal(t, true, rec["isMigrated"])

	backup, ok := out["legacyDataBackup"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, collections, backup["tempCollections"])
	assert.NotEmpty(t, backup["migratedAt"])

	assert.Nil(t, out["currentUser"], "migration must force user re-selection")
	assert.NotContains(t, out, "tempCollections")
	assert.NotContains(t, out, "tempWorkbench")
}

func TestMultiUserFoldEmptyLegacyDropsTempKeys(t *testing.T) {
	in := map[string]any{
		"tempCollections": []any{},
		"tempWorkbench":   map[string]any{"items": []any{}},
	}
	out, _ := Apply(in)

	users := out["users"].(map[string]any)
	assert.NotContains(t, users, FallbackUser)
	assert.NotContains(t, out, "tempCollections")
	assert.NotContains(t, out, "tempWorkbench")
	assert.NotContains(t, out, "legacyDataBackup")
}

func TestMultiUserFoldKeepsExistingFallbackRecord(t *testing.T) {
	in := map[string]any{
		"users": map[string]any{
			FallbackUser: map[string]any{"passwordHash": "existing"},
		},
		"tempCollections": []any{map[string]any{"id": "c1"}},
	}
	out, _ := Apply(in)

	rec := out["users"].(map[string]any)[FallbackUser].(map[string]any)
	assert.Equal(t, "existing", rec["passwordHash"],
		"an existing record must not be overwritten by the fold")
}

func TestPlaceholderRepairMergesIntoFallback(t *testing.T) {
	in := map[string]any{
		"schemaVersion": "1.1.0",
		"users": map[string]any{
			FallbackUser: map[string]any{
				"passwordHash": "target-hash",
				"collections": []any{
					map[string]any{"id": "c1", "name": "Kept"},
				},
			},
			"DefaultUser": map[string]any{
				"passwordHash": "placeholder-hash",
				"collections": []any{
					map[string]any{"id": "c1", "name": "Duplicate"},
					map[string]any{"id": "c2", "name": "New"},
				},
				"workbenchItems": []any{float64(4)},
			},
		},
	}

	out, applied := Apply(in)
	assert.Equal(t, 1, applied)

	users := out["users"].(map[string]any)
	assert.NotContains(t, users, "DefaultUser")

	rec := users[FallbackUser].(map[string]any)
	assert.Equal(t, "target-hash", rec["passwordHash"], "target password wins")
	assert.Equal(t, []any{float64(4)}, rec["workbenchItems"])

	cols := rec["collections"].([]any)
	require.Len(t, cols, 2)
	assert.Equal(t, "Kept", cols[0].(map[string]any)["name"])
	assert.Equal(t, "c2", cols[1].(map[string]any)["id"])
}

func TestPlaceholderRepairAdoptsRecordWhenNoFallback(t *testing.T) {
	in := map[string]any{
		"schemaVersion": "1.1.0",
		"users": map[string]any{
			"DefaultUser": map[string]any{"passwordHash": "ph"},
		},
	}
	out, _ := Apply(in)

	users := out["users"].(map[string]any)
	rec, ok := users[FallbackUser].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ph", rec["passwordHash"])
	assert.NotContains(t, users, "DefaultUser")
}

func TestFailingStepKeepsPartialProgress(t *testing.T) {
	table := []Migration{
		{Version: "1.0.0", Transform: func(d map[string]any) (map[string]any, error) {
			d["first"] = true
			return d, nil
		}},
		{Version: "2.0.0", Transform: func(d map[string]any) (map[string]any, error) {
			return nil, errors.New("boom")
		}},
		{Version: "3.0.0", Transform: func(d map[string]any) (map[string]any, error) {
			d["third"] = true
			return d, nil
		}},
	}

	out, applied := applyTable(table, map[string]any{})
	assert.Equal(t, 1, applied)
	assert.Equal(t, true, out["first"])
	assert.Equal(t, "1.0.0", out["schemaVersion"], "partial progress is kept and stamped")
	assert.NotContains(t, out, "third", "steps after a failure must not run")
}

func TestApplyIsIdempotent(t *testing.T) {
	first, applied := Apply(map[string]any{
		"tempCollections": []any{map[string]any{"id": "c1"}},
	})
	require.Equal(t, len(Table), applied)

	again, appliedAgain := Apply(first)
	assert.Zero(t, appliedAgain)
	assert.Equal(t, first, again)
}

func TestRunPersistsMigratedState(t *testing.T) {
	blob := store.NewMemoryBlob()
	s := store.New(blob, "test-ns")
	raw, err := json.Marshal(map[string]any{
		"tempCollections": []any{map[string]any{"id": "c1", "charts": []any{float64(1)}}},
	})
	require.NoError(t, err)
	require.NoError(t, blob.Write("test-ns", raw))

	applied := Run(s)
	assert.Equal(t, len(Table), applied)

	stored := s.LoadRaw()
	assert.Equal(t, Latest(), stored["schemaVersion"])
	users := stored["users"].(map[string]any)
	assert.Contains(t, users, FallbackUser)
	assert.NotEmpty(t, stored["lastSaved"])

	// Second run sees current data and writes nothing.
	assert.Zero(t, Run(s))
}
