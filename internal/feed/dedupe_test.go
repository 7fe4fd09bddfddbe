package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID int
	At time.Time
}

func recordKey(r record) int { return r.ID }

func TestDedupe(t *testing.T) {
	in := []record{{ID: 1}, {ID: 2}, {ID: 1}, {ID: 3}, {ID: 2}}

	out := Dedupe(in, recordKey)

	assert.Equal(t, []record{{ID: 1}, {ID: 2}, {ID: 3}}, out)
}

func TestDedupe_Idempotent(t *testing.T) {
	in := []record{{ID: 4}, {ID: 4}, {ID: 5}, {ID: 6}, {ID: 5}}

	once := Dedupe(in, recordKey)
	twice := Dedupe(once, recordKey)

	assert.Equal(t, once, twice)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil, recordKey))
	assert.Empty(t, Dedupe([]record{}, recordKey))
}

func TestMerge(t *testing.T) {
	existing := []record{{ID: 1}}
	incoming := []record{{ID: 1}, {ID: 2}}

	out := Merge(existing, incoming, recordKey)

	assert.Equal(t, []record{{ID: 1}, {ID: 2}}, out)
}

func TestMerge_SelfIsIdentity(t *testing.T) {
	a := []record{{ID: 1}, {ID: 2}, {ID: 3}}

	out := Merge(a, a, recordKey)

	assert.Equal(t, a, out)
}

func TestMerge_DoesNotMutateExisting(t *testing.T) {
	existing := []record{{ID: 1}, {ID: 2}}
	incoming := []record{{ID: 3}}

	out := Merge(existing, incoming, recordKey)

	assert.Len(t, existing, 2)
	assert.Equal(t, []record{{ID: 1}, {ID: 2}, {ID: 3}}, out)
}

func TestMerge_EmptyIncoming(t *testing.T) {
	existing := []record{{ID: 1}}
	assert.Equal(t, existing, Merge(existing, nil, recordKey))
}

func TestLatest(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := []record{
		{ID: 1, At: base},
		{ID: 2, At: base.Add(2 * time.Hour)},
		{ID: 3, At: base.Add(time.Hour)},
	}

	latest, ok := Latest(in, func(r record) time.Time { return r.At })

	require.True(t, ok)
	assert.Equal(t, 2, latest.ID)
}

func TestLatest_Empty(t *testing.T) {
	_, ok := Latest(nil, func(r record) time.Time { return r.At })
	assert.False(t, ok)
}

func TestActivity_Key(t *testing.T) {
	commit := Activity{Kind: KindCommit, SHA: "abc123"}
	issue := Activity{Kind: KindIssue, Repo: "mattpm/app", Number: 17}
	pull := Activity{Kind: KindPull, Repo: "mattpm/app", Number: 17}

	assert.Equal(t, "commit:abc123", commit.Key())
	assert.Equal(t, "issue:mattpm/app#17", issue.Key())
	assert.Equal(t, "pull:mattpm/app#17", pull.Key())
	// An issue and a pull with the same number are distinct records
	assert.NotEqual(t, issue.Key(), pull.Key())
}

func TestMergeActivities(t *testing.T) {
	page1 := []Activity{
		{Kind: KindCommit, SHA: "aaa"},
		{Kind: KindIssue, Repo: "mattpm/app", Number: 1},
	}
	page2 := []Activity{
		{Kind: KindIssue, Repo: "mattpm/app", Number: 1}, // overlap
		{Kind: KindCommit, SHA: "bbb"},
	}

	out := MergeActivities(page1, page2)

	require.Len(t, out, 3)
	assert.Equal(t, "aaa", out[0].SHA)
	assert.Equal(t, 1, out[1].Number)
	assert.Equal(t, "bbb", out[2].SHA)
}

func TestLatestActivity(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	list := []Activity{
		{Kind: KindCommit, SHA: "old", CreatedAt: base},
		{Kind: KindCommit, SHA: "new", CreatedAt: base.Add(time.Minute)},
	}

	latest, ok := LatestActivity(list)
	require.True(t, ok)
	assert.Equal(t, "new", latest.SHA)

	_, ok = LatestActivity(nil)
	assert.False(t, ok)
}
