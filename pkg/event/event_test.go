package event_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codealong/pkg/analysis"
	"github.com/Sumatoshi-tech/codealong/pkg/event"
	"github.com/Sumatoshi-tech/codealong/pkg/identity"
	"github.com/Sumatoshi-tech/codealong/pkg/workstats"
)

const commitID = "0123456789abcdef0123456789abcdef01234567"

func sampleCommit() *analysis.AnalyzedCommit {
	authored := time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC)

	diff := workstats.NewAnalyzedDiff()
	diff.AddStats(workstats.WorkStats{NewWork: 4, Churn: 1, Impact: 2}, []string{"go"})

	return &analysis.AnalyzedCommit{
		ID:           commitID,
		AnalyzedDiff: diff,
		Summary:      "Add parser",
		AuthorName:   "Alice",
		AuthorEmail:  "alice@example.com",
		AuthoredAt:   authored,
		CommittedAt:  authored.Add(time.Hour),
		Author:       identity.Person{ID: "alice", Name: "Alice"},
		Committer:    identity.Person{ID: "alice", Name: "Alice"},
		Repo:         analysis.RepoRef{Name: "parser"},
		GithubURL:    "https://github.com/acme/parser/commit/" + commitID,
		ParentIDs:    []string{"89abcdef0123456789abcdef0123456789abcdef"},
	}
}

func TestIndexName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "codealong-2024.02", event.IndexName(time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC)))
	assert.Equal(t, "codealong-2024.03", event.IndexName(time.Date(2024, 3, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600*3))))
	assert.Equal(t, "codealong-2024.02", event.IndexName(time.Date(2024, 3, 1, 1, 0, 0, 0, time.FixedZone("EST", -3600*5))))
}

func TestNew(t *testing.T) {
	t.Parallel()

	e := event.New(sampleCommit(), "build-01")

	assert.Equal(t, commitID, e.ID())
	assert.Equal(t, "codealong-2024.02", e.Index())
	assert.Equal(t, event.Version, e.Version)
	assert.Equal(t, "commit", e.Type)
	assert.True(t, e.Timestamp.Equal(e.AuthoredAt))
}

func TestJSONWriter_FlattensCommit(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w, err := event.NewWriter(event.FormatJSON, &buf)
	require.NoError(t, err)
	require.NoError(t, w.Write(event.New(sampleCommit(), "build-01")))
	require.NoError(t, w.Write(event.New(sampleCommit(), "")))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &doc))

	assert.Equal(t, "2024-02-29T23:30:00Z", doc["@timestamp"])
	assert.InDelta(t, 1, doc["@version"], 0)
	assert.Equal(t, "commit", doc["type"])
	assert.Equal(t, "build-01", doc["host"])
	assert.Equal(t, commitID, doc["id"])
	assert.InDelta(t, 4, doc["new_work"], 0)
	assert.InDelta(t, 2, doc["impact"], 0)
	assert.Contains(t, doc["tag_stats"], "go")

	require.NoError(t, json.Unmarshal([]byte(lines[1]), &doc))
	assert.NotContains(t, lines[1], `"host"`)
}

func TestBulkWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w, err := event.NewWriter(event.FormatBulk, &buf)
	require.NoError(t, err)
	require.NoError(t, w.Write(event.New(sampleCommit(), "h")))

	sc := bufio.NewScanner(&buf)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	require.True(t, sc.Scan())
	assert.JSONEq(t, `{"index":{"_index":"codealong-2024.02","_id":"`+commitID+`"}}`, sc.Text())

	require.True(t, sc.Scan())
	require.NoError(t, event.Check(sc.Bytes()))

	assert.False(t, sc.Scan())
}

func TestNewWriter_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := event.NewWriter("xml", &bytes.Buffer{})
	require.ErrorIs(t, err, event.ErrUnknownFormat)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	doc, err := json.Marshal(event.New(sampleCommit(), "h"))
	require.NoError(t, err)

	violations, err := event.Validate(doc)
	require.NoError(t, err)
	assert.Empty(t, violations)

	var broken map[string]any
	require.NoError(t, json.Unmarshal(doc, &broken))

	broken["type"] = "pull_request"
	broken["id"] = "not-a-sha"
	delete(broken, "churn")

	bad, err := json.Marshal(broken)
	require.NoError(t, err)

	violations, err = event.Validate(bad)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(violations), 3)

	err = event.Check(bad)
	require.ErrorIs(t, err, event.ErrInvalidEvent)
	assert.Contains(t, err.Error(), "churn")

	_, err = event.Validate([]byte("{"))
	require.Error(t, err)
}
