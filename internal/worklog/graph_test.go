package worklog

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = AuthorRef{Key: "alice", Name: "alice", DisplayName: "Alice Smith"}
	bob   = AuthorRef{Key: "bob", Name: "bob", DisplayName: "Bob Jones"}
	carol = AuthorRef{Key: "carol", Name: "carol", DisplayName: "Carol White"}

	base = time.Date(2026, time.March, 16, 9, 0, 0, 0, time.UTC)
)

func rec(id string, author AuthorRef, hours int) Record {
	return Record{
		ID:       id,
		Author:   author,
		Started:  base.Add(time.Duration(len(id)) * time.Hour),
		Duration: time.Duration(hours) * time.Hour,
		Comment:  "work " + id,
	}
}

type batch struct {
	issue   string
	records []Record
}

func fixture() ([]IssueRef, []batch) {
	issues := []IssueRef{
		{ID: "10001", Key: "PAY-1", Summary: "Payroll export"},
		{ID: "10002", Key: "PAY-2", Summary: "Timesheet import"},
		{ID: "10003", Key: "OPS-9", Summary: "On-call"},
	}
	batches := []batch{
		{"PAY-1", []Record{rec("1", alice, 2), rec("2", bob, 2), rec("3", alice, 1)}},
		{"PAY-2", []Record{rec("4", bob, 3)}},
		{"OPS-9", []Record{rec("5", carol, 4), rec("6", alice, 1)}},
	}
	return issues, batches
}

func build(t *testing.T, issues []IssueRef, batches []batch) *Graph {
	t.Helper()
	g := NewGraph()
	for _, ref := range issues {
		require.NoError(t, g.AddIssue(ref))
	}
	for _, b := range batches {
		_, err := g.Ingest(b.issue, b.records)
		require.NoError(t, err)
	}
	return g
}

// relation flattens the graph into sorted "author->issue" and
// "issue<-author" pairs so graphs built in different orders can be compared.
func relation(g *Graph) (authorSide, issueSide []string) {
	for _, a := range g.Authors() {
		for _, k := range a.IssueKeys {
			authorSide = append(authorSide, a.Key+"->"+k)
		}
	}
	for _, i := range g.Issues() {
		for _, k := range i.AuthorKeys {
			issueSide = append(issueSide, k+"->"+i.Key)
		}
	}
	sort.Strings(authorSide)
	sort.Strings(issueSide)
	return authorSide, issueSide
}

func TestIngest_RegistersInAllThreePlaces(t *testing.T) {
	issues, batches := fixture()
	g := build(t, issues, batches)

	stats := g.Stats()
	assert.Equal(t, Stats{Issues: 3, Authors: 3, Worklogs: 6}, stats)

	for _, wl := range g.Worklogs() {
		issue, ok := g.Issue(wl.IssueKey)
		require.True(t, ok)
		assert.Contains(t, issue.WorklogIDs, wl.ID)

		author, ok := g.Author(wl.AuthorKey)
		require.True(t, ok)
		assert.Contains(t, author.WorklogIDs, wl.ID)

		assert.Contains(t, author.IssueKeys, wl.IssueKey)
		assert.Contains(t, issue.AuthorKeys, wl.AuthorKey)
	}
}

func TestIngest_DiscoveryOrder(t *testing.T) {
	issues, batches := fixture()
	g := build(t, issues, batches)

	var keys []string
	for _, a := range g.Authors() {
		keys = append(keys, a.Key)
	}
	assert.Equal(t, []string{"alice", "bob", "carol"}, keys)

	a, _ := g.Author("alice")
	assert.Equal(t, []string{"PAY-1", "OPS-9"}, a.IssueKeys)
	assert.Equal(t, []string{"1", "3", "6"}, a.WorklogIDs)

	i, _ := g.Issue("PAY-1")
	assert.Equal(t, []string{"alice", "bob"}, i.AuthorKeys)
	assert.Equal(t, "Payroll export", i.Summary)
}

func TestIngest_RelationSymmetricAcrossArrivalOrders(t *testing.T) {
	issues, batches := fixture()

	forward := build(t, issues, batches)

	reversed := make([]batch, len(batches))
	for i, b := range batches {
		reversed[len(batches)-1-i] = b
	}
	backward := build(t, issues, reversed)

	fa, fi := relation(forward)
	ba, bi := relation(backward)

	assert.Equal(t, fa, fi, "forward graph relation is not symmetric")
	assert.Equal(t, ba, bi, "backward graph relation is not symmetric")
	assert.Equal(t, fa, ba, "arrival order changed the relation")

	assert.Equal(t, forward.Stats(), backward.Stats())
	assert.ElementsMatch(t, forward.Worklogs(), backward.Worklogs())
}

func TestIngest_ConcurrentBatches(t *testing.T) {
	g := NewGraph()
	const issueCount = 40

	for i := 0; i < issueCount; i++ {
		require.NoError(t, g.AddIssue(IssueRef{ID: fmt.Sprint(i), Key: fmt.Sprintf("PAY-%d", i)}))
	}

	var wg sync.WaitGroup
	for i := 0; i < issueCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			records := []Record{
				rec(fmt.Sprintf("a-%d", i), alice, 1),
				rec(fmt.Sprintf("b-%d", i), bob, 1),
			}
			_, err := g.Ingest(fmt.Sprintf("PAY-%d", i), records)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()
	g.Freeze()

	stats := g.Stats()
	assert.Equal(t, issueCount, stats.Issues)
	assert.Equal(t, 2, stats.Authors)
	assert.Equal(t, 2*issueCount, stats.Worklogs)

	authorSide, issueSide := relation(g)
	assert.Equal(t, authorSide, issueSide)
	assert.Len(t, authorSide, 2*issueCount)
}

func TestIngest_DuplicateIDFirstWins(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddIssue(IssueRef{ID: "1", Key: "PAY-1"}))
	require.NoError(t, g.AddIssue(IssueRef{ID: "2", Key: "PAY-2"}))

	added, err := g.Ingest("PAY-1", []Record{rec("100", alice, 2)})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	// retried fetch of the same issue
	added, err = g.Ingest("PAY-1", []Record{rec("100", alice, 2)})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	// same id arriving on another issue keeps the first registration
	added, err = g.Ingest("PAY-2", []Record{rec("100", bob, 5)})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	assert.Equal(t, Stats{Issues: 2, Authors: 1, Worklogs: 1, Duplicates: 2}, g.Stats())
	assert.Len(t, g.AuthorWorklogs("alice"), 1)
	assert.Len(t, g.IssueWorklogs("PAY-1"), 1)
	assert.Empty(t, g.IssueWorklogs("PAY-2"))

	_, ok := g.Author("bob")
	assert.False(t, ok, "duplicate record must not create its author")
}

func TestIngest_UnknownIssue(t *testing.T) {
	g := NewGraph()
	_, err := g.Ingest("NOPE-1", []Record{rec("1", alice, 1)})
	assert.ErrorIs(t, err, ErrUnknownIssue)
	assert.Equal(t, Stats{}, g.Stats())
}

func TestIngest_InvalidBatchLeavesGraphUntouched(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddIssue(IssueRef{ID: "1", Key: "PAY-1"}))

	bad := rec("2", AuthorRef{}, 1)
	_, err := g.Ingest("PAY-1", []Record{rec("1", alice, 1), bad})
	require.Error(t, err)

	assert.Equal(t, Stats{Issues: 1}, g.Stats())
	_, ok := g.Author("alice")
	assert.False(t, ok)
}

func TestFreeze(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddIssue(IssueRef{ID: "1", Key: "PAY-1"}))
	g.Freeze()

	assert.True(t, g.Frozen())
	assert.ErrorIs(t, g.AddIssue(IssueRef{ID: "2", Key: "PAY-2"}), ErrFrozen)
	_, err := g.Ingest("PAY-1", []Record{rec("1", alice, 1)})
	assert.ErrorIs(t, err, ErrFrozen)
}

func TestAddIssue_Idempotent(t *testing.T) {
	g := NewGraph()
	require.NoError(t, g.AddIssue(IssueRef{ID: "1", Key: "PAY-1", Summary: "first"}))
	require.NoError(t, g.AddIssue(IssueRef{ID: "1", Key: "PAY-1", Summary: "second"}))

	issues := g.Issues()
	require.Len(t, issues, 1)
	assert.Equal(t, "first", issues[0].Summary)

	assert.Error(t, g.AddIssue(IssueRef{ID: "3"}))
}

func TestSnapshotsAreCopies(t *testing.T) {
	issues, batches := fixture()
	g := build(t, issues, batches)

	a, _ := g.Author("alice")
	a.IssueKeys[0] = "MUTATED"

	again, _ := g.Author("alice")
	assert.Equal(t, "PAY-1", again.IssueKeys[0])
}
