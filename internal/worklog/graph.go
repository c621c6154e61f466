// Package worklog builds the issue/author/work-log graph from tracker records.
//
// The graph owns three collections keyed by stable identity. Cross references
// are identity keys rather than pointers. Every mutation runs under a single
// mutex, so records may arrive from any number of concurrent fetches.
package worklog

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"
)

var (
	// ErrFrozen is returned when the graph is mutated after Freeze
	ErrFrozen = errors.New("worklog graph is frozen")
	// ErrUnknownIssue is returned when records arrive for an issue that was never added
	ErrUnknownIssue = errors.New("unknown issue")
)

type issueNode struct {
	ref      IssueRef
	authors  []string
	authorOK map[string]struct{}
	worklogs []string
}

type authorNode struct {
	ref      AuthorRef
	issues   []string
	issueOK  map[string]struct{}
	worklogs []string
}

// Graph is the run-scoped aggregation context. It is mutable while fetches
// are in flight and read-only once Freeze is called.
type Graph struct {
	mu     sync.RWMutex
	frozen bool

	issues     []*issueNode
	issueIndex map[string]int

	authors     []*authorNode
	authorIndex map[string]int

	worklogs     []Worklog
	worklogIndex map[string]int

	duplicates int
}

// NewGraph creates an empty graph
func NewGraph() *Graph {
	return &Graph{
		issueIndex:   make(map[string]int),
		authorIndex:  make(map[string]int),
		worklogIndex: make(map[string]int),
	}
}

// AddIssue registers an issue. Re-adding a known key keeps the first entry.
func (g *Graph) AddIssue(ref IssueRef) error {
	if ref.Key == "" {
		return fmt.Errorf("issue %q has no key", ref.ID)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return ErrFrozen
	}
	if _, ok := g.issueIndex[ref.Key]; ok {
		return nil
	}

	g.issueIndex[ref.Key] = len(g.issues)
	g.issues = append(g.issues, &issueNode{
		ref:      ref,
		authorOK: make(map[string]struct{}),
	})
	return nil
}

// Ingest adds the work logs of one issue. The batch is validated before any
// mutation and applied under one lock, so readers never observe a work log
// registered in one collection but not the others.
//
// Work-log ids are first-wins: a record whose id is already known is dropped
// and counted as a duplicate.
func (g *Graph) Ingest(issueKey string, records []Record) (added int, err error) {
	for _, rec := range records {
		if rec.ID == "" {
			return 0, fmt.Errorf("issue %s: worklog without id", issueKey)
		}
		if rec.Author.Key == "" {
			return 0, fmt.Errorf("issue %s: worklog %s has no author key", issueKey, rec.ID)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return 0, ErrFrozen
	}
	idx, ok := g.issueIndex[issueKey]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownIssue, issueKey)
	}
	issue := g.issues[idx]

	for _, rec := range records {
		if _, seen := g.worklogIndex[rec.ID]; seen {
			g.duplicates++
			continue
		}

		author := g.resolveAuthor(rec.Author)
		link(issue, author)

		g.worklogIndex[rec.ID] = len(g.worklogs)
		g.worklogs = append(g.worklogs, Worklog{
			ID:        rec.ID,
			IssueKey:  issue.ref.Key,
			AuthorKey: author.ref.Key,
			Started:   rec.Started,
			Duration:  rec.Duration.Truncate(time.Millisecond),
			Comment:   rec.Comment,
		})
		issue.worklogs = append(issue.worklogs, rec.ID)
		author.worklogs = append(author.worklogs, rec.ID)
		added++
	}

	return added, nil
}

// resolveAuthor returns the author with ref.Key, creating it on first sight.
// Caller must hold g.mu.
func (g *Graph) resolveAuthor(ref AuthorRef) *authorNode {
	if idx, ok := g.authorIndex[ref.Key]; ok {
		return g.authors[idx]
	}
	a := &authorNode{
		ref:     ref,
		issueOK: make(map[string]struct{}),
	}
	g.authorIndex[ref.Key] = len(g.authors)
	g.authors = append(g.authors, a)
	return a
}

// link records both halves of the issue/author relation, idempotently.
func link(issue *issueNode, author *authorNode) {
	if _, ok := issue.authorOK[author.ref.Key]; !ok {
		issue.authorOK[author.ref.Key] = struct{}{}
		issue.authors = append(issue.authors, author.ref.Key)
	}
	if _, ok := author.issueOK[issue.ref.Key]; !ok {
		author.issueOK[issue.ref.Key] = struct{}{}
		author.issues = append(author.issues, issue.ref.Key)
	}
}

// Freeze makes the graph read-only. It is called once every fetch has
// completed.
func (g *Graph) Freeze() {
	g.mu.Lock()
	g.frozen = true
	g.mu.Unlock()
}

// Frozen reports whether Freeze has been called
func (g *Graph) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frozen
}

// Issues returns all issues in discovery order
func (g *Graph) Issues() []Issue {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Issue, 0, len(g.issues))
	for _, n := range g.issues {
		out = append(out, n.snapshot())
	}
	return out
}

// Authors returns all authors in discovery order
func (g *Graph) Authors() []Author {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Author, 0, len(g.authors))
	for _, n := range g.authors {
		out = append(out, n.snapshot())
	}
	return out
}

// Worklogs returns all work logs in arrival order
func (g *Graph) Worklogs() []Worklog {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.worklogs)
}

// Issue looks up an issue by key
func (g *Graph) Issue(key string) (Issue, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.issueIndex[key]
	if !ok {
		return Issue{}, false
	}
	return g.issues[idx].snapshot(), true
}

// Author looks up an author by key
func (g *Graph) Author(key string) (Author, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.authorIndex[key]
	if !ok {
		return Author{}, false
	}
	return g.authors[idx].snapshot(), true
}

// AuthorWorklogs returns an author's work logs in arrival order
func (g *Graph) AuthorWorklogs(authorKey string) []Worklog {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.authorIndex[authorKey]
	if !ok {
		return nil
	}
	return g.collect(g.authors[idx].worklogs)
}

// IssueWorklogs returns an issue's work logs in arrival order
func (g *Graph) IssueWorklogs(issueKey string) []Worklog {
	g.mu.RLock()
	defer g.mu.RUnlock()

	idx, ok := g.issueIndex[issueKey]
	if !ok {
		return nil
	}
	return g.collect(g.issues[idx].worklogs)
}

// Stats returns collection sizes and the number of dropped duplicates
func (g *Graph) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return Stats{
		Issues:     len(g.issues),
		Authors:    len(g.authors),
		Worklogs:   len(g.worklogs),
		Duplicates: g.duplicates,
	}
}

// caller must hold g.mu
func (g *Graph) collect(ids []string) []Worklog {
	out := make([]Worklog, 0, len(ids))
	for _, id := range ids {
		out = append(out, g.worklogs[g.worklogIndex[id]])
	}
	return out
}

func (n *issueNode) snapshot() Issue {
	return Issue{
		ID:         n.ref.ID,
		Key:        n.ref.Key,
		Summary:    n.ref.Summary,
		AuthorKeys: slices.Clone(n.authors),
		WorklogIDs: slices.Clone(n.worklogs),
	}
}

func (n *authorNode) snapshot() Author {
	return Author{
		Key:         n.ref.Key,
		Name:        n.ref.Name,
		DisplayName: n.ref.DisplayName,
		IssueKeys:   slices.Clone(n.issues),
		WorklogIDs:  slices.Clone(n.worklogs),
	}
}
