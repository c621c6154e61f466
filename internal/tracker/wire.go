package tracker

import (
	"strings"
	"time"

	"github.com/rohankatakam/paycheck/internal/worklog"
)

// startedLayouts are tried in order. Jira Server answers with a numeric
// offset without a colon.
var startedLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
}

type searchResponse struct {
	StartAt    int          `json:"startAt"`
	MaxResults int          `json:"maxResults"`
	Total      int          `json:"total"`
	Issues     []issueEntry `json:"issues"`
}

type issueEntry struct {
	ID     string `json:"id"`
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

type worklogResponse struct {
	StartAt    int            `json:"startAt"`
	MaxResults int            `json:"maxResults"`
	Total      int            `json:"total"`
	Worklogs   *[]worklogItem `json:"worklogs"`
}

type worklogItem struct {
	ID     string `json:"id"`
	Author *struct {
		Key         string `json:"key"`
		AccountID   string `json:"accountId"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
	} `json:"author"`
	Started          string `json:"started"`
	TimeSpentSeconds int64  `json:"timeSpentSeconds"`
	Comment          any    `json:"comment"`
}

func (e issueEntry) ref() worklog.IssueRef {
	return worklog.IssueRef{ID: e.ID, Key: e.Key, Summary: e.Fields.Summary}
}

// record converts the wire item into a domain record, naming the first
// missing or malformed field.
func (w worklogItem) record() (worklog.Record, string) {
	if w.ID == "" {
		return worklog.Record{}, "id"
	}
	if w.Author == nil {
		return worklog.Record{}, "author"
	}
	key := w.Author.Key
	if key == "" {
		// Jira Cloud dropped user keys in favour of account ids
		key = w.Author.AccountID
	}
	if key == "" {
		return worklog.Record{}, "author.key"
	}
	started, ok := parseStarted(w.Started)
	if !ok {
		return worklog.Record{}, "started"
	}

	return worklog.Record{
		ID: w.ID,
		Author: worklog.AuthorRef{
			Key:         key,
			Name:        w.Author.Name,
			DisplayName: w.Author.DisplayName,
		},
		Started:  started,
		Duration: time.Duration(w.TimeSpentSeconds) * time.Second,
		Comment:  commentText(w.Comment),
	}, ""
}

func parseStarted(s string) (time.Time, bool) {
	for _, layout := range startedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Local(), true
		}
	}
	return time.Time{}, false
}

// commentText flattens the comment. API v2 sends a string, API v3 sends an
// Atlassian document whose text nodes are concatenated.
func commentText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case map[string]any:
		var sb strings.Builder
		collectText(c, &sb)
		return strings.TrimSpace(sb.String())
	default:
		return ""
	}
}

func collectText(node map[string]any, sb *strings.Builder) {
	if text, ok := node["text"].(string); ok {
		sb.WriteString(text)
	}
	children, _ := node["content"].([]any)
	for _, child := range children {
		if m, ok := child.(map[string]any); ok {
			collectText(m, sb)
		}
	}
	if node["type"] == "paragraph" {
		sb.WriteString("\n")
	}
}
