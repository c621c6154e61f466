package worklog

import "time"

// IssueRef identifies an issue returned by the tracker search
type IssueRef struct {
	ID      string
	Key     string
	Summary string
}

// AuthorRef identifies the user who logged time
type AuthorRef struct {
	Key         string
	Name        string
	DisplayName string
}

// Record is one raw work-log entry as delivered by the tracker
type Record struct {
	ID       string
	Author   AuthorRef
	Started  time.Time
	Duration time.Duration
	Comment  string
}

// Issue is a trackable unit of work with the time logged against it.
// AuthorKeys and WorklogIDs are in discovery order.
type Issue struct {
	ID         string
	Key        string
	Summary    string
	AuthorKeys []string
	WorklogIDs []string
}

// Author is a user who logged time on at least one issue.
// IssueKeys and WorklogIDs are in discovery order.
type Author struct {
	Key         string
	Name        string
	DisplayName string
	IssueKeys   []string
	WorklogIDs  []string
}

// Worklog is one recorded interval of time. Duration holds whole
// milliseconds; the tracker reports seconds.
type Worklog struct {
	ID        string
	IssueKey  string
	AuthorKey string
	Started   time.Time
	Duration  time.Duration
	Comment   string
}

// Stats summarizes the graph contents
type Stats struct {
	Issues     int
	Authors    int
	Worklogs   int
	Duplicates int
}
