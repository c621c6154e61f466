package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/paycheck/internal/config"
	"github.com/rohankatakam/paycheck/internal/errors"
)

var testNow = time.Date(2026, time.March, 20, 14, 0, 0, 0, time.Local)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func init() {
	logger = logrus.New()
	logger.SetOutput(io.Discard)
}

func worklogJSON(id, author, started string, seconds int) string {
	return fmt.Sprintf(`{"id":%q,"author":{"key":%q,"name":%q,"displayName":%q},"started":%q,"timeSpentSeconds":%d}`,
		id, author, author, author, started, seconds)
}

// fakeTracker serves two issues. PAY-2 answers with failStatus when set.
func fakeTracker(t *testing.T, failStatus int) *httptest.Server {
	t.Helper()
	worklogs := map[string][]string{
		"PAY-1": {
			worklogJSON("10", "alice", "2026-03-10T12:00:00.000+0000", 4*3600),
			worklogJSON("11", "alice", "2026-03-16T12:00:00.000+0000", 8*3600),
		},
		"PAY-2": {
			worklogJSON("20", "alice", "2026-03-17T12:00:00.000+0000", 36*3600),
			worklogJSON("21", "bob", "2026-03-18T12:00:00.000+0000", 2*3600),
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Contains(t, r.URL.Query().Get("jql"), "worklogDate >= '2026-02-15'")
		fmt.Fprint(w, `{"startAt":0,"maxResults":1000000,"total":2,"issues":[
			{"id":"1","key":"PAY-1","fields":{"summary":"Payroll export"}},
			{"id":"2","key":"PAY-2","fields":{"summary":"Timesheet import"}}]}`)
	})
	mux.HandleFunc("/rest/api/2/issue/", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/rest/api/2/issue/"), "/worklog")
		if key == "PAY-2" && failStatus != 0 {
			http.Error(w, "gone", failStatus)
			return
		}
		logs := worklogs[key]
		fmt.Fprintf(w, `{"startAt":0,"maxResults":%d,"total":%d,"worklogs":[%s]}`,
			len(logs), len(logs), strings.Join(logs, ","))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func trackerConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Tracker.Scheme = "http"
	cfg.Tracker.Hostname = u.Hostname()
	cfg.Tracker.Port = port
	cfg.Tracker.Token = "secret-token"
	cfg.Pay.Day = 15
	cfg.Fetch.RequestTimeout = 5 * time.Second
	cfg.Fetch.RateLimit = 0
	return cfg
}

type jsonReport struct {
	Authors []struct {
		Key            string `json:"key"`
		PreviousPeriod struct {
			Hours   float64  `json:"hours"`
			Percent *float64 `json:"percent"`
		} `json:"previous_period"`
		CurrentPeriod struct {
			Hours   float64  `json:"hours"`
			Percent *float64 `json:"percent"`
		} `json:"current_period"`
		Issues []struct {
			Key   string  `json:"key"`
			Hours float64 `json:"hours"`
		} `json:"issues"`
	} `json:"authors"`
	Gaps []struct {
		Issue string `json:"issue"`
	} `json:"gaps"`
}

func TestGenerateReport_EndToEnd(t *testing.T) {
	srv := fakeTracker(t, 0)
	cfg := trackerConfig(t, srv)
	metricsFile := filepath.Join(t.TempDir(), "paycheck.prom")

	var out bytes.Buffer
	err := generateReport(context.Background(), cfg, reportOptions{format: "json", metricsFile: metricsFile}, &out, testNow, quietLog())
	require.NoError(t, err)

	var r jsonReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	require.Len(t, r.Authors, 2)

	alice := r.Authors[0]
	assert.Equal(t, "alice", alice.Key)
	assert.Equal(t, 4.0, alice.PreviousPeriod.Hours)
	require.NotNil(t, alice.PreviousPeriod.Percent)
	assert.Equal(t, 2.5, *alice.PreviousPeriod.Percent)
	assert.Equal(t, 44.0, alice.CurrentPeriod.Hours)
	require.NotNil(t, alice.CurrentPeriod.Percent)
	assert.Equal(t, 25.0, *alice.CurrentPeriod.Percent)
	require.Len(t, alice.Issues, 2)

	bob := r.Authors[1]
	assert.Equal(t, "bob", bob.Key)
	require.Len(t, bob.Issues, 1)
	assert.Equal(t, "PAY-2", bob.Issues[0].Key)
	assert.Equal(t, 2.0, bob.Issues[0].Hours)
	assert.Empty(t, r.Gaps)

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `paycheck_tracker_requests_total{endpoint="worklog",outcome="ok"} 2`)
	assert.Contains(t, string(data), "paycheck_worklogs 4")
}

func TestGenerateReport_TextFormat(t *testing.T) {
	srv := fakeTracker(t, 0)
	cfg := trackerConfig(t, srv)

	var out bytes.Buffer
	require.NoError(t, generateReport(context.Background(), cfg, reportOptions{format: "text"}, &out, testNow, quietLog()))

	text := out.String()
	assert.Contains(t, text, "Current pay day: Sunday, March 15, 2026")
	assert.Contains(t, text, "Full-time work hours up to next pay day: 176")
	assert.Contains(t, text, "ALICE\n")
	assert.Contains(t, text, "Time worked up to next pay day: 44.0 hours / 25.0 percent")
	assert.Contains(t, text, "PAY-2 Timesheet import - 36.0 hours")
}

func TestGenerateReport_FailFastPrintsNothing(t *testing.T) {
	srv := fakeTracker(t, http.StatusNotFound)
	cfg := trackerConfig(t, srv)
	metricsFile := filepath.Join(t.TempDir(), "paycheck.prom")

	var out bytes.Buffer
	err := generateReport(context.Background(), cfg, reportOptions{format: "json", metricsFile: metricsFile}, &out, testNow, quietLog())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.GetType(err))
	assert.Contains(t, err.Error(), "PAY-2")
	assert.Empty(t, out.String())

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `outcome="404"`)
	assert.NotContains(t, string(data), "paycheck_last_success_timestamp_seconds 1")
}

func TestGenerateReport_ContinueOnErrorReportsGap(t *testing.T) {
	srv := fakeTracker(t, http.StatusNotFound)
	cfg := trackerConfig(t, srv)
	cfg.Fetch.FailFast = false

	var out bytes.Buffer
	require.NoError(t, generateReport(context.Background(), cfg, reportOptions{format: "json"}, &out, testNow, quietLog()))

	var r jsonReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &r))
	require.Len(t, r.Gaps, 1)
	assert.Equal(t, "PAY-2", r.Gaps[0].Issue)
	require.Len(t, r.Authors, 1)
	assert.Equal(t, 8.0, r.Authors[0].CurrentPeriod.Hours)
}

func TestGenerateReport_CancelledRunPrintsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/rest/api/2/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"startAt":0,"maxResults":1000000,"total":1,"issues":[
			{"id":"1","key":"PAY-1","fields":{"summary":"Payroll export"}}]}`)
	})
	mux.HandleFunc("/rest/api/2/issue/", func(w http.ResponseWriter, r *http.Request) {
		// the user aborts while work logs are in flight
		cancel()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := trackerConfig(t, srv)
	cfg.Fetch.FailFast = false

	var out bytes.Buffer
	err := generateReport(ctx, cfg, reportOptions{format: "json"}, &out, testNow, quietLog())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, errors.ExitCode(err))
	assert.Empty(t, out.String())
}

func TestGenerateReport_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pay.Day = 0

	var out bytes.Buffer
	err := generateReport(context.Background(), cfg, reportOptions{}, &out, testNow, quietLog())
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeConfig, errors.GetType(err))
	assert.Equal(t, 2, errors.ExitCode(err))
	assert.Empty(t, out.String())
}

func TestGenerateReport_UnknownFormat(t *testing.T) {
	srv := fakeTracker(t, 0)
	cfg := trackerConfig(t, srv)

	err := generateReport(context.Background(), cfg, reportOptions{format: "csv"}, io.Discard, testNow, quietLog())
	assert.Error(t, err)
}

func TestPrintPeriods(t *testing.T) {
	cfg := config.Default()
	cfg.Pay.Day = 15

	var out bytes.Buffer
	require.NoError(t, printPeriods(cfg, "text", &out, testNow))

	assert.Equal(t, `
Previous pay day: Sunday, February 15, 2026
Current pay day: Sunday, March 15, 2026
Next pay day: Wednesday, April 15, 2026

Full-time work hours up to current pay day: 160
Full-time work hours up to next pay day: 176

`, out.String())
}

func TestPrintPeriods_RejectsBadPayDay(t *testing.T) {
	cfg := config.Default()
	cfg.Pay.Day = 40
	assert.Error(t, printPeriods(cfg, "text", io.Discard, testNow))
}

func TestShowConfig_MasksSecrets(t *testing.T) {
	cfg := config.Default()
	cfg.Tracker.Hostname = "jira.example.com"
	cfg.Tracker.Token = "ATATT3xFfGF0abcdefgh"
	cfg.Tracker.TokenSource = config.SourceKeychain

	var out bytes.Buffer
	require.NoError(t, showConfig(cfg, &out))

	text := out.String()
	assert.Contains(t, text, "# token source: keychain")
	assert.Contains(t, text, "token: ATAT...efgh")
	assert.NotContains(t, text, "ATATT3xFfGF0abcdefgh")
	assert.Contains(t, text, "request_timeout: 30s")
	assert.Contains(t, text, "# configuration is valid")
}

func TestShowConfig_Invalid(t *testing.T) {
	var out bytes.Buffer
	err := showConfig(config.Default(), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracker.hostname")
}

func TestReadSecret_FromPipe(t *testing.T) {
	secret, err := readSecret(strings.NewReader("  tok-123  \n"), io.Discard, "token: ")
	require.NoError(t, err)
	assert.Equal(t, "tok-123", secret)

	_, err = readSecret(strings.NewReader("\n"), io.Discard, "token: ")
	assert.Error(t, err)
}
