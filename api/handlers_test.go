/*
handlers_test.go - HTTP tests for the preview, export and run endpoints

Tests run the full router against an in-memory SQLite store seeded through
the scenario endpoint, the way a demo session would.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/generic/store"
	"github.com/warp/qb-export/rules"
	"github.com/warp/qb-export/runner"
	"github.com/warp/qb-export/store/sqlite"
)

var testAsOf = generic.NewDate(2025, time.June, 15)

func setupTestServer(t *testing.T) (http.Handler, *Handler) {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	h := NewHandler(runner.New(rules.Default(), db, db, nil), db, db, nil)
	h.Today = func() generic.Date { return testAsOf }
	dir := t.TempDir()
	h.Paths = runner.Paths{
		Extract: filepath.Join(dir, "cobra_extract.csv"),
		Output:  filepath.Join(dir, "cobra_qb_import.csv"),
	}
	return NewRouter(h, nil), h
}

func do(t *testing.T, srv http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func loadScenario(t *testing.T, srv http.Handler, id string) {
	t.Helper()
	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id, AsOf: testAsOf.String()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// PREVIEW
// =============================================================================

func TestHealth(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestGetExtract_Termination(t *testing.T) {
	// GIVEN: the termination scenario
	// WHEN: previewing the extract for the scenario date
	// THEN: three rows (medical, mandatory, conditional) inside a 30-day window
	srv, _ := setupTestServer(t)
	loadScenario(t, srv, "termination")

	rec := do(t, srv, http.MethodGet, "/api/extract?asOf=2025-06-15", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ExtractResponse](t, rec)
	assert.Equal(t, "2025-06-15", resp.AsOf)
	assert.Equal(t, WindowDTO{Start: "2025-05-16", End: "2025-06-15"}, resp.Window)
	require.Equal(t, 3, resp.Count)
	for _, r := range resp.Rows {
		assert.Equal(t, "E100", r.EmployeeID)
		assert.Equal(t, "TERMINATION", r.EventType)
	}
}

func TestGetExtract_EmptyStoreReturnsEmptyList(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/extract", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":[]`)
}

func TestGetBeneficiaries_Mixed(t *testing.T) {
	// GIVEN: the mixed scenario (termination, age-out, retirement, a quiet
	//   employee and an intern)
	// WHEN: previewing beneficiaries
	// THEN: one QB per event-bearing in-scope employee, in ID order
	srv, _ := setupTestServer(t)
	loadScenario(t, srv, "mixed")

	rec := do(t, srv, http.MethodGet, "/api/beneficiaries?asOf=2025-06-15", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[BeneficiariesResponse](t, rec)
	require.Equal(t, 3, resp.Count)

	var ids []string
	for _, b := range resp.Beneficiaries {
		ids = append(ids, b.EmployeeID)
	}
	assert.Equal(t, []string{"E100", "E200", "E300"}, ids)

	term := resp.Beneficiaries[0]
	assert.Equal(t, "TERMINATION", term.EventType)
	assert.Equal(t, "06/30/2025", term.EventDate)
	assert.Equal(t, "123456789", term.SSN)
	assert.Empty(t, term.Dependents)

	ageOut := resp.Beneficiaries[1]
	assert.Equal(t, "INELIGIBLE_DEPENDENT", ageOut.EventType)
	require.Len(t, ageOut.Dependents, 1)
	assert.Equal(t, "Ana Nunez", ageOut.Dependents[0].Name, "diacritics folded")
}

func TestGetExport_ReturnsImportFile(t *testing.T) {
	srv, _ := setupTestServer(t)
	loadScenario(t, srv, "termination")

	rec := do(t, srv, http.MethodGet, "/api/export?asOf=2025-06-15", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "cobra_qb_import_20250615.csv")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "sep=,\n[VERSION],1.2\n[QB],Warp Industries,"), body)
	assert.Contains(t, body, "[QBEVENT],TERMINATION,06/30/2025")
	assert.Equal(t, 3, strings.Count(body, "[QBPLANINITIAL]"))
}

func TestBadAsOf(t *testing.T) {
	srv, _ := setupTestServer(t)

	for _, path := range []string{"/api/extract", "/api/beneficiaries", "/api/export"} {
		rec := do(t, srv, http.MethodGet, path+"?asOf=not-a-date", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

// =============================================================================
// SCENARIOS
// =============================================================================

func TestListScenarios(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]ScenarioDTO](t, rec)
	require.Len(t, got, len(scenarios))
	for _, s := range got {
		_, ok := scenarioBuilders[s.ID]
		assert.True(t, ok, "scenario %s has a builder", s.ID)
	}
}

func TestLoadScenario_Unknown(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoadScenario_ReadOnlySource(t *testing.T) {
	h := NewHandler(runner.New(rules.Default(), store.NewMemory(), nil, nil), nil, nil, nil)
	srv := NewRouter(h, nil)

	rec := do(t, srv, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "mixed"})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

// =============================================================================
// RUNS
// =============================================================================

func TestTriggerRunThenListRuns(t *testing.T) {
	// GIVEN: the age-out scenario
	// WHEN: triggering a run and listing history
	// THEN: the run succeeded, wrote the output and is listed first
	srv, h := setupTestServer(t)
	loadScenario(t, srv, "age-out")

	rec := do(t, srv, http.MethodPost, "/api/runs?asOf=2025-06-15", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[RunDTO](t, rec)
	assert.Equal(t, "succeeded", run.Status)
	assert.Equal(t, 1, run.Beneficiaries)
	assert.FileExists(t, h.Paths.Output)

	rec = do(t, srv, http.MethodGet, "/api/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[RunsResponse](t, rec)
	require.Len(t, list.Runs, 1)
	assert.Equal(t, run.ID, list.Runs[0].ID)
	assert.Equal(t, "2025-06-15", list.Runs[0].AsOf)
}

func TestListRuns_BadLimit(t *testing.T) {
	srv, _ := setupTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/runs?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListRuns_NotConfigured(t *testing.T) {
	h := NewHandler(runner.New(rules.Default(), store.NewMemory(), nil, nil), nil, nil, nil)

	rec := do(t, NewRouter(h, nil), http.MethodGet, "/api/runs", nil)
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestRunScheduler_RunsOncePerDate(t *testing.T) {
	// GIVEN: a scheduler over the termination scenario
	// WHEN: checking twice on the same day, then on the next day
	// THEN: the second check is skipped and the next day runs again
	ctx := context.Background()
	snap, ok := ScenarioSnapshot("termination", testAsOf)
	require.True(t, ok)
	mem := store.NewMemoryWith(snap)

	dir := t.TempDir()
	paths := runner.Paths{Extract: filepath.Join(dir, "x.csv"), Output: filepath.Join(dir, "y.csv")}
	rs := NewRunScheduler(runner.New(rules.Default(), mem, mem, nil), mem, paths, nil)
	today := testAsOf
	rs.Today = func() generic.Date { return today }

	assert.True(t, rs.RunNow(ctx), "first check runs")
	assert.False(t, rs.RunNow(ctx), "already exported")

	today = testAsOf.AddDays(1)
	assert.True(t, rs.RunNow(ctx), "next day runs")

	runs, err := mem.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunScheduler_RetriesAfterFailure(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()

	// output directory does not exist, so every run fails
	paths := runner.Paths{
		Extract: filepath.Join(t.TempDir(), "x.csv"),
		Output:  filepath.Join(t.TempDir(), "missing", "y.csv"),
	}
	rs := NewRunScheduler(runner.New(rules.Default(), mem, mem, nil), mem, paths, nil)
	rs.Today = func() generic.Date { return testAsOf }

	assert.True(t, rs.RunNow(ctx))
	assert.True(t, rs.RunNow(ctx), "failed run does not count as done")

	runs, _ := mem.ListRuns(ctx, 0)
	require.Len(t, runs, 2)
	assert.Equal(t, generic.RunFailed, runs[0].Status)
}

func TestRunScheduler_StartStop(t *testing.T) {
	mem := store.NewMemory()
	dir := t.TempDir()
	rs := NewRunScheduler(runner.New(rules.Default(), mem, mem, nil), mem,
		runner.Paths{Extract: filepath.Join(dir, "x.csv"), Output: filepath.Join(dir, "y.csv")}, nil)
	rs.Today = func() generic.Date { return testAsOf }
	rs.CheckInterval = time.Hour

	rs.Start()
	require.Eventually(t, func() bool {
		runs, _ := mem.ListRuns(context.Background(), 0)
		return len(runs) == 1
	}, 5*time.Second, 10*time.Millisecond)
	rs.Stop()
	rs.Stop() // idempotent
}

func TestRunScheduler_RestartKeepsTicking(t *testing.T) {
	// GIVEN: a scheduler whose clock moves to a new day on every check
	// WHEN: it is stopped and started again
	// THEN: the restarted loop keeps running on each tick
	mem := store.NewMemory()
	dir := t.TempDir()
	rs := NewRunScheduler(runner.New(rules.Default(), mem, mem, nil), mem,
		runner.Paths{Extract: filepath.Join(dir, "x.csv"), Output: filepath.Join(dir, "y.csv")}, nil)
	var day atomic.Int32
	rs.Today = func() generic.Date { return testAsOf.AddDays(int(day.Add(1))) }
	rs.CheckInterval = 10 * time.Millisecond

	countRuns := func() int {
		runs, _ := mem.ListRuns(context.Background(), 0)
		return len(runs)
	}

	rs.Start()
	require.Eventually(t, func() bool { return countRuns() >= 1 }, 5*time.Second, 5*time.Millisecond)
	rs.Stop()

	before := countRuns()
	rs.Start()
	defer rs.Stop()
	require.Eventually(t, func() bool { return countRuns() >= before+3 }, 5*time.Second, 5*time.Millisecond)
}
