package runner_test

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/qb-export/extract"
	"github.com/warp/qb-export/generic"
	"github.com/warp/qb-export/generic/store"
	"github.com/warp/qb-export/rules"
	"github.com/warp/qb-export/runner"
	"github.com/warp/qb-export/source"
	"github.com/warp/qb-export/source/sourcetest"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func tempPaths(t *testing.T, ext string) runner.Paths {
	t.Helper()
	dir := t.TempDir()
	return runner.Paths{
		Extract: filepath.Join(dir, "cobra_extract"+ext),
		Output:  filepath.Join(dir, "cobra_qb_import.csv"),
	}
}

func firstLines(t *testing.T, path string, n int) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() && len(lines) < n {
		lines = append(lines, sc.Text())
	}
	return lines
}

type failingSource struct{}

func (failingSource) Load(context.Context) (*source.Snapshot, error) {
	return nil, errors.New("connection refused")
}

// =============================================================================
// PIPELINE
// =============================================================================

func TestRun_WritesBothFilesAndRecordsSuccess(t *testing.T) {
	// GIVEN: the sample snapshot and an in-memory run store
	// WHEN: running both stages for the sample date
	// THEN: the extract and the import file exist, the import file starts
	//   with the delimiter and version lines, and the run is recorded
	ctx := context.Background()
	runs := store.NewMemory()
	p := runner.New(rules.Default(), store.NewMemoryWith(sourcetest.Snapshot()), runs, nil)
	paths := tempPaths(t, ".csv")

	run, err := p.Run(ctx, sourcetest.AsOf, paths)
	require.NoError(t, err)

	assert.Equal(t, generic.RunSucceeded, run.Status)
	assert.NotEmpty(t, run.ID)
	assert.Positive(t, run.ExtractRows)
	assert.Equal(t, 2, run.Beneficiaries, "E001 and E002")
	assert.FileExists(t, paths.Extract)
	lines := firstLines(t, paths.Output, 3)
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"sep=,", "[VERSION],1.2"}, lines[:2])
	assert.True(t, strings.HasPrefix(lines[2], "[QB],"), lines[2])

	recorded, err := runs.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, run.ID, recorded[0].ID)
	assert.Equal(t, generic.RunSucceeded, recorded[0].Status)
	assert.False(t, recorded[0].CompletedAt.IsZero())
}

func TestRun_SourceFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	runs := store.NewMemory()
	p := runner.New(rules.Default(), failingSource{}, runs, nil)
	paths := tempPaths(t, ".csv")

	run, err := p.Run(ctx, sourcetest.AsOf, paths)
	require.Error(t, err)
	assert.Equal(t, generic.RunFailed, run.Status)
	assert.Contains(t, run.Error, "connection refused")
	assert.NoFileExists(t, paths.Output)

	recorded, _ := runs.ListRuns(ctx, 0)
	require.Len(t, recorded, 1)
	assert.Equal(t, generic.RunFailed, recorded[0].Status)
}

func TestRun_ParquetExtract(t *testing.T) {
	p := runner.New(rules.Default(), store.NewMemoryWith(sourcetest.Snapshot()), nil, nil)
	paths := tempPaths(t, ".parquet")

	run, err := p.Run(context.Background(), sourcetest.AsOf, paths)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Beneficiaries)

	rows, err := extract.ReadFile(paths.Extract)
	require.NoError(t, err)
	assert.Len(t, rows, run.ExtractRows)
}

func TestBuild_MissingColumnLeavesNoOutput(t *testing.T) {
	// GIVEN: an extract whose header lacks most columns, and yesterday's
	//        import file still sitting at the output path
	// WHEN: building
	// THEN: the contract error surfaces and no output file is left behind
	paths := tempPaths(t, ".csv")
	require.NoError(t, os.WriteFile(paths.Extract, []byte("employee_id,first_name\nE1,Ann\n"), 0o644))
	require.NoError(t, os.WriteFile(paths.Output, []byte("YESTERDAY\n"), 0o644))

	p := runner.New(rules.Default(), nil, nil, nil)
	_, err := p.Build(paths)

	assert.ErrorIs(t, err, generic.ErrMissingColumn)
	assert.NoFileExists(t, paths.Output)
}

func TestBuild_MissingExtractRemovesPreviousOutput(t *testing.T) {
	paths := tempPaths(t, ".csv")
	require.NoError(t, os.WriteFile(paths.Output, []byte("YESTERDAY\n"), 0o644))

	_, err := runner.New(rules.Default(), nil, nil, nil).Build(paths)

	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, paths.Output)
}

func TestBuild_EmptyExtractWritesHeaderOnly(t *testing.T) {
	paths := tempPaths(t, ".csv")
	require.NoError(t, extract.WriteFile(paths.Extract, nil))

	p := runner.New(rules.Default(), nil, nil, nil)
	res, err := p.Build(paths)
	require.NoError(t, err)

	assert.Empty(t, res.Beneficiaries)
	assert.Equal(t, []string{"sep=,", "[VERSION],1.2"}, firstLines(t, paths.Output, 5))
}

// =============================================================================
// ARCHIVE
// =============================================================================

func TestArchiveName(t *testing.T) {
	at := time.Date(2025, 6, 15, 14, 3, 9, 0, time.UTC)
	assert.Equal(t,
		filepath.Join("archive", "cobra_extract_20250615_140309.csv"),
		runner.ArchiveName("archive", "/data/cobra_extract.csv", at))
}

func TestArchive_MovesExistingSkipsMissing(t *testing.T) {
	// GIVEN: an extract on disk and no output file
	// WHEN: archiving both
	// THEN: the extract moves under a timestamped name and the missing output
	//   is skipped without error
	paths := tempPaths(t, ".csv")
	require.NoError(t, os.WriteFile(paths.Extract, []byte("x"), 0o644))

	a := runner.NewArchiver(filepath.Join(t.TempDir(), "archive"), nil)
	a.Now = func() time.Time { return time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC) }

	moved, err := a.Archive(paths.Extract, paths.Output)
	require.NoError(t, err)

	require.Len(t, moved, 1)
	assert.Equal(t, "cobra_extract_20250615_080000.csv", filepath.Base(moved[0]))
	assert.FileExists(t, moved[0])
	assert.NoFileExists(t, paths.Extract)
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatcher_RebuildsAndArchives(t *testing.T) {
	// GIVEN: a watcher on an empty directory
	// WHEN: an extract file is written there
	// THEN: the import file is built and both files land in the archive
	paths := tempPaths(t, ".csv")
	archiveDir := filepath.Join(t.TempDir(), "archive")
	p := runner.New(rules.Default(), store.NewMemoryWith(sourcetest.Snapshot()), nil, nil)
	rows, err := p.Rows(context.Background(), sourcetest.AsOf)
	require.NoError(t, err)

	cycles := make(chan error, 4)
	w := runner.NewWatcher(p, runner.NewArchiver(archiveDir, nil), paths, nil)
	w.SetDebounce(50 * time.Millisecond)
	w.OnCycle = func(err error) { cycles <- err }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, extract.WriteFile(paths.Extract, rows))

	select {
	case err := <-cycles:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not rebuild")
	}

	entries, err := os.ReadDir(archiveDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "extract and output archived")
	assert.NoFileExists(t, paths.Extract)
	assert.NoFileExists(t, paths.Output)
}
