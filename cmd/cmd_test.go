package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listing = `<html><body>
<table class="run-data"><tbody>
<tr id="12345"><td class="date">Jan 1, 2016</td><td class="distance">5.2 mi</td><td class="duration">45:00</td></tr>
<tr id="12346"><td class="date">1/3/2016</td><td class="distance">3.1 mi</td><td class="duration">27:30</td></tr>
</tbody></table>
</body></html>`

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("APPDATA", "")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		resetFlags(rootCmd)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func serve(t *testing.T, body string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestScrape_HTTPDriverAppendsRecords(t *testing.T) {
	url := serve(t, listing)
	out := filepath.Join(t.TempDir(), "tracks.csv")

	stdout, _, err := execute(t, "scrape", "--driver", "http", "--url", url, "--output", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "2 tracks appended")

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "12345,Jan 1, 2016,5.2 mi,45:00\n12346,1/3/2016,3.1 mi,27:30\n", string(b))
}

func TestScrape_DryRunPrintsCSV(t *testing.T) {
	url := serve(t, listing)
	out := filepath.Join(t.TempDir(), "tracks.csv")

	stdout, stderr, err := execute(t, "scrape", "--driver", "http", "--url", url, "--output", out, "--format", "csv", "--dry-run")
	require.NoError(t, err)
	assert.Equal(t, "12345,\"Jan 1, 2016\",5.2 mi,45:00\n12346,1/3/2016,3.1 mi,27:30\n", stdout)
	assert.Contains(t, stderr, "fetching webpage")
	assert.NoFileExists(t, out)
}

func TestScrape_MissingTableFails(t *testing.T) {
	url := serve(t, `<html><body><p>nothing here</p></body></html>`)
	out := filepath.Join(t.TempDir(), "tracks.csv")

	_, _, err := execute(t, "scrape", "--driver", "http", "--url", url, "--output", out)
	require.Error(t, err)
	assert.Contains(t, describeError(err), "error [missing element]")
	assert.Contains(t, describeError(err), ".run-data")
}

func TestTracks_RendersTableAndSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	data := "12345,Jan 1, 2016,5.2 mi,45:00\nbroken line\n9,2016-06-05,21.1 km,1:52:03\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	stdout, stderr, err := execute(t, "tracks", "--file", path)
	require.NoError(t, err)

	assert.Contains(t, stderr, "tracks.csv:2")
	assert.Contains(t, stdout, "2016-01-01")
	assert.Contains(t, stdout, "8.37 km")
	assert.Contains(t, stdout, "2 RUNS")
	assert.Contains(t, stdout, "Longest: 21.10 km on 2016-06-05 (9)")
}

func TestTracks_NewestFirstWithGoal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracks.csv")
	data := "12345,Jan 1, 2016,5.2 mi,45:00\n9,2016-06-05,21.1 km,1:52:03\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	stdout, _, err := execute(t, "tracks", "--file", path, "--goal", "100")
	require.NoError(t, err)

	assert.Contains(t, stdout, "So far, you ran 29.5 km of 100 km")
	assert.Contains(t, stdout, " 29%")

	newest := strings.Index(stdout, "21.10 km")
	oldest := strings.Index(stdout, "8.37 km")
	require.GreaterOrEqual(t, newest, 0)
	require.GreaterOrEqual(t, oldest, 0)
	assert.Less(t, newest, oldest)
}

func TestTracks_Schedule(t *testing.T) {
	now = func() time.Time { return time.Date(2016, time.June, 9, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	path := filepath.Join(t.TempDir(), "tracks.csv")
	data := "12345,Jan 1, 2016,5.2 mi,45:00\n9,2016-06-05,21.1 km,1:52:03\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	stdout, _, err := execute(t, "tracks", "--file", path, "--schedule")
	require.NoError(t, err)

	assert.Contains(t, stdout, "of 365 km")
	assert.Contains(t, stdout, "2016-05-30")
	assert.NotContains(t, stdout, "2016-05-23")
	assert.Contains(t, stdout, "[5.5 x]")
	assert.Contains(t, stdout, "6.8")
	assert.NotContains(t, stdout, "12345")
}

func TestTracks_MissingFile(t *testing.T) {
	_, _, err := execute(t, "tracks", "--file", filepath.Join(t.TempDir(), "none.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tracks yet")
}

func TestConfig_InitListSwitch(t *testing.T) {
	stdout, _, err := execute(t, "config", "init", "--yes")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Config created at:")

	// execute isolates each call, so keep one config dir for the rest.
	dir := os.Getenv("XDG_CONFIG_HOME")
	run := func(args ...string) string {
		t.Setenv("XDG_CONFIG_HOME", dir)
		var buf bytes.Buffer
		rootCmd.SetOut(&buf)
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		resetFlags(rootCmd)
		return buf.String()
	}

	run("config", "init", "--yes")
	assert.Contains(t, run("config", "add", "trail"), "Created new config")
	assert.Contains(t, run("config", "switch", "trail"), "Switched to: trail")

	list := run("config", "list")
	assert.Contains(t, list, "Default")
	assert.Contains(t, list, "trail")

	assert.Contains(t, run("config", "remove", "trail", "--force"), "Fallback switched to: Default")
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "runscrape version: dev\n", stdout)
}
