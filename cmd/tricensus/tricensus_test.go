package main

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/fine-structures/tricensus/tri3"
	"github.com/ghodss/yaml"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var updateGold = flag.Bool("update", false, "rewrite the gold files")

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := bytes.Buffer{}
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "%v\n%s", args, out)
	return out
}

// assertSameText fails with a readable diff if the texts differ.
func assertSameText(t *testing.T, want, got string, msg string) {
	t.Helper()
	if want == got {
		return
	}
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	t.Errorf("%s:\n%s", msg, dmp.DiffPrettyText(diffs))
}

// resultLines drops the running count prefix of each result line and sorts them.
func resultLines(out string) string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if i := strings.IndexByte(line, ','); i == 6 {
			lines = append(lines, line[i+1:])
		}
	}
	sort.Strings(lines)
	return strings.Join(lines, "\n")
}

func TestGold(t *testing.T) {
	goldDir := filepath.Join("testdata", "gold")
	require.NoError(t, os.MkdirAll(goldDir, 0700))

	for name, args := range map[string][]string{
		"pairings-3":        {"pairings", "-n", "3"},
		"pairings-2-bdry":   {"pairings", "-n", "2", "--boundary", "bounded", "--text", "--autos"},
		"census-1":          {"census", "-n", "1", "--pairing", "--gluings"},
		"census-2-nonorien": {"census", "-n", "2", "--orientable", "false", "--label", "N2"},
		"search-1":          {"search", "0:1 0:0 bdry bdry"},
	} {
		got := mustRun(t, args...)
		pathname := filepath.Join(goldDir, name+".txt")
		want, err := os.ReadFile(pathname)
		if *updateGold || os.IsNotExist(err) {
			require.NoError(t, os.WriteFile(pathname, []byte(got), 0644))
			continue
		}
		require.NoError(t, err)
		assertSameText(t, string(want), got, name)
	}
}

func TestCounts(t *testing.T) {
	out := mustRun(t, "pairings", "-n", "3", "-q")
	assert.Equal(t, "pairings, 3 tetrahedra: 4\npairings, total: 4\n", out)

	out = mustRun(t, "census", "-n", "2", "-q")
	assert.Equal(t, "triangulations, 2 tetrahedra: 17\ntriangulations, total: 17\n", out)

	out = mustRun(t, "census", "-n", "2", "-q", "--orientable", "false")
	assert.Equal(t, "triangulations, 2 tetrahedra: 1\ntriangulations, total: 1\n", out)

	out = mustRun(t, "census", "-n", "2", "-q", "--finite", "both")
	assert.Contains(t, out, "total: 61\n")

	out = mustRun(t, "census", "-n", "2", "-q", "--sieve", "!Orientable")
	assert.Contains(t, out, "total: 1\n")

	out = mustRun(t, "census", "-n", "1", "-q", "--boundary", "bounded", "--bdry-facets", "2")
	assert.Contains(t, out, "total: 2\n")
}

func TestSplitOutputMatches(t *testing.T) {
	args := []string{"census", "-n", "3", "--sig", "--info", "--gluings=false"}
	want := resultLines(mustRun(t, args...))
	require.NotEmpty(t, want)

	for _, extra := range [][]string{
		{"--workers", "3"},
		{"--workers", "2", "--split", "3"},
		{"--collapse"},
		{"--oracle", "completion"},
	} {
		got := resultLines(mustRun(t, append(args, extra...)...))
		assertSameText(t, want, got, strings.Join(extra, " "))
	}
}

func TestSearchCanonicalises(t *testing.T) {
	want := resultLines(mustRun(t, "search", "0:1 0:0 bdry bdry"))
	require.Len(t, strings.Split(want, "\n"), 2)

	// the same pairing with facets relabelled
	got := resultLines(mustRun(t, "search", "0:2 bdry 0:0 bdry"))
	assertSameText(t, want, got, "relabelled pairing")

	// the compact form
	got = resultLines(mustRun(t, "search", "0 1 0 0 1 0 1 0"))
	assertSameText(t, want, got, "text form")
}

func TestCatalog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cat")

	out := mustRun(t, "census", "-n", "2", "-q", "--catalog", dir)
	assert.Contains(t, out, "total: 17\n")

	// nothing new the second time
	out = mustRun(t, "census", "-n", "2", "-q", "--catalog", dir)
	assert.Equal(t, "triangulations, total: 0\n", out)

	out = mustRun(t, "catalog", "--catalog", dir, "--counts")
	assert.Equal(t, "stored, 2 tetrahedra: 17\nstored, total: 17\n", out)

	listed := resultLines(mustRun(t, "catalog", "--catalog", dir))
	found := resultLines(mustRun(t, "census", "-n", "2"))
	assertSameText(t, found, listed, "catalog listing")

	out = mustRun(t, "catalog", "--catalog", dir, "--orientable-only", "-q")
	assert.Contains(t, out, "total: 16\n")

	_, err := run(t, "catalog")
	assert.ErrorIs(t, err, tri3.ErrBadCatalogParam)
}

func TestFragmentsAndReport(t *testing.T) {
	dir := t.TempDir()
	frags := filepath.Join(dir, "n3.frags")
	out := mustRun(t, "census", "-n", "3", "--split", "3", "--write-fragments", frags)
	assert.Contains(t, out, "fragments written to")

	report := filepath.Join(dir, "report.yaml")
	out = mustRun(t, "census", "--fragments", frags, "-q", "--report", report)
	assert.Contains(t, out, "total: 81\n")

	buf, err := os.ReadFile(report)
	require.NoError(t, err)
	var summary map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf, &summary))
	assert.EqualValues(t, 81, summary["emitted"])
	assert.NotZero(t, summary["fragments"])
}

func TestConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	cfg := filepath.Join(t.TempDir(), "tricensus.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("orientable: \"true\"\nquiet: true\n"), 0644))
	out := mustRun(t, "census", "-n", "2", "--config", cfg)
	assert.Equal(t, "triangulations, 2 tetrahedra: 16\ntriangulations, total: 16\n", out)

	// flags win over the config file
	out = mustRun(t, "census", "-n", "2", "--config", cfg, "--orientable", "both")
	assert.Contains(t, out, "total: 17\n")
}

func TestBadArgs(t *testing.T) {
	_, err := run(t, "census", "-n", "0")
	assert.ErrorIs(t, err, tri3.ErrBadTetCount)

	_, err = run(t, "census", "-n", "2", "--sieve", "Orientable &&")
	assert.ErrorIs(t, err, tri3.ErrBadSieve)

	_, err = run(t, "census", "-n", "2", "--purge", "everything")
	assert.ErrorIs(t, err, tri3.ErrBadPurge)

	_, err = run(t, "census", "-n", "2", "--boundary", "sideways")
	assert.ErrorIs(t, err, tri3.ErrBadCensusParam)

	_, err = run(t, "search", "0:1 0:0 0:2")
	assert.ErrorIs(t, err, tri3.ErrBadPairingText)

	_, err = run(t, "search", "0:1 0:0 bdry bdry | 1:1 1:0 bdry bdry")
	assert.ErrorIs(t, err, tri3.ErrBadPairing)
}
