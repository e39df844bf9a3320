package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"h2oData/src/config"
	"h2oData/src/writer"

	"github.com/stretchr/testify/require"
)

func TestParseSize(t *testing.T) {
	for name, want := range map[string]int64{
		"SMALL":  10_000_000,
		"small":  10_000_000,
		"MEDIUM": 100_000_000,
		"LARGE":  1_000_000_000,
		"BIG":    1_000_000_000,
	} {
		got, err := ParseSize(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	_, err := ParseSize("HUGE")
	require.Error(t, err)
}

func runRequest(t *testing.T, req Request) string {
	t.Helper()
	dir := t.TempDir()
	req.PathPrefix = dir

	ctx := context.Background()
	orch, err := New(ctx, req, config.Default())
	require.NoError(t, err)
	defer orch.Close()
	require.NoError(t, orch.Run(ctx))
	return dir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestGroupByEndToEnd(t *testing.T) {
	req := Request{
		Kind:      DatasetGroupBy,
		Rows:      10_000,
		Format:    writer.FormatCSV,
		K:         100,
		Seed:      42,
		BatchSize: 3_000,
		Threads:   2,
	}
	dir := runRequest(t, req)

	lines := readLines(t, filepath.Join(dir, "G1_1e4_1e4_100_0.csv"))
	require.Len(t, lines, 10_001)
	require.Equal(t, "id1,id2,id3,id4,id5,id6,v1,v2,v3", lines[0])
	for _, line := range lines[1:100] {
		require.Len(t, strings.Split(line, ","), 9)
		require.True(t, strings.HasPrefix(line, "id"))
	}
}

func TestGroupByRunsAreReproducible(t *testing.T) {
	req := Request{
		Kind:      DatasetGroupBy,
		Rows:      5_000,
		Format:    writer.FormatCSV,
		K:         50,
		NAs:       10,
		Seed:      42,
		BatchSize: 1_000,
	}
	first := runRequest(t, req)
	second := runRequest(t, req)

	a, err := os.ReadFile(filepath.Join(first, "G1_5e3_5e3_50_10.csv"))
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(second, "G1_5e3_5e3_50_10.csv"))
	require.NoError(t, err)
	require.Equal(t, a, b)

	// A different seed produces different data.
	req.Seed = 7
	third := runRequest(t, req)
	c, err := os.ReadFile(filepath.Join(third, "G1_5e3_5e3_50_10.csv"))
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestRerunReplacesPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	req := Request{
		Kind:       DatasetGroupBy,
		PathPrefix: dir,
		Rows:       500,
		Format:     writer.FormatDelta,
		K:          10,
		Seed:       42,
		BatchSize:  250,
	}

	run := func() {
		orch, err := New(ctx, req, config.Default())
		require.NoError(t, err)
		defer orch.Close()
		require.NoError(t, orch.Run(ctx))
	}
	run()
	run()

	// The second run replaced the first: one part file, referenced by the log.
	tableDir := filepath.Join(dir, "G1_5e2_5e2_10_0")
	parts, err := filepath.Glob(filepath.Join(tableDir, "part-00000-*-c000.snappy.parquet"))
	require.NoError(t, err)
	require.Len(t, parts, 1)

	logData, err := os.ReadFile(filepath.Join(tableDir, "_delta_log", "00000000000000000000.json"))
	require.NoError(t, err)
	require.Contains(t, string(logData), filepath.Base(parts[0]))

	// CSV reruns overwrite in place as well.
	req.Format = writer.FormatCSV
	run()
	run()
	lines := readLines(t, filepath.Join(dir, "G1_5e2_5e2_10_0.csv"))
	require.Len(t, lines, 501)
}

func TestJoinEndToEnd(t *testing.T) {
	req := Request{
		Kind:      DatasetJoin,
		Rows:      1_000_000,
		Format:    writer.FormatCSV,
		Seed:      42,
		BatchSize: 500_000,
		Threads:   4,
	}
	dir := runRequest(t, req)

	cases := []struct {
		file string
		rows int
		cols int
	}{
		{"J1_1e6_NA_0.csv", 1_000_000, 7},
		{"J1_1e6_1e0_0.csv", 1, 3},
		{"J1_1e6_1e3_0.csv", 1_000, 5},
		{"J1_1e6_1e6_NA.csv", 1_000_000, 7},
	}
	for _, c := range cases {
		lines := readLines(t, filepath.Join(dir, c.file))
		require.Len(t, lines, c.rows+1, c.file)
		require.Len(t, strings.Split(lines[1], ","), c.cols, c.file)
	}

	// All tables share the request seed, so id1 of the small table is drawn
	// from the same range the lhs id1 column covers.
	small := readLines(t, filepath.Join(dir, "J1_1e6_1e0_0.csv"))
	require.Equal(t, "id1,id4,v2", small[0])
}
