package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPrettySci(t *testing.T) {
	cases := map[int64]string{
		0:             "NA",
		1:             "1e0",
		10:            "1e1",
		100:           "1e2",
		10_000_000:    "1e7",
		100_000_000:   "1e8",
		1_000_000_000: "1e9",
		5_000:         "5e3",
	}
	for n, want := range cases {
		require.Equal(t, want, PrettySci(n), "n=%d", n)
	}
}

func TestDatasetNames(t *testing.T) {
	require.Equal(t, "G1_1e7_1e7_100_0.csv", GroupByName(10_000_000, 100, 0, ".csv"))
	require.Equal(t, "G1_1e8_1e8_10_5.parquet", GroupByName(100_000_000, 10, 5, ".parquet"))
	// Delta tables are directories without an extension.
	require.Equal(t, "G1_1e7_1e7_100_0", GroupByName(10_000_000, 100, 0, ""))

	require.Equal(t, "J1_1e7_NA_0.csv", JoinLHSName(10_000_000, 0, ".csv"))
	require.Equal(t, "J1_1e7_1e1_0.csv", JoinSmallName(10_000_000, 0, ".csv"))
	require.Equal(t, "J1_1e7_1e4_0.csv", JoinMediumName(10_000_000, 0, ".csv"))
	require.Equal(t, "J1_1e7_1e7_NA.csv", JoinBigName(10_000_000, ".csv"))
}

func TestClampBatchSize(t *testing.T) {
	require.Equal(t, DefaultBatchSize, ClampBatchSize(0, 100_000_000))
	require.Equal(t, 1_000, ClampBatchSize(1_000, 100_000_000))
	require.Equal(t, 500, ClampBatchSize(1_000, 500))
	require.Equal(t, 1, ClampBatchSize(10, 0))
	// Requests above the default are honored, only the row count caps them.
	require.Equal(t, 8_000_000, ClampBatchSize(8_000_000, 100_000_000))
	require.Equal(t, 1_000_000, ClampBatchSize(8_000_000, 1_000_000))
}
