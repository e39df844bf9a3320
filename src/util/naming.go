package util

import (
	"strconv"
	"strings"
)

// PrettySci renders a row count in the compact scientific form used by h2o
// dataset names, e.g. 10000000 -> "1e7". Zero has no meaningful form and is
// rendered as "NA".
func PrettySci(n int64) string {
	if n == 0 {
		return "NA"
	}

	s := strconv.FormatInt(n, 10)
	zeros := 0
	for strings.HasSuffix(s, "0") {
		s = strings.TrimSuffix(s, "0")
		zeros++
	}
	if len(s) == 1 {
		return s + "e" + strconv.Itoa(zeros)
	}

	// Round to one significant digit, matching the db-benchmark convention.
	out := strconv.FormatFloat(float64(n), 'e', 0, 64)
	out = strings.ReplaceAll(out, "e+0", "e")
	return strings.ReplaceAll(out, "e+", "e")
}

// GroupByName builds the groupby dataset file name, e.g.
// "G1_1e7_1e7_100_0.csv". ext is empty for directory-shaped outputs.
func GroupByName(n, k int64, nas int, ext string) string {
	return "G1_" + PrettySci(n) + "_" + PrettySci(n) + "_" +
		strconv.FormatInt(k, 10) + "_" + strconv.Itoa(nas) + ext
}

// JoinLHSName builds the join left-hand-side file name, e.g. "J1_1e7_NA_0.csv".
func JoinLHSName(n int64, nas int, ext string) string {
	return "J1_" + PrettySci(n) + "_NA_" + strconv.Itoa(nas) + ext
}

// JoinSmallName builds the small right-hand-side file name, e.g.
// "J1_1e7_1e1_0.csv".
func JoinSmallName(n int64, nas int, ext string) string {
	return "J1_" + PrettySci(n) + "_" + PrettySci(n/1_000_000) + "_" + strconv.Itoa(nas) + ext
}

// JoinMediumName builds the medium right-hand-side file name, e.g.
// "J1_1e7_1e4_0.csv".
func JoinMediumName(n int64, nas int, ext string) string {
	return "J1_" + PrettySci(n) + "_" + PrettySci(n/1_000) + "_" + strconv.Itoa(nas) + ext
}

// JoinBigName builds the big right-hand-side file name, e.g. "J1_1e7_1e7_NA.csv".
func JoinBigName(n int64, ext string) string {
	return "J1_" + PrettySci(n) + "_" + PrettySci(n) + "_NA" + ext
}
