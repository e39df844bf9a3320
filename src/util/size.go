package util

import (
	"github.com/cznic/mathutil"
)

// DefaultBatchSize is the row count of one generated record batch.
const DefaultBatchSize = 5_000_000

// ClampBatchSize bounds a requested batch size to [1, rows], substituting the
// default when the request is unset.
func ClampBatchSize(batchSize int, rows int64) int {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if rows < 1 {
		return 1
	}
	return mathutil.Clamp(batchSize, 1, int(rows))
}
