package ingest

import (
	"fmt"
	"sync"
	"time"
)

var (
	idMu        sync.Mutex
	lastIDStamp int64
)

// BuildIDs returns count upsert keys of the form {namespace}-{timestamp}-{i}.
// All ids of one call share a single timestamp. The timestamp is bumped past
// the previous call's when two calls land in the same millisecond, so batches
// created concurrently in one process never collide.
func BuildIDs(count int, namespace string) []string {
	idMu.Lock()
	ts := time.Now().UnixMilli()
	if ts <= lastIDStamp {
		ts = lastIDStamp + 1
	}
	lastIDStamp = ts
	idMu.Unlock()

	ids := make([]string, count)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%d-%d", namespace, ts, i)
	}
	return ids
}
