package database

import (
	"context"
	"time"
)

// DefaultWriteTimeout bounds one match insert issued through a RunSink.
const DefaultWriteTimeout = 5 * time.Second

// RunSink stores match records of one run. It implements result.Sink so it
// can be fanned out next to the result file.
type RunSink struct {
	hdb     *HistoryDB
	runID   int64
	timeout time.Duration
}

// RunSink returns a sink that appends match records to runID.
func (hdb *HistoryDB) RunSink(runID int64) *RunSink {
	return &RunSink{
		hdb:     hdb,
		runID:   runID,
		timeout: DefaultWriteTimeout,
	}
}

// RunID returns the run the sink writes to.
func (s *RunSink) RunID() int64 {
	return s.runID
}

// Append stores one record. The result.Sink interface carries no context,
// so each insert gets its own timeout.
func (s *RunSink) Append(pageURL string, words []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	return s.hdb.InsertMatch(ctx, s.runID, pageURL, words)
}
