package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	cutoff   time.Time
	tokens   int64
	accounts int64
	err      error
}

func (s *stubPurger) PurgeExpired(ctx context.Context, pendingCutoff time.Time) (int64, int64, error) {
	s.cutoff = pendingCutoff
	return s.tokens, s.accounts, s.err
}

func TestPurgeExpiredJobUsesCutoff(t *testing.T) {
	purger := &stubPurger{tokens: 3, accounts: 1}
	job := NewPurgeExpiredJob(purger, nil, nil, 24*time.Hour)

	require.NoError(t, job.Handle(context.Background(), NewPurgeExpiredTask()))

	want := time.Now().UTC().Add(-24 * time.Hour)
	require.WithinDuration(t, want, purger.cutoff, time.Minute)
}

func TestPurgeExpiredJobPropagatesError(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	job := NewPurgeExpiredJob(purger, nil, nil, time.Hour)
	require.Error(t, job.Handle(context.Background(), NewPurgeExpiredTask()))
}
