package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/curioai/internal/domain"
)

// countingTxRunner tracks how many mutation transactions are in flight at
// once. The sleep widens the overlap window so an unserialized pair of
// mutations reliably shows up as two concurrent transactions.
type countingTxRunner struct {
	inner       TxRunner
	mu          sync.Mutex
	inflight    int
	maxInflight int
}

func (r *countingTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	r.mu.Lock()
	r.inflight++
	if r.inflight > r.maxInflight {
		r.maxInflight = r.inflight
	}
	r.mu.Unlock()

	time.Sleep(20 * time.Millisecond)
	err := r.inner.WithTx(ctx, fn)

	r.mu.Lock()
	r.inflight--
	r.mu.Unlock()
	return err
}

func TestFolderLocks_Lock(t *testing.T) {
	locks := NewFolderLocks()

	t.Run("same path is exclusive", func(t *testing.T) {
		unlock := locks.Lock("topic")

		acquired := make(chan struct{})
		go func() {
			inner := locks.Lock("topic")
			close(acquired)
			inner()
		}()

		select {
		case <-acquired:
			t.Fatal("second Lock on the same path succeeded while held")
		case <-time.After(50 * time.Millisecond):
		}

		unlock()
		select {
		case <-acquired:
		case <-time.After(time.Second):
			t.Fatal("second Lock did not proceed after unlock")
		}
	})

	t.Run("different paths do not block each other", func(t *testing.T) {
		unlock := locks.Lock("one")
		defer unlock()

		done := make(chan struct{})
		go func() {
			inner := locks.Lock("two")
			inner()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("Lock on a different path blocked")
		}
	})
}

// A routing placement and a cleanup merge against the same folder must not
// interleave: both recompute the folder's centroid and exemplars from the
// member list, so overlapping transactions would leave the derived state
// computed from a stale snapshot.
func TestFolderLocks_SharedArenaSerializesFolderMutations(t *testing.T) {
	ctx := context.Background()

	artifacts := new(MockArtifactRepository)
	folders := new(MockFolderRepository)
	distiller := new(MockDistiller)

	// Routing: no duplicate, one high-confidence folder, placement commit.
	expectNoDuplicate(artifacts)
	folders.On("List", mock.Anything).Return([]*domain.Folder{scoredFolder("topic", 0.95)}, nil)
	artifacts.On("Create", mock.Anything, mock.Anything).Return(nil)

	// Cleanup: two identical members collapse into one merge group.
	members := []*domain.Artifact{member("m1", []float32{1, 0}), member("m2", []float32{1, 0})}
	folders.On("GetByPath", mock.Anything, "topic").Return(&domain.Folder{Path: "topic"}, nil)
	artifacts.On("ListByFolder", mock.Anything, "topic").Return(members, nil)
	distiller.On("NameMerge", mock.Anything, []string{"text m1", "text m2"}).
		Return(&DistillResult{Title: "Merged", Summary: "Merged summary"}, nil)
	artifacts.On("UpdateTitleSummary", mock.Anything, "m1", "Merged", "Merged summary").Return(nil)
	artifacts.On("Delete", mock.Anything, "m2").Return(nil)
	folders.On("UpdateDerived", mock.Anything, "topic", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	txRunner := &countingTxRunner{inner: &fakeTxRunner{artifacts: artifacts, folders: folders}}
	locks := NewFolderLocks()
	cache := NewFolderCache(folders, cacheConfig())
	detector := NewDuplicateDetector(artifacts, vectorConfig())
	scorer := NewFolderScorer(flatScoring())
	routing := NewRoutingService(detector, scorer, cache, txRunner, locks, routingConfig(), flatScoring())
	cleanup := NewCleanupService(artifacts, folders, distiller, txRunner, cache, locks, batchConfig(), scoringConfig())

	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = routing.Route(ctx, routedArtifact())
	}()
	go func() {
		defer wg.Done()
		_, errs[1] = cleanup.CleanupFolder(ctx, "topic")
	}()
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, txRunner.maxInflight,
		"membership mutations for the same folder ran concurrently")
}
