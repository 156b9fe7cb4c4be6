package library

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIdentifier(t *testing.T) {
	assert.NoError(t, CheckIdentifier(3, 3))

	err := CheckIdentifier(3, 0)
	var mismatch *IdentifierMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int64(3), mismatch.PathID)
	assert.Equal(t, int64(0), mismatch.BodyID)
	assert.Equal(t, "body id 0 does not match path id 3", err.Error())
}

func TestErrors_MatchSentinelsWhenWrapped(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{authorNotFound(1), ErrNotFound},
		{&IdentifierMismatchError{PathID: 1, BodyID: 2}, ErrIdentifierMismatch},
		{&ValidationError{Field: "name", Reason: "must not be empty"}, ErrValidation},
		{&ConflictError{Reason: "dup"}, ErrConflict},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("outer: %w", tc.err)
		assert.ErrorIs(t, wrapped, tc.sentinel)
		for _, other := range []error{ErrNotFound, ErrIdentifierMismatch, ErrValidation, ErrConflict} {
			if other != tc.sentinel {
				assert.False(t, errors.Is(wrapped, other))
			}
		}
	}
	assert.Equal(t, "book 7 not found", bookNotFound(7).Error())
}

func TestValidateDraft(t *testing.T) {
	assert.NoError(t, validateDraft(AuthorDraft{Name: "Orwell"}))

	err := validateDraft(AuthorDraft{Name: " \t"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "name", ve.Field)
	assert.Equal(t, "must not be empty", ve.Reason)

	draft := orwellDraft()
	draft.ISBN = 42
	require.ErrorAs(t, validateDraft(draft), &ve)
	assert.Equal(t, "isbn", ve.Field)
	assert.Equal(t, "must be at least 1000000000", ve.Reason)
}

func TestDedupeIDs(t *testing.T) {
	assert.Equal(t, []int64{3, 1, 2}, dedupeIDs([]int64{3, 1}, []int64{1, 2, 3}))
	assert.Empty(t, dedupeIDs(nil))
}

func TestEntityLocks_SerializesSameKey(t *testing.T) {
	locks := newEntityLocks()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(bookKey(1), authorKey(2))
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, locks.locks)
}

func TestEntityLocks_OppositeOrderDoesNotDeadlock(t *testing.T) {
	locks := newEntityLocks()
	done := make(chan struct{})

	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				locks.lock(bookKey(1), authorKey(1))()
			}()
			go func() {
				defer wg.Done()
				locks.lock(authorKey(1), bookKey(1), bookKey(1))()
			}()
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lock acquisition deadlocked")
	}
}

func TestLockOrder(t *testing.T) {
	ids := []int64{5, 1, 3}
	assert.Equal(t, []int64{1, 3, 5}, lockOrder(ids))
	assert.Equal(t, []int64{5, 1, 3}, ids)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now\\`, escapeLike(`50% off_now\`))
}
