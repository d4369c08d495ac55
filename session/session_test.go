package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/tutorbox/apperror"
	"github.com/isdmx/tutorbox/tutor"
)

func TestStoreLifecycle(t *testing.T) {
	store := NewStore("sys", time.Hour)

	sess := store.Create()
	require.NotEmpty(t, sess.ID)
	assert.Equal(t, 1, sess.Transcript.Len())
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.SetAPIKey(sess.ID, "key"))
	next := sess.Transcript.With(tutor.Message{Role: tutor.RoleUser, Content: "hi"})
	require.NoError(t, store.SetTranscript(sess.ID, next))

	got, err := store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "key", got.APIKey)
	assert.Equal(t, 2, got.Transcript.Len())

	require.NoError(t, store.Reset(sess.ID))
	got, err = store.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Transcript.Len())
	assert.Equal(t, "key", got.APIKey)

	store.Delete(sess.ID)
	store.Delete(sess.ID)
	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStoreUnknownSession(t *testing.T) {
	store := NewStore("", time.Hour)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.ErrorIs(t, store.SetAPIKey("missing", "k"), apperror.ErrNotFound)
	assert.ErrorIs(t, store.SetTranscript("missing", tutor.Transcript{}), apperror.ErrNotFound)
}

func TestStoreSweep(t *testing.T) {
	store := NewStore("sys", 10*time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	stale := store.Create()
	now = now.Add(5 * time.Minute)
	fresh := store.Create()

	now = now.Add(6 * time.Minute)
	assert.Equal(t, 1, store.Sweep())

	_, err := store.Get(stale.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}

func TestStoreGetRefreshesActivity(t *testing.T) {
	store := NewStore("sys", 10*time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sess := store.Create()
	now = now.Add(9 * time.Minute)
	_, err := store.Get(sess.ID)
	require.NoError(t, err)

	now = now.Add(9 * time.Minute)
	assert.Equal(t, 0, store.Sweep())
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore("sys", time.Hour)
	sess := store.Create()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.SetAPIKey(sess.ID, fmt.Sprintf("key-%d", i))
			_, _ = store.Get(sess.ID)
			store.Create()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 51, store.Len())
}
