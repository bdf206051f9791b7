package session

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestMemoryStoreCreatesInitialSession(t *testing.T) {
	store := NewMemoryStore()
	sess, err := store.GetOrCreate(context.Background(), "15550001111")
	require.NoError(t, err)

	assert.Equal(t, "15550001111", sess.ID)
	assert.Equal(t, StateInitial, sess.State)
	assert.Equal(t, Context{}, sess.Context)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStoreRejectsEmptyID(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetOrCreate(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrEmptyID)
	assert.ErrorIs(t, store.Save(context.Background(), &Session{}), ErrEmptyID)
}

func TestMemoryStoreIsolatesCopiesUntilSave(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := store.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	sess.State = StateAwaitingName
	sess.Context.Name = strPtr("Jane")

	again, err := store.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateInitial, again.State, "unsaved mutation must not leak")
	assert.Nil(t, again.Context.Name)

	require.NoError(t, store.Save(ctx, sess))
	*sess.Context.Name = "changed after save"

	saved, err := store.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingName, saved.State)
	require.NotNil(t, saved.Context.Name)
	assert.Equal(t, "Jane", *saved.Context.Name)
}

func TestMemoryStoreConcurrentFirstContact(t *testing.T) {
	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, err := store.GetOrCreate(context.Background(), "same-user")
			assert.NoError(t, err)
			assert.Equal(t, StateInitial, sess.State)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, store.Len())
}

func TestStateValid(t *testing.T) {
	for _, s := range []State{StateInitial, StateAwaitingResponse, StateAwaitingName, StateAwaitingEmail, StateAwaitingExperience} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, State("").Valid())
	assert.False(t, State("AWAITING_PHONE").Valid())
}

func TestSessionCloneIsDeep(t *testing.T) {
	orig := New("u1")
	orig.Context.Email = strPtr("a@b.co")
	cp := orig.Clone()
	*cp.Context.Email = "x@y.z"
	assert.Equal(t, "a@b.co", *orig.Context.Email)

	var nilSession *Session
	assert.Nil(t, nilSession.Clone())
}
