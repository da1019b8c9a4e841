package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/formbot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	participantID := "contract-" + time.Now().Format("20060102150405.000000")

	t.Run("Load Missing Returns Idle", func(t *testing.T) {
		sess, err := store.Load(ctx, "missing-"+participantID)
		require.NoError(t, err)
		require.NotNil(t, sess)
		assert.Equal(t, domain.StateNone, sess.State.Normalize())
		assert.Empty(t, sess.Fields)
	})

	t.Run("Save and Load", func(t *testing.T) {
		sess := domain.NewSession(participantID)
		sess.State = domain.StateAwaitGender
		sess.Fields[domain.FieldName] = "Alice"
		sess.Fields[domain.FieldAge] = 30

		require.NoError(t, store.Save(ctx, participantID, sess))

		loaded, err := store.Load(ctx, participantID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateAwaitGender, loaded.State)
		assert.Equal(t, "Alice", loaded.Fields[domain.FieldName])
		// JSON backends turn ints into float64; only presence is part of the contract.
		assert.NotNil(t, loaded.Fields[domain.FieldAge])
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		sess := domain.NewSession(participantID)
		sess.State = domain.StateAwaitAge
		sess.Fields[domain.FieldName] = "Bob"
		require.NoError(t, store.Save(ctx, participantID, sess))

		loaded, err := store.Load(ctx, participantID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateAwaitAge, loaded.State)
		assert.Equal(t, "Bob", loaded.Fields[domain.FieldName])
		assert.NotContains(t, loaded.Fields, domain.FieldAge)
	})

	t.Run("Loaded Copy Is Isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, participantID)
		require.NoError(t, err)
		loaded.Fields[domain.FieldName] = "Mallory"

		again, err := store.Load(ctx, participantID)
		require.NoError(t, err)
		assert.Equal(t, "Bob", again.Fields[domain.FieldName])
	})

	t.Run("Clear", func(t *testing.T) {
		require.NoError(t, store.Clear(ctx, participantID))

		loaded, err := store.Load(ctx, participantID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateNone, loaded.State.Normalize())
		assert.Empty(t, loaded.Fields)
	})

	t.Run("Clear Missing Is Noop", func(t *testing.T) {
		assert.NoError(t, store.Clear(ctx, "never-seen-"+participantID))
	})

	t.Run("Save Idle Clears", func(t *testing.T) {
		sess := domain.NewSession(participantID)
		sess.State = domain.StateAwaitName
		require.NoError(t, store.Save(ctx, participantID, sess))

		require.NoError(t, store.Save(ctx, participantID, domain.NewSession(participantID)))

		loaded, err := store.Load(ctx, participantID)
		require.NoError(t, err)
		assert.Equal(t, domain.StateNone, loaded.State.Normalize())
	})

	t.Run("Participants Are Isolated", func(t *testing.T) {
		a, b := participantID+"-a", participantID+"-b"
		sa := domain.NewSession(a)
		sa.State = domain.StateAwaitAge
		sa.Fields[domain.FieldName] = "Ann"
		require.NoError(t, store.Save(ctx, a, sa))
		defer func() { _ = store.Clear(ctx, a) }()

		loaded, err := store.Load(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, domain.StateNone, loaded.State.Normalize())
	})

	if lister, ok := store.(SessionLister); ok {
		t.Run("List", func(t *testing.T) {
			id1 := participantID + "-1"
			id2 := participantID + "-2"
			for _, id := range []string{id1, id2} {
				s := domain.NewSession(id)
				s.State = domain.StateAwaitName
				require.NoError(t, store.Save(ctx, id, s))
			}
			defer func() {
				_ = store.Clear(ctx, id1)
				_ = store.Clear(ctx, id2)
			}()

			ids, err := lister.List(ctx)
			require.NoError(t, err)
			assert.Contains(t, ids, id1)
			assert.Contains(t, ids, id2)
		})
	}
}

// RunProfileRepositoryContract verifies a ProfileRepository implementation.
func RunProfileRepositoryContract(t *testing.T, repo ProfileRepository) {
	ctx := context.Background()
	participantID := "contract-" + time.Now().Format("20060102150405.000000")

	profile := domain.Profile{
		Name:      "Alice",
		Age:       30,
		Gender:    domain.GenderFemale,
		Photo:     domain.Photo{FileID: "file-1", UniqueID: "uniq-1"},
		Education: domain.EducationHigher,
		WantsNews: true,
	}

	t.Run("Get Missing", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing-"+participantID)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	t.Run("Put and Get", func(t *testing.T) {
		require.NoError(t, repo.Put(ctx, participantID, profile))

		got, err := repo.Get(ctx, participantID)
		require.NoError(t, err)
		assert.Equal(t, profile.Name, got.Name)
		assert.Equal(t, profile.Age, got.Age)
		assert.Equal(t, profile.Gender, got.Gender)
		assert.Equal(t, profile.Photo, got.Photo)
		assert.Equal(t, profile.Education, got.Education)
		assert.True(t, got.WantsNews)
	})

	t.Run("Put Overwrites", func(t *testing.T) {
		second := profile
		second.Name = "Bob"
		second.Gender = domain.GenderMale
		second.WantsNews = false
		require.NoError(t, repo.Put(ctx, participantID, second))

		got, err := repo.Get(ctx, participantID)
		require.NoError(t, err)
		assert.Equal(t, "Bob", got.Name)
		assert.Equal(t, domain.GenderMale, got.Gender)
		assert.False(t, got.WantsNews)
	})
}
