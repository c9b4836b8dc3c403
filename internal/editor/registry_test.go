package editor

import (
	"errors"
	"sync"
	"testing"

	"wrapreel/internal/blueprint"
	"wrapreel/internal/model"
	"wrapreel/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStoreWithProject(t *testing.T, id string) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	_, err := st.CreateProject(model.Project{ID: id, ShopID: "shop-1", Name: "drop"})
	require.NoError(t, err)
	return st
}

func TestOpenWithoutStoredBlueprint(t *testing.T) {
	st := newStoreWithProject(t, "p1")
	r := NewRegistry(st, zap.NewNop())

	s, err := r.Open("p1")
	require.NoError(t, err)
	snap := s.Snapshot()
	assert.Nil(t, snap.Blueprint)
	assert.Equal(t, []string{"No blueprint created yet"}, snap.Validation.Errors)

	again, err := r.Open("p1")
	require.NoError(t, err)
	assert.Same(t, s, again)
}

func TestEditsArePersisted(t *testing.T) {
	st := newStoreWithProject(t, "p1")
	r := NewRegistry(st, zap.NewNop())
	s, err := r.Open("p1")
	require.NoError(t, err)

	snap, err := s.Do(func(ed *blueprint.Editor) error {
		bp := blueprint.New("bp-1")
		bp.Scenes = []blueprint.Scene{{ClipURL: "clip://a", Start: 0, End: 2}}
		ed.Replace(bp)
		ed.SetFormat(blueprint.FormatReel, blueprint.Aspect9x16, "tpl-1")
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, snap.Revision)
	assert.True(t, snap.Validation.Valid)

	doc, err := st.GetBlueprint("p1")
	require.NoError(t, err)
	assert.Equal(t, blueprint.FormatReel, doc.Blueprint.Format)
	assert.Equal(t, "tpl-1", doc.Blueprint.TemplateID)
	assert.True(t, doc.Validation.Valid)
}

func TestOpenSeedsFromStoreWithoutWriting(t *testing.T) {
	st := newStoreWithProject(t, "p1")
	bp := blueprint.New("bp-1")
	bp.Caption = "stored"
	_, err := st.SaveBlueprint("p1", bp, blueprint.Validate(&bp))
	require.NoError(t, err)

	s, err := NewRegistry(st, zap.NewNop()).Open("p1")
	require.NoError(t, err)
	snap := s.Snapshot()
	require.NotNil(t, snap.Blueprint)
	assert.Equal(t, "stored", snap.Blueprint.Caption)
	assert.EqualValues(t, 1, snap.Revision)

	doc, err := st.GetBlueprint("p1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, doc.Revision)
}

func TestClearDeletesStoredBlueprint(t *testing.T) {
	st := newStoreWithProject(t, "p1")
	s, err := NewRegistry(st, zap.NewNop()).Open("p1")
	require.NoError(t, err)

	_, err = s.Do(func(ed *blueprint.Editor) error {
		ed.Replace(blueprint.New("bp-1"))
		ed.Clear()
		return nil
	})
	require.NoError(t, err)
	_, err = st.GetBlueprint("p1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, []string{"Blueprint cleared"}, s.Snapshot().Validation.Errors)
}

type flakyStore struct {
	*store.MemoryStore
	fail bool
}

var errDiskFull = errors.New("disk full")

func (f *flakyStore) SaveBlueprint(projectID string, bp blueprint.SceneBlueprint, v blueprint.Validation) (model.BlueprintDoc, error) {
	if f.fail {
		return model.BlueprintDoc{}, errDiskFull
	}
	return f.MemoryStore.SaveBlueprint(projectID, bp, v)
}

func TestSaveFailureIsReported(t *testing.T) {
	st := store.NewMemoryStore()
	s, err := NewRegistry(st, zap.NewNop()).Open("missing")
	require.NoError(t, err)

	_, err = s.Do(func(ed *blueprint.Editor) error {
		ed.Replace(blueprint.New("bp-1"))
		return nil
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveFailureDropsUnsavedSession(t *testing.T) {
	st := &flakyStore{MemoryStore: newStoreWithProject(t, "p1")}
	saved := blueprint.New("bp-1")
	saved.Caption = "saved"
	_, err := st.MemoryStore.SaveBlueprint("p1", saved, blueprint.Validate(&saved))
	require.NoError(t, err)

	r := NewRegistry(st, zap.NewNop())
	s, err := r.Open("p1")
	require.NoError(t, err)

	st.fail = true
	_, err = s.Do(func(ed *blueprint.Editor) error {
		ed.SetCaption("unsaved")
		return nil
	})
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 0, r.Len())

	st.fail = false
	reopened, err := r.Open("p1")
	require.NoError(t, err)
	assert.NotSame(t, s, reopened)
	snap := reopened.Snapshot()
	require.NotNil(t, snap.Blueprint)
	assert.Equal(t, "saved", snap.Blueprint.Caption)
	assert.Equal(t, int64(1), snap.Revision)
}

func TestDoReturnsCallbackError(t *testing.T) {
	st := newStoreWithProject(t, "p1")
	s, err := NewRegistry(st, zap.NewNop()).Open("p1")
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = s.Do(func(*blueprint.Editor) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestConcurrentEditsSerialize(t *testing.T) {
	st := newStoreWithProject(t, "p1")
	r := NewRegistry(st, zap.NewNop())
	s, err := r.Open("p1")
	require.NoError(t, err)
	_, err = s.Do(func(ed *blueprint.Editor) error {
		ed.Replace(blueprint.New("bp-1"))
		return nil
	})
	require.NoError(t, err)

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Do(func(ed *blueprint.Editor) error {
				ed.Update(func(bp blueprint.SceneBlueprint) blueprint.SceneBlueprint {
					bp.Scenes = append(bp.Scenes, blueprint.Scene{ClipURL: "clip", Start: 0, End: 1})
					return bp
				})
				return nil
			})
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.NotNil(t, snap.Blueprint)
	assert.Len(t, snap.Blueprint.Scenes, writers)
	assert.EqualValues(t, writers+1, snap.Revision)

	r.Close("p1")
	assert.Equal(t, 0, r.Len())
}
