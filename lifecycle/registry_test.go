package lifecycle

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// trackedEntity carries a pointer field so it is never placed in the tiny
// allocator, which would delay its collection.
type trackedEntity struct {
	SimpleManagedEntity
	name        *string
	activations int
	mu          sync.Mutex
}

func newTrackedEntity(name string) *trackedEntity {
	return &trackedEntity{name: &name}
}

func (e *trackedEntity) OnActivate() error {
	e.mu.Lock()
	e.activations++
	e.mu.Unlock()
	return e.SimpleManagedEntity.OnActivate()
}

type mockEntity struct {
	mock.Mock
}

func (m *mockEntity) OnActivate() error   { return m.Called().Error(0) }
func (m *mockEntity) OnDeactivate() error { return m.Called().Error(0) }
func (m *mockEntity) IsActivated() bool   { return m.Called().Bool(0) }

func TestRegistry_SweepsToggleEveryEntity(t *testing.T) {
	r := NewRegistry()
	a, b := newTrackedEntity("a"), newTrackedEntity("b")
	Manage(r, a)
	Manage(r, b)
	assert.Equal(t, 2, r.Len())
	assert.False(t, r.IsActive())

	require.NoError(t, r.ActivateAll())
	assert.True(t, r.IsActive())
	assert.True(t, a.IsActivated())
	assert.True(t, b.IsActivated())

	require.NoError(t, r.DeactivateAll())
	assert.False(t, a.IsActivated())
	assert.False(t, b.IsActivated())
}

func TestRegistry_SweepsAreIdempotent(t *testing.T) {
	r := NewRegistry()
	e := newTrackedEntity("e")
	Manage(r, e)

	require.NoError(t, r.DeactivateAll())
	require.NoError(t, r.DeactivateAll())
	assert.False(t, e.IsActivated())

	require.NoError(t, r.ActivateAll())
	require.NoError(t, r.ActivateAll())
	assert.True(t, e.IsActivated())
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SameEntityTwiceIsTwoHandles(t *testing.T) {
	r := NewRegistry()
	e := newTrackedEntity("e")
	Manage(r, e)
	Manage(r, e)
	assert.Equal(t, 2, r.Len())

	require.NoError(t, r.ActivateAll())
	assert.Equal(t, 2, e.activations)
}

func TestRegistry_FailuresAreCollected(t *testing.T) {
	r := NewRegistry()
	errFirst := errors.New("first failed")
	errLast := errors.New("last failed")

	first := &mockEntity{}
	first.On("IsActivated").Return(false)
	first.On("OnActivate").Return(errFirst).Once()
	middle := newTrackedEntity("middle")
	last := &mockEntity{}
	last.On("IsActivated").Return(false)
	last.On("OnActivate").Return(errLast).Once()

	Manage(r, first)
	Manage(r, middle)
	Manage(r, last)

	err := r.ActivateAll()
	require.Error(t, err)
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errLast)
	assert.True(t, middle.IsActivated())
	first.AssertExpectations(t)
	last.AssertExpectations(t)
	runtime.KeepAlive(first)
	runtime.KeepAlive(last)
}

func TestRegistry_ReleasedEntitiesAreSkipped(t *testing.T) {
	r := NewRegistry()
	kept := newTrackedEntity("kept")
	Manage(r, kept)
	func() {
		Manage(r, newTrackedEntity("released"))
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		return r.Len() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, r.ActivateAll())
	assert.True(t, kept.IsActivated())
	runtime.KeepAlive(kept)
}

func TestRegistry_RegistrationFollowsTargetState(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.ActivateAll())

	late := newTrackedEntity("late")
	Manage(r, late)
	assert.True(t, late.IsActivated())

	require.NoError(t, r.DeactivateAll())
	active := newTrackedEntity("active")
	require.NoError(t, active.OnActivate())
	Manage(r, active)
	assert.False(t, active.IsActivated())
}

func TestRegistry_ConcurrentRegistrationDuringSweeps(t *testing.T) {
	r := NewRegistry()
	const n = 64
	entities := make([]*trackedEntity, n)
	for i := range entities {
		entities[i] = newTrackedEntity("e")
	}

	var wg sync.WaitGroup
	for i := range entities {
		wg.Add(1)
		go func(e *trackedEntity) {
			defer wg.Done()
			Manage(r, e)
		}(entities[i])
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			_ = r.ActivateAll()
			_ = r.DeactivateAll()
		}
		_ = r.ActivateAll()
	}()
	wg.Wait()

	assert.Equal(t, n, r.Len())
	for _, e := range entities {
		assert.True(t, e.IsActivated())
	}
}
