package versioned_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alumet/versioned"
)

func TestSetBumpsVersionAndWakesWaiters(t *testing.T) {
	v := versioned.New(1)
	_, version := v.Read()
	require.Equal(t, uint32(0), version)

	changed := v.Changed()
	done := make(chan struct{})
	go func() {
		select {
		case <-changed:
		case <-time.After(time.Second):
			t.Error("timed out waiting for change notification")
		}
		close(done)
	}()

	v.Set(2)
	<-done

	value, version := v.Read()
	assert.Equal(t, 2, value)
	assert.Equal(t, uint32(1), version)
}

func TestUpdateAppliesInPlace(t *testing.T) {
	v := versioned.New([]int{1, 2})
	v.Update(func(cur []int) []int { return append(cur, 3) })
	value, _ := v.Read()
	assert.Equal(t, []int{1, 2, 3}, value)
}

func TestHandleReadIfChanged(t *testing.T) {
	v := versioned.New("a")
	h := versioned.NewHandle(v)

	value, changed := h.ReadIfChanged()
	require.True(t, changed)
	assert.Equal(t, "a", value)

	_, changed = h.ReadIfChanged()
	assert.False(t, changed)

	v.Set("b")
	value, changed = h.ReadIfChanged()
	require.True(t, changed)
	assert.Equal(t, "b", value)
}

func TestHasChanged(t *testing.T) {
	v := versioned.New(0)
	_, version := v.Read()
	assert.False(t, v.HasChanged(version))
	v.Set(1)
	assert.True(t, v.HasChanged(version))
}

func TestUpdateIfChangedRejectsStaleVersion(t *testing.T) {
	v := versioned.New(1)
	_, version := v.Read()

	v.Set(2) // advances the version behind the caller's back

	newVersion, ok := v.UpdateIfChanged(version, func(cur int) int { return cur + 100 })
	assert.False(t, ok)
	assert.Equal(t, uint32(1), newVersion)

	value, _ := v.Read()
	assert.Equal(t, 2, value)
}

func TestUpdateIfChangedAppliesOnMatch(t *testing.T) {
	v := versioned.New(1)
	_, version := v.Read()

	newVersion, ok := v.UpdateIfChanged(version, func(cur int) int { return cur + 100 })
	assert.True(t, ok)
	assert.Equal(t, uint32(1), newVersion)

	value, _ := v.Read()
	assert.Equal(t, 101, value)
}

func TestHandleSeekDoesNotConsumeChange(t *testing.T) {
	v := versioned.New("a")
	h := versioned.NewHandle(v)
	h.Read()

	v.Set("b")
	assert.Equal(t, "b", h.Seek())
	assert.True(t, h.HasChanged())

	value, changed := h.ReadIfChanged()
	require.True(t, changed)
	assert.Equal(t, "b", value)
	assert.False(t, h.HasChanged())
}

func TestMapIfChanged(t *testing.T) {
	v := versioned.New(2)
	h := versioned.NewHandle(v)

	doubled, changed := versioned.MapIfChanged(h, func(n int) int { return n * 2 })
	assert.True(t, changed)
	assert.Equal(t, 4, doubled)

	_, changed = versioned.MapIfChanged(h, func(n int) int { return n * 2 })
	assert.False(t, changed)
}
