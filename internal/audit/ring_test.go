package audit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/vigil/internal/models"
)

func TestRingBuffer_EvictsOldest(t *testing.T) {
	r := NewRingBuffer[int](3)

	assert.False(t, r.Push(1))
	assert.False(t, r.Push(2))
	assert.Equal(t, []int{1, 2}, r.Snapshot())

	assert.False(t, r.Push(3))
	assert.True(t, r.Push(4))
	assert.True(t, r.Push(5))

	assert.Equal(t, []int{3, 4, 5}, r.Snapshot())
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, 3, r.Cap())
}

func TestRingBuffer_ConcurrentPush(t *testing.T) {
	r := NewRingBuffer[int](100)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				r.Push(i)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, r.Len())
	assert.Len(t, r.Snapshot(), 100)
}

func TestSecurityLog_Recent(t *testing.T) {
	l := NewSecurityLog(3)
	l.Record(models.SecurityEvent{Type: models.SecurityPromptBlocked, UserID: "u1"})
	l.Record(models.SecurityEvent{Type: models.SecurityAuthFailure})
	l.Record(models.SecurityEvent{Type: models.SecurityPromptBlocked, UserID: "u2"})
	l.Record(models.SecurityEvent{Type: models.SecurityPromptBlocked, UserID: "u3"})

	all := l.Recent(0, "")
	require.Len(t, all, 3)
	assert.Equal(t, "u3", all[0].UserID)
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[0].Timestamp.IsZero())

	blocked := l.Recent(10, models.SecurityPromptBlocked)
	require.Len(t, blocked, 2)
	assert.Equal(t, "u2", blocked[1].UserID)

	assert.Len(t, l.Recent(1, ""), 1)
}
