package messaging_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"kidzy-server/shared/messaging"
	"kidzy-server/shared/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingHandler struct {
	mu      sync.Mutex
	running int32
	maxSeen int32
	done    chan string
}

func (h *countingHandler) Handle(ctx context.Context, p models.GenerationTaskPayload) error {
	cur := atomic.AddInt32(&h.running, 1)
	h.mu.Lock()
	if cur > h.maxSeen {
		h.maxSeen = cur
	}
	h.mu.Unlock()

	time.Sleep(10 * time.Millisecond)
	atomic.AddInt32(&h.running, -1)
	h.done <- p.TaskID
	return nil
}

func TestInlineDispatcher_RespectsWorkerLimit(t *testing.T) {
	h := &countingHandler{done: make(chan string, 10)}
	d := messaging.NewInlineDispatcher(h, 2, zap.NewNop())

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		assert.NoError(t, d.PublishGenerationTask(context.Background(), models.GenerationTaskPayload{TaskID: id}))
	}

	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		select {
		case id := <-h.done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timeout waiting for inline tasks")
		}
	}
	assert.Len(t, seen, 5)
	assert.LessOrEqual(t, h.maxSeen, int32(2))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d.Shutdown(ctx)
}

func TestClientUpdateFunc(t *testing.T) {
	var got models.ClientUpdate
	var pub messaging.ClientUpdatePublisher = messaging.ClientUpdateFunc(func(_ context.Context, u models.ClientUpdate) error {
		got = u
		return nil
	})
	assert.NoError(t, pub.PublishClientUpdate(context.Background(), models.ClientUpdate{Event: "page_generated"}))
	assert.Equal(t, "page_generated", got.Event)
}
