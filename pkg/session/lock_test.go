package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/formbot/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		pid := fmt.Sprintf("participant-%d", i)
		_, _ = mgr.Load(ctx, pid)
		_ = mgr.Clear(ctx, pid)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining after use", lockCount)
	}
}
