package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer provides thread-safe access to a bytes.Buffer.
type syncBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (s *syncBuffer) Write(p []byte) (n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestNewInterruptHandler_DefaultsWriter(t *testing.T) {
	handler := NewInterruptHandler(nil)
	assert.NotNil(t, handler.writer)
	assert.False(t, handler.WasInterrupted())
}

func TestInterruptHandler_Trigger(t *testing.T) {
	tests := []struct {
		name       string
		hint       string
		wantResume bool
	}{
		{name: "with resume hint", hint: "sooth review --resume", wantResume: true},
		{name: "without resume hint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &syncBuffer{}
			handler := NewInterruptHandler(output)
			ctx := handler.HandleInterrupts(context.Background(), tt.hint)
			defer handler.Stop()

			handler.trigger()
			handler.trigger()

			assert.True(t, handler.WasInterrupted())
			out := output.String()
			assert.Equal(t, 1, strings.Count(out, "Interrupted!"))
			if tt.wantResume {
				assert.Contains(t, out, "Resume with: sooth review --resume")
			} else {
				assert.NotContains(t, out, "Resume with")
			}
			assert.NoError(t, ctx.Err())
		})
	}
}

func TestInterruptHandler_StopCancelsContext(t *testing.T) {
	handler := NewInterruptHandler(&syncBuffer{})
	ctx := handler.HandleInterrupts(context.Background(), "")

	handler.Stop()
	handler.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not canceled after Stop")
	}
	assert.False(t, handler.WasInterrupted())
}

func TestInterruptHandler_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	handler := NewInterruptHandler(&syncBuffer{})
	ctx := handler.HandleInterrupts(parent, "")
	defer handler.Stop()

	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("child context was not canceled")
	}
	assert.False(t, handler.WasInterrupted())
}
