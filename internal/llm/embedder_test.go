package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mwilhelmy/recall/internal/config"
	"github.com/mwilhelmy/recall/internal/memory"
)

func TestGatewayErrorClassification(t *testing.T) {
	timeout := gatewayError("embed", fmt.Errorf("request: %w", context.DeadlineExceeded))
	if !errors.Is(timeout, memory.ErrTimeout) {
		t.Errorf("deadline exceeded should map to ErrTimeout, got %v", timeout)
	}
	if errors.Is(timeout, memory.ErrGateway) {
		t.Errorf("timeout should not also be ErrGateway: %v", timeout)
	}

	plain := gatewayError("embed", errors.New("connection refused"))
	if !errors.Is(plain, memory.ErrGateway) {
		t.Errorf("network failure should map to ErrGateway, got %v", plain)
	}
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	cfg := config.Config{EmbedProvider: "mystery"}
	if _, err := NewEmbedder(cfg); !errors.Is(err, memory.ErrConfig) {
		t.Errorf("NewEmbedder with unknown provider: %v, want ErrConfig", err)
	}
}

func TestNewModelUnknownProvider(t *testing.T) {
	cfg := config.Config{ChatProvider: "mystery"}
	if _, err := NewModel(cfg); !errors.Is(err, memory.ErrConfig) {
		t.Errorf("NewModel with unknown provider: %v, want ErrConfig", err)
	}
}
