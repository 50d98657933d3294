package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	healthy bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	return CompletionResponse{
		Model:   req.Model,
		Message: Message{Role: "assistant", Content: "ok"},
	}, nil
}

func (f *fakeProvider) HealthCheck(_ context.Context) (HealthStatus, error) {
	return HealthStatus{Healthy: f.healthy, Latency: time.Millisecond}, nil
}

func TestManager_RegisterGetList(t *testing.T) {
	m := NewManager()
	m.Register("claude", &fakeProvider{name: "claude", healthy: true})
	m.Register("gemini", &fakeProvider{name: "gemini", healthy: true})

	p, ok := m.Get("claude")
	require.True(t, ok)
	assert.Equal(t, "claude", p.Name())

	assert.Equal(t, []string{"claude", "gemini"}, m.List())
}

func TestManager_Default(t *testing.T) {
	m := NewManager()

	_, err := m.Default()
	assert.Error(t, err)

	err = m.SetDefault("claude")
	assert.Error(t, err)

	m.Register("claude", &fakeProvider{name: "claude", healthy: true})
	require.NoError(t, m.SetDefault("claude"))

	p, err := m.Default()
	require.NoError(t, err)
	assert.Equal(t, "claude", p.Name())
}

func TestManager_Unregister(t *testing.T) {
	m := NewManager()
	m.Register("claude", &fakeProvider{name: "claude", healthy: true})
	require.NoError(t, m.SetDefault("claude"))

	m.Unregister("claude")

	_, ok := m.Get("claude")
	assert.False(t, ok)

	_, err := m.Default()
	assert.Error(t, err)
}

func TestManager_HealthCheckAll(t *testing.T) {
	m := NewManager()
	m.Register("up", &fakeProvider{name: "up", healthy: true})
	m.Register("down", &fakeProvider{name: "down", healthy: false})

	statuses := m.HealthCheckAll(context.Background())
	assert.True(t, statuses["up"].Healthy)
	assert.False(t, statuses["down"].Healthy)
}
