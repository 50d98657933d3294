package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lucidkernel/runtime/bridge"
)

func TestRouter_RegisterAndUnregister(t *testing.T) {
	r := NewRouter(nil)
	session := bridge.NewSession("sess-1", bridge.Dependencies{})

	r.Register("client-1", session, nil)
	assert.Equal(t, 1, r.ActiveCount())

	client, ok := r.Get("client-1")
	assert.True(t, ok)
	assert.Equal(t, ClientID("client-1"), client.ID)

	r.Unregister("client-1")
	assert.Equal(t, 0, r.ActiveCount())

	_, ok = r.Get("client-1")
	assert.False(t, ok)
}

func TestRouter_UnregisterUnknownClientIsNoop(t *testing.T) {
	r := NewRouter(nil)
	r.Unregister("does-not-exist")
	assert.Equal(t, 0, r.ActiveCount())
}
