package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkernel/runtime/session"
)

func newTestSessionDeps(t *testing.T) Dependencies {
	t.Helper()
	dir := t.TempDir()
	store, err := session.NewFileStore(dir)
	require.NoError(t, err)
	artifacts := session.NewManager(session.DefaultManagerConfig(), store, nil)
	registry := session.NewRegistry(artifacts)
	return Dependencies{Sessions: registry, Artifacts: artifacts}
}

func TestInjectSession_CreateAndCreateArtifact(t *testing.T) {
	deps := newTestSessionDeps(t)
	s := NewSession("sess-session-1", deps)
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `
		local sess = Session.create("tenant-a")
		local artifact_id = sess:create_artifact("notes.txt", "hello world")
		local list = sess:list_artifacts()
		return {tenant = sess.tenant_id, artifact_id = artifact_id, count = #list}
	`)
	require.NoError(t, err)
	obj, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "tenant-a", obj["tenant"])
	assert.NotEmpty(t, obj["artifact_id"])
	assert.Equal(t, int64(1), obj["count"])
}

func TestInjectSession_CloseArchivesArtifacts(t *testing.T) {
	deps := newTestSessionDeps(t)
	s := NewSession("sess-session-2", deps)
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `
		local sess = Session.create("")
		sess:create_artifact("out.txt", "data")
		sess:close()
		return true
	`)
	require.NoError(t, err)
	assert.Equal(t, true, result.Output)
}

func TestInjectSession_GetUnknownReturnsNil(t *testing.T) {
	deps := newTestSessionDeps(t)
	s := NewSession("sess-session-3", deps)
	defer s.Close()

	result, err := s.ExecuteScript(context.Background(), `
		return Session.get("does-not-exist") == nil
	`)
	require.NoError(t, err)
	assert.Equal(t, true, result.Output)
}
