package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizer_MasksSensitiveData(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())

	result := s.Sanitize(ErrorInfo{Message: "connect failed: api_key=sk-1234-abcd for user bob@example.com"})

	assert.NotContains(t, result.Message, "sk-1234-abcd")
	assert.NotContains(t, result.Message, "bob@example.com")
	assert.Contains(t, result.Message, "[REDACTED]")
}

func TestSanitizer_SanitizesPaths(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())

	result := s.Sanitize(ErrorInfo{Message: "failed to open /home/alice/projects/secret/config.yaml"})

	assert.NotContains(t, result.Message, "alice")
	assert.Contains(t, result.Message, "config.yaml")
}

func TestSanitizer_FiltersDebugInfo(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())

	result := s.Sanitize(ErrorInfo{Message: "panic at 0x1a2b3c4d in runtime v1.2.3-beta, trace.go:42:7"})

	assert.NotContains(t, result.Message, "0x1a2b3c4d")
	assert.NotContains(t, result.Message, "1.2.3-beta")
	assert.Contains(t, result.Message, "[addr]")
	assert.Contains(t, result.Message, "[version]")
	assert.Contains(t, result.Message, "[line]")
}

func TestSanitizer_TruncatesLongMessages(t *testing.T) {
	cfg := DefaultSanitizeConfig()
	cfg.MaxErrorLength = 10
	s := NewSanitizer(cfg)

	result := s.Sanitize(ErrorInfo{Message: "this message is far longer than the configured cap"})

	assert.True(t, len(result.Message) <= 13)
	assert.Contains(t, result.Message, "...")
}

func TestSanitizer_CategoryPermitList(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())

	allowed := s.Sanitize(ErrorInfo{Message: "request took too long", Category: "timeout"})
	assert.Equal(t, "timeout", allowed.Category)
	assert.True(t, allowed.Retriable)

	denied := s.Sanitize(ErrorInfo{Message: "unexpected nil pointer", Category: "internal_panic"})
	assert.Empty(t, denied.Category)
	assert.False(t, denied.Retriable)
}

func TestSanitizer_ErrorCodeStableAcrossCalls(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())

	first := s.Sanitize(ErrorInfo{Message: "database connection refused"})
	second := s.Sanitize(ErrorInfo{Message: "database connection refused"})
	other := s.Sanitize(ErrorInfo{Message: "a completely different failure"})

	require.Equal(t, first.ErrorCode, second.ErrorCode)
	assert.NotEqual(t, first.ErrorCode, other.ErrorCode)
	assert.Regexp(t, `^ERR_[0-9A-F]{8}$`, first.ErrorCode)
}

func TestSanitizer_DevConfigSkipsPathScrubbing(t *testing.T) {
	s := NewSanitizer(DevSanitizeConfig())

	result := s.Sanitize(ErrorInfo{Message: "failed to open /home/alice/config.yaml"})

	assert.Contains(t, result.Message, "/home/alice/config.yaml")
}

func TestSanitizer_SanitizeLogMasksWithoutCodeOrCategory(t *testing.T) {
	s := NewSanitizer(DefaultSanitizeConfig())

	line := s.SanitizeLog("user token=abcd1234efgh logged in from 10.0.0.5")

	assert.Contains(t, line, "[REDACTED]")
	assert.NotContains(t, line, "10.0.0.5")
}
