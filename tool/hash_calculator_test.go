package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucidkernel/runtime/core"
)

func TestHashCalculator_HashString(t *testing.T) {
	h := NewHashCalculator(DefaultHashCalculatorConfig())
	out, err := h.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{
			"operation":  "hash",
			"algorithm":  "sha256",
			"input_type": "string",
			"input":      "hello",
		},
	})
	require.NoError(t, err)
	result := out.Parameters["result"].(map[string]core.Value)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", result["hash"])
}

func TestHashCalculator_HashFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h := NewHashCalculator(DefaultHashCalculatorConfig())
	out, err := h.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{
			"operation":  "hash",
			"algorithm":  "sha256",
			"input_type": "file",
			"file":       path,
		},
	})
	require.NoError(t, err)
	result := out.Parameters["result"].(map[string]core.Value)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", result["hash"])
}

func TestHashCalculator_VerifySuccess(t *testing.T) {
	h := NewHashCalculator(DefaultHashCalculatorConfig())
	out, err := h.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{
			"operation":     "verify",
			"algorithm":     "sha256",
			"input_type":    "string",
			"input":         "hello",
			"expected_hash": "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		},
	})
	require.NoError(t, err)
	result := out.Parameters["result"].(map[string]core.Value)
	assert.Equal(t, true, result["verified"])
}

func TestHashCalculator_VerifyFailure(t *testing.T) {
	h := NewHashCalculator(DefaultHashCalculatorConfig())
	out, err := h.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{
			"operation":     "verify",
			"algorithm":     "sha256",
			"input_type":    "string",
			"input":         "hello",
			"expected_hash": "0000000000000000000000000000000000000000000000000000000000000",
		},
	})
	require.NoError(t, err)
	result := out.Parameters["result"].(map[string]core.Value)
	assert.Equal(t, false, result["verified"])
}

func TestHashCalculator_MissingOperation(t *testing.T) {
	h := NewHashCalculator(DefaultHashCalculatorConfig())
	err := h.ValidateInput(context.Background(), core.AgentInput{Parameters: map[string]core.Value{}})
	require.Error(t, err)
	var coreErr *core.Error
	require.ErrorAs(t, err, &coreErr)
	assert.Equal(t, core.ErrKindInvalidInput, coreErr.Kind)
	assert.Contains(t, coreErr.Message, "operation")
}

func TestHashCalculator_InvalidAlgorithmFallsBackToDefault(t *testing.T) {
	h := NewHashCalculator(DefaultHashCalculatorConfig())
	out, err := h.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{
			"operation":  "hash",
			"algorithm":  "not-a-real-algorithm",
			"input_type": "string",
			"input":      "hello",
		},
	})
	require.NoError(t, err)
	result := out.Parameters["result"].(map[string]core.Value)
	assert.Equal(t, "sha256", result["algorithm"])
}

func TestHashCalculator_FileTooLarge(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.bin")
	require.NoError(t, os.WriteFile(path, make([]byte, 1024), 0o644))

	h := NewHashCalculator(HashCalculatorConfig{
		DefaultAlgorithm: HashSHA256,
		DefaultFormat:    "hex",
		MaxFileSize:      10,
	})
	_, err := h.Execute(context.Background(), core.AgentInput{
		Parameters: map[string]core.Value{
			"operation":  "hash",
			"input_type": "file",
			"file":       path,
		},
	})
	require.Error(t, err)
}
