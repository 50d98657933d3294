// Package tool holds the runtime's reference tool implementations: small,
// self-contained components that exercise the component.Tool contract
// with real stdlib work instead of a network dependency, so the kernel's
// tool-discovery facade and resource-limit enforcement have something
// concrete to run end to end.
package tool

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"os"

	"github.com/lucidkernel/runtime/component"
	"github.com/lucidkernel/runtime/core"
)

// HashAlgorithm names a supported digest.
type HashAlgorithm string

const (
	HashMD5    HashAlgorithm = "md5"
	HashSHA1   HashAlgorithm = "sha1"
	HashSHA256 HashAlgorithm = "sha256"
	HashSHA512 HashAlgorithm = "sha512"
)

func newHasher(algo HashAlgorithm) (hash.Hash, error) {
	switch algo {
	case HashMD5:
		return md5.New(), nil
	case HashSHA1:
		return sha1.New(), nil
	case HashSHA256, "":
		return sha256.New(), nil
	case HashSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algo)
	}
}

// HashCalculatorConfig configures the default algorithm, output format, and
// file-size ceiling for HashCalculator.
type HashCalculatorConfig struct {
	DefaultAlgorithm HashAlgorithm
	DefaultFormat    string // "hex" or "base64"
	MaxFileSize      int64
}

// DefaultHashCalculatorConfig mirrors the teacher reference tool's
// conservative defaults.
func DefaultHashCalculatorConfig() HashCalculatorConfig {
	return HashCalculatorConfig{
		DefaultAlgorithm: HashSHA256,
		DefaultFormat:    "hex",
		MaxFileSize:      100 * 1024 * 1024,
	}
}

// HashCalculator computes and verifies hashes of strings or files using
// MD5, SHA-1, SHA-256, or SHA-512, with hex or Base64 output.
type HashCalculator struct {
	component.BaseComponent
	config HashCalculatorConfig
}

// NewHashCalculator builds a hash-calculator tool with the given config.
func NewHashCalculator(config HashCalculatorConfig) *HashCalculator {
	if config.DefaultAlgorithm == "" {
		config.DefaultAlgorithm = HashSHA256
	}
	if config.DefaultFormat == "" {
		config.DefaultFormat = "hex"
	}
	return &HashCalculator{
		BaseComponent: component.BaseComponent{Meta: core.ComponentMetadata{
			Id:            core.NewComponentId("hash-calculator"),
			Name:          "hash-calculator",
			Description:   "Calculate and verify hashes using multiple algorithms",
			SecurityLevel: core.SecurityRestricted,
			Category:      "util",
			Limits:        core.DefaultResourceLimits(),
		}},
		config: config,
	}
}

// Category groups this tool for discovery filtering.
func (h *HashCalculator) Category() string { return "util" }

// InputSchema describes the parameters Execute accepts.
func (h *HashCalculator) InputSchema() *component.ParameterSchema {
	return component.NewObjectSchema().
		WithDescription("Calculate and verify hashes using various algorithms").
		AddProperty("operation", component.NewStringSchema().WithDescription("'hash' or 'verify'")).
		AddProperty("algorithm", component.NewStringSchema().WithDescription("md5, sha1, sha256, or sha512")).
		AddProperty("input_type", component.NewStringSchema().WithDescription("'string' or 'file'")).
		AddProperty("input", component.NewStringSchema().WithDescription("string data to hash")).
		AddProperty("file", component.NewStringSchema().WithDescription("file path to hash")).
		AddProperty("format", component.NewStringSchema().WithDescription("'hex' or 'base64'")).
		AddProperty("expected_hash", component.NewStringSchema().WithDescription("expected hash for verify")).
		AddProperty("expected_format", component.NewStringSchema().WithDescription("format of expected_hash")).
		AddRequired("operation")
}

// ValidateInput rejects calls missing the required operation parameter.
func (h *HashCalculator) ValidateInput(_ context.Context, input core.AgentInput) error {
	if _, ok := stringParam(input, "operation"); !ok {
		return core.NewError(core.ErrKindInvalidInput, "hash-calculator: missing required parameter \"operation\"")
	}
	return nil
}

// Execute dispatches to hash or verify based on the "operation" parameter.
func (h *HashCalculator) Execute(ctx context.Context, input core.AgentInput) (core.AgentOutput, error) {
	operation, _ := stringParam(input, "operation")

	switch operation {
	case "hash":
		return h.executeHash(input)
	case "verify":
		return h.executeVerify(input)
	default:
		return core.AgentOutput{}, core.NewError(core.ErrKindInvalidInput, fmt.Sprintf("hash-calculator: invalid operation %q", operation))
	}
}

func (h *HashCalculator) executeHash(input core.AgentInput) (core.AgentOutput, error) {
	algo := h.parseAlgorithm(input)
	format := h.parseFormat(input)

	digest, err := h.computeHash(input, algo)
	if err != nil {
		return core.AgentOutput{}, err
	}
	formatted := formatDigest(digest, format)

	result := map[string]core.Value{
		"algorithm": string(algo),
		"hash":      formatted,
		"format":    format,
	}
	return successOutput(fmt.Sprintf("Calculated %s hash", algo), result), nil
}

func (h *HashCalculator) executeVerify(input core.AgentInput) (core.AgentOutput, error) {
	algo := h.parseAlgorithm(input)
	expectedFormat, _ := stringParam(input, "expected_format")
	if expectedFormat == "" {
		expectedFormat = "hex"
	}
	expectedStr, ok := stringParam(input, "expected_hash")
	if !ok {
		return core.AgentOutput{}, core.NewError(core.ErrKindInvalidInput, "hash-calculator: missing required parameter \"expected_hash\"")
	}

	expected, err := decodeDigest(expectedStr, expectedFormat)
	if err != nil {
		return core.AgentOutput{}, core.NewError(core.ErrKindInvalidInput, "hash-calculator: "+err.Error())
	}

	actual, err := h.computeHash(input, algo)
	if err != nil {
		return core.AgentOutput{}, err
	}

	matches := hex.EncodeToString(actual) == hex.EncodeToString(expected)
	result := map[string]core.Value{
		"verified":  matches,
		"algorithm": string(algo),
	}
	if !matches {
		result["expected"] = formatDigest(expected, expectedFormat)
		result["actual"] = formatDigest(actual, expectedFormat)
	}

	message := "Hash verification failed"
	if matches {
		message = "Hash verification successful"
	}
	return successOutput(message, result), nil
}

func (h *HashCalculator) computeHash(input core.AgentInput, algo HashAlgorithm) ([]byte, error) {
	hasher, err := newHasher(algo)
	if err != nil {
		return nil, core.NewError(core.ErrKindInvalidInput, "hash-calculator: "+err.Error())
	}

	inputType, _ := stringParam(input, "input_type")
	if inputType == "" {
		inputType = "string"
	}

	switch inputType {
	case "string":
		text, ok := stringParam(input, "input")
		if !ok {
			return nil, core.NewError(core.ErrKindInvalidInput, "hash-calculator: missing required parameter \"input\"")
		}
		hasher.Write([]byte(text))
		return hasher.Sum(nil), nil
	case "file":
		path, ok := stringParam(input, "file")
		if !ok {
			return nil, core.NewError(core.ErrKindInvalidInput, "hash-calculator: missing required parameter \"file\"")
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, core.NewError(core.ErrKindNotFound, "hash-calculator: "+err.Error())
		}
		if info.Size() > h.config.MaxFileSize {
			return nil, core.NewError(core.ErrKindInvalidInput, "hash-calculator: file exceeds max_file_size")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, core.NewError(core.ErrKindInternal, "hash-calculator: "+err.Error())
		}
		hasher.Write(data)
		return hasher.Sum(nil), nil
	default:
		return nil, core.NewError(core.ErrKindInvalidInput, fmt.Sprintf("hash-calculator: invalid input_type %q", inputType))
	}
}

func (h *HashCalculator) parseAlgorithm(input core.AgentInput) HashAlgorithm {
	s, ok := stringParam(input, "algorithm")
	if !ok {
		return h.config.DefaultAlgorithm
	}
	switch s {
	case "md5":
		return HashMD5
	case "sha1", "sha-1":
		return HashSHA1
	case "sha256", "sha-256":
		return HashSHA256
	case "sha512", "sha-512":
		return HashSHA512
	default:
		return h.config.DefaultAlgorithm
	}
}

func (h *HashCalculator) parseFormat(input core.AgentInput) string {
	s, ok := stringParam(input, "format")
	if ok && (s == "hex" || s == "base64") {
		return s
	}
	return h.config.DefaultFormat
}

func formatDigest(digest []byte, format string) string {
	if format == "base64" {
		return base64.StdEncoding.EncodeToString(digest)
	}
	return hex.EncodeToString(digest)
}

func decodeDigest(s, format string) ([]byte, error) {
	if format == "base64" {
		return base64.StdEncoding.DecodeString(s)
	}
	return hex.DecodeString(s)
}

func stringParam(input core.AgentInput, key string) (string, bool) {
	v, ok := input.Parameters[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func successOutput(message string, result map[string]core.Value) core.AgentOutput {
	return core.AgentOutput{
		Text: message,
		Parameters: map[string]core.Value{
			"success": true,
			"result":  result,
		},
	}
}
