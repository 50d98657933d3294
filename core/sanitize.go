package core

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// sensitivePatterns redact values that should never cross the script
// boundary or land in a log sink: credentials, contact info, and anything
// that identifies a specific host or account.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password)[\s:=]+[\w.\-]+`),
	regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	regexp.MustCompile(`\b(?:[0-9]{1,3}\.){3}[0-9]{1,3}\b`),
	regexp.MustCompile(`(?i)https?://[^:]+:[^@]+@`),
	regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`(?i)(postgres|mysql|mongodb)://\S+`),
}

// pathPattern catches absolute unix-style paths carrying a username or
// project directory; only the final path segment survives sanitization.
var pathPattern = regexp.MustCompile(`/(?:home|Users)/[^/\s]+(?:/[^/\s]+)*`)

var (
	addrPattern      = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	versionPattern   = regexp.MustCompile(`v?\d+\.\d+\.\d+(-[a-zA-Z0-9]+)?`)
	linePattern      = regexp.MustCompile(`:\d+:\d+`)
	goroutinePattern = regexp.MustCompile(`goroutine\s+\d+\s+\[[^\]]+\]:`)
)

// allowedErrorCategories is the permit list of error kinds safe to surface
// verbatim to a script or end user. Anything else is dropped from the
// sanitized result even if the caller supplied it.
var allowedErrorCategories = map[string]bool{
	"validation":  true,
	"permission":  true,
	"not_found":   true,
	"timeout":     true,
	"rate_limit":  true,
}

// retriableCategories are the categories SanitizedError.Retriable infers as
// worth a client retry; everything else is treated as non-retriable.
var retriableCategories = map[string]bool{
	"timeout":    true,
	"rate_limit": true,
	"temporary":  true,
}

// DefaultMaxErrorLength bounds a sanitized message before truncation.
const DefaultMaxErrorLength = 500

// ErrorInfo is the raw, possibly-sensitive error detail a component wants
// to report. Message may contain anything; Sanitize strips it down to
// something safe to hand back across the script boundary or into a log.
type ErrorInfo struct {
	Message  string
	Category string
	Cause    error
}

// SanitizedError is safe for disclosure to a script, an API client, or a
// log sink shared outside the process boundary.
type SanitizedError struct {
	Message   string `json:"message"`
	Category  string `json:"category,omitempty"`
	ErrorCode string `json:"error_code"`
	Retriable bool   `json:"retriable"`
}

// SanitizeConfig controls how aggressively Sanitizer scrubs a message.
// DefaultSanitizeConfig matches production behavior; DevSanitizeConfig
// relaxes truncation and path scrubbing for local debugging.
type SanitizeConfig struct {
	MaskSensitiveData bool
	SanitizePaths     bool
	FilterDebugInfo   bool
	MaxErrorLength    int
}

// DefaultSanitizeConfig is the production configuration: mask everything,
// scrub paths, strip debug noise, cap at DefaultMaxErrorLength.
func DefaultSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{
		MaskSensitiveData: true,
		SanitizePaths:     true,
		FilterDebugInfo:   true,
		MaxErrorLength:    DefaultMaxErrorLength,
	}
}

// DevSanitizeConfig relaxes scrubbing for local development: sensitive
// data is still masked, but paths and debug detail pass through, and the
// length cap is generous.
func DevSanitizeConfig() SanitizeConfig {
	return SanitizeConfig{
		MaskSensitiveData: true,
		SanitizePaths:     false,
		FilterDebugInfo:   false,
		MaxErrorLength:    2000,
	}
}

// Sanitizer scrubs ErrorInfo into a SanitizedError safe to send across the
// script boundary or into shared logs.
type Sanitizer struct {
	cfg SanitizeConfig
}

// NewSanitizer builds a Sanitizer with cfg.
func NewSanitizer(cfg SanitizeConfig) *Sanitizer {
	return &Sanitizer{cfg: cfg}
}

// Sanitize scrubs info.Message and decides whether info.Category may be
// disclosed, producing a stable error code derived from the original
// (unsanitized) message so repeated occurrences of the same underlying
// fault share a code.
func (s *Sanitizer) Sanitize(info ErrorInfo) SanitizedError {
	message := info.Message

	if s.cfg.MaskSensitiveData {
		message = maskSensitiveData(message)
	}
	if s.cfg.SanitizePaths {
		message = sanitizePaths(message)
	}
	if s.cfg.FilterDebugInfo {
		message = filterDebugInfo(message)
	}

	maxLen := s.cfg.MaxErrorLength
	if maxLen <= 0 {
		maxLen = DefaultMaxErrorLength
	}
	if len(message) > maxLen {
		message = message[:maxLen] + "..."
	}

	category := ""
	if info.Category != "" && allowedErrorCategories[info.Category] {
		category = info.Category
	}

	return SanitizedError{
		Message:   message,
		Category:  category,
		ErrorCode: errorCode(info.Message),
		Retriable: retriableCategories[info.Category],
	}
}

// SanitizeLog scrubs a free-form log line the same way Sanitize scrubs an
// error message, without the category/code machinery.
func (s *Sanitizer) SanitizeLog(message string) string {
	if s.cfg.MaskSensitiveData {
		message = maskSensitiveData(message)
	}
	if s.cfg.SanitizePaths {
		message = sanitizePaths(message)
	}
	return message
}

func maskSensitiveData(text string) string {
	for _, p := range sensitivePatterns {
		text = p.ReplaceAllString(text, "[REDACTED]")
	}
	return text
}

func sanitizePaths(text string) string {
	return pathPattern.ReplaceAllStringFunc(text, func(match string) string {
		idx := strings.LastIndexByte(match, '/')
		if idx < 0 || idx == len(match)-1 {
			return "[path]"
		}
		return "[path]/.../" + match[idx+1:]
	})
}

func filterDebugInfo(text string) string {
	text = addrPattern.ReplaceAllString(text, "[addr]")
	text = goroutinePattern.ReplaceAllString(text, "goroutine [id] [state]:")
	text = versionPattern.ReplaceAllString(text, "[version]")
	text = linePattern.ReplaceAllString(text, ":[line]")
	return text
}

// errorCode derives a stable ERR_XXXXXXXX code from the original message so
// the same underlying fault always maps to the same client-facing code,
// without disclosing the message itself.
func errorCode(message string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(message))
	return fmt.Sprintf("ERR_%08X", h.Sum32())
}
