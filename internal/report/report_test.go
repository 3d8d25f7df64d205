package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	ansiGreen = "\x1b[92m"
	ansiRed   = "\x1b[91m"
)

func TestResult_PassedLine(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "never").Result("Health Check", true, "Status: 200")

	assert.Equal(t, "✓ PASSED - Health Check\n", buf.String(), "message is only printed on failure")
}

func TestResult_FailedLineWithMessage(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "never").Result("User Login", false, "Status: 401")

	assert.Equal(t, "✗ FAILED - User Login\n  → Status: 401\n", buf.String())
}

func TestResult_FailedLineWithoutMessage(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "never").Result("User Login", false, "")

	assert.Equal(t, "✗ FAILED - User Login\n", buf.String())
}

func TestSection_NumbersSequentially(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, "never")
	r.Section("Health Checks")
	r.Section("Authentication")

	assert.Equal(t, "\n1. Health Checks:\n\n2. Authentication:\n", buf.String())
}

func TestTitle(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "never").Title("http://localhost:8000")

	out := buf.String()
	assert.Contains(t, out, "🚀 EmotionAI Backend Test Suite")
	assert.Contains(t, out, strings.Repeat("=", 40)+"\n")
	assert.Contains(t, out, "Testing backend at: http://localhost:8000\n")
}

func TestTitleRestartsSectionNumbering(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, "never")
	r.Title("http://a")
	r.Section("Health Checks")
	r.Section("Authentication")
	r.Title("http://b")
	r.Section("Health Checks")

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "1. Health Checks:"))
	assert.NotContains(t, out, "3. Health Checks:")
}

func TestAbort(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "never").Abort()

	assert.Contains(t, buf.String(), "❌ Backend is not responding. Please ensure it's running.")
}

func TestCompleted(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "never").Completed(7, 2)

	out := buf.String()
	assert.Contains(t, out, "✅ Test suite completed!")
	assert.Contains(t, out, "Passed: 7  Failed: 2")
}

func TestColorModes(t *testing.T) {
	t.Run("always colors", func(t *testing.T) {
		var buf bytes.Buffer
		r := New(&buf, "always")
		r.Result("ok", true, "")
		r.Result("bad", false, "Status: 500")

		assert.Contains(t, buf.String(), ansiGreen)
		assert.Contains(t, buf.String(), ansiRed)
	})

	t.Run("never is plain", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "never").Result("bad", false, "Status: 500")

		assert.NotContains(t, buf.String(), "\x1b[")
	})

	t.Run("auto is plain for non-terminal writers", func(t *testing.T) {
		var buf bytes.Buffer
		New(&buf, "auto").Result("bad", false, "Status: 500")

		assert.NotContains(t, buf.String(), "\x1b[")
	})
}
