package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvanhorn/chatgate/internal/conversation"
	"github.com/pvanhorn/chatgate/internal/moderation"
	"github.com/pvanhorn/chatgate/pkg/logging"
)

// writeLog replays a plausible session through the real logger so the
// report is tested against the exact line format production emits.
func writeLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moderation.log")
	f, err := os.Create(path)
	require.NoError(t, err)
	logger := logging.NewWithWriter("info", f)

	logger.Warn(conversation.LogMsgInputBlocked, "session_id", "s1", "reason", moderation.ReasonHateSpeech)
	logger.Warn(conversation.LogMsgInputBlocked, "session_id", "s1", "reason", moderation.ReasonPII)
	logger.Warn(conversation.LogMsgInputBlocked, "session_id", "s2", "reason", moderation.ReasonJailbreak)
	logger.Warn(conversation.LogMsgInputBlocked, "session_id", "s2", "reason", "Your request was blocked by the moderation system: PROMPT INJECTION.")

	logger.Info(conversation.LogMsgInputAccepted, "session_id", "s3")
	logger.Info(conversation.LogMsgOutputAccepted, "session_id", "s3")

	logger.Info(conversation.LogMsgInputAccepted, "session_id", "s3")
	logger.Warn(conversation.LogMsgOutputBlocked, "session_id", "s3", "reason", "off-topic")

	logger.Info(conversation.LogMsgInputAccepted, "session_id", "s4")
	logger.Error(conversation.LogMsgGenerationFailed, "session_id", "s4", "error", "model unavailable")

	// Unrelated log traffic must not skew the counters.
	logger.Info("request completed", "method", "POST", "path", "/chat/message")

	require.NoError(t, f.Close())
	return path
}

func TestParseFileCounts(t *testing.T) {
	report, err := ParseFile(writeLog(t))
	require.NoError(t, err)

	assert.Equal(t, 7, report.TotalUserInputs)
	assert.Equal(t, 3, report.InputsAccepted)
	assert.Equal(t, 4, report.InputsBlocked)
	assert.Equal(t, 1, report.InputBlockedHateSpeech)
	assert.Equal(t, 1, report.InputBlockedPII)
	assert.Equal(t, 1, report.InputBlockedJailbreak)
	assert.Equal(t, 1, report.InputBlockedClassifier)

	assert.Equal(t, 3, report.TotalGenerations)
	assert.Equal(t, 1, report.GenerationsFailed)
	assert.Equal(t, 1, report.OutputsAccepted)
	assert.Equal(t, 1, report.OutputsBlocked)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{
		"not json at all",
		``,
		`{"msg":"` + conversation.LogMsgInputAccepted + `"}`,
	}, "\n")

	report, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, report.InputsAccepted)
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.log"))
	require.Error(t, err)
}

func TestHandlerReport(t *testing.T) {
	h := NewHandler(writeLog(t), logging.Default())

	req := httptest.NewRequest(http.MethodGet, "/admin/moderation/report", nil).WithContext(context.Background())
	rec := httptest.NewRecorder()
	h.Report(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 7, report.TotalUserInputs)
}

func TestHandlerReportMissingLog(t *testing.T) {
	h := NewHandler(filepath.Join(t.TempDir(), "nope.log"), logging.Default())
	rec := httptest.NewRecorder()
	h.Report(rec, httptest.NewRequest(http.MethodGet, "/admin/moderation/report", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
