package analytics

import (
	"encoding/json"
	"net/http"

	"github.com/pvanhorn/chatgate/pkg/logging"
)

// Handler serves the moderation report over HTTP for the admin
// dashboard. It re-parses the log on every request; the log is small
// relative to dashboard traffic and the report stays fresh.
type Handler struct {
	logPath string
	logger  *logging.Logger
}

func NewHandler(logPath string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{logPath: logPath, logger: logger}
}

// Report handles GET /admin/moderation/report.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := ParseFile(h.logPath)
	if err != nil {
		h.logger.Error("failed to build moderation report", "error", err)
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		h.logger.Error("failed to write report response", "error", err)
	}
}
