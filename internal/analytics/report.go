// Package analytics builds moderation reports from the structured log
// the gate writes. It consumes log text only, never live decisions, so
// it can run offline against a log file from any deployment.
package analytics

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pvanhorn/chatgate/internal/conversation"
	"github.com/pvanhorn/chatgate/internal/moderation"
)

// Report aggregates moderation outcomes for one log.
type Report struct {
	TotalUserInputs        int `json:"total_user_inputs"`
	InputsAccepted         int `json:"inputs_accepted"`
	InputsBlocked          int `json:"inputs_blocked"`
	InputBlockedHateSpeech int `json:"inputs_blocked_hate_speech"`
	InputBlockedPII        int `json:"inputs_blocked_pii"`
	InputBlockedJailbreak  int `json:"inputs_blocked_jailbreak"`
	InputBlockedClassifier int `json:"inputs_blocked_classifier"`

	TotalGenerations  int `json:"total_generations"`
	GenerationsFailed int `json:"generations_failed"`
	OutputsAccepted   int `json:"outputs_accepted"`
	OutputsBlocked    int `json:"outputs_blocked"`
}

type logLine struct {
	Msg    string `json:"msg"`
	Reason string `json:"reason"`
}

// Parse reads slog JSON lines and counts moderation outcomes. Lines that
// are not JSON or not moderation events are skipped, so a log shared
// with request logging parses cleanly.
func Parse(r io.Reader) (*Report, error) {
	report := &Report{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var line logLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			continue
		}
		report.observe(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("analytics: failed to read log: %w", err)
	}
	return report, nil
}

// ParseFile parses the log file at path.
func ParseFile(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analytics: failed to open log file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

func (r *Report) observe(line logLine) {
	switch line.Msg {
	case conversation.LogMsgInputAccepted:
		r.TotalUserInputs++
		r.InputsAccepted++
		// The generator only runs for accepted input.
		r.TotalGenerations++
	case conversation.LogMsgInputBlocked:
		r.TotalUserInputs++
		r.InputsBlocked++
		r.categorizeInputBlock(line.Reason)
	case conversation.LogMsgGenerationFailed:
		r.GenerationsFailed++
	case conversation.LogMsgOutputAccepted:
		r.OutputsAccepted++
	case conversation.LogMsgOutputBlocked:
		r.OutputsBlocked++
	}
}

// categorizeInputBlock buckets a block by the rule categories' canned
// reason phrases; anything else came from the classifier.
func (r *Report) categorizeInputBlock(reason string) {
	switch {
	case strings.Contains(reason, moderation.ReasonHateSpeech):
		r.InputBlockedHateSpeech++
	case strings.Contains(reason, moderation.ReasonPII):
		r.InputBlockedPII++
	case strings.Contains(reason, moderation.ReasonJailbreak):
		r.InputBlockedJailbreak++
	default:
		r.InputBlockedClassifier++
	}
}
