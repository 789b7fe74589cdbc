// Package notify pushes run summaries to an operator channel.
package notify

import (
	"encoding/json"
	"fmt"

	"github.com/containrrr/shoutrrr"

	"github.com/ruleforge/ruleforge/internal/logger"
)

// Notifier sends run summaries to a shoutrrr destination (discord, slack,
// generic webhook, ...). An empty URL disables sending.
type Notifier struct {
	URL string
}

// New returns a notifier for the given shoutrrr URL.
func New(url string) *Notifier {
	return &Notifier{URL: url}
}

// RunSummary formats and sends one run summary. Failures are logged, never
// propagated; notification is best effort and must not fail a run.
func (n *Notifier) RunSummary(title string, summary interface{}) {
	if n == nil || n.URL == "" {
		return
	}

	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		logger.Log().WithError(err).Warn("failed to encode run summary")
		return
	}

	msg := fmt.Sprintf("%s\n\n%s", title, string(body))
	if err := shoutrrr.Send(n.URL, msg); err != nil {
		logger.Log().WithError(err).Warn("failed to send run summary notification")
	}
}
