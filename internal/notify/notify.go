// Package notify implements the chat-webhook notifier (C10): a best-effort,
// fire-and-forget push of a Slack-style blocks payload per saved jewelry or
// gemstone match. An absent webhook URL makes every call a silent no-op.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const titleTruncateLen = 100

// Notifier pushes match notifications to a chat webhook (Slack incoming-
// webhook compatible). It never returns an error to its caller — delivery
// failures are logged and discarded (spec §7 class 7).
type Notifier struct {
	webhookURL string
	http       *http.Client
	log        *slog.Logger
}

// New builds a Notifier. An empty webhookURL is valid: every push becomes
// a no-op, matching "absent ⇒ notifications silently skipped" (spec §6).
func New(webhookURL string, log *slog.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

type block map[string]any

type payload struct {
	Blocks []block `json:"blocks"`
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func (n *Notifier) push(ctx context.Context, title, url string, fields []string) {
	if n.webhookURL == "" {
		return
	}

	sectionText := title
	for _, f := range fields {
		sectionText += "\n" + f
	}

	p := payload{Blocks: []block{
		{"type": "header", "text": block{"type": "plain_text", "text": truncate(title, titleTruncateLen)}},
		{"type": "section", "text": block{"type": "mrkdwn", "text": sectionText}},
		{"type": "actions", "elements": []block{
			{"type": "button", "text": block{"type": "plain_text", "text": "View listing"}, "url": url},
		}},
	}}

	body, err := json.Marshal(p)
	if err != nil {
		n.log.Warn("failed to marshal notification payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		n.log.Warn("failed to build notification request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		n.log.Warn("notification push failed", "error", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.log.Warn("notification webhook returned non-2xx", "status", resp.StatusCode)
	}
}

// JewelryMatch notifies a saved jewelry match: total cost, weight, the
// suggested scrap offer, and the computed profit.
func (n *Notifier) JewelryMatch(ctx context.Context, title, url string, totalCost, weightG, offerSuggestion, profit float64) {
	n.push(ctx, title, url, []string{
		fmt.Sprintf("Total cost: $%.2f", totalCost),
		fmt.Sprintf("Weight: %.2fg", weightG),
		fmt.Sprintf("Suggested offer: $%.2f", offerSuggestion),
		fmt.Sprintf("Profit: $%.2f", profit),
	})
}

// GemstoneMatch notifies a saved gemstone match: deal/risk scores and the
// key identifying attributes.
func (n *Notifier) GemstoneMatch(ctx context.Context, title, url string, dealScore, riskScore int, stoneType string, carat float64) {
	n.push(ctx, title, url, []string{
		fmt.Sprintf("Deal score: %d/100", dealScore),
		fmt.Sprintf("Risk score: %d/100", riskScore),
		fmt.Sprintf("%s, %.2fct", stoneType, carat),
	})
}
