package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RunReport carries the outcome of one settlement run for operator channels.
type RunReport struct {
	Day        time.Time
	Selected   int
	Completed  int
	Failed     int
	FailedJobs []string
	Err        error
}

// Notifier delivers settlement run reports.
type Notifier interface {
	Notify(ctx context.Context, report RunReport) error
}

// TelegramNotifier pushes run reports through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs the Telegram report channel.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify posts the rendered report via the sendMessage API.
func (n *TelegramNotifier) Notify(ctx context.Context, report RunReport) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderReport(report),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Time("day", report.Day).Int("failed", report.Failed).Msg("settlement report sent")
	return nil
}

func renderReport(report RunReport) string {
	builder := strings.Builder{}
	builder.WriteString("[Supernode Settlement]\n")
	builder.WriteString(fmt.Sprintf("Day: %s\n", report.Day.UTC().Format("2006-01-02")))
	builder.WriteString(fmt.Sprintf("Selected: %d\n", report.Selected))
	builder.WriteString(fmt.Sprintf("Completed: %d\n", report.Completed))
	builder.WriteString(fmt.Sprintf("Failed: %d\n", report.Failed))
	if len(report.FailedJobs) > 0 {
		builder.WriteString(fmt.Sprintf("Failed jobs: %s\n", strings.Join(report.FailedJobs, ",")))
	}
	if report.Err != nil {
		builder.WriteString(fmt.Sprintf("Error: %s\n", report.Err))
	}
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
