package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/bytedance/sonic"

	"github.com/alfachiu/rollball-api-tcp/poll"
	"github.com/alfachiu/rollball-api-tcp/share"
	"github.com/alfachiu/rollball-api-tcp/tool"
	"github.com/alfachiu/rollball-api-tcp/types"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // e.g. "answer"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

// Options contains options for sending notifications
type Options struct {
	URL     string            // Target URL
	Method  string            // HTTP method, defaults to POST
	Headers map[string]string // Custom HTTP headers
	Timeout time.Duration     // 0 means tool.DefaultTimeout
}

// SendNotification sends a notification to the specified HTTP URL.
// A nil notification sends an empty JSON object.
func SendNotification(ctx context.Context, notification *Notification, options Options) error {
	if options.URL == "" {
		return fmt.Errorf("notification URL cannot be empty")
	}
	if _, err := url.ParseRequestURI(options.URL); err != nil {
		return fmt.Errorf("invalid URL format: %v", err)
	}

	method := options.Method
	if method == "" {
		method = http.MethodPost
	}

	var payload []byte
	var err error
	if notification != nil {
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification data: %v", err)
		}
	} else {
		payload = []byte("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, options.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range options.Headers {
		req.Header.Set(key, value)
	}

	resp, err := tool.NewHTTPClient(options.Timeout).Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %v", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		tool.DefaultLogger.Debugf("failed to read response body: %v", readErr)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification send failed, HTTP status code: %d, response: %s", resp.StatusCode, string(body))
	}

	if notification != nil {
		tool.DefaultLogger.Infof("notification successfully sent to %s: %s - %s", options.URL, notification.Type, notification.Title)
	} else {
		tool.DefaultLogger.Infof("notification successfully sent to %s", options.URL)
	}
	if len(body) > 0 {
		tool.DefaultLogger.Debugf("notification response: %s", string(body))
	}
	return nil
}

// AnswerNotifier posts every new answer to a webhook.
type AnswerNotifier struct {
	options Options
	seen    *ttlworker.Cache[string, bool]
}

func NewAnswerNotifier(options Options, ttl time.Duration) *AnswerNotifier {
	if ttl <= 0 {
		ttl = share.DefaultTTL
	}
	return &AnswerNotifier{
		options: options,
		seen:    ttlworker.NewCache[string, bool](ttl),
	}
}

// AnswerNotification builds the payload for one answer. Raw keeps the
// six fields exactly as the server sent them.
func AnswerNotification(iteration int, raw []string, answer types.Answer) *Notification {
	return &Notification{
		Type:    "answer",
		Title:   "Answer",
		Message: fmt.Sprintf("answer %d at (%d, %d)", answer.Number, answer.X, answer.Y),
		Data: map[string]any{
			"iteration": iteration,
			"raw":       raw,
			"number":    answer.Number,
			"x":         answer.X,
			"y":         answer.Y,
			"time":      answer.Time.Format(time.RFC3339),
		},
	}
}

// AfterCycle implements poll.Hook. Send failures are logged only.
func (n *AnswerNotifier) AfterCycle(ctx context.Context, cycle poll.Cycle) {
	raw, ok := cycle.Values(types.OpReadGetAnswer)
	if !ok {
		return
	}
	key := share.AnswerKey(raw)
	if key == "" || n.seen.Get(key) {
		return
	}
	answer, err := types.ParseAnswer(raw)
	if err != nil {
		tool.DefaultLogger.Debugf("Skip answer notification: %v", err)
		return
	}
	n.seen.Set(key, true)
	if err := SendNotification(ctx, AnswerNotification(cycle.Iteration, raw, answer), n.options); err != nil {
		tool.DefaultLogger.Warnf("Failed to send answer notification: %v", err)
	}
}
