// Package notify provides best-effort outbound email notification for
// completed exports. Notification failures are logged and swallowed; they
// never change a job's outcome.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sendroom/sendroom/internal/provider/resilience"
)

// ExportReadyEmail is the completion notification for one export job.
type ExportReadyEmail struct {
	To           string
	DataroomName string
	FolderName   string
	DownloadsURL string
	ExpiresAt    time.Time
}

// Mailer sends export notifications.
type Mailer interface {
	// SendExportReady sends the "your export is ready" email.
	SendExportReady(ctx context.Context, email ExportReadyEmail) error
}

// HTTPMailerConfig holds configuration for the HTTP mail provider client.
type HTTPMailerConfig struct {
	// Endpoint is the transactional mail provider's send URL.
	Endpoint string

	// APIKey authenticates this service to the provider.
	APIKey string

	// From is the sender address.
	From string
}

// HTTPMailer sends mail through a transactional email provider's HTTP API,
// via the shared resilient client.
type HTTPMailer struct {
	config HTTPMailerConfig
	client *resilience.Client
}

// NewHTTPMailer creates a new HTTP mailer.
func NewHTTPMailer(cfg HTTPMailerConfig) *HTTPMailer {
	client := resilience.NewClient(resilience.DefaultClientConfig("mail-provider"))
	resilience.GlobalRegistry.Register("mail-provider", client)

	return &HTTPMailer{
		config: cfg,
		client: client,
	}
}

type sendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// SendExportReady sends the "your export is ready" email.
func (m *HTTPMailer) SendExportReady(ctx context.Context, email ExportReadyEmail) error {
	subject := fmt.Sprintf("Your download from %s is ready", email.DataroomName)

	what := email.DataroomName
	if email.FolderName != "" {
		what = fmt.Sprintf("the folder %q in %s", email.FolderName, email.DataroomName)
	}

	html := fmt.Sprintf(
		`<p>Your requested download of %s is ready.</p>`+
			`<p><a href=%q>Go to your downloads</a></p>`+
			`<p>The download links expire on %s.</p>`,
		what,
		email.DownloadsURL,
		email.ExpiresAt.UTC().Format("Jan 2, 2006 15:04 MST"),
	)

	body, err := json.Marshal(sendPayload{
		From:    m.config.From,
		To:      email.To,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("marshal mail payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.config.APIKey)

	resp, err := m.client.Do(req)
	if err != nil {
		resilience.GlobalRegistry.RecordFailure("mail-provider", err)
		return fmt.Errorf("mail provider call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		err := fmt.Errorf("mail provider returned status %d", resp.StatusCode)
		resilience.GlobalRegistry.RecordFailure("mail-provider", err)
		return err
	}

	resilience.GlobalRegistry.RecordSuccess("mail-provider")
	return nil
}

// NoopMailer discards every notification. Used when no mail provider is
// configured and in tests.
type NoopMailer struct{}

// SendExportReady discards the notification.
func (NoopMailer) SendExportReady(context.Context, ExportReadyEmail) error {
	return nil
}

// Ensure implementations satisfy the Mailer interface.
var (
	_ Mailer = (*HTTPMailer)(nil)
	_ Mailer = NoopMailer{}
)
