// Package ntfy delivers notifications to an ntfy server over HTTP.
package ntfy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JakeFAU/pagewatch/internal/watcher"
)

// DefaultServer is the public ntfy instance.
const DefaultServer = "https://ntfy.sh"

// Config describes where and how to publish.
type Config struct {
	Server   string
	Topic    string
	Priority string
	Tags     []string
	Timeout  time.Duration
}

// Notifier posts each notification as the body of a request to <server>/<topic>.
type Notifier struct {
	endpoint string
	cfg      Config
	client   *http.Client
}

// New validates cfg and returns a Notifier. A nil client gets one with cfg.Timeout.
func New(cfg Config, client *http.Client) (*Notifier, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("ntfy topic is required")
	}
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	base, err := url.Parse(cfg.Server)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid ntfy server %q", cfg.Server)
	}
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Notifier{
		endpoint: base.JoinPath(cfg.Topic).String(),
		cfg:      cfg,
		client:   client,
	}, nil
}

// Endpoint returns the URL notifications are posted to.
func (n *Notifier) Endpoint() string {
	return n.endpoint
}

// Notify implements watcher.Notifier. Any non-2xx response is an error.
func (n *Notifier) Notify(ctx context.Context, msg watcher.Notification) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.Message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.Title != "" {
		req.Header.Set("Title", msg.Title)
	}
	if n.cfg.Priority != "" {
		req.Header.Set("Priority", n.cfg.Priority)
	}
	if len(n.cfg.Tags) > 0 {
		req.Header.Set("Tags", strings.Join(n.cfg.Tags, ","))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to ntfy: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	// Drain so the connection can be reused.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("ntfy returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// Close is a no-op.
func (n *Notifier) Close() error {
	return nil
}
