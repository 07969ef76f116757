package watcher

import (
	"net/http"
	"strings"
	"time"
)

// State is a step of the check state machine.
type State string

// Check states, in the order a successful run visits them.
const (
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateComparing   State = "comparing"
	StateNotifying   State = "notifying"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Classification is the outcome reported by the change detector.
type Classification string

// Classifications in priority order.
const (
	KeywordFound   Classification = "keyword_found"
	ContentChanged Classification = "content_changed"
	Unchanged      Classification = "unchanged"
)

// State store keys.
const (
	DefaultStateKey        = "page_content_hash"
	PreviousHashDebugKey   = "previous_hash_debug"
	CurrentHashDebugKey    = "current_hash_debug"
	LastChangeTimestampKey = "last_change_timestamp"
)

// Compiled-in defaults for the watched page.
const (
	DefaultURL       = "https://www.ucd.ie/japan/exams/"
	DefaultKeyword   = "2026"
	DefaultTitle     = "JLPT Update"
	DefaultUserAgent = "Mozilla/5.0 (compatible; JLPT-Checker/1.0)"
)

// FetchRequest captures everything needed to fetch the page.
type FetchRequest struct {
	URL       string
	UserAgent string
	Headers   http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Notification is one push message.
type Notification struct {
	Title   string
	Message string
	RunID   string
	PageURL string
}

// Messages holds the notification templates. Placeholders {url}, {keyword}
// and {error} are substituted before sending.
type Messages struct {
	KeywordFound   string `mapstructure:"keyword_found"`
	ContentChanged string `mapstructure:"content_changed"`
	Unchanged      string `mapstructure:"unchanged"`
	Failure        string `mapstructure:"failure"`
}

// DefaultMessages returns the stock JLPT wording.
func DefaultMessages() Messages {
	return Messages{
		KeywordFound:   "JLPT {keyword} dates may have been announced! Check {url}",
		ContentChanged: "UCD JLPT page has been updated. Check {url}",
		Unchanged:      "JLPT check complete - no changes detected.",
		Failure:        "JLPT checker error: {error}",
	}
}

// Config is the per-watcher configuration passed into New.
type Config struct {
	URL       string
	Keyword   string
	UserAgent string
	StateKey  string
	Title     string
	Messages  Messages
}

func (c Config) withDefaults() Config {
	if c.URL == "" {
		c.URL = DefaultURL
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.StateKey == "" {
		c.StateKey = DefaultStateKey
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	defaults := DefaultMessages()
	if c.Messages.KeywordFound == "" {
		c.Messages.KeywordFound = defaults.KeywordFound
	}
	if c.Messages.ContentChanged == "" {
		c.Messages.ContentChanged = defaults.ContentChanged
	}
	if c.Messages.Unchanged == "" {
		c.Messages.Unchanged = defaults.Unchanged
	}
	if c.Messages.Failure == "" {
		c.Messages.Failure = defaults.Failure
	}
	return c
}

// MessageFor renders the notification body for a classification.
func (c Config) MessageFor(class Classification) string {
	var tmpl string
	switch class {
	case KeywordFound:
		tmpl = c.Messages.KeywordFound
	case ContentChanged:
		tmpl = c.Messages.ContentChanged
	default:
		tmpl = c.Messages.Unchanged
	}
	return c.render(tmpl, "")
}

func (c Config) notification(runID, message string) Notification {
	return Notification{
		Title:   c.Title,
		Message: message,
		RunID:   runID,
		PageURL: c.URL,
	}
}

// FailureMessage renders the error notification body.
func (c Config) FailureMessage(err error) string {
	text := "unknown error"
	if err != nil {
		text = err.Error()
	}
	return c.render(c.Messages.Failure, text)
}

func (c Config) render(tmpl, errText string) string {
	return strings.NewReplacer(
		"{url}", c.URL,
		"{keyword}", c.Keyword,
		"{error}", errText,
	).Replace(tmpl)
}

// Report summarises one run.
type Report struct {
	RunID          string         `json:"run_id"`
	State          State          `json:"state"`
	Classification Classification `json:"classification,omitempty"`
	Digest         string         `json:"digest,omitempty"`
	PreviousDigest string         `json:"previous_digest,omitempty"`
	Changed        bool           `json:"changed"`
	Persisted      bool           `json:"persisted"`
	Message        string         `json:"message,omitempty"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"started_at"`
	Duration       time.Duration  `json:"duration_ns"`
}
