package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"
)

const (
	defaultGmailBaseURL   = "https://gmail.googleapis.com/gmail/v1"
	defaultGoogleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL = "https://oauth2.googleapis.com/token"
	gmailSendScope        = "https://www.googleapis.com/auth/gmail.send"
)

// ErrUnavailable is returned while the circuit breaker rejects calls to the mail API.
var ErrUnavailable = errors.New("mail: provider unavailable")

// GmailConfig holds the OAuth2 offline credentials used to call the Gmail API.
type GmailConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	From         string
	// BaseURL and TokenURL override the Google endpoints.
	BaseURL  string
	TokenURL string
	Timeout  time.Duration
}

// Configured reports whether all OAuth2 credentials are present.
func (c GmailConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// GmailSender posts raw MIME messages to the Gmail users.messages.send endpoint.
type GmailSender struct {
	client  *http.Client
	baseURL string
	from    string
	breaker *gobreaker.CircuitBreaker[string]
	logger  *slog.Logger
}

// NewGmailSender builds a sender whose HTTP client refreshes access tokens from the configured refresh token.
func NewGmailSender(ctx context.Context, cfg GmailConfig, logger *slog.Logger) (*GmailSender, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("mail: gmail credentials incomplete")
	}
	if logger == nil {
		logger = slog.Default()
	}
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = defaultGoogleTokenURL
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   defaultGoogleAuthURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{gmailSendScope},
	}
	source := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return newGmailSender(source, cfg, logger), nil
}

func newGmailSender(source oauth2.TokenSource, cfg GmailConfig, logger *slog.Logger) *GmailSender {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGmailBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "gmail",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &GmailSender{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, source), Base: http.DefaultTransport},
		},
		baseURL: baseURL,
		from:    cfg.From,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
		logger:  logger,
	}
}

// Send composes msg, encodes it and delivers it through the Gmail API.
func (s *GmailSender) Send(ctx context.Context, msg Message) (string, error) {
	if msg.From == "" {
		msg.From = s.from
	}
	raw, err := Compose(msg)
	if err != nil {
		return "", err
	}

	id, err := s.breaker.Execute(func() (string, error) {
		return s.post(ctx, EncodeRaw(raw))
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "email sent", "message_id", id, "recipients", len(msg.To))
	return id, nil
}

func (s *GmailSender) post(ctx context.Context, raw string) (string, error) {
	payload, err := json.Marshal(map[string]string{"raw": raw})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/users/me/messages/send", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mail: send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("mail: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("mail: decode response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("mail: provider response missing message id")
	}
	return result.ID, nil
}
