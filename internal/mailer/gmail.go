package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/time/rate"

	"github.com/dailongmedia2603/App-Quanly-CTV-sub001/internal/pkg/logger"
)

const gmailSendURL = "https://gmail.googleapis.com/gmail/v1/users/me/messages/send"

// TokenStore is the slice of storage the Gmail sender needs: the refresh
// token and sending address for a user.
type TokenStore interface {
	Get(ctx context.Context, userID string) (userEmail, refreshToken string, err error)
}

// GmailSender sends mail through the Gmail API using each user's stored
// OAuth refresh token. Access tokens are minted lazily and cached per user
// via oauth2.TokenSource, so a campaign's drip sends reuse one token until
// it expires instead of hitting the token endpoint every pass.
type GmailSender struct {
	tokens  TokenStore
	oauth   *oauth2.Config
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker

	mu      sync.Mutex
	sources map[string]oauth2.TokenSource

	// sendURL is swapped out by tests.
	sendURL string
}

// NewGmailSender wires a sender for the given OAuth client credentials.
func NewGmailSender(tokens TokenStore, clientID, clientSecret string) *GmailSender {
	return &GmailSender{
		tokens: tokens,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"https://www.googleapis.com/auth/gmail.send"},
		},
		client: &http.Client{Timeout: 30 * time.Second},
		// Gmail caps well above this; the limiter only smooths bursts when
		// many campaigns fire in the same scheduler pass.
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "gmail-api",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
		}),
		sources: make(map[string]oauth2.TokenSource),
		sendURL: gmailSendURL,
	}
}

// tokenSource returns the cached TokenSource for the user, creating one from
// the stored refresh token on first use.
func (s *GmailSender) tokenSource(ctx context.Context, userID string) (oauth2.TokenSource, string, error) {
	s.mu.Lock()
	src, ok := s.sources[userID]
	s.mu.Unlock()

	email, refresh, err := s.tokens.Get(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	if ok {
		return src, email, nil
	}

	// context.Background on purpose: the source outlives this send.
	src = s.oauth.TokenSource(context.Background(), &oauth2.Token{RefreshToken: refresh})
	s.mu.Lock()
	s.sources[userID] = src
	s.mu.Unlock()
	return src, email, nil
}

// Invalidate drops the cached token source, forcing a fresh refresh on the
// next send. Called when the user reconnects their account.
func (s *GmailSender) Invalidate(userID string) {
	s.mu.Lock()
	delete(s.sources, userID)
	s.mu.Unlock()
}

// Send performs exactly one delivery attempt. Transport and provider errors
// come back as a failed SendResult, not an error; the error return is
// reserved for problems before the attempt (no token on file, breaker open).
func (s *GmailSender) Send(ctx context.Context, userID string, msg Message) (*SendResult, error) {
	src, fromEmail, err := s.tokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	tok, err := src.Token()
	if err != nil {
		if isInvalidGrant(err) {
			s.Invalidate(userID)
			return &SendResult{Success: false, Reason: err.Error(), Reconnect: true}, nil
		}
		return &SendResult{Success: false, Reason: fmt.Sprintf("token refresh: %v", err)}, nil
	}

	raw := buildRFC2822(fromEmail, msg)
	body, err := json.Marshal(map[string]string{
		"raw": base64.RawURLEncoding.EncodeToString(raw),
	})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	res, err := s.breaker.Execute(func() (any, error) {
		return s.post(ctx, tok.AccessToken, body)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		// Breaker open is not a per-recipient verdict. Surface it as an
		// error so the scheduler leaves the campaign for the next pass.
		return nil, fmt.Errorf("gmail circuit open: %w", err)
	}
	if err != nil {
		return &SendResult{Success: false, Reason: err.Error()}, nil
	}
	out := res.(*SendResult)
	if out.Success {
		logger.Debug("gmail send ok", "recipient", msg.To, "message_id", out.MessageID)
	}
	return out, nil
}

func (s *GmailSender) post(ctx context.Context, accessToken string, body []byte) (*SendResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.sendURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var parsed struct {
			ID string `json:"id"`
		}
		_ = json.Unmarshal(data, &parsed)
		return &SendResult{Success: true, MessageID: parsed.ID}, nil
	}

	reason := fmt.Sprintf("gmail api %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	if resp.StatusCode == http.StatusUnauthorized || strings.Contains(string(data), "invalid_grant") {
		return &SendResult{Success: false, Reason: reason, Reconnect: true}, nil
	}
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		// Provider-side failure feeds the breaker.
		return nil, fmt.Errorf("%s", reason)
	}
	return &SendResult{Success: false, Reason: reason}, nil
}

func isInvalidGrant(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return retrieveErr.ErrorCode == "invalid_grant" ||
			strings.Contains(string(retrieveErr.Body), "invalid_grant")
	}
	return strings.Contains(err.Error(), "invalid_grant")
}

// buildRFC2822 assembles the raw message the Gmail API expects.
func buildRFC2822(fromEmail string, msg Message) []byte {
	var b bytes.Buffer
	from := fromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", msg.FromName), fromEmail)
	}
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	b.WriteString(base64.StdEncoding.EncodeToString([]byte(msg.HTMLBody)))
	return b.Bytes()
}
