package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/justsurfingit/applytrail/internal/auth"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// SyncWindow is the fixed trailing window searched on every run. There is no
// persisted cursor; rescanning is harmless because reconciliation is insert-only.
const SyncWindow = 7 * 24 * time.Hour

// subjectKeywords is the fixed disjunction used to locate confirmation emails.
var subjectKeywords = []string{
	"application",
	"applied",
	"resume",
	"thank you for applying",
	"application received",
	"confirmation",
}

// CandidateMessage is the part of an email the pipeline needs. It is never persisted.
type CandidateMessage struct {
	ID         string
	Subject    string
	Snippet    string
	DateHeader string
}

// Text is the blob handed to the entity extractor.
func (m *CandidateMessage) Text() string {
	return fmt.Sprintf("%s. %s", m.Subject, m.Snippet)
}

// AppliedDate parses the Date header, falling back to now when it is missing or
// unparsable. A bad header never fails the record.
func (m *CandidateMessage) AppliedDate(now time.Time) time.Time {
	if m.DateHeader == "" {
		return now
	}
	t, err := mail.ParseDate(m.DateHeader)
	if err != nil {
		return now
	}
	return t
}

// Mailbox locates and fetches messages for one authorized user.
type Mailbox interface {
	// Search returns up to max message ids matching query, in provider relevance order.
	Search(ctx context.Context, query string, max int) ([]string, error)
	// Fetch returns the subject, date header and snippet of one message.
	Fetch(ctx context.Context, id string) (*CandidateMessage, error)
}

// MailboxConnector resolves credentials for a refresh token and opens that user's mailbox.
type MailboxConnector interface {
	Connect(ctx context.Context, refreshToken string) (Mailbox, error)
}

// BuildSearchQuery returns the provider query for messages received on or after since.
func BuildSearchQuery(since time.Time) string {
	quoted := make([]string, len(subjectKeywords))
	for i, k := range subjectKeywords {
		quoted[i] = fmt.Sprintf("%q", k)
	}
	return fmt.Sprintf("subject:(%s) after:%s", strings.Join(quoted, " OR "), since.UTC().Format("2006/01/02"))
}

// GmailConnector opens Gmail mailboxes with credentials from a CredentialSupplier.
type GmailConnector struct {
	Credentials   *auth.CredentialSupplier
	Logger        *zap.Logger
	FetchAttempts uint
	// Options are appended to the client options; tests use them to redirect the endpoint.
	Options []option.ClientOption
}

func NewGmailConnector(credentials *auth.CredentialSupplier, logger *zap.Logger, fetchAttempts int) *GmailConnector {
	if fetchAttempts < 1 {
		fetchAttempts = 1
	}
	return &GmailConnector{
		Credentials:   credentials,
		Logger:        logger,
		FetchAttempts: uint(fetchAttempts),
	}
}

func (c *GmailConnector) Connect(ctx context.Context, refreshToken string) (Mailbox, error) {
	creds, err := c.Credentials.Resolve(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(creds.Client)}, c.Options...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewGmailMailbox(svc, c.Logger, c.FetchAttempts), nil
}

// GmailMailbox implements Mailbox on the Gmail REST API for the authorized user ("me").
type GmailMailbox struct {
	svc           *gmail.Service
	logger        *zap.Logger
	fetchAttempts uint
	retryDelay    time.Duration
}

func NewGmailMailbox(svc *gmail.Service, logger *zap.Logger, fetchAttempts uint) *GmailMailbox {
	return &GmailMailbox{
		svc:           svc,
		logger:        logger,
		fetchAttempts: fetchAttempts,
		retryDelay:    500 * time.Millisecond,
	}
}

func (m *GmailMailbox) Search(ctx context.Context, query string, max int) ([]string, error) {
	resp, err := m.svc.Users.Messages.List("me").
		Q(query).
		MaxResults(int64(max)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, msg := range resp.Messages {
		ids = append(ids, msg.Id)
	}
	return ids, nil
}

func (m *GmailMailbox) Fetch(ctx context.Context, id string) (*CandidateMessage, error) {
	var msg *gmail.Message
	err := retry.Do(
		func() error {
			var e error
			msg, e = m.svc.Users.Messages.Get("me", id).
				Format("metadata").
				MetadataHeaders("Subject", "Date").
				Context(ctx).
				Do()
			return e
		},
		retry.Attempts(m.fetchAttempts),
		retry.Delay(m.retryDelay),
		retry.Context(ctx),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			m.logger.Debug("Retrying message fetch", zap.String("message_id", id), zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", id, err)
	}
	if msg.Payload == nil {
		return nil, fmt.Errorf("fetch message %s: response has no payload", id)
	}

	headers := parseHeaders(msg.Payload.Headers)
	return &CandidateMessage{
		ID:         msg.Id,
		Subject:    headers["Subject"],
		Snippet:    html.UnescapeString(msg.Snippet),
		DateHeader: headers["Date"],
	}, nil
}

func parseHeaders(headers []*gmail.MessagePartHeader) map[string]string {
	res := make(map[string]string, len(headers))
	for _, h := range headers {
		// Header names are case-insensitive; the first occurrence wins.
		name := http.CanonicalHeaderKey(h.Name)
		if _, ok := res[name]; !ok {
			res[name] = h.Value
		}
	}
	return res
}

// isRetryable reports whether a Gmail call is worth repeating. Client errors other
// than rate limiting will fail the same way again.
func isRetryable(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusTooManyRequests || gErr.Code >= http.StatusInternalServerError
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// isAuthFailure reports whether a provider error means the credential is no longer accepted.
func isAuthFailure(err error) bool {
	if errors.Is(err, auth.ErrCredentialRejected) || errors.Is(err, auth.ErrMissingRefreshToken) {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == http.StatusUnauthorized || gErr.Code == http.StatusForbidden
	}
	return false
}
