package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/justsurfingit/applytrail/internal/config"
	"github.com/justsurfingit/applytrail/internal/models"
	"go.uber.org/zap"
)

// SyncState is a step of one user's sync run.
type SyncState string

const (
	StateIdle                SyncState = "idle"
	StateResolvingCredential SyncState = "resolving_credential"
	StateListing             SyncState = "listing"
	StateFetching            SyncState = "fetching"
	StateExtracting          SyncState = "extracting"
	StateReconciling         SyncState = "reconciling"
	StateDone                SyncState = "done"
	StateFailed              SyncState = "failed"
)

// SyncResult summarizes one run. Only NewRecordsCount is part of the API response.
type SyncResult struct {
	NewRecordsCount int `json:"newRecordsCount"`
	Scanned         int `json:"-"`
	Existing        int `json:"-"`
	Skipped         int `json:"-"`
	Failed          int `json:"-"`
}

// Extractor reduces message text to a (company, position) candidate.
type Extractor interface {
	Extract(ctx context.Context, text string) Extraction
}

// EmailService runs the mailbox ingestion pipeline for one user at a time:
// resolve credential, list, then fetch/extract/reconcile each message in order.
type EmailService struct {
	mailboxes      MailboxConnector
	extractor      Extractor
	reconciler     *Reconciler
	clock          Clock
	logger         *zap.Logger
	maxResults     int
	messageTimeout time.Duration
}

func NewEmailService(
	mailboxes MailboxConnector,
	extractor Extractor,
	reconciler *Reconciler,
	clock Clock,
	logger *zap.Logger,
	cfg config.SyncConfig,
) *EmailService {
	return &EmailService{
		mailboxes:      mailboxes,
		extractor:      extractor,
		reconciler:     reconciler,
		clock:          clock,
		logger:         logger,
		maxResults:     cfg.MaxResults,
		messageTimeout: cfg.MessageTimeout,
	}
}

type syncRun struct {
	state  SyncState
	logger *zap.Logger
}

func (r *syncRun) enter(next SyncState) {
	r.logger.Debug("Sync state change", zap.String("from", string(r.state)), zap.String("to", string(next)))
	r.state = next
}

// SyncUser scans the user's mailbox over the trailing SyncWindow. It fails only when
// the credential cannot be resolved (AuthError) or the listing call fails
// (AuthError or TransientNetworkError); individual message failures are logged and skipped.
func (s *EmailService) SyncUser(ctx context.Context, user *models.User) (*SyncResult, error) {
	run := &syncRun{
		state:  StateIdle,
		logger: s.logger.With(zap.String("user_id", user.ID.String()), zap.String("run_id", uuid.NewString())),
	}

	if !user.HasMailAccess() {
		run.enter(StateFailed)
		return nil, &AuthError{UserID: user.ID, Err: ErrNoRefreshToken}
	}

	run.enter(StateResolvingCredential)
	mailbox, err := s.mailboxes.Connect(ctx, user.GoogleRefreshToken)
	if err != nil {
		run.enter(StateFailed)
		return nil, classifyProviderError("resolve credential", user.ID, err)
	}

	run.enter(StateListing)
	since := s.clock.Now().Add(-SyncWindow)
	ids, err := mailbox.Search(ctx, BuildSearchQuery(since), s.maxResults)
	if err != nil {
		run.enter(StateFailed)
		return nil, classifyProviderError("list messages", user.ID, err)
	}

	result := &SyncResult{Scanned: len(ids)}
	if len(ids) == 0 {
		run.enter(StateDone)
		run.logger.Info("No candidate emails found")
		return result, nil
	}
	run.logger.Info("Processing candidate emails", zap.Int("count", len(ids)))

	for i, id := range ids {
		if ctx.Err() != nil {
			remaining := len(ids) - i
			result.Failed += remaining
			run.logger.Warn("Sync run cut short", zap.Int("unprocessed", remaining), zap.Error(ctx.Err()))
			break
		}
		s.processMessage(ctx, run, mailbox, user.ID, id, result)
	}

	run.enter(StateDone)
	run.logger.Info("Sync run complete",
		zap.Int("new", result.NewRecordsCount),
		zap.Int("existing", result.Existing),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *EmailService) processMessage(ctx context.Context, run *syncRun, mailbox Mailbox, owner uuid.UUID, id string, result *SyncResult) {
	log := run.logger.With(zap.String("message_id", id))
	if s.messageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.messageTimeout)
		defer cancel()
	}

	run.enter(StateFetching)
	msg, err := mailbox.Fetch(ctx, id)
	if err != nil {
		log.Warn("Skipping message: fetch failed", zap.Error(err))
		result.Failed++
		return
	}

	run.enter(StateExtracting)
	ext := s.extractor.Extract(ctx, msg.Text())
	if !ext.Complete() {
		log.Info("Skipping message: no complete extraction",
			zap.String("outcome", string(ext.Outcome)),
			zap.String("company", ext.Company),
			zap.String("position", ext.Position))
		if ext.Outcome == OutcomeServiceFailed {
			result.Failed++
		} else {
			result.Skipped++
		}
		return
	}

	run.enter(StateReconciling)
	created, err := s.reconciler.Reconcile(ctx, owner, ext, msg.AppliedDate(s.clock.Now()))
	if err != nil {
		log.Warn("Skipping message: reconcile failed", zap.Error(err))
		result.Failed++
		return
	}
	if !created {
		log.Debug("Job already tracked", zap.String("company", ext.Company), zap.String("position", ext.Position))
		result.Existing++
		return
	}
	log.Info("Job added from email", zap.String("company", ext.Company), zap.String("position", ext.Position))
	result.NewRecordsCount++
}

func classifyProviderError(op string, userID uuid.UUID, err error) error {
	if isAuthFailure(err) {
		return &AuthError{UserID: userID, Err: err}
	}
	return &TransientNetworkError{Op: op, Err: err}
}
