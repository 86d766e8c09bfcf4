package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

// SubmissionWorkerConfig holds settings for the submission worker.
type SubmissionWorkerConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	Concurrency    int
	SubmitTimeout  time.Duration
	// RefusalBackoff is how long a document the authority refused is left
	// out of the polling batch.
	RefusalBackoff time.Duration
	// Now defaults to time.Now.
	Now            func() time.Time
}

// SubmissionWorker polls for emitted documents and hands them to the
// authority. Retries reuse the document's idempotency key, so a document
// picked up twice is never registered twice.
type SubmissionWorker struct {
	docRepo    port.DocumentRepository
	docService DocumentService
	cfg        SubmissionWorkerConfig
	log        logrus.FieldLogger
}

// NewSubmissionWorker creates a new SubmissionWorker.
func NewSubmissionWorker(docRepo port.DocumentRepository, docService DocumentService, cfg SubmissionWorkerConfig, log logrus.FieldLogger) *SubmissionWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = cfg.Concurrency
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = time.Minute
	}
	if cfg.RefusalBackoff <= 0 {
		cfg.RefusalBackoff = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SubmissionWorker{
		docRepo:    docRepo,
		docService: docService,
		cfg:        cfg,
		log:        log.WithField("component", "submission_worker"),
	}
}

// Start runs the polling loop until ctx is canceled. It returns after the
// in-flight batch has finished.
func (w *SubmissionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	w.log.WithFields(logrus.Fields{
		"poll":        w.cfg.PollInterval,
		"batch":       w.cfg.BatchSize,
		"concurrency": w.cfg.Concurrency,
	}).Info("started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("shutdown complete")
			return
		case <-ticker.C:
			if n, err := w.RunOnce(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.log.WithError(err).Error("polling emitted documents")
			} else if n > 0 {
				w.log.WithField("count", n).Debug("batch processed")
			}
		}
	}
}

// RunOnce submits one batch of emitted documents and reports how many were
// picked up. Documents refused within the last RefusalBackoff are skipped.
func (w *SubmissionWorker) RunOnce(ctx context.Context) (int, error) {
	refusedBefore := w.cfg.Now().Add(-w.cfg.RefusalBackoff)
	docs, err := w.docRepo.ListPendingSubmission(ctx, refusedBefore, w.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)
	for i := range docs {
		doc := docs[i]
		g.Go(func() error {
			// In-flight submissions finish even during shutdown.
			submitCtx, cancel := context.WithTimeout(context.Background(), w.cfg.SubmitTimeout)
			defer cancel()

			entry := w.log.WithField("document_id", doc.ID)
			_, err := w.docService.Submit(submitCtx, doc.ID)
			switch {
			case err == nil:
				entry.Debug("submitted")
			case errors.Is(err, domain.ErrSubmissionPending):
				entry.WithError(err).Warn("authority unreachable, will retry")
			case errors.Is(err, domain.ErrSubmissionRefused):
				entry.WithError(err).WithField("backoff", w.cfg.RefusalBackoff).Error("authority refused document, backing off")
			case errors.Is(err, domain.ErrLockNotObtained):
				entry.Debug("document busy, will retry")
			default:
				entry.WithError(err).Error("submission failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	return len(docs), nil
}
