package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fiscaldoc/internal/domain"
	"fiscaldoc/internal/port"
)

const artifactURLExpiry = 15 * time.Minute

// Submit hands an emitted document to the authority. It is idempotent: a
// document already submitted is returned unchanged without calling the
// authority, and every attempt carries the document id as idempotency key.
// A transport failure leaves the document emitted and returns
// domain.ErrSubmissionPending so the caller can retry. An outright refusal
// also leaves it emitted, stamps SubmissionRefusedAt and returns
// domain.ErrSubmissionRefused.
func (s *documentService) Submit(ctx context.Context, id uuid.UUID) (*domain.FiscalDocument, error) {
	unlock, err := s.lockDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch doc.State {
	case domain.StateSubmitted:
		s.docLog(doc).Debug("document already submitted, skipping")
		return doc, nil
	case domain.StateEmitted:
	default:
		return nil, &domain.StateError{From: doc.State, To: domain.StateSubmitted}
	}

	key := doc.IdempotencyKey()
	ack, submitErr := s.Authority.Submit(ctx, doc, key)
	refused := errors.Is(submitErr, domain.ErrSubmissionRefused)
	attempt := &domain.SubmissionAttempt{
		ID:             uuid.New(),
		DocumentID:     doc.ID,
		IdempotencyKey: key,
		Succeeded:      submitErr == nil,
		Refused:        refused,
		CreatedAt:      s.now(),
	}
	if submitErr != nil {
		attempt.Error = submitErr.Error()
	} else {
		attempt.Ticket = ack.Ticket
	}
	if err := s.SubmissionRepo.Record(ctx, attempt); err != nil {
		s.docLog(doc).WithError(err).Error("recording submission attempt")
	}

	if refused {
		return s.markRefused(ctx, doc, submitErr)
	}
	if submitErr != nil {
		s.docLog(doc).WithError(submitErr).Warn("submission failed, document stays emitted")
		return doc, fmt.Errorf("%w: %v", domain.ErrSubmissionPending, submitErr)
	}

	if err := s.markSubmitted(ctx, doc, ack.Ticket, "handed to authority"); err != nil {
		return nil, err
	}
	if ack.Resolution != nil {
		return s.resolve(ctx, doc, ack.Resolution)
	}
	return doc, nil
}

func (s *documentService) markRefused(ctx context.Context, doc *domain.FiscalDocument, submitErr error) (*domain.FiscalDocument, error) {
	now := s.now()
	doc.SubmissionRefusedAt = &now
	if err := s.Documents.UpdateLifecycle(ctx, doc, domain.StateEmitted); err != nil {
		return nil, err
	}
	s.docLog(doc).WithError(submitErr).Error("authority refused submission, document stays emitted")
	return doc, fmt.Errorf("%w: %v", domain.ErrSubmissionRefused, submitErr)
}

func (s *documentService) markSubmitted(ctx context.Context, doc *domain.FiscalDocument, ticket, reason string) error {
	if err := doc.Transition(domain.StateSubmitted); err != nil {
		return err
	}
	now := s.now()
	doc.SubmittedAt = &now
	if doc.Authority == nil {
		doc.Authority = &domain.AuthorityResponse{}
	}
	if ticket != "" {
		doc.Authority.Ticket = ticket
	}
	if err := s.Documents.UpdateLifecycle(ctx, doc, domain.StateEmitted); err != nil {
		return err
	}
	s.recordTransition(ctx, doc, domain.StateEmitted, reason)
	s.docLog(doc).Info("document submitted")
	return nil
}

// ApplyAuthorityResolution is the intake for verdicts delivered outside the
// submission call. Resolutions may arrive in any order relative to local
// actions.
func (s *documentService) ApplyAuthorityResolution(ctx context.Context, input *ResolutionInput) (*domain.FiscalDocument, error) {
	verr := validateInput(input)
	if input.DocumentID == uuid.Nil {
		verr.Add("document_id", "is required")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	unlock, err := s.lockDocument(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := s.Documents.GetByID(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return s.resolve(ctx, doc, &domain.AuthorityResponse{
		Ticket:           input.Ticket,
		Outcome:          domain.AuthorityOutcome(input.Outcome),
		Hash:             input.Hash,
		ConfirmationCode: input.ConfirmationCode,
		ResponseCode:     input.ResponseCode,
		Description:      input.Description,
		Observations:     input.Observations,
		ReceivedAt:       &now,
	})
}

// resolve applies a verdict to a document whose lock is held by the caller.
func (s *documentService) resolve(ctx context.Context, doc *domain.FiscalDocument, resp *domain.AuthorityResponse) (*domain.FiscalDocument, error) {
	target, ok := resp.Outcome.State()
	if !ok {
		return nil, domain.NewValidationError("outcome", fmt.Sprintf("unknown outcome %q", resp.Outcome))
	}
	if resp.ReceivedAt == nil {
		now := s.now()
		resp.ReceivedAt = &now
	}

	switch doc.State {
	case domain.StateEmitted:
		// The acknowledgement was lost but the authority has the document.
		if err := s.markSubmitted(ctx, doc, resp.Ticket, "resolution received before acknowledgement"); err != nil {
			return nil, err
		}
	case domain.StateSubmitted:
	case domain.StateVoided:
		return s.recordLateResolution(ctx, doc, resp)
	default:
		if doc.State == target {
			s.docLog(doc).Debug("duplicate resolution ignored")
			return doc, nil
		}
		return nil, &domain.StateError{From: doc.State, To: target}
	}

	if err := doc.Transition(target); err != nil {
		return nil, err
	}
	doc.Authority = mergeAuthority(doc.Authority, resp)
	doc.ResolvedAt = resp.ReceivedAt
	if err := s.Documents.UpdateLifecycle(ctx, doc, domain.StateSubmitted); err != nil {
		return nil, err
	}
	reason := "authority " + string(resp.Outcome)
	if resp.ResponseCode != "" {
		reason += " (" + resp.ResponseCode + ")"
	}
	s.recordTransition(ctx, doc, domain.StateSubmitted, reason)
	s.docLog(doc).WithField("outcome", resp.Outcome).Info("authority resolution applied")

	s.archive(ctx, doc)
	if target == domain.StateAccepted {
		s.notifyAccepted(ctx, doc)
	}
	return doc, nil
}

// recordLateResolution keeps a voided document voided but stores what the
// authority said about it.
func (s *documentService) recordLateResolution(ctx context.Context, doc *domain.FiscalDocument, resp *domain.AuthorityResponse) (*domain.FiscalDocument, error) {
	doc.Authority = mergeAuthority(doc.Authority, resp)
	if err := s.Documents.UpdateLifecycle(ctx, doc, domain.StateVoided); err != nil {
		return nil, err
	}
	s.docLog(doc).WithField("outcome", resp.Outcome).Warn("resolution received for voided document, state kept")
	s.archive(ctx, doc)
	return doc, nil
}

func mergeAuthority(current, resp *domain.AuthorityResponse) *domain.AuthorityResponse {
	merged := *resp
	if current != nil && merged.Ticket == "" {
		merged.Ticket = current.Ticket
	}
	merged.Observations = append([]string(nil), resp.Observations...)
	return &merged
}

func artifactKey(doc *domain.FiscalDocument) string {
	return fmt.Sprintf("documents/%s/authority-response.json", doc.ID)
}

// archive stores the authority response. Failures are logged only.
func (s *documentService) archive(ctx context.Context, doc *domain.FiscalDocument) {
	if s.Artifacts == nil || doc.Authority == nil {
		return
	}
	var number int64
	if doc.Number != nil {
		number = *doc.Number
	}
	body, err := json.Marshal(map[string]interface{}{
		"document_id":   doc.ID,
		"document_type": doc.Type,
		"series":        doc.SeriesCode,
		"number":        number,
		"state":         doc.State,
		"authority":     doc.Authority,
	})
	if err != nil {
		s.docLog(doc).WithError(err).Warn("encoding authority artifact")
		return
	}
	location, err := s.Artifacts.Put(ctx, port.PutArtifactInput{
		Key:         artifactKey(doc),
		Body:        bytes.NewReader(body),
		ContentType: "application/json",
	})
	if err != nil {
		s.docLog(doc).WithError(err).Warn("archiving authority artifact")
		return
	}
	s.docLog(doc).WithField("location", location).Debug("authority artifact archived")
}

// notifyAccepted emails the customer. Failures are logged only.
func (s *documentService) notifyAccepted(ctx context.Context, doc *domain.FiscalDocument) {
	if s.Notifier == nil || doc.Customer == nil || doc.Customer.Email == "" || doc.Number == nil {
		return
	}
	notice := port.AcceptanceNotice{
		ToEmail:      doc.Customer.Email,
		ToName:       doc.Customer.Name,
		FullNumber:   domain.FullNumber(doc.SeriesCode, *doc.Number),
		DocumentType: doc.Type,
		Currency:     doc.Currency,
		GrandTotal:   domain.FormatMoney(doc.Totals.GrandTotal),
		QRPayload:    domain.QRPayload(s.cfg.IssuerRUC, doc),
	}
	if doc.Authority != nil {
		notice.ConfirmationCode = doc.Authority.ConfirmationCode
	}
	if err := s.Notifier.SendAcceptanceNotice(ctx, notice); err != nil {
		s.docLog(doc).WithError(err).Warn("sending acceptance notice")
	}
}

// archivedKey resolves the artifact key of a document that has a verdict.
func (s *documentService) archivedKey(ctx context.Context, id uuid.UUID) (string, error) {
	doc, err := s.Documents.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if s.Artifacts == nil || doc.Authority == nil || doc.Authority.Outcome == "" {
		return "", fmt.Errorf("no authority artifact for document %s: %w", id, domain.ErrNotFound)
	}
	return artifactKey(doc), nil
}

func (s *documentService) ArtifactURL(ctx context.Context, id uuid.UUID) (string, error) {
	key, err := s.archivedKey(ctx, id)
	if err != nil {
		return "", err
	}
	return s.Artifacts.PresignedURL(ctx, key, artifactURLExpiry)
}

// Artifact returns the archived authority response itself, for stores whose
// links are not reachable by the caller.
func (s *documentService) Artifact(ctx context.Context, id uuid.UUID) ([]byte, error) {
	key, err := s.archivedKey(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Artifacts.Get(ctx, key)
}
