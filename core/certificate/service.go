package certificate

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/org"
	"github.com/shieldhq/shield/core/scoring"
)

// Service issues certificates for approved score results and drives the
// rendering pipeline.
type Service struct {
	repo      Repository
	scores    *scoring.Service
	orgs      *org.Service
	queue     RenderQueue
	mailSvc   core.EmailService
	logger    core.Logger
	conf      *core.Config
	templates map[scoring.Rank]Template
}

func NewService(
	repo Repository,
	scores *scoring.Service,
	orgs *org.Service,
	queue RenderQueue,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:      repo,
		scores:    scores,
		orgs:      orgs,
		queue:     queue,
		mailSvc:   mailSvc,
		logger:    logger,
		conf:      conf,
		templates: DefaultTemplates(),
	}
}

// TemplateFor returns the layout used for a rank.
func (svc *Service) TemplateFor(rank scoring.Rank) Template {
	return svc.templates[rank]
}

// Issue creates a certificate for an approved score result and enqueues the
// document render. The approved -> issued compare-and-set transition
// serializes issuance per submission; the per-year sequence counter is
// atomic in the repository, so no two certificates of a year share a number.
func (svc *Service) Issue(ctx context.Context, scoreResultID string) (Certificate, error) {
	res, err := svc.scores.Result(ctx, scoreResultID)
	if err != nil {
		return Certificate{}, err
	}
	sub, err := svc.scores.Get(ctx, res.SubmissionID)
	if err != nil {
		return Certificate{}, err
	}
	if sub.Status != scoring.StatusApproved {
		return Certificate{}, errors.Wrap(scoring.ErrStatusConflict, "issuing certificate")
	}

	// acquire the issuance lock
	if err := svc.scores.Transition(ctx, sub.ID, scoring.StatusApproved, scoring.StatusIssued); err != nil {
		return Certificate{}, err
	}

	cert, err := svc.create(ctx, res, sub.OrganizationID, sub.Path)
	if err != nil {
		if terr := svc.scores.Transition(ctx, sub.ID, scoring.StatusIssued, scoring.StatusApproved); terr != nil {
			svc.logger.Error("reverting submission status", terr)
		}
		return Certificate{}, err
	}

	req, err := svc.renderRequest(ctx, cert, res, sub.Path)
	if err != nil {
		svc.logger.Error("building render request", err)
		return cert, nil // certificate stands; render stays re-triggerable
	}
	svc.queue.Enqueue(req)
	return cert, nil
}

// create persists the certificate, retrying once with a re-derived sequence
// on a duplicate number before escalating.
func (svc *Service) create(ctx context.Context, res scoring.ScoreResult, orgID int, path catalog.Path) (Certificate, error) {
	now := time.Now().UTC()
	year := now.Year()

	var number string
	for attempt := 0; attempt < 2; attempt++ {
		seq, err := svc.repo.NextSequence(ctx, year)
		if err != nil {
			return Certificate{}, errors.Wrap(err, "deriving certificate sequence")
		}
		number = FormatNumber(path, year, orgID, seq)

		cert := Certificate{
			ID:             uuid.New().String(),
			OrganizationID: orgID,
			ScoreResultID:  res.ID,
			Rank:           res.Rank,
			Number:         number,
			IssuedAt:       now,
		}
		cert, err = svc.repo.CreateCertificate(ctx, cert)
		if err == nil {
			return cert, nil
		}
		if errors.Cause(err) != ErrDuplicateNumber {
			return Certificate{}, errors.Wrap(err, "persisting certificate")
		}
		svc.logger.Warn("duplicate certificate number, re-deriving sequence", number)
	}
	return Certificate{}, &DuplicateNumberError{Number: number}
}

func (svc *Service) Get(ctx context.Context, id string) (Certificate, error) {
	return svc.repo.GetCertificate(ctx, id)
}

func (svc *Service) GetByNumber(ctx context.Context, number string) (Certificate, error) {
	return svc.repo.GetCertificateByNumber(ctx, number)
}

func (svc *Service) QueryByOrganization(ctx context.Context, orgID int) ([]Certificate, error) {
	return svc.repo.QueryCertificates(ctx, orgID)
}

// RetryRender re-enqueues the document render of a certificate whose render
// never completed. Safe to call any number of times.
func (svc *Service) RetryRender(ctx context.Context, id string) error {
	cert, err := svc.repo.GetCertificate(ctx, id)
	if err != nil {
		return err
	}
	res, err := svc.scores.Result(ctx, cert.ScoreResultID)
	if err != nil {
		return err
	}
	sub, err := svc.scores.Get(ctx, res.SubmissionID)
	if err != nil {
		return err
	}
	req, err := svc.renderRequest(ctx, cert, res, sub.Path)
	if err != nil {
		return err
	}
	svc.queue.Enqueue(req)
	return nil
}

// FinishRender records a completed render and notifies the organization,
// attaching the rendered document.
func (svc *Service) FinishRender(ctx context.Context, certificateID, documentPath string) error {
	if err := svc.repo.SetDocumentPath(ctx, certificateID, documentPath); err != nil {
		return errors.Wrap(err, "saving document path")
	}

	cert, err := svc.repo.GetCertificate(ctx, certificateID)
	if err != nil {
		return err
	}
	orgRec, err := svc.orgs.GetByID(ctx, cert.OrganizationID)
	if err != nil {
		return err
	}
	res, err := svc.scores.Result(ctx, cert.ScoreResultID)
	if err != nil {
		return err
	}
	sub, err := svc.scores.Get(ctx, res.SubmissionID)
	if err != nil {
		return err
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: orgRec.Name, Address: orgRec.Email}},
		Subject:      "Your certificate " + cert.Number + " is ready",
		TemplateName: "certificate-issued",
		TemplateData: struct {
			OrganizationName string
			Path             string
			Rank             string
			Number           string
		}{orgRec.Name, string(sub.Path), string(cert.Rank), cert.Number},
	}
	if err := msg.AttachFile(documentPath, "application/pdf"); err != nil {
		svc.logger.Error("attaching certificate document", err)
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *Service) renderRequest(ctx context.Context, cert Certificate, res scoring.ScoreResult, path catalog.Path) (RenderRequest, error) {
	orgRec, err := svc.orgs.GetByID(ctx, cert.OrganizationID)
	if err != nil {
		return RenderRequest{}, errors.Wrap(err, "finding organization")
	}

	req := RenderRequest{
		CertificateID:     cert.ID,
		CertificateNumber: cert.Number,
		OrganizationName:  orgRec.Name,
		Rank:              cert.Rank,
		Percentage:        res.Percentage,
		Path:              path,
		IssuedAt:          cert.IssuedAt,
		IssuerName:        svc.conf.Certificate.IssuerName,
	}
	// placeholder substitution happens before rendering
	req.Template = svc.TemplateFor(cert.Rank).Substituted(req)
	return req, nil
}
