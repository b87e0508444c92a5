package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ahlan-reserve/internal/clients"
	"ahlan-reserve/internal/contract"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/installment"
	"ahlan-reserve/internal/metrics"
	"ahlan-reserve/internal/render"

	"go.uber.org/zap"
)

const msgRenderFailed = "Shartnoma faylini yaratishda xatolik yuz berdi"

type ArtifactKind string

const (
	ArtifactDOCX ArtifactKind = "docx"
	ArtifactHTML ArtifactKind = "html"
	ArtifactPDF  ArtifactKind = "pdf"
	ArtifactXLSX ArtifactKind = "xlsx"
)

func ParseArtifactKind(s string) (ArtifactKind, error) {
	switch k := ArtifactKind(strings.ToLower(s)); k {
	case ArtifactDOCX, ArtifactHTML, ArtifactPDF, ArtifactXLSX:
		return k, nil
	default:
		return "", fmt.Errorf("unknown artifact kind %q", s)
	}
}

// ContractSource hands out composed contracts and records where their renditions went.
type ContractSource interface {
	Contract(ctx context.Context, id string) (*Contract, error)
	AttachArtifact(ctx context.Context, id string, paymentID int64, kind, url string) error
}

type PDFPrinter interface {
	Render(ctx context.Context, html string) ([]byte, error)
}

type Artifact struct {
	Kind        ArtifactKind `json:"kind"`
	FileName    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	Key         string       `json:"key"`
	URL         string       `json:"url"`
}

// ArtifactService renders a session's contract, stores the file and reports
// progress. Failures never touch the committed payment.
type ArtifactService struct {
	contracts ContractSource
	store     clients.ArtifactStore
	pdf       PDFPrinter
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewArtifactService(
	contracts ContractSource,
	store clients.ArtifactStore,
	pdf PDFPrinter,
	notifier Notifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ArtifactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactService{
		contracts: contracts,
		store:     store,
		pdf:       pdf,
		notifier:  notifier,
		metrics:   m,
		logger:    logger.Named("artifacts"),
	}
}

func title(c *Contract) string {
	return fmt.Sprintf("%s %d", contract.TitleMarker, c.PaymentID)
}

// PrintView returns the auto-printing HTML page of the contract without storing it.
func (a *ArtifactService) PrintView(ctx context.Context, sessionID string) (string, error) {
	c, err := a.contracts.Contract(ctx, sessionID)
	if err != nil {
		return "", err
	}
	page, err := render.PrintHTML(title(c), c.Document.Text())
	if err != nil {
		return "", domain.NewUserError(domain.ErrContractRender, msgRenderFailed, err)
	}
	return page, nil
}

func (a *ArtifactService) Render(ctx context.Context, sessionID string, kind ArtifactKind) (Artifact, error) {
	c, err := a.contracts.Contract(ctx, sessionID)
	if err != nil {
		return Artifact{}, err
	}

	started := time.Now()
	log := a.logger.With(zap.String("session_id", sessionID), zap.Int64("payment_id", c.PaymentID), zap.String("kind", string(kind)))

	a.progress(ctx, sessionID, kind, "rendering")
	data, contentType, err := a.render(ctx, c, kind)
	if err != nil {
		return Artifact{}, a.fail(ctx, log, sessionID, kind, started, err)
	}

	a.progress(ctx, sessionID, kind, "storing")
	name := contract.FileName(c.PaymentID, string(kind))
	key, err := a.store.Save(ctx, name, data, contentType)
	if err != nil {
		return Artifact{}, a.fail(ctx, log, sessionID, kind, started, err)
	}
	url, err := a.store.URL(ctx, key)
	if err != nil {
		return Artifact{}, a.fail(ctx, log, sessionID, kind, started, err)
	}

	if err := a.contracts.AttachArtifact(ctx, sessionID, c.PaymentID, string(kind), url); err != nil {
		// The file exists; the session may have been dismissed meanwhile.
		log.Warn("artifact stored but not attached to session", zap.Error(err))
	}

	if a.notifier != nil {
		_ = a.notifier.ArtifactReady(ctx, sessionID, string(kind), url, name)
	}
	a.metrics.Artifact(string(kind), "ready", time.Since(started))
	log.Info("contract artifact ready", zap.String("key", key), zap.Int("bytes", len(data)))

	return Artifact{
		Kind:        kind,
		FileName:    name,
		ContentType: contentType,
		Key:         key,
		URL:         url,
	}, nil
}

func (a *ArtifactService) render(ctx context.Context, c *Contract, kind ArtifactKind) ([]byte, string, error) {
	switch kind {
	case ArtifactDOCX:
		data, err := render.DOCX(c.Document.Blocks)
		return data, render.DocxContentType, err
	case ArtifactHTML:
		page, err := render.PrintHTML(title(c), c.Document.Text())
		return []byte(page), render.HTMLContentType, err
	case ArtifactPDF:
		if a.pdf == nil {
			return nil, "", render.ErrPDFDisabled
		}
		page, err := render.PageHTML(title(c), c.Document.Text())
		if err != nil {
			return nil, "", err
		}
		data, err := a.pdf.Render(ctx, page)
		return data, render.PDFContentType, err
	case ArtifactXLSX:
		rows := installment.Schedule(c.Terms, c.IssuedAt, c.DueDay)
		data, err := render.ScheduleXLSX(c.PaymentID, c.Terms, rows)
		return data, render.XLSXContentType, err
	default:
		return nil, "", fmt.Errorf("unknown artifact kind %q", kind)
	}
}

func (a *ArtifactService) progress(ctx context.Context, sessionID string, kind ArtifactKind, stage string) {
	if a.notifier != nil {
		_ = a.notifier.ArtifactProgress(ctx, sessionID, string(kind), stage)
	}
}

func (a *ArtifactService) fail(ctx context.Context, log *zap.Logger, sessionID string, kind ArtifactKind, started time.Time, err error) error {
	log.Warn("contract artifact failed", zap.Error(err))
	a.metrics.Artifact(string(kind), "failed", time.Since(started))
	if a.notifier != nil {
		_ = a.notifier.ArtifactFailed(ctx, sessionID, string(kind), msgRenderFailed)
	}
	return domain.NewUserError(domain.ErrContractRender, msgRenderFailed, err)
}
