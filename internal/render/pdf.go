package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ahlan-reserve/internal/domain"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const PDFContentType = "application/pdf"

const (
	defaultPDFTimeout = 30 * time.Second

	// A4 in inches, 20mm margins.
	a4Width  = 8.27
	a4Height = 11.69
	a4Margin = 20 / 25.4
)

var ErrPDFDisabled = errors.New("pdf rendering is not configured")

type PDFConfig struct {
	// RemoteURL points at a running Chrome DevTools endpoint. When empty a
	// local headless Chrome is launched.
	RemoteURL string
	Timeout   time.Duration
	NoSandbox bool
}

// PDFRenderer prints HTML pages through headless Chrome.
type PDFRenderer struct {
	cfg         PDFConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewPDFRenderer(cfg PDFConfig, logger *zap.Logger) *PDFRenderer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPDFTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &PDFRenderer{cfg: cfg, logger: logger.Named("pdf")}

	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// Render prints html to an A4 PDF.
func (r *PDFRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	if r == nil {
		return nil, ErrPDFDisabled
	}
	if strings.TrimSpace(html) == "" {
		return nil, fmt.Errorf("%w: empty html", domain.ErrContractRender)
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// chromedp contexts do not inherit the caller's deadline.
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4Width).
				WithPaperHeight(a4Height).
				WithMarginTop(a4Margin).
				WithMarginBottom(a4Margin).
				WithMarginLeft(a4Margin).
				WithMarginRight(a4Margin).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = data
			return nil
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: pdf timed out after %v: %v", domain.ErrContractRender, r.cfg.Timeout, err)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrContractRender, err)
	}
	if len(pdf) == 0 {
		return nil, fmt.Errorf("%w: generated pdf is empty", domain.ErrContractRender)
	}

	r.logger.Info("pdf rendered", zap.Int("bytes", len(pdf)), zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

func (r *PDFRenderer) Close() error {
	if r != nil && r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}
