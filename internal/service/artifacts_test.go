package service

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"ahlan-reserve/internal/clients"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePDF struct {
	html string
	err  error
}

func (f *fakePDF) Render(ctx context.Context, html string) ([]byte, error) {
	f.html = html
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

type artifactHarness struct {
	*harness
	artifacts *ArtifactService
	storage   *clients.LocalStorage
	sessionID string
	paymentID int64
}

func newArtifactHarness(t *testing.T, pdf PDFPrinter) *artifactHarness {
	t.Helper()
	h := setup(t)
	storage, err := clients.NewLocalStorage(t.TempDir(), "/files", "http://reserve.local")
	require.NoError(t, err)

	ctx := context.Background()
	rs, err := h.svc.Open(ctx, staff, 12)
	require.NoError(t, err)
	rs, err = h.svc.Submit(ctx, staff, rs.ID, newClientForm())
	require.NoError(t, err)

	return &artifactHarness{
		harness:   h,
		artifacts: NewArtifactService(h.svc, storage, pdf, h.notifier, nil, nil),
		storage:   storage,
		sessionID: rs.ID,
		paymentID: rs.Contract.PaymentID,
	}
}

func (a *artifactHarness) read(t *testing.T, art Artifact) []byte {
	t.Helper()
	path, err := a.storage.Path(art.Key)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestArtifacts_DOCX(t *testing.T) {
	a := newArtifactHarness(t, nil)
	ctx := context.Background()

	art, err := a.artifacts.Render(ctx, a.sessionID, ArtifactDOCX)
	require.NoError(t, err)

	wantName := fmt.Sprintf("contract_%d.docx", a.paymentID)
	assert.Equal(t, wantName, art.FileName)
	assert.Equal(t, render.DocxContentType, art.ContentType)
	assert.Equal(t, wantName, clients.OriginalName(art.Key))
	assert.Equal(t, "http://reserve.local/files/"+art.Key, art.URL)

	data := a.read(t, art)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "word/document.xml")

	assert.Equal(t, []string{"docx:rendering", "docx:storing"}, a.notifier.of("progress"))
	assert.Equal(t, []string{"docx:" + wantName}, a.notifier.of("ready"))

	c, err := a.svc.Contract(ctx, a.sessionID)
	require.NoError(t, err)
	assert.Equal(t, art.URL, c.Artifacts["docx"])
}

func TestArtifacts_HTMLAndPrintView(t *testing.T) {
	a := newArtifactHarness(t, nil)
	ctx := context.Background()

	art, err := a.artifacts.Render(ctx, a.sessionID, ArtifactHTML)
	require.NoError(t, err)
	assert.Equal(t, render.HTMLContentType, art.ContentType)

	page := string(a.read(t, art))
	assert.Contains(t, page, fmt.Sprintf("SHARTNOMA № %d", a.paymentID))
	assert.Contains(t, page, "Toshmatov Sardor")
	assert.Contains(t, page, "window.print()")

	view, err := a.artifacts.PrintView(ctx, a.sessionID)
	require.NoError(t, err)
	assert.Equal(t, page, view)
}

func TestArtifacts_XLSXSchedule(t *testing.T) {
	a := newArtifactHarness(t, nil)

	art, err := a.artifacts.Render(context.Background(), a.sessionID, ArtifactXLSX)
	require.NoError(t, err)
	assert.Equal(t, render.XLSXContentType, art.ContentType)
	assert.True(t, strings.HasSuffix(art.FileName, ".xlsx"))

	data := a.read(t, art)
	assert.Equal(t, "PK", string(data[:2]))
}

func TestArtifacts_PDF(t *testing.T) {
	pdf := &fakePDF{}
	a := newArtifactHarness(t, pdf)

	art, err := a.artifacts.Render(context.Background(), a.sessionID, ArtifactPDF)
	require.NoError(t, err)
	assert.Equal(t, render.PDFContentType, art.ContentType)
	assert.Equal(t, "%PDF-1.7 fake", string(a.read(t, art)))
	assert.NotContains(t, pdf.html, "window.print()")
}

func TestArtifacts_PDFDisabled(t *testing.T) {
	a := newArtifactHarness(t, nil)

	_, err := a.artifacts.Render(context.Background(), a.sessionID, ArtifactPDF)
	require.Error(t, err)
	assert.ErrorIs(t, err, render.ErrPDFDisabled)
	assert.ErrorIs(t, err, domain.ErrContractRender)
	assert.Equal(t, msgRenderFailed, domain.UserMessage(err, ""))
	assert.Equal(t, []string{"pdf"}, a.notifier.of("failed"))
}

func TestArtifacts_RenderFailureLeavesPaymentAlone(t *testing.T) {
	a := newArtifactHarness(t, &fakePDF{err: errors.New("chrome crashed")})
	ctx := context.Background()

	_, err := a.artifacts.Render(ctx, a.sessionID, ArtifactPDF)
	require.Error(t, err)

	rs, err := a.svc.Get(ctx, a.sessionID)
	require.NoError(t, err)
	assert.Equal(t, StateContractReady, rs.State)
	assert.Len(t, a.backend.Payments(), 1)
}

func TestArtifacts_NoContract(t *testing.T) {
	h := setup(t)
	storage, err := clients.NewLocalStorage(t.TempDir(), "", "")
	require.NoError(t, err)
	svc := NewArtifactService(h.svc, storage, nil, h.notifier, nil, nil)
	ctx := context.Background()

	rs, err := h.svc.Open(ctx, staff, 12)
	require.NoError(t, err)

	_, err = svc.Render(ctx, rs.ID, ArtifactDOCX)
	assert.ErrorIs(t, err, domain.ErrNoContract)
	_, err = svc.PrintView(ctx, rs.ID)
	assert.ErrorIs(t, err, domain.ErrNoContract)
	_, err = svc.Render(ctx, "missing", ArtifactDOCX)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Empty(t, h.notifier.of("progress"))
}

func TestParseArtifactKind(t *testing.T) {
	k, err := ParseArtifactKind("DOCX")
	require.NoError(t, err)
	assert.Equal(t, ArtifactDOCX, k)

	_, err = ParseArtifactKind("odt")
	assert.Error(t, err)
}
