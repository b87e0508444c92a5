package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ahlan-reserve/internal/contract"
	"ahlan-reserve/internal/domain"
	"ahlan-reserve/internal/installment"
	"ahlan-reserve/internal/render"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

// contractFixture is the JSON accepted by "contract render".
type contractFixture struct {
	PaymentID int64 `json:"payment_id"`
	Apartment struct {
		ObjectName string          `json:"object_name"`
		RoomNumber string          `json:"room_number"`
		Floor      int             `json:"floor"`
		Rooms      int             `json:"rooms"`
		Area       decimal.Decimal `json:"area"`
		Price      decimal.Decimal `json:"price"`
	} `json:"apartment"`
	Client struct {
		FullName  string `json:"full_name"`
		Phone     string `json:"phone"`
		Passport  string `json:"passport"`
		Address   string `json:"address"`
		Guarantor *struct {
			Name    string `json:"name"`
			Phone   string `json:"phone"`
			Address string `json:"address"`
		} `json:"guarantor"`
	} `json:"client"`
	Plan struct {
		PaymentType    string           `json:"payment_type"`
		InitialPayment decimal.Decimal  `json:"initial_payment"`
		TermMonths     int              `json:"term_months"`
		InterestRate   *decimal.Decimal `json:"interest_rate"`
	} `json:"plan"`
	DueDay    int               `json:"due_day"`
	IssueDate string            `json:"issue_date"`
	Executor  contract.Executor `json:"executor"`
}

func (f contractFixture) input() (contract.Input, error) {
	pt, err := domain.ParsePaymentType(f.Plan.PaymentType)
	if err != nil {
		return contract.Input{}, err
	}
	terms, err := installment.NewCalculator(decimal.Zero).Plan(f.Apartment.Price, installment.PlanInput{
		Type:           pt,
		InitialPayment: f.Plan.InitialPayment,
		TermMonths:     f.Plan.TermMonths,
		InterestRate:   f.Plan.InterestRate,
	})
	if err != nil {
		return contract.Input{}, fmt.Errorf("payment plan: %w", err)
	}

	issued := time.Now()
	if f.IssueDate != "" {
		issued, err = time.Parse(time.DateOnly, f.IssueDate)
		if err != nil {
			return contract.Input{}, fmt.Errorf("issue_date: %w", err)
		}
	}

	client := domain.Client{
		FullName: f.Client.FullName,
		Phone:    f.Client.Phone,
		Passport: f.Client.Passport,
		Address:  f.Client.Address,
	}
	if g := f.Client.Guarantor; g != nil {
		client.Guarantor = &domain.Guarantor{Name: g.Name, Phone: g.Phone, Address: g.Address}
	}

	return contract.Input{
		PaymentID: f.PaymentID,
		Apartment: domain.Apartment{
			ObjectName: f.Apartment.ObjectName,
			RoomNumber: f.Apartment.RoomNumber,
			Floor:      f.Apartment.Floor,
			Rooms:      f.Apartment.Rooms,
			Area:       f.Apartment.Area,
			Price:      f.Apartment.Price,
		},
		Client:    client,
		Terms:     terms,
		DueDay:    f.DueDay,
		IssueDate: issued,
		Executor:  f.Executor,
	}, nil
}

func contractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Offline contract tools",
	}
	cmd.AddCommand(renderCmd())
	return cmd
}

func renderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Compose a contract from a JSON fixture and write its renditions",
		RunE: func(cmd *cobra.Command, args []string) error {
			input, _ := cmd.Flags().GetString("input")
			out, _ := cmd.Flags().GetString("out")
			formats, _ := cmd.Flags().GetStringSlice("formats")
			chrome, _ := cmd.Flags().GetString("chrome-url")

			raw, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read fixture: %w", err)
			}
			var fx contractFixture
			if err := json.Unmarshal(raw, &fx); err != nil {
				return fmt.Errorf("parse fixture: %w", err)
			}
			in, err := fx.input()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}

			doc := contract.Compose(in)
			title := fmt.Sprintf("%s %d", contract.TitleMarker, in.PaymentID)

			for _, format := range formats {
				data, err := renderFormat(cmd.Context(), format, doc, in, title, chrome)
				if err != nil {
					return fmt.Errorf("render %s: %w", format, err)
				}
				path := filepath.Join(out, contract.FileName(in.PaymentID, format))
				if err := os.WriteFile(path, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	cmd.Flags().String("input", "", "path to the contract fixture JSON")
	cmd.Flags().String("out", ".", "directory the files are written to")
	cmd.Flags().StringSlice("formats", []string{"txt", "docx", "html", "xlsx"}, "renditions to write: txt, docx, html, xlsx, pdf")
	cmd.Flags().String("chrome-url", "", "DevTools endpoint for pdf; a local headless Chrome is started when empty")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func renderFormat(ctx context.Context, format string, doc contract.Document, in contract.Input, title, chromeURL string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "txt":
		return []byte(doc.Text() + "\n"), nil
	case "docx":
		return render.DOCX(doc.Blocks)
	case "html":
		page, err := render.PrintHTML(title, doc.Text())
		return []byte(page), err
	case "xlsx":
		rows := installment.Schedule(in.Terms, in.IssueDate, in.DueDay)
		return render.ScheduleXLSX(in.PaymentID, in.Terms, rows)
	case "pdf":
		page, err := render.PageHTML(title, doc.Text())
		if err != nil {
			return nil, err
		}
		pdf := render.NewPDFRenderer(render.PDFConfig{RemoteURL: chromeURL}, nil)
		defer pdf.Close()
		return pdf.Render(ctx, page)
	default:
		return nil, errors.New("unknown format")
	}
}
