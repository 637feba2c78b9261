package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/yeremiapane/canteen-app/models"
	"github.com/yeremiapane/canteen-app/repository"
	"github.com/yeremiapane/canteen-app/utils"
	"gorm.io/gorm"
)

// SalesSummary is the data behind the daily sales report.
type SalesSummary struct {
	Day          time.Time
	Orders       int
	Revenue      float64
	Transactions []models.Transaction
	Items        []ItemSales
}

type ItemSales struct {
	Name     string
	Quantity int
	Revenue  float64
}

type ReportService struct {
	transactions *repository.TransactionRepository
	reader       *repository.ItemReader
	location     *time.Location
}

func NewReportService(db *gorm.DB, loc *time.Location) *ReportService {
	if loc == nil {
		loc = time.Local
	}
	return &ReportService{
		transactions: repository.NewTransactionRepository(db),
		reader:       repository.NewItemReader(repository.NewOrderItemRepository(db)),
		location:     loc,
	}
}

// Summary collects the successful transactions of the day containing day.
func (s *ReportService) Summary(ctx context.Context, day time.Time) (*SalesSummary, error) {
	start := startOfDay(day.In(s.location))
	rows, err := s.transactions.List(ctx, repository.TransactionFilter{
		PaymentStatus: models.PaymentSuccess,
		Since:         start,
		Until:         start.AddDate(0, 0, 1),
		WithItems:     true,
	})
	if err != nil {
		return nil, err
	}

	summary := &SalesSummary{Day: start, Transactions: rows}
	byName := map[string]*ItemSales{}
	for i := range rows {
		summary.Orders++
		summary.Revenue += rows[i].TotalAmount

		items, _, err := s.reader.Resolve(ctx, &rows[i])
		if errors.Is(err, repository.ErrNoItems) {
			continue
		}
		if err != nil {
			utils.ErrorLogger.Errorf("report: items of %d: %v", rows[i].ID, err)
			continue
		}
		for _, it := range items {
			agg, ok := byName[it.Name]
			if !ok {
				agg = &ItemSales{Name: it.Name}
				byName[it.Name] = agg
			}
			agg.Quantity += it.Quantity
			agg.Revenue += it.Price * float64(it.Quantity)
		}
	}
	for _, agg := range byName {
		summary.Items = append(summary.Items, *agg)
	}
	sort.Slice(summary.Items, func(i, j int) bool {
		if summary.Items[i].Quantity != summary.Items[j].Quantity {
			return summary.Items[i].Quantity > summary.Items[j].Quantity
		}
		return summary.Items[i].Name < summary.Items[j].Name
	})
	return summary, nil
}

// WritePDF renders the daily sales report.
func (s *ReportService) WritePDF(ctx context.Context, day time.Time, w io.Writer) error {
	summary, err := s.Summary(ctx, day)
	if err != nil {
		return err
	}
	return RenderSalesPDF(summary, w)
}

// pdfMoney keeps the core fonts happy; they have no rupee glyph.
func pdfMoney(v float64) string {
	return strings.Replace(utils.FormatINR(v), "₹", "Rs. ", 1)
}

func RenderSalesPDF(summary *SalesSummary, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Canteen sales "+summary.Day.Format("2006-01-02"), false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Daily Sales Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, summary.Day.Format("Monday, 02 January 2006"))
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Orders: %d    Revenue: %s", summary.Orders, pdfMoney(summary.Revenue)))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(100, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(50, 8, "Revenue", "1", 1, "R", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, it := range summary.Items {
		pdf.CellFormat(100, 7, it.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 7, pdfMoney(it.Revenue), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(45, 8, "Order", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, "Token", "1", 0, "R", true, 0, "")
	pdf.CellFormat(20, 8, "Time", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 8, "Customer", "1", 0, "L", true, 0, "")
	pdf.CellFormat(45, 8, "Total", "1", 1, "R", true, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, t := range summary.Transactions {
		pdf.CellFormat(45, 7, t.OrderNumber, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", t.TokenNumber), "1", 0, "R", false, 0, "")
		pdf.CellFormat(20, 7, t.CreatedAt.In(summary.Day.Location()).Format("15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 7, t.CustomerName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, pdfMoney(t.TotalAmount), "1", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render sales pdf: %w", err)
	}
	return pdf.Output(w)
}
