package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ReportService renders fortnight workbooks and broker statements
type ReportService struct {
	repos      *repository.Repositories
	aggregator *Aggregator
}

func NewReportService(repos *repository.Repositories, aggregator *Aggregator) *ReportService {
	return &ReportService{repos: repos, aggregator: aggregator}
}

// FortnightWorkbook exports a fortnight: per-broker summary, item detail and the
// pending-identify rows.
func (s *ReportService) FortnightWorkbook(ctx context.Context, fortnightID uint) ([]byte, string, error) {
	fortnight, err := s.repos.Fortnight.FindByID(ctx, fortnightID)
	if err != nil {
		return nil, "", notFound(err)
	}
	breakdown, err := s.aggregator.Compute(ctx, fortnightID)
	if err != nil {
		return nil, "", err
	}
	items, err := s.repos.Item.FindByFortnight(ctx, fortnightID)
	if err != nil {
		return nil, "", err
	}
	names := make(map[uint]string, len(breakdown.Brokers))
	for _, bb := range breakdown.Brokers {
		names[bb.BrokerID] = bb.BrokerName
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	moneyStyle, _ := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00

	summary := "Resumen"
	_ = f.SetSheetName("Sheet1", summary)
	_ = f.SetCellValue(summary, "A1", fmt.Sprintf("Comisiones quincena %s (%s)", fortnight.Label(), fortnight.Status))
	writeHeader(f, summary, 3, headerStyle, "Corredor", "Bruto", "Códigos", "Retenido anterior", "Descuentos", "Neto", "Registros", "Retenido")
	row := 4
	for _, bb := range breakdown.Brokers {
		held := ""
		if bb.Retained {
			held = bb.HoldReason
		}
		_ = f.SetSheetRow(summary, cell(1, row), &[]any{
			bb.BrokerName, money(bb.Gross), money(bb.CodeAmount), money(bb.RetainedIn),
			money(bb.DiscountTotal), money(bb.Net), bb.ItemCount, held,
		})
		row++
	}
	_ = f.SetSheetRow(summary, cell(1, row+1), &[]any{"Pendiente de identificar", money(breakdown.PendingTotal), "", "", "", "", breakdown.PendingCount})
	_ = f.SetCellStyle(summary, cell(2, 4), cell(6, row+1), moneyStyle)

	detail := "Detalle"
	_, _ = f.NewSheet(detail)
	pending := "Pendientes"
	_, _ = f.NewSheet(pending)
	writeHeader(f, detail, 1, headerStyle, "Aseguradora", "Póliza/Código", "Cliente", "Producto", "Base", "Monto reportado", "% aplicado", "Comisión corredor", "Corredor", "Estado")
	writeHeader(f, pending, 1, headerStyle, "Aseguradora", "Identificador", "Cliente", "Monto", "Importación")

	dRow, pRow := 2, 2
	for _, item := range items {
		if !item.CountsForBroker() {
			_ = f.SetSheetRow(pending, cell(1, pRow), &[]any{
				item.InsurerKey, item.RawIdentifier, item.ClientName, money(item.GrossAmount), item.ImportID,
			})
			pRow++
			continue
		}
		ident := item.PolicyNumber
		if item.IsAssaCode {
			ident = item.AgentCode
		}
		pct := ""
		if item.PercentApplied.Valid {
			pct = item.PercentApplied.Decimal.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
		}
		_ = f.SetSheetRow(detail, cell(1, dRow), &[]any{
			item.InsurerKey, ident, item.ClientName, item.ProductCode, item.AmountBasis,
			money(item.GrossAmount), pct, money(item.BrokerAmount), names[*item.BrokerID], item.Status,
		})
		dRow++
	}
	_ = f.SetCellStyle(detail, cell(6, 2), cell(8, max(dRow, 2)), moneyStyle)
	_ = f.SetCellStyle(pending, cell(4, 2), cell(4, max(pRow, 2)), moneyStyle)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("comisiones_%s.xlsx", strings.ReplaceAll(fortnight.Label(), " ", "_"))
	return buf.Bytes(), filename, nil
}

// BrokerStatement renders one broker's commission statement for a fortnight
func (s *ReportService) BrokerStatement(ctx context.Context, fortnightID, brokerID uint) ([]byte, string, error) {
	fortnight, err := s.repos.Fortnight.FindByID(ctx, fortnightID)
	if err != nil {
		return nil, "", notFound(err)
	}
	broker, err := s.repos.Broker.FindByID(ctx, brokerID)
	if err != nil {
		return nil, "", notFound(err)
	}
	breakdown, err := s.aggregator.Compute(ctx, fortnightID)
	if err != nil {
		return nil, "", err
	}
	bb := breakdown.Broker(brokerID)
	if bb == nil {
		bb = &BrokerBreakdown{BrokerID: brokerID, BrokerName: broker.Name}
	}

	pdf := gofpdf.New("P", "mm", "Letter", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr("Estado de comisiones"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Corredor: %s (%s)", broker.Name, broker.Code)))
	pdf.Ln(6)
	pdf.Cell(0, 6, tr(fmt.Sprintf("Quincena: %s  del %s al %s  Estado: %s", fortnight.Label(),
		fortnight.PeriodStart.Format("02/01/2006"), fortnight.PeriodEnd.Format("02/01/2006"), fortnight.Status)))
	pdf.Ln(10)

	tableHeader := func(cols ...string) {
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(224, 224, 224)
		widths := []float64{35, 70, 30, 30, 30}
		for i, c := range cols {
			pdf.CellFormat(widths[i], 6, tr(c), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	line := func(a, b, c, d, e string) {
		pdf.CellFormat(35, 6, tr(a), "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 6, tr(truncate(b, 40)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, c, "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, d, "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, e, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	for _, c := range bb.Carriers {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 8, tr(strings.ToUpper(c.Insurer)))
		pdf.Ln(8)
		tableHeader("Póliza", "Cliente", "Reportado", "%", "Comisión")
		for _, it := range c.Items {
			pct := "-"
			if it.Percent.Valid {
				pct = it.Percent.Decimal.Mul(decimal.NewFromInt(100)).StringFixed(2)
			}
			line(it.PolicyNumber, it.ClientName, it.Gross.StringFixed(2), pct, it.Amount.StringFixed(2))
		}
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(165, 6, "Subtotal", "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, c.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.Ln(10)
	}

	if len(bb.Codes) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 8, tr("Distribución por código de agente"))
		pdf.Ln(8)
		tableHeader("Código", "Sección", "Pagado", "", "Comisión")
		for _, it := range bb.Codes {
			line(it.AgentCode, it.Section, it.Gross.StringFixed(2), "", it.Amount.StringFixed(2))
		}
		pdf.Ln(4)
	}

	if len(bb.Discounts) > 0 {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 8, "Descuentos")
		pdf.Ln(8)
		pdf.SetFont("Arial", "", 9)
		for _, d := range bb.Discounts {
			label := d.Concept
			if d.Kind == DiscountKindAdvance {
				label = fmt.Sprintf("Abono a adelanto #%d (%s)", d.AdvanceID, d.PaymentDate)
			}
			pdf.CellFormat(165, 6, tr(label), "1", 0, "L", false, 0, "")
			pdf.CellFormat(30, 6, "-"+d.Amount.StringFixed(2), "1", 0, "R", false, 0, "")
			pdf.Ln(-1)
		}
		pdf.Ln(4)
	}

	pdf.SetFont("Arial", "B", 10)
	totals := [][2]string{
		{"Comisión bruta", bb.Gross.StringFixed(2)},
		{"Retenido de quincenas anteriores", bb.RetainedIn.StringFixed(2)},
		{"Total descuentos", bb.DiscountTotal.StringFixed(2)},
		{"Neto a pagar", bb.Net.StringFixed(2)},
	}
	for _, t := range totals {
		pdf.CellFormat(165, 7, tr(t[0]), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, t[1], "", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 7, tr("Son: "+AmountInWords(bb.Net)), "", 0, "R", false, 0, "")
	pdf.Ln(-1)
	if bb.Retained {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, tr("Pago retenido: "+bb.HoldReason+". El monto se liquidará en una quincena posterior."), "", "L", false)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("estado_%s_%s.pdf", broker.Code, strings.ReplaceAll(fortnight.Label(), " ", "_"))
	return buf.Bytes(), filename, nil
}

func writeHeader(f *excelize.File, sheet string, row int, style int, titles ...string) {
	values := make([]any, len(titles))
	for i, t := range titles {
		values[i] = t
	}
	_ = f.SetSheetRow(sheet, cell(1, row), &values)
	_ = f.SetCellStyle(sheet, cell(1, row), cell(len(titles), row), style)
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
