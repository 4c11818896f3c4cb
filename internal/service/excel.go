package service

import (
	"bytes"
	"fmt"
	"math"

	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/xuri/excelize/v2"
)

const (
	estimatesSheet = "Estimativas"
	summarySheet   = "Resumo"
)

var estimateHeaders = []string{
	"Projeto",
	"Total de Tarefas",
	"Concluídas",
	"Restantes",
	"% Conclusão",
	"Velocidade (tarefas/dia)",
	"Dias Estimados",
	"Data Estimada",
	"Prazo do Projeto",
	"Diferença (dias)",
	"Status",
}

// ExcelExporter gera a planilha de estimativas
type ExcelExporter struct{}

// NewExcelExporter cria um novo exportador
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Export gera um arquivo xlsx com uma linha por estimativa e uma aba de resumo
func (g *ExcelExporter) Export(dashboard *model.Dashboard) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, estimatesSheet); err != nil {
		return nil, fmt.Errorf("renomear sheet: %w", err)
	}

	if err := g.writeHeaders(f, estimatesSheet, estimateHeaders); err != nil {
		return nil, fmt.Errorf("escrever headers: %w", err)
	}

	rows := make([][]interface{}, 0, len(dashboard.Estimates))
	for _, e := range dashboard.Estimates {
		rows = append(rows, estimateRow(e))
	}
	if err := g.writeRows(f, estimatesSheet, rows); err != nil {
		return nil, fmt.Errorf("escrever dados: %w", err)
	}
	if err := g.setColumnWidths(f, estimatesSheet, len(estimateHeaders)); err != nil {
		return nil, fmt.Errorf("ajustar colunas: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("criar sheet de resumo: %w", err)
	}
	if err := g.writeSummary(f, dashboard); err != nil {
		return nil, fmt.Errorf("escrever resumo: %w", err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("escrever buffer: %w", err)
	}
	return buf, nil
}

// estimateRow converte uma estimativa em células; valores ausentes viram "N/A"
func estimateRow(e model.ProjectEstimate) []interface{} {
	velocity := interface{}(model.NotAvailable)
	if e.Velocity != nil {
		velocity = round2(*e.Velocity)
	}
	diff := interface{}(model.NotAvailable)
	if e.DaysDifference != nil {
		diff = *e.DaysDifference
	}

	return []interface{}{
		e.Project,
		e.TotalTasks,
		e.CompletedTasks,
		e.RemainingTasks,
		round2(e.CompletionPercentage),
		velocity,
		round2(e.EstimatedCompletionDays),
		model.FormatDate(e.EstimatedCompletionDate),
		model.FormatDate(e.ProjectDueDate),
		diff,
		string(e.Status),
	}
}

func (g *ExcelExporter) writeSummary(f *excelize.File, d *model.Dashboard) error {
	if err := g.writeHeaders(f, summarySheet, []string{"Métrica", "Valor"}); err != nil {
		return err
	}

	s := d.Summary
	rows := [][]interface{}{
		{"Gerado em", d.GeneratedAt.UTC().Format("2006-01-02 15:04:05") + " UTC"},
		{"Projetos", s.TotalProjects},
		{"Tarefas", s.TotalTasks},
		{"Tarefas Concluídas", s.CompletedTasks},
		{"Tarefas Ativas", s.ActiveTasks},
		{"Tarefas Atrasadas", s.OverdueTasks},
		{"Taxa de Conclusão (%)", round2(s.CompletionRate)},
		{string(model.StatusOnTrack), s.OnTrack},
		{string(model.StatusAtRisk), s.AtRisk},
		{string(model.StatusBehind), s.Behind},
		{"Utilização de Recursos (%)", round2(d.Utilization.Percentage)},
	}
	if err := g.writeRows(f, summarySheet, rows); err != nil {
		return err
	}
	return g.setColumnWidths(f, summarySheet, 2)
}

// writeHeaders escreve os cabeçalhos com o estilo padrão
func (g *ExcelExporter) writeHeaders(f *excelize.File, sheet string, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"4472C4"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

// writeRows escreve as linhas com cores alternadas
func (g *ExcelExporter) writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	styleOdd, err := f.NewStyle(rowStyle("F2F2F2"))
	if err != nil {
		return err
	}
	styleEven, err := f.NewStyle(rowStyle("FFFFFF"))
	if err != nil {
		return err
	}

	for r, values := range rows {
		excelRow := r + 2 // Linha 1 é header

		style := styleEven
		if r%2 == 1 {
			style = styleOdd
		}

		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, excelRow)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return err
			}
		}
	}
	return nil
}

func rowStyle(fill string) *excelize.Style {
	return &excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{fill},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "D9D9D9", Style: 1},
			{Type: "top", Color: "D9D9D9", Style: 1},
			{Type: "bottom", Color: "D9D9D9", Style: 1},
			{Type: "right", Color: "D9D9D9", Style: 1},
		},
	}
}

func (g *ExcelExporter) setColumnWidths(f *excelize.File, sheet string, numCols int) error {
	for col := 1; col <= numCols; col++ {
		colName, _ := excelize.ColumnNumberToName(col)
		if err := f.SetColWidth(sheet, colName, colName, 20); err != nil {
			return err
		}
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
