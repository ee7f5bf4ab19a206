package report

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

var bracketGroup = regexp.MustCompile(`\[[^\]]*\]`)

// FoldOutsideBrackets replaces spaces with newlines except inside
// bracketed groups, so grouped phenotype lists wrap one group per line
// in the spreadsheet.
func FoldOutsideBrackets(s string) string {
	var b strings.Builder
	last := 0
	for _, loc := range bracketGroup.FindAllStringIndex(s, -1) {
		b.WriteString(strings.ReplaceAll(s[last:loc[0]], " ", "\n"))
		b.WriteString(s[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(strings.ReplaceAll(s[last:], " ", "\n"))
	return b.String()
}

// hashColor derives a stable fill color from a cell value so equal
// sequence types share a color across runs.
func hashColor(value string) string {
	sum := md5.Sum([]byte(value))
	return hex.EncodeToString(sum[:])[:6]
}

var xlsxColWidths = []float64{18, 22, 10, 50, 45, 30, 40, 40, 60}

// WriteXLSX renders the report as a styled spreadsheet: bold filled
// header, sequence types color-coded by value, phenotype groups folded
// to one per line.
func WriteXLSX(df dataframe.DataFrame, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	records := df.Records()
	if len(records) == 0 {
		return fmt.Errorf("writing %s: empty report", path)
	}
	header := records[0]

	phenoCol, stCol := -1, -1
	for i, h := range header {
		switch h {
		case "PHENO_resfinder", "PHENO_WGS":
			phenoCol = i
		case "ST", "ST_WGS":
			stCol = i
		}
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	for r, row := range records {
		for c, val := range row {
			if r > 0 && c == phenoCol {
				val = FoldOutsideBrackets(val)
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	for i := 0; i < len(header) && i < len(xlsxColWidths); i++ {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, xlsxColWidths[i]); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Family: "Calibri", Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D6E4FF"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	firstColStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"EDEDED"}, Pattern: 1},
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	stStyles := map[string]int{}
	for r := 1; r < len(records); r++ {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, firstColStyle); err != nil {
			return err
		}

		if stCol >= 0 && stCol < len(records[r]) {
			val := records[r][stCol]
			styleID, ok := stStyles[val]
			if !ok {
				styleID, err = f.NewStyle(&excelize.Style{
					Fill:      excelize.Fill{Type: "pattern", Color: []string{hashColor(val)}, Pattern: 1},
					Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
				})
				if err != nil {
					return err
				}
				stStyles[val] = styleID
			}
			stCell, err := excelize.CoordinatesToCellName(stCol+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, stCell, stCell, styleID); err != nil {
				return err
			}
		}

		lines := 1
		for _, val := range records[r] {
			if n := strings.Count(val, "\n") + 1; n > lines {
				lines = n
			}
		}
		if phenoCol >= 0 && phenoCol < len(records[r]) {
			if n := strings.Count(FoldOutsideBrackets(records[r][phenoCol]), "\n") + 1; n > lines {
				lines = n
			}
		}
		if err := f.SetRowHeight(sheet, r+1, float64(lines)*15); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}
