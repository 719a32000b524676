package insights

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/gartstein/salaries/internal/salary/models"
)

var csvHeader = []string{
	"Designation",
	"Company",
	"Location",
	"Experience",
	"Level",
	"CTC (LPA)",
	"Year",
	"Department",
	"Employment Type",
}

// WriteCSV writes one row per record, CTC expressed in lakhs per annum.
func WriteCSV(w io.Writer, recs []*models.SalaryRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range recs {
		if r == nil {
			continue
		}
		row := []string{
			r.Designation,
			r.CompanyName,
			r.Location,
			strconv.Itoa(r.Experience),
			string(r.ExperienceLevel),
			strconv.FormatFloat(TotalCTC(r), 'f', 1, 64),
			strconv.Itoa(r.WhichYearsSalary),
			r.Department,
			string(r.EmploymentType),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
