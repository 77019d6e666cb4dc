package bonafide

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/chuo/core/academic"
)

type (
	// CertificateData is everything a renderer needs to lay out one
	// bonafide certificate.
	CertificateData struct {
		Request       Request          `json:"request"`
		Student       academic.Student `json:"student"`
		AcademicYear  string           `json:"academic_year"`  // e.g. "2025 - 26"
		YearRoman     string           `json:"year_roman"`     // study year: I..IV
		SemesterRoman string           `json:"semester_roman"` // I..VIII
		IssuedOn      time.Time        `json:"issued_on"`
	}

	// CertificateRenderer turns request data into a printable byte stream
	// (PDF). Implementations live outside the core workflow.
	CertificateRenderer interface {
		Render(ctx context.Context, data CertificateData) ([]byte, error)
		RenderBulk(ctx context.Context, data []CertificateData) ([]byte, error)
	}
)

func newCertificateData(req Request, stu academic.Student, now time.Time) CertificateData {
	// study year from semester: 1,2 -> I; 3,4 -> II; ...
	year := (stu.CurrentSemester + 1) / 2

	return CertificateData{
		Request:       req,
		Student:       stu,
		AcademicYear:  academicYear(now),
		YearRoman:     toRoman(year),
		SemesterRoman: toRoman(stu.CurrentSemester),
		IssuedOn:      now,
	}
}

// academicYear renders the session label; the academic year rolls over in June.
func academicYear(now time.Time) string {
	year := now.Year()
	if now.Month() > time.May {
		return fmt.Sprintf("%d - %d", year, year-1999)
	}
	return fmt.Sprintf("%d - %d", year-1, year-2000)
}

var romanNumerals = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func toRoman(n int) string {
	var s string
	for _, rn := range romanNumerals {
		for n >= rn.value {
			s += rn.symbol
			n -= rn.value
		}
	}
	return s
}
