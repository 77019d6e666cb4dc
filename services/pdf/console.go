// Package pdfsvc renders bonafide certificates.
//
// The console renderer is a dev/test stand-in that lays the certificate
// out as plain text. Production deployments plug in a real PDF engine
// behind the same interface.
package pdfsvc

import (
	"bytes"
	"context"
	"fmt"

	"github.com/trezcool/chuo/core/bonafide"
)

type consoleRenderer struct{}

var _ bonafide.CertificateRenderer = (*consoleRenderer)(nil)

func NewConsoleRenderer() bonafide.CertificateRenderer {
	return &consoleRenderer{}
}

func (r consoleRenderer) Render(ctx context.Context, data bonafide.CertificateData) ([]byte, error) {
	var buf bytes.Buffer
	r.write(&buf, data)
	return buf.Bytes(), nil
}

func (r consoleRenderer) RenderBulk(ctx context.Context, data []bonafide.CertificateData) ([]byte, error) {
	var buf bytes.Buffer
	for i, d := range data {
		if i > 0 {
			buf.WriteString("\f") // page break
		}
		r.write(&buf, d)
	}
	return buf.Bytes(), nil
}

func (r consoleRenderer) write(buf *bytes.Buffer, data bonafide.CertificateData) {
	_, _ = fmt.Fprintf(buf, "BONAFIDE CERTIFICATE\n\n")
	_, _ = fmt.Fprintf(buf,
		"This is to certify that %s (Roll No. %s) is a bonafide student of this institution, "+
			"studying in %s year (%s semester) during the academic year %s.\n\n",
		data.Student.Name, data.Student.RollNumber, data.YearRoman, data.SemesterRoman, data.AcademicYear)
	_, _ = fmt.Fprintf(buf, "Purpose: %s\n", data.Request.Reason)
	_, _ = fmt.Fprintf(buf, "Issued on: %s\n", data.IssuedOn.Format("02 Jan 2006"))
}
