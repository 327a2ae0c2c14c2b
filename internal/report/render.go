package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/rotisserie/eris"
)

// Document is a rendered report ready for upload.
type Document struct {
	Filename string
	MIMEType string
	Content  []byte
}

// Renderer turns report data into a binary document.
type Renderer interface {
	Render(ctx context.Context, d *Data) (*Document, error)
}

// CSVRenderer writes a spreadsheet friendly CSV: header row, data rows, an
// empty separator row and the summary.
type CSVRenderer struct{}

func (CSVRenderer) Render(_ context.Context, d *Data) (*Document, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	records := [][]string{d.Columns}
	records = append(records, d.Rows...)
	if len(d.Summary) > 0 {
		records = append(records, []string{})
		for _, s := range d.Summary {
			records = append(records, []string{s.Label, s.Value})
		}
	}
	if err := w.WriteAll(records); err != nil {
		return nil, eris.Wrap(err, "write csv")
	}

	return &Document{
		Filename: fmt.Sprintf("%s-%s.csv", d.Kind, d.GeneratedAt.Format("20060102-1504")),
		MIMEType: "text/csv",
		Content:  buf.Bytes(),
	}, nil
}
