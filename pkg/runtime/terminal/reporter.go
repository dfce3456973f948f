package terminal

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/de-tools/emr-cost/pkg/models/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const periodLayout = "2006-01-02 15:04"

// Reporter outputs reports to the console as tables, one per section.
type Reporter struct {
	writer io.Writer
}

// NewReporter creates a new console reporter
func NewReporter(writer io.Writer) *Reporter {
	if writer == nil {
		writer = os.Stdout
	}
	return &Reporter{writer: writer}
}

func (c *Reporter) Handle(report *domain.Report) error {
	if _, err := fmt.Fprintf(c.writer, "%s\nPeriod: %s to %s\n\n",
		report.Title, formatBound(report.Period.Start, "cluster start"), formatBound(report.Period.End, "now"),
	); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for _, section := range report.Sections {
		tw := table.NewWriter()
		tw.SetTitle("%s", section.Title)
		tw.AppendHeader(table.Row{"Bucket", report.Currency})
		for _, detail := range section.Details {
			tw.AppendRow(table.Row{detail.Name, detail.Amount.StringFixed(4)})
		}
		tw.SetStyle(table.StyleRounded)
		tw.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignRight},
		})

		if _, err := fmt.Fprintln(c.writer, tw.Render()); err != nil {
			return fmt.Errorf("failed to write report section: %w", err)
		}
		for _, note := range section.Notes {
			if _, err := fmt.Fprintf(c.writer, "  * %s\n", note); err != nil {
				return fmt.Errorf("failed to write report note: %w", err)
			}
		}
	}

	if _, err := fmt.Fprintf(c.writer, "\nTotal Amount: %s %s\n",
		report.Currency, report.TotalAmount.StringFixed(2)); err != nil {
		return fmt.Errorf("failed to write report total: %w", err)
	}
	return nil
}

func formatBound(t *time.Time, fallback string) string {
	if t == nil {
		return fallback
	}
	return t.UTC().Format(periodLayout)
}
