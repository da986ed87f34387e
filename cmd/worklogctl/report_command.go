package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	apperrors "worklog/backend/internal/errors"
	"worklog/backend/internal/model"
	"worklog/backend/internal/report"
	"worklog/backend/internal/service"
	"worklog/backend/internal/timecalc"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var from, to, format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize stored work days over a date range",
		Long:  "Summarize stored work days over a date range. Without --from/--to the week containing --date is used.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(strings.TrimSpace(format))
			var exportFormat report.Format
			if format != "table" {
				parsed, err := report.ParseFormat(format)
				if err != nil {
					return err
				}
				exportFormat = parsed
			}
			return ctx.withTracker(cmd, func(tracker *service.TrackerService, date string) error {
				rangeFrom, rangeTo, apiErr := reportRange(tracker, date, from, to)
				if apiErr != nil {
					return cliError(apiErr)
				}
				r, apiErr := tracker.Report(cmd.Context(), rangeFrom, rangeTo)
				if apiErr != nil {
					return cliError(apiErr)
				}
				if exportFormat == "" {
					renderReport(cmd.OutOrStdout(), r)
					return nil
				}
				return report.Write(cmd.OutOrStdout(), exportFormat, *r)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "First day of the range")
	cmd.Flags().StringVar(&to, "to", "", "Last day of the range")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, csv or json")
	return cmd
}

func reportRange(tracker *service.TrackerService, date, from, to string) (string, string, *apperrors.APIError) {
	if from == "" && to == "" {
		day, err := time.ParseInLocation(model.DateLayout, date, tracker.Location())
		if err != nil {
			return "", "", apperrors.BadRequest("invalid_date", err.Error())
		}
		weekFrom, weekTo := timecalc.WeekRange(day, tracker.Location())
		return weekFrom, weekTo, nil
	}
	return resolveRange(tracker, from, to)
}

func renderReport(w io.Writer, r *report.Report) {
	fmt.Fprintf(w, "%s .. %s (norm %s)\n", r.From, r.To, timecalc.FormatMinutes(r.NormMinutes))
	if len(r.Rows) == 0 {
		fmt.Fprintln(w, "No work days recorded.")
		return
	}
	rows := make([][]string, 0, len(r.Rows)+1)
	for _, row := range r.Rows {
		rows = append(rows, []string{
			row.Date,
			humanize(string(row.Status)),
			timecalc.FormatMinutes(row.WorkMinutes),
			timecalc.FormatMinutes(row.BreakMinutes),
			timecalc.FormatMinutes(row.ProductiveMinutes),
			timecalc.FormatMinutes(row.OvertimeMinutes),
			timecalc.FormatMinutes(row.DeficitMinutes),
		})
	}
	t := r.Totals
	rows = append(rows, []string{
		"Total",
		fmt.Sprintf("%d day(s)", t.Days),
		timecalc.FormatMinutes(t.WorkMinutes),
		timecalc.FormatMinutes(t.BreakMinutes),
		timecalc.FormatMinutes(t.ProductiveMinutes),
		timecalc.FormatMinutes(t.OvertimeMinutes),
		timecalc.FormatMinutes(t.DeficitMinutes),
	})
	fmt.Fprintln(w, renderTable(
		[]string{"Date", "Status", "Work", "Break", "Productive", "Overtime", "Deficit"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(w, "Balance: %s\n", timecalc.FormatMinutes(t.BalanceMinutes))
}
