package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/jakechorley/admissions-allocator/pkg/core/allocator"
	"github.com/jakechorley/admissions-allocator/pkg/core/model"
	"github.com/jakechorley/admissions-allocator/pkg/core/quota"
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	dim     = color.New(color.Faint)
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	return table
}

// statusCell renders a status with its color. Inconsistent overrides are marked with "!".
func statusCell(status model.Status, consistent bool) string {
	label := string(status)
	if !consistent {
		label += " !"
	}

	switch status {
	case model.StatusApproved:
		return success.Sprint(label)
	case model.StatusWaitlisted:
		return warning.Sprint(label)
	case model.StatusRejected:
		return failure.Sprint(label)
	default:
		return dim.Sprint(label)
	}
}

func formatRatio(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func formatPercent(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*v*100, 'f', 1, 64) + "%"
}

// parseQuotaArgs parses PROGRAM=SEATS pairs
func parseQuotaArgs(args []string) (map[string]int, error) {
	updates := make(map[string]int, len(args))
	for _, arg := range args {
		program, raw, ok := strings.Cut(arg, "=")
		program = strings.TrimSpace(program)
		if !ok || program == "" {
			return nil, fmt.Errorf("expected PROGRAM=SEATS, got %q", arg)
		}
		seats, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("seats for %s must be a number, got %q", program, raw)
		}
		if _, dup := updates[program]; dup {
			return nil, fmt.Errorf("program %s given more than once", program)
		}
		updates[program] = seats
	}
	return updates, nil
}

func printAlerts(w io.Writer, alerts []allocator.ReconciliationAlert) {
	if len(alerts) == 0 {
		return
	}
	warning.Fprintf(w, "\n%d status override(s) disagree with the current quota:\n", len(alerts))
	for _, a := range alerts {
		fmt.Fprintf(w, "  • %s\n", a)
	}
}

func printUnranked(w io.Writer, unranked []allocator.UnrankedApplicant) {
	if len(unranked) == 0 {
		return
	}
	warning.Fprintf(w, "\n%d applicant(s) not ranked:\n", len(unranked))
	for _, u := range unranked {
		fmt.Fprintf(w, "  • %s: %s\n", u.ApplicantID, u.Reason)
	}
}

func printQuotas(w io.Writer, quotas quota.Set, names map[string]string, reservePercent int) {
	table := newTable(w, []string{"Program", "Name", "Seats", "Reserve"})
	for _, program := range quotas.Programs() {
		seats := quotas[program]
		table.Append([]string{
			program,
			names[program],
			strconv.Itoa(seats),
			strconv.Itoa(quota.Reserve(seats, reservePercent)),
		})
	}
	table.SetFooter([]string{"", "Total", strconv.Itoa(quotas.Total()), ""})
	table.Render()
}
