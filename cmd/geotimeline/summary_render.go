package main

import (
	"fmt"
	"strconv"

	"geotimeline/internal/analysis"
)

func renderSummaryTable(runID string, res *analysis.Result) string {
	s := res.Summary
	rows := [][]string{
		{"Run", runID},
		{"Mode", res.Mode()},
		{"Default offset", res.Policy.DefaultOffset.String()},
		{"Prior inference", yesNo(res.Policy.AllowsPriorInference())},
		{"Files", strconv.Itoa(s.Files)},
		{"Timeline events", strconv.Itoa(s.Events)},
		{"Known timezone", strconv.Itoa(s.Known)},
		{"Assumed timezone", strconv.Itoa(s.Assumed)},
		{"Unresolved", strconv.Itoa(s.Unresolved)},
		{"Segments", strconv.Itoa(s.Segments)},
		{"Gaps", strconv.Itoa(s.Gaps)},
		{"Excluded", strconv.Itoa(s.Excluded)},
		{"Review markers", strconv.Itoa(s.Review)},
	}
	return renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight})
}

func summaryStatusLines(res *analysis.Result, colorize bool) []string {
	s := res.Summary
	var lines []string
	if s.Unresolved > 0 {
		lines = append(lines, renderStatusLine("Unresolved", statusWarn,
			fmt.Sprintf("%d records could not be placed on the timeline (see audit.csv)", s.Unresolved), colorize))
	}
	if s.Assumed > 0 {
		lines = append(lines, renderStatusLine("Assumed", statusWarn,
			fmt.Sprintf("%d records use an assumed timezone", s.Assumed), colorize))
	}
	if s.Excluded > 0 {
		lines = append(lines, renderStatusLine("Excluded", statusWarn,
			fmt.Sprintf("%d events excluded from strict analysis", s.Excluded), colorize))
	}
	if s.Review > 0 {
		lines = append(lines, renderStatusLine("Review", statusInfo,
			fmt.Sprintf("%d markers need examiner review", s.Review), colorize))
	}
	if len(lines) == 0 {
		lines = append(lines, renderStatusLine("Timeline", statusOK, "all records placed with known timezones", colorize))
	}
	return lines
}
