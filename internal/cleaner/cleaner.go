package cleaner

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/hrms-payroll-api/internal/models"
)

// ReportType is the label attached to successfully cleaned files. Only one
// layout is supported; tolerance inside that layout is the point.
const ReportType = "In/Out Duration Report"

const (
	titleMarker   = "in out duration report"
	dateMarker    = "attendance date-"
	titleScanRows = 10

	// Present requires at least 7 hours total and 4 punches.
	presentMinutes = 7 * 60
	presentPunches = 4

	// A header row qualifies once this many required columns are located.
	headerMinColumns = 4
)

// ErrorKind separates "wrong file" from "right file, shifted columns" from
// "bad row content".
type ErrorKind int

const (
	KindFormat ErrorKind = iota
	KindStructural
	KindData
)

// CleanError is the diagnostic failure result of cleaning a file. No rows
// are ever returned alongside it.
type CleanError struct {
	Kind   ErrorKind
	Reason string
}

func (e *CleanError) Error() string { return e.Reason }

// Row is one normalized employee-day extracted from a report.
type Row struct {
	EmpID         string
	Date          string
	EmployeeName  string
	InDuration    string
	OutDuration   string
	TotalDuration string
	FirstIn       string
	LastOut       string
	PunchRecords  string
	Status        models.AttendanceStatus
}

// columnSynonyms maps each required logical column to the labels observed
// across export variants. Matching is declarative: a cell claims a column
// when it equals a label, contains it as a whole word, or starts with
// "label(" (the "(hrs)" annotated variants).
var columnSynonyms = map[string][]string{
	"sno":      {"s.no", "sno", "serial"},
	"emp_id":   {"employee code", "emp id", "employee id", "emp code", "id"},
	"emp_name": {"employee name", "name", "emp name"},
	"in_dur":   {"in duration", "in_duration", "in(hrs)"},
	"out_dur":  {"out_duration", "out duration", "out(hrs)"},
	"punches":  {"punch records", "punches", "punch_records", "log"},
}

var (
	monthDateRe   = regexp.MustCompile(`(?i)(\d{1,2}[-/][a-z]{3}[-/]\d{4})`)
	numericDateRe = regexp.MustCompile(`(\d{1,2}[-/]\d{1,2}[-/]\d{4})`)
	timeCellRe    = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	punchAnnotRe  = regexp.MustCompile(`(?i)\(in\)|\(out\)`)
	parenRe       = regexp.MustCompile(`\(.*?\)`)
	monthCaseRe   = regexp.MustCompile(`(?i)[a-z]{3}`)
)

// Clean parses raw report bytes into normalized attendance rows. On any
// failure it returns no rows and a *CleanError carrying the diagnostic
// reason; partial extraction is never returned.
func Clean(content []byte) ([]Row, string, error) {
	grid, err := parseGrid(content)
	if err != nil {
		return nil, "", &CleanError{Kind: KindFormat, Reason: "Invalid Format"}
	}

	var (
		rows        []Row
		currentDate string
		titleFound  bool
		headerFound bool
		colMap      map[string]int
	)

	for index, cells := range grid {
		rowStr := strings.ToLower(strings.Join(cells, " "))

		if !titleFound && index < titleScanRows && strings.Contains(rowStr, titleMarker) {
			titleFound = true
		}

		// Date context rows apply to all data rows until the next marker.
		if strings.Contains(rowStr, dateMarker) {
			if token := findDateToken(rowStr); token != "" {
				currentDate = normalizeDate(token)
			}
			continue
		}

		if !headerFound && titleFound {
			if m := scoreHeaderRow(cells); len(m) >= headerMinColumns {
				colMap = m
				headerFound = true
				continue
			}
		}

		if !headerFound {
			continue
		}
		if _, ok := colMap["emp_id"]; !ok {
			continue
		}

		snoIdx, ok := colMap["sno"]
		if !ok || !isPositiveNumber(cellAt(cells, snoIdx)) {
			continue
		}

		empID := cellAt(cells, colMap["emp_id"])

		// Structural guard: a time value in the employee-id column means the
		// source export shifted columns; corrupted rows must not be emitted.
		if timeCellRe.MatchString(empID) {
			return nil, "", &CleanError{
				Kind:   KindStructural,
				Reason: fmt.Sprintf("Structural Error: Column mismatch. Column detected as 'Employee ID' contains timestamps ('%s'). Please check file format.", empID),
			}
		}
		if empID == "" || strings.EqualFold(empID, "nan") {
			return nil, "", &CleanError{
				Kind:   KindData,
				Reason: fmt.Sprintf("Invalid Record at row %d: Missing Employee ID", index+1),
			}
		}
		if currentDate == "" {
			return nil, "", &CleanError{
				Kind:   KindData,
				Reason: fmt.Sprintf("Invalid State: Record found before Date header at row %d", index+1),
			}
		}

		empName := "Unknown"
		if idx, ok := colMap["emp_name"]; ok {
			empName = cellAt(cells, idx)
		}
		inDur := "00:00"
		if idx, ok := colMap["in_dur"]; ok {
			inDur = cellAt(cells, idx)
		}
		outDur := "00:00"
		if idx, ok := colMap["out_dur"]; ok {
			outDur = cellAt(cells, idx)
		}
		punchLog := ""
		if idx, ok := colMap["punches"]; ok {
			punchLog = cellAt(cells, idx)
		}

		firstIn, lastOut, punchCount := parsePunches(punchLog)
		if firstIn == "" && strings.Contains(inDur, ":") {
			firstIn = inDur
		}
		if lastOut == "" && strings.Contains(outDur, ":") {
			lastOut = outDur
		}

		total := totalDuration(firstIn, lastOut, inDur, outDur)

		status := models.StatusAbsent
		if toMinutes(total) >= presentMinutes && punchCount >= presentPunches {
			status = models.StatusPresent
		}

		rows = append(rows, Row{
			EmpID:         empID,
			Date:          currentDate,
			EmployeeName:  empName,
			InDuration:    inDur,
			OutDuration:   outDur,
			TotalDuration: total,
			FirstIn:       displayTime(firstIn),
			LastOut:       displayTime(lastOut),
			PunchRecords:  punchLog,
			Status:        status,
		})
	}

	if !titleFound {
		return nil, "", &CleanError{
			Kind:   KindFormat,
			Reason: "Invalid Format: Title 'In Out Duration Report' not found. Only this specific format is supported.",
		}
	}
	if !headerFound {
		return nil, "", &CleanError{
			Kind:   KindFormat,
			Reason: "Invalid Structure: Could not find required headers (S.No, Employee Code, etc.)",
		}
	}
	if len(rows) == 0 {
		return nil, "", &CleanError{
			Kind:   KindFormat,
			Reason: "Invalid Content: No attendance records identified",
		}
	}

	return rows, ReportType, nil
}

// scoreHeaderRow maps logical columns to cell indices using the synonym
// table. The first cell claiming each column wins.
func scoreHeaderRow(cells []string) map[string]int {
	found := make(map[string]int)
	for i, cell := range cells {
		cellClean := strings.ToLower(strings.TrimSpace(cell))
		if cellClean == "" {
			continue
		}
		for col, labels := range columnSynonyms {
			if _, ok := found[col]; ok {
				continue
			}
			for _, label := range labels {
				if matchesLabel(cellClean, label) {
					found[col] = i
					break
				}
			}
		}
	}
	return found
}

func matchesLabel(cell, label string) bool {
	if cell == label {
		return true
	}
	if strings.Contains(" "+cell+" ", " "+label+" ") {
		return true
	}
	return strings.HasPrefix(cell, label+"(")
}

// parsePunches extracts ordered times from a comma-separated punch log,
// stripping "(in)"/"(out)" annotations.
func parsePunches(punchLog string) (firstIn, lastOut string, count int) {
	if punchLog == "" || strings.EqualFold(punchLog, "nan") {
		return "", "", 0
	}
	clean := punchAnnotRe.ReplaceAllString(punchLog, "")
	var times []string
	for _, tok := range strings.Split(clean, ",") {
		tok = strings.TrimSpace(tok)
		if strings.Contains(tok, ":") {
			times = append(times, tok)
		}
	}
	if len(times) == 0 {
		return "", "", 0
	}
	return times[0], times[len(times)-1], len(times)
}

// totalDuration renders the worked span as HH:MM. With both endpoints the
// span is last-out minus first-in clamped at zero; otherwise it is the sum
// of the in and out duration columns.
func totalDuration(firstIn, lastOut, inDur, outDur string) string {
	var minutes int
	if firstIn != "" && lastOut != "" {
		minutes = toMinutes(lastOut) - toMinutes(firstIn)
		if minutes < 0 {
			minutes = 0
		}
	} else {
		minutes = toMinutes(inDur) + toMinutes(outDur)
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// toMinutes converts an H:MM-ish token to minutes, tolerating trailing
// seconds and parenthesized annotations. Unparseable input counts as zero.
func toMinutes(ts string) int {
	if !strings.Contains(ts, ":") {
		return 0
	}
	clean := strings.TrimSpace(parenRe.ReplaceAllString(ts, ""))
	parts := strings.Split(clean, ":")
	if len(parts) < 2 {
		return 0
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0
	}
	return h*60 + m
}

func findDateToken(rowStr string) string {
	if m := monthDateRe.FindString(rowStr); m != "" {
		return m
	}
	return numericDateRe.FindString(rowStr)
}

// normalizeDate converts a recognized date token to ISO form, keeping the
// raw token when no layout matches so the validation stage can reject it.
// Month abbreviations arrive lowercased from the marker scan.
func normalizeDate(token string) string {
	canon := monthCaseRe.ReplaceAllStringFunc(token, func(m string) string {
		return strings.ToUpper(m[:1]) + strings.ToLower(m[1:])
	})
	// Ambiguous all-numeric tokens parse day-first: the biometric terminals
	// feeding these reports emit d/m/yyyy, so "5/1/2026" is 5 January. The
	// unambiguous month-abbreviation layouts are tried first.
	layouts := []string{
		"2-Jan-2006", "2/Jan/2006",
		"2-1-2006", "2/1/2006",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, canon); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return token
}

func displayTime(t string) string {
	if t == "" {
		return "--:--"
	}
	return t
}

func isPositiveNumber(s string) bool {
	if s == "" {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && v > 0
}

func cellAt(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}
