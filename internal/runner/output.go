package runner

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// PrintText outputs results in human-readable format.
func PrintText(w io.Writer, results []Result, verbose bool) {
	totalErrors := 0
	totalChanged := 0

	for _, r := range results {
		if r.Error != nil {
			totalErrors++
			fmt.Fprintf(w, "%s #%-5d %-7s %-40s  %s\n",
				failStyle.Render("✗"), r.SourceID, r.Method, truncate(r.URL, 40),
				FormatMillis(r.ResponseTimeMs))
			fmt.Fprintf(w, "  └ Error: %s\n", r.Error)
			continue
		}

		icon := okStyle.Render("✓")
		if r.Status >= 400 {
			icon = failStyle.Render("✗")
		}
		status := StatusStyle(r.Status).Render(fmt.Sprintf("%d %s", r.Status, http.StatusText(int(r.Status))))
		fmt.Fprintf(w, "%s #%-5d %-7s %-40s  %s  %s  %s\n",
			icon, r.SourceID, r.Method, truncate(r.URL, 40),
			status, FormatMillis(r.ResponseTimeMs), humanize.Bytes(uint64(r.Size)))

		if r.StatusChanged() {
			totalChanged++
			fmt.Fprintf(w, "  %s\n", warnStyle.Render(fmt.Sprintf("└ status changed from %d", r.PreviousStatus)))
		}

		if verbose && r.Body != "" {
			fmt.Fprintf(w, "  %s\n", dimStyle.Render("--- Response Body ---"))
			for _, line := range strings.Split(r.Body, "\n") {
				fmt.Fprintf(w, "  %s\n", line)
			}
			fmt.Fprintf(w, "  %s\n", dimStyle.Render("---------------------"))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Requests: %d total, %d errors, %d status changes\n", len(results), totalErrors, totalChanged)
}

// PrintPerf outputs timing comparisons.
func PrintPerf(w io.Writer, comparisons []PerfComparison) {
	if len(comparisons) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Timing vs recorded:")
	for _, c := range comparisons {
		line := fmt.Sprintf("  #%-5d %-7s %-40s  %s → %s (%+.1f%%)",
			c.SourceID, c.Method, truncate(c.URL, 40),
			FormatMillis(c.BaselineMs), FormatMillis(c.CurrentMs), c.DeltaPercent)
		if c.Regressed {
			line = failStyle.Render(line + " regression")
		}
		fmt.Fprintln(w, line)
	}
}

// PrintJSON outputs results as JSON.
func PrintJSON(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

// junitTestSuites is the root JUnit XML element.
type junitTestSuites struct {
	XMLName xml.Name         `xml:"testsuites"`
	Suites  []junitTestSuite `xml:"testsuite"`
}

type junitTestSuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Time     float64         `xml:"time,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitError   `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

type junitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// PrintJUnit outputs results as one JUnit suite for CI. Transport errors
// are errors; 4xx/5xx responses and status changes are failures.
func PrintJUnit(w io.Writer, results []Result) error {
	suite := junitTestSuite{Name: "reqdesk replay", Tests: len(results)}

	for _, r := range results {
		secs := r.ResponseTimeMs / 1000
		suite.Time += secs
		tc := junitTestCase{
			Name:      fmt.Sprintf("#%d %s %s", r.SourceID, r.Method, r.URL),
			ClassName: r.Method + " " + r.URL,
			Time:      secs,
		}

		switch {
		case r.Error != nil:
			suite.Errors++
			tc.Error = &junitError{
				Message: r.Error.Error(),
				Type:    r.ErrorCode,
				Content: r.Error.Error(),
			}
		case r.Status >= 400:
			suite.Failures++
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("HTTP %d", r.Status),
				Type:    "HTTPError",
				Content: http.StatusText(int(r.Status)),
			}
		case r.StatusChanged():
			suite.Failures++
			tc.Failure = &junitFailure{
				Message: fmt.Sprintf("status %d, recorded %d", r.Status, r.PreviousStatus),
				Type:    "StatusChanged",
			}
		}
		suite.Cases = append(suite.Cases, tc)
	}

	fmt.Fprint(w, xml.Header)
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(junitTestSuites{Suites: []junitTestSuite{suite}}); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

// StatusStyle colours a status code by class.
func StatusStyle(status uint16) lipgloss.Style {
	switch {
	case status >= 500:
		return failStyle
	case status >= 400:
		return warnStyle
	case status >= 200 && status < 300:
		return okStyle
	default:
		return lipgloss.NewStyle()
	}
}

// FormatMillis renders a millisecond count compactly.
func FormatMillis(ms float64) string {
	switch {
	case ms < 1:
		return fmt.Sprintf("%dµs", int64(ms*1000))
	case ms < 1000:
		return fmt.Sprintf("%.0fms", ms)
	default:
		return fmt.Sprintf("%.1fs", ms/1000)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
