package runner

// PerfComparison compares a replay's timing with the recorded one.
type PerfComparison struct {
	SourceID     int64   `json:"source_id"`
	Method       string  `json:"method"`
	URL          string  `json:"url"`
	CurrentMs    float64 `json:"current_ms"`
	BaselineMs   float64 `json:"baseline_ms"`
	DeltaMs      float64 `json:"delta_ms"`
	DeltaPercent float64 `json:"delta_percent"`
	Regressed    bool    `json:"regressed"`
}

// ComparePerf compares each successful replay against its source entry.
// threshold is the percentage increase that counts as a regression (e.g.
// 20.0 = 20%). Entries recorded without a time are skipped.
func ComparePerf(results []Result, threshold float64) []PerfComparison {
	var comparisons []PerfComparison

	for _, r := range results {
		if r.Error != nil || r.PreviousResponseTimeMs <= 0 {
			continue
		}

		comp := PerfComparison{
			SourceID:   r.SourceID,
			Method:     r.Method,
			URL:        r.URL,
			CurrentMs:  r.ResponseTimeMs,
			BaselineMs: r.PreviousResponseTimeMs,
			DeltaMs:    r.ResponseTimeMs - r.PreviousResponseTimeMs,
		}
		comp.DeltaPercent = comp.DeltaMs / comp.BaselineMs * 100
		comp.Regressed = comp.DeltaPercent > threshold

		comparisons = append(comparisons, comp)
	}

	return comparisons
}

// HasRegressions returns true if any comparisons show regressions.
func HasRegressions(comparisons []PerfComparison) bool {
	for _, c := range comparisons {
		if c.Regressed {
			return true
		}
	}
	return false
}
