package bench

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var resultsHeader = []string{
	"Algorithm name",
	"Time taken values (seconds)",
	"Tweet processing speed values (tweets/second)",
}

var summaryHeader = []string{
	"Algorithm name", "Metric",
	"Min", "Max", "Mean", "Median", "Mode", "Std dev", "Variance", "Q1", "Q3", "IQR",
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteResultsCSV writes one row per sample.
func WriteResultsCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range results {
		for _, s := range r.Samples {
			if err := cw.Write([]string{r.Name, formatFloat(s.Seconds), formatFloat(s.RecordsPerSecond)}); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes the statistics of run time and throughput for every algorithm.
func WriteSummaryCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(summaryHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range results {
		for _, metric := range []struct {
			name   string
			values []float64
		}{
			{"seconds", r.Seconds()},
			{"records_per_second", r.RecordsPerSecond()},
		} {
			s := Summarize(metric.values)
			row := []string{r.Name, metric.name}
			for _, v := range []float64{s.Min, s.Max, s.Mean, s.Median, s.Mode, s.StdDev, s.Variance, s.Q1, s.Q3, s.IQR} {
				row = append(row, formatFloat(v))
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
