// Package report reads labeled devsets and writes the CSV reports used for
// calibration, leaderboards and labeling.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/elonfeng/seedradar/internal/store"
	"github.com/elonfeng/seedradar/pkg/calibrate"
	"github.com/elonfeng/seedradar/pkg/rankerr"
)

const (
	labelTitleMax   = 240
	labelSnippetMax = 500
)

var (
	thresholdHeader   = []string{"threshold", "precision", "recall", "f1"}
	leaderboardHeader = []string{"seed_id", "platform", "score", "url", "title", "author", "date"}
	labelingHeader    = []string{"seed_id", "platform", "url", "title", "snippet", "author", "date", "score", "decision", "notes", "gold_keep"}
)

// LoadDevset reads a labeled CSV with at least score and gold_keep columns.
// Rows whose gold_keep is not 0 or 1 or whose score does not parse are
// skipped.
func LoadDevset(r io.Reader) ([]calibrate.LabeledSample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("load devset: empty file: %w", rankerr.ErrInsufficientData)
	}
	if err != nil {
		return nil, fmt.Errorf("load devset: read header: %w", err)
	}
	scoreCol, goldCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")) {
		case "score":
			scoreCol = i
		case "gold_keep":
			goldCol = i
		}
	}
	if scoreCol < 0 || goldCol < 0 {
		return nil, fmt.Errorf("load devset: header needs score and gold_keep columns: %w", rankerr.ErrInvalidInput)
	}

	var samples []calibrate.LabeledSample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("load devset: %w", err)
		}
		if scoreCol >= len(rec) || goldCol >= len(rec) {
			continue
		}
		gold := strings.TrimSpace(rec[goldCol])
		if gold != "0" && gold != "1" {
			continue
		}
		score, err := strconv.ParseFloat(strings.TrimSpace(rec[scoreCol]), 64)
		if err != nil {
			continue
		}
		samples = append(samples, calibrate.LabeledSample{Score: score, GoldKeep: int(gold[0] - '0')})
	}
	return samples, nil
}

// WriteThresholdReport writes one row per sweep point with six decimals.
func WriteThresholdReport(w io.Writer, points []calibrate.SweepPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(thresholdHeader); err != nil {
		return fmt.Errorf("write threshold report: %w", err)
	}
	for _, p := range points {
		if err := cw.Write([]string{f6(p.Threshold), f6(p.Precision), f6(p.Recall), f6(p.F1)}); err != nil {
			return fmt.Errorf("write threshold report: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLeaderboard writes the per-seed top previews.
func WriteLeaderboard(w io.Writer, rows []store.ScoredPreview) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(leaderboardHeader); err != nil {
		return fmt.Errorf("write leaderboard: %w", err)
	}
	for _, r := range rows {
		p := r.Preview
		rec := []string{r.SeedID, r.Platform, strconv.Itoa(r.Score), r.URL, deref(p.Title), deref(p.Author), deref(p.Date)}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write leaderboard: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLabelingSample writes rows for annotators with empty notes and
// gold_keep columns to fill in.
func WriteLabelingSample(w io.Writer, rows []store.ScoredPreview) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(labelingHeader); err != nil {
		return fmt.Errorf("write labeling sample: %w", err)
	}
	for _, r := range rows {
		p := r.Preview
		rec := []string{
			r.SeedID,
			r.Platform,
			r.URL,
			truncate(deref(p.Title), labelTitleMax),
			truncate(p.Snippet, labelSnippetMax),
			deref(p.Author),
			deref(p.Date),
			strconv.Itoa(r.Score),
			r.Decision,
			"",
			"",
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write labeling sample: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func f6(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
