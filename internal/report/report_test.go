package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/seedradar/internal/store"
	"github.com/elonfeng/seedradar/pkg/calibrate"
	"github.com/elonfeng/seedradar/pkg/preview"
	"github.com/elonfeng/seedradar/pkg/rankerr"
)

func strPtr(s string) *string { return &s }

func TestLoadDevset(t *testing.T) {
	in := "seed_id,score,decision,gold_keep\n" +
		"a,81,keep,1\n" +
		"b,12.5,reject,0\n" +
		"c,40,consider,\n" +
		"d,notanumber,reject,1\n" +
		"e,55,consider,yes\n" +
		"f,66\n" +
		"g, 70 ,keep, 1 \n"

	samples, err := LoadDevset(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []calibrate.LabeledSample{
		{Score: 81, GoldKeep: 1},
		{Score: 12.5, GoldKeep: 0},
		{Score: 70, GoldKeep: 1},
	}, samples)
}

func TestLoadDevset_BadHeader(t *testing.T) {
	_, err := LoadDevset(strings.NewReader("score,label\n1,1\n"))
	assert.True(t, errors.Is(err, rankerr.ErrInvalidInput))

	_, err = LoadDevset(strings.NewReader(""))
	assert.True(t, errors.Is(err, rankerr.ErrInsufficientData))
}

func TestWriteThresholdReport(t *testing.T) {
	var buf bytes.Buffer
	err := WriteThresholdReport(&buf, []calibrate.SweepPoint{
		{Threshold: 0.4995, Precision: 2.0 / 3.0, Recall: 1, F1: 0.8},
	})
	require.NoError(t, err)

	assert.Equal(t, "threshold,precision,recall,f1\n0.499500,0.666667,1.000000,0.800000\n", buf.String())
}

func TestWriteLeaderboard(t *testing.T) {
	rows := []store.ScoredPreview{{
		PreviewRow: store.PreviewRow{
			SeedID:   "s1",
			Platform: "youtube",
			URL:      "https://www.youtube.com/watch?v=a",
			Preview: preview.CanonicalPreview{
				Title:  strPtr("Deep sleep, explained"),
				Author: strPtr("Chan"),
			},
		},
		Score: 72,
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteLeaderboard(&buf, rows))
	assert.Equal(t,
		"seed_id,platform,score,url,title,author,date\n"+
			"s1,youtube,72,https://www.youtube.com/watch?v=a,\"Deep sleep, explained\",Chan,\n",
		buf.String())
}

func TestWriteLabelingSample_Truncates(t *testing.T) {
	rows := []store.ScoredPreview{{
		PreviewRow: store.PreviewRow{
			SeedID:   "s1",
			Platform: "reddit",
			Preview: preview.CanonicalPreview{
				Title:   strPtr(strings.Repeat("é", 300)),
				Snippet: strings.Repeat("x", 600),
			},
		},
		Score:    48,
		Decision: "reject",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteLabelingSample(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "seed_id,platform,url,title,snippet,author,date,score,decision,notes,gold_keep", lines[0])

	fields := strings.Split(lines[1], ",")
	require.Len(t, fields, 11)
	assert.Equal(t, 240, len([]rune(fields[3])))
	assert.Len(t, fields[4], 500)
	assert.Equal(t, []string{"48", "reject", "", ""}, fields[7:])

	samples, err := LoadDevset(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Empty(t, samples, "unlabeled rows are not usable")
}
