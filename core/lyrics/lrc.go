// Package lyrics parses LRC lyric documents and locates the active
// line for a playback position.
package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"CadenzaFM/model"
)

// tagPattern matches the one timestamp form the player understands:
// [MM:SS.CC] with fixed two-digit fields. Anything else on a line is
// treated as noise and dropped.
var tagPattern = regexp.MustCompile(`^\[(\d{2}):(\d{2})\.(\d{2})\](.*)$`)

// Parse converts an LRC document into an ascending sequence of lyric
// lines. Malformed lines are skipped, never reported: a fully
// malformed document parses to an empty sequence, which is a valid
// result ("no lyrics"), not an error.
func Parse(doc string) []model.LyricLine {
	if doc == "" {
		return nil
	}

	rawLines := strings.Split(doc, "\n")
	lines := make([]model.LyricLine, 0, len(rawLines))

	for _, raw := range rawLines {
		m := tagPattern.FindStringSubmatch(strings.TrimSpace(raw))
		if m == nil {
			continue
		}

		text := strings.TrimSpace(m[4])
		if text == "" {
			continue
		}

		// Fixed-width two-digit fields; the pattern guarantees these parse.
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		centis, _ := strconv.Atoi(m[3])

		lines = append(lines, model.LyricLine{
			TimeSeconds: float64(minutes)*60 + float64(seconds) + float64(centis)/100,
			Text:        text,
		})
	}

	// Stable: equal timestamps keep their document order, which decides
	// ties in Locate (last one at or before the position wins).
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].TimeSeconds < lines[j].TimeSeconds
	})

	return lines
}

// Locate returns the index of the last line whose time is at or before
// position, or -1 when the position precedes the first line or the
// sequence is empty. Once the position passes the last line, that line
// stays active until the track changes.
func Locate(lines []model.LyricLine, position float64) int {
	index := -1
	for i, line := range lines {
		if line.TimeSeconds > position {
			break
		}
		index = i
	}
	return index
}
