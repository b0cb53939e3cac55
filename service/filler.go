package service

import (
	"regexp"
	"sort"

	"speech-coach/constant"
	"speech-coach/dto"
)

type fillerPattern struct {
	word string
	re   *regexp.Regexp
}

var fillerPatterns = compileFillerPatterns()

func compileFillerPatterns() []fillerPattern {
	patterns := make([]fillerPattern, 0, len(constant.FillerWords))
	for _, word := range constant.FillerWords {
		patterns = append(patterns, fillerPattern{
			word: word,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(word) + `\b`),
		})
	}
	return patterns
}

// CountFillerWords counts whole-word occurrences of the filler vocabulary
// in the transcript, case-insensitively. Entries with a zero count are
// omitted; the rest are ordered by count descending with ties keeping
// vocabulary order. The second return is the sum of all counts.
func CountFillerWords(transcript string) ([]dto.FillerCount, int) {
	var counts []dto.FillerCount
	total := 0
	for _, p := range fillerPatterns {
		n := len(p.re.FindAllStringIndex(transcript, -1))
		if n > 0 {
			counts = append(counts, dto.FillerCount{Word: p.word, Count: n})
			total += n
		}
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts, total
}
