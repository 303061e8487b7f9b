package output

import (
	"math"
	"sort"
	"strings"

	"flashcard_spider/internal/models"
)

const (
	unknownPOS     = "unknown"
	duplicateLimit = 20
)

// ComputeStats aggregates records. Duplicate ties keep first-encounter order.
func ComputeStats(records []models.Record, listID int, sourceURL, title string) models.Stats {
	stats := models.Stats{
		ListID:               listID,
		ListTitle:            title,
		SourceURL:            sourceURL,
		TotalItems:           len(records),
		CountsByPOS:          make(map[string]int),
		ItemsByPage:          models.PageCounts{},
		DuplicatedWordsTop20: []models.DuplicateWord{},
	}

	wordCounts := make(map[string]int)
	var wordOrder []string
	pageCounts := make(map[int]int)
	totalExamples := 0

	for _, record := range records {
		if _, seen := wordCounts[record.Word]; !seen {
			wordOrder = append(wordOrder, record.Word)
		}
		wordCounts[record.Word]++

		pos := strings.ToLower(strings.TrimSpace(record.PartOfSpeech))
		if pos == "" {
			pos = unknownPOS
		}
		stats.CountsByPOS[pos]++

		if record.ImageURL != "" {
			stats.HasImageCount++
		}
		if record.AudioURL != "" {
			stats.HasAudioCount++
		}
		totalExamples += len(record.ExamplesVI)
		pageCounts[record.Page]++
	}

	stats.UniqueWords = len(wordCounts)
	if len(records) > 0 {
		avg := float64(totalExamples) / float64(len(records))
		stats.AvgExamplesPerWord = math.Round(avg*1000) / 1000
	}

	for page, count := range pageCounts {
		stats.ItemsByPage = append(stats.ItemsByPage, models.PageCount{Page: page, Count: count})
	}
	sort.Slice(stats.ItemsByPage, func(i, j int) bool {
		return stats.ItemsByPage[i].Page < stats.ItemsByPage[j].Page
	})
	stats.PagesCount = len(stats.ItemsByPage)

	for _, word := range wordOrder {
		if count := wordCounts[word]; count > 1 {
			stats.DuplicatedWordsTop20 = append(stats.DuplicatedWordsTop20, models.DuplicateWord{Word: word, Count: count})
		}
	}
	sort.SliceStable(stats.DuplicatedWordsTop20, func(i, j int) bool {
		return stats.DuplicatedWordsTop20[i].Count > stats.DuplicatedWordsTop20[j].Count
	})
	if len(stats.DuplicatedWordsTop20) > duplicateLimit {
		stats.DuplicatedWordsTop20 = stats.DuplicatedWordsTop20[:duplicateLimit]
	}

	return stats
}
