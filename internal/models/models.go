package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// Record is one flashcard entry parsed from a listing block.
type Record struct {
	Word         string   `json:"word" bson:"word"`
	PartOfSpeech string   `json:"part_of_speech" bson:"part_of_speech"`
	IPA          string   `json:"ipa" bson:"ipa"`
	DefinitionVI string   `json:"definition_vi" bson:"definition_vi"`
	ExamplesVI   []string `json:"examples_vi" bson:"examples_vi"`
	ImageURL     string   `json:"image_url" bson:"image_url"`
	AudioURL     string   `json:"audio_url" bson:"audio_url"`
	Page         int      `json:"page" bson:"page"`
}

type DuplicateWord struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type PageCount struct {
	Page  int
	Count int
}

// PageCounts marshals as a JSON object keyed by page number, in slice order.
type PageCounts []PageCount

func (p PageCounts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pc := range p {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(strconv.Itoa(pc.Page)))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(pc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (p *PageCounts) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(PageCounts, 0, len(raw))
	for k, v := range raw {
		page, err := strconv.Atoi(k)
		if err != nil {
			return err
		}
		out = append(out, PageCount{Page: page, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	*p = out
	return nil
}

type Stats struct {
	ListID               int             `json:"list_id"`
	ListTitle            string          `json:"list_title,omitempty"`
	SourceURL            string          `json:"source_url"`
	TotalItems           int             `json:"total_items"`
	UniqueWords          int             `json:"unique_words"`
	CountsByPOS          map[string]int  `json:"counts_by_part_of_speech"`
	HasImageCount        int             `json:"has_image_count"`
	HasAudioCount        int             `json:"has_audio_count"`
	AvgExamplesPerWord   float64         `json:"avg_examples_per_word"`
	PagesCount           int             `json:"pages_count"`
	ItemsByPage          PageCounts      `json:"items_by_page"`
	DuplicatedWordsTop20 []DuplicateWord `json:"duplicated_words_top20"`
}

type CrawlRun struct {
	ListID       int    `bson:"list_id"`
	SourceURL    string `bson:"source_url"`
	PagesFetched int    `bson:"pages_fetched"`
	RecordCount  int    `bson:"record_count"`
	StartedAt    int64  `bson:"started_at"`
	FinishedAt   int64  `bson:"finished_at"`
	Status       string `bson:"status"` // success, error
	ErrorMessage string `bson:"error_message,omitempty"`
}
