package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"flashcard_spider/internal/models"
)

const examplesSeparator = " | "

var csvHeader = []string{
	"word", "part_of_speech", "ipa", "definition_vi",
	"examples_vi (| separated)", "image_url", "audio_url", "page",
}

// Writer places <Name>.json, <Name>.csv and <Name>_stats.json under Dir.
type Writer struct {
	Dir    string
	Name   string
	Logger *slog.Logger
}

func (w *Writer) JSONPath() string  { return filepath.Join(w.Dir, w.Name+".json") }
func (w *Writer) CSVPath() string   { return filepath.Join(w.Dir, w.Name+".csv") }
func (w *Writer) StatsPath() string { return filepath.Join(w.Dir, w.Name+"_stats.json") }

func (w *Writer) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (w *Writer) ensureDir() error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return fmt.Errorf("can't create output dir %s: %w", w.Dir, err)
	}
	return nil
}

// WriteRecords writes the JSON and CSV outputs.
func (w *Writer) WriteRecords(records []models.Record) error {
	if err := w.ensureDir(); err != nil {
		return err
	}
	if err := WriteJSON(w.JSONPath(), records); err != nil {
		return err
	}
	w.logger().Info("saved JSON", "path", absPath(w.JSONPath()), "records", len(records))

	if err := WriteCSV(w.CSVPath(), records); err != nil {
		return err
	}
	w.logger().Info("saved CSV", "path", absPath(w.CSVPath()), "records", len(records))
	return nil
}

func (w *Writer) WriteStats(stats models.Stats) error {
	if err := w.ensureDir(); err != nil {
		return err
	}
	if err := writeIndentedJSON(w.StatsPath(), stats); err != nil {
		return err
	}
	w.logger().Info("saved stats", "path", absPath(w.StatsPath()))
	return nil
}

func WriteJSON(path string, records []models.Record) error {
	if records == nil {
		records = []models.Record{}
	}
	return writeIndentedJSON(path, records)
}

func ReadJSON(path string) ([]models.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("can't decode %s: %w", path, err)
	}
	return records, nil
}

// writeIndentedJSON keeps non-ASCII and HTML characters as they are.
func writeIndentedJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("can't encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("can't write %s: %w", path, err)
	}
	return nil
}

func WriteCSV(path string, records []models.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("can't create %s: %w", path, err)
	}
	defer f.Close()

	if err := EncodeCSV(f, records); err != nil {
		return fmt.Errorf("can't write %s: %w", path, err)
	}
	return f.Close()
}

// EncodeCSV writes the header and one CRLF-terminated row per record.
func EncodeCSV(out io.Writer, records []models.Record) error {
	cw := csv.NewWriter(out)
	cw.UseCRLF = true

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Word,
			r.PartOfSpeech,
			r.IPA,
			r.DefinitionVI,
			strings.Join(r.ExamplesVI, examplesSeparator),
			r.ImageURL,
			r.AudioURL,
			strconv.Itoa(r.Page),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
