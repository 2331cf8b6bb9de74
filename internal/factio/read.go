// Package factio reads fact batches from JSON Lines and CSV files.
package factio

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/wagnerlima/memory-cloud/fact-importer/internal/models"
)

// ReadFile reads facts from path, choosing the format by extension: .csv
// for CSV, anything else for JSON Lines.
func ReadFile(path string) ([]models.Fact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open facts file: %w", err)
	}
	defer f.Close()

	var facts []models.Fact
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		facts, err = ReadCSV(f)
	} else {
		facts, err = ReadJSONLines(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return facts, nil
}

// ReadJSONLines reads one JSON object per line. String values become
// properties; numbers keep their literal digits and booleans are formatted;
// nulls are left out so the property reads as missing. Blank lines are
// skipped.
func ReadJSONLines(r io.Reader) ([]models.Fact, error) {
	var facts []models.Fact
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		if err := dec.Decode(&obj); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("line %d: trailing data after object", line)
		}
		props := make(map[string]string, len(obj))
		for k, v := range obj {
			switch v := v.(type) {
			case nil:
			case string:
				props[k] = v
			case json.Number:
				props[k] = v.String()
			case map[string]any, []any:
				return nil, fmt.Errorf("line %d: property %q is not a scalar", line, k)
			default:
				props[k] = fmt.Sprint(v)
			}
		}
		facts = append(facts, models.NewFact(props))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read facts: %w", err)
	}
	return facts, nil
}

// ReadCSV reads a header row of property names followed by one fact per
// row. Empty cells are left out so the property reads as missing.
func ReadCSV(r io.Reader) ([]models.Fact, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var facts []models.Fact
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		props := make(map[string]string, len(header))
		for i, name := range header {
			if row[i] != "" {
				props[name] = row[i]
			}
		}
		facts = append(facts, models.NewFact(props))
	}
	return facts, nil
}
