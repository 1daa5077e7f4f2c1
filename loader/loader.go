package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"supportbot/types"
)

// LoadCSV reads a tabular support-ticket export and converts each row
// into an indexable document. The file must carry "input" (the customer
// question) and "output" (the agent answer) columns; extra columns are
// ignored and column order does not matter.
func LoadCSV(path string) ([]types.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening CSV file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV header: %w", err)
	}

	inputIdx, outputIdx := -1, -1
	for i, col := range header {
		switch col {
		case "input":
			inputIdx = i
		case "output":
			outputIdx = i
		}
	}
	if inputIdx < 0 || outputIdx < 0 {
		return nil, fmt.Errorf("CSV file is missing required columns (need input, output), got %v", header)
	}

	var docs []types.Document
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV row: %w", err)
		}

		docs = append(docs, types.Document{
			Content:  row[inputIdx],
			Metadata: map[string]string{"answer": row[outputIdx]},
		})
	}
	return docs, nil
}
