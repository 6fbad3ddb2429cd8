package record

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/teranos/exopredict/errors"
)

// ReadCSV reads rows from a headered CSV stream. Empty cells become null,
// matching how a missing value reads back from a batch table.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errors.NewInvalidRequestError("csv input is empty")
	}
	if err != nil {
		return nil, errors.Wrap(err, "read csv header")
	}

	var rows []Row
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read csv line %d", line)
		}

		var row Row
		for i, name := range header {
			var value any
			if i < len(rec) && rec[i] != "" {
				value = rec[i]
			}
			row.Set(name, value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadCSVFile reads rows from the CSV file at path.
func ReadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}
