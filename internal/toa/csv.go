package toa

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var csvHeader = []string{"mjd", "freq", "error", "site"}

func LoadCSV(path string) (*Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadCSV(file)
}

// ReadCSV reads mjd,freq,error[,site] rows. A header row is optional.
func ReadCSV(r io.Reader) (*Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}

	toas := make([]TOA, 0, len(records))
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(record[0]), "mjd") {
			continue
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("toa: line %d: want at least 3 fields, got %d", i+1, len(record))
		}

		vals := make([]float64, 3)
		for j := range vals {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("toa: line %d field %s: %w", i+1, csvHeader[j], err)
			}
			vals[j] = v
		}

		t := TOA{Time: vals[0] * SecondsPerDay, Freq: vals[1], Error: vals[2]}
		if len(record) > 3 {
			t.Site = strings.TrimSpace(record[3])
		}
		toas = append(toas, t)
	}
	return &Batch{toas: toas}, nil
}

func WriteCSV(w io.Writer, b *Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, t := range b.toas {
		row := []string{
			strconv.FormatFloat(t.MJD(), 'f', -1, 64),
			strconv.FormatFloat(t.Freq, 'f', -1, 64),
			strconv.FormatFloat(t.Error, 'f', -1, 64),
			t.Site,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
