package diag

import (
	"fmt"

	"github.com/Sumatoshi-tech/hoshi/pkg/wire"
)

// recordSizeHint sizes the encode buffer per record.
const recordSizeHint = 128

// Encode serializes records in order: the count, then the ten fields of
// each record.
func Encode(records []Record) []byte {
	enc := wire.NewEncoder(len(records) * recordSizeHint)
	enc.Int(int64(len(records)))

	for idx := range records {
		rec := &records[idx]

		enc.Int(int64(rec.Category)).
			String(rec.Tag).
			Int(int64(rec.Severity)).
			Int(rec.Location).
			Int(int64(rec.Line)).
			Int(int64(rec.Column)).
			String(rec.SourceLine).
			String(rec.Short).
			String(rec.Long).
			String(rec.Display)
	}

	return enc.Bytes()
}

// Decode rebuilds the ordered record list produced by Encode.
func Decode(buf []byte) ([]Record, error) {
	dec := wire.NewDecoder(buf)

	count, err := dec.Count()
	if err != nil {
		return nil, fmt.Errorf("diagnostic count: %w", err)
	}

	records := make([]Record, 0, count)

	for idx := range count {
		rec, recErr := decodeRecord(dec)
		if recErr != nil {
			return nil, fmt.Errorf("diagnostic %d: %w", idx, recErr)
		}

		records = append(records, rec)
	}

	err = dec.Finish()
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}

	return records, nil
}

// fieldReader reads consecutive fields and keeps the first error,
// so a record can be decoded with a single error check.
type fieldReader struct {
	dec *wire.Decoder
	err error
}

func (fr *fieldReader) int() int64 {
	if fr.err != nil {
		return 0
	}

	value, err := fr.dec.Int()
	fr.err = err

	return value
}

func (fr *fieldReader) string() string {
	if fr.err != nil {
		return ""
	}

	value, err := fr.dec.String()
	fr.err = err

	return value
}

func decodeRecord(dec *wire.Decoder) (Record, error) {
	fr := &fieldReader{dec: dec}

	rec := Record{
		Category:   Category(fr.int()),
		Tag:        fr.string(),
		Severity:   int(fr.int()),
		Location:   fr.int(),
		Line:       int(fr.int()),
		Column:     int(fr.int()),
		SourceLine: fr.string(),
		Short:      fr.string(),
		Long:       fr.string(),
		Display:    fr.string(),
	}

	if fr.err != nil {
		return Record{}, fr.err
	}

	return rec, nil
}
