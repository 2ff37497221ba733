package kind

import (
	"fmt"
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/hoshi/pkg/wire"
)

// AppendTo appends the exported form of the table to enc: the entry count,
// then each name and code pair sorted by name.
func (tbl *Table) AppendTo(enc *wire.Encoder) {
	enc.Int(int64(len(tbl.byName)))

	for _, name := range slices.Sorted(maps.Keys(tbl.byName)) {
		enc.String(name).Int(int64(tbl.byName[name]))
	}
}

// Export serializes the whole table.
func (tbl *Table) Export() []byte {
	enc := wire.NewEncoder(len(tbl.byName) * 16)
	tbl.AppendTo(enc)

	return enc.Bytes()
}

// ReadFrom decodes a table from the current position of dec.
func ReadFrom(dec *wire.Decoder) (*Table, error) {
	count, err := dec.Count()
	if err != nil {
		return nil, fmt.Errorf("kind table count: %w", err)
	}

	table := NewTable()

	for range count {
		name, nameErr := dec.String()
		if nameErr != nil {
			return nil, fmt.Errorf("kind table name: %w", nameErr)
		}

		code, codeErr := dec.Int()
		if codeErr != nil {
			return nil, fmt.Errorf("kind table code: %w", codeErr)
		}

		if code > MaxCode {
			return nil, fmt.Errorf("%w: %q=%d exceeds %d", ErrCodeRange, name, code, MaxCode)
		}

		if _, dup := table.byName[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, name)
		}

		setErr := table.Set(name, int(code))
		if setErr != nil {
			return nil, setErr
		}
	}

	return table, nil
}

// Import decodes a buffer holding exactly one exported table.
func Import(buf []byte) (*Table, error) {
	dec := wire.NewDecoder(buf)

	table, err := ReadFrom(dec)
	if err != nil {
		return nil, err
	}

	err = dec.Finish()
	if err != nil {
		return nil, fmt.Errorf("kind table: %w", err)
	}

	return table, nil
}
