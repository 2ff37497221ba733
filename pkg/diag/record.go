package diag

import (
	"strconv"
	"strings"
)

// NoLocation marks a diagnostic that does not point into the source.
const NoLocation int64 = -1

// maxEchoedLine is the longest source line echoed under a display string.
const maxEchoedLine = 150

const (
	prefixError   = "ERROR"
	prefixWarning = "WARNING"
)

// Record is one immutable diagnostic.
type Record struct {
	Category   Category `json:"category"`
	Tag        string   `json:"tag"`
	Severity   int      `json:"severity"`
	Location   int64    `json:"location"`
	Line       int      `json:"line"`
	Column     int      `json:"column"`
	SourceLine string   `json:"source_line"`
	Short      string   `json:"short"`
	Long       string   `json:"long"`
	Display    string   `json:"display"`
}

// NewRecord builds a record, resolving location against src (which may be
// nil) and composing the display string. An empty long message copies short.
func NewRecord(category Category, location int64, short, long string, src *Source) Record {
	if long == "" {
		long = short
	}

	line, column, sourceLine := src.Position(location)

	rec := Record{
		Category:   category,
		Tag:        category.Tag(),
		Severity:   category.Severity(),
		Location:   location,
		Line:       line,
		Column:     column,
		SourceLine: sourceLine,
		Short:      short,
		Long:       long,
	}

	rec.Display = rec.compose()

	return rec
}

// IsError reports whether the record counts as an error.
func (rec Record) IsError() bool {
	return IsError(rec.Severity)
}

// Prefix returns "ERROR" or "WARNING".
func (rec Record) Prefix() string {
	if rec.IsError() {
		return prefixError
	}

	return prefixWarning
}

// compose builds the display string: the prefix, the position when known,
// the long message and, for short enough lines, the line with a caret
// under the column.
func (rec Record) compose() string {
	var sb strings.Builder

	sb.WriteString(rec.Prefix())

	if rec.Line < 0 {
		sb.WriteString(": ")
	} else {
		sb.WriteString(" [")
		sb.WriteString(strconv.Itoa(rec.Line))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(rec.Column))
		sb.WriteString("]: ")
	}

	sb.WriteString(rec.Long)

	if rec.Line >= 0 && rec.SourceLine != "" && len(rec.SourceLine) <= maxEchoedLine {
		sb.WriteByte('\n')
		sb.WriteString(rec.SourceLine)
		sb.WriteByte('\n')
		sb.WriteString(strings.Repeat(" ", rec.Column-1))
		sb.WriteByte('^')
	}

	return sb.String()
}

// Counts partitions records by the error threshold.
func Counts(records []Record) (int, int) {
	errs := 0

	for _, rec := range records {
		if rec.IsError() {
			errs++
		}
	}

	return errs, len(records) - errs
}
