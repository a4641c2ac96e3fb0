package smartercsv

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// numericBypassLen short-circuits numeric coercion for any value longer
// than a plain int64 or float64 literal could ever need, avoiding a
// doomed parse attempt on long text fields.
const numericBypassLen = 63

// zeroShape matches a field whose trimmed content is pure zero digits,
// with an optional all-zero fractional part: "0", "00", "0.0", "0.000".
var zeroShape = regexp.MustCompile(`^0+(\.0+)?$`)

// RecordOptions configures ParseLineToRecord.
type RecordOptions struct {
	LineOptions

	// RowSep, if a suffix of the line, is trimmed before tokenization.
	// Defaults to "\n".
	RowSep []byte

	// Headers names each column, in order. A row with more fields than
	// Headers gets symbolized keys for the extras; a row with fewer
	// fields leaves the remaining headers mapped to nil.
	Headers []string
	// MissingHeaderPrefix names extra, header-less columns
	// "<prefix><1-based index>". Defaults to "column_".
	MissingHeaderPrefix string

	RemoveEmptyValues bool
	RemoveEmptyHashes bool
	RemoveZeroValues  bool
	ConvertToNumeric  bool
	NumericOnly       map[string]bool
	NumericExcept     map[string]bool
}

func (o RecordOptions) withDefaults() RecordOptions {
	o.LineOptions = o.LineOptions.withDefaults()
	if o.RowSep == nil {
		o.RowSep = []byte{'\n'}
	}
	if o.MissingHeaderPrefix == "" {
		o.MissingHeaderPrefix = "column_"
	}
	return o
}

// ParseLineToRecord parses one logical line into a keyed record: fields
// are matched against Headers positionally, coerced and filtered per
// RecordOptions, and assembled lazily so a row that ends up empty after
// filtering never allocates its record map. The second return value is
// the raw field count, independent of whether the record itself ended
// up empty or nil — callers use it to detect short/long rows. A nil
// record with no error means the row was dropped entirely
// (RemoveEmptyHashes with nothing left).
func ParseLineToRecord(line []byte, opts RecordOptions) (map[string]any, int, error) {
	opts = opts.withDefaults()
	if len(opts.RowSep) > 0 && bytes.HasSuffix(line, opts.RowSep) {
		line = line[:len(line)-len(opts.RowSep)]
	}

	fields, err := ParseLine(line, opts.LineOptions)
	if err != nil {
		return nil, 0, err
	}
	count := len(fields)

	var record map[string]any
	set := func(key string, value any) {
		if record == nil {
			record = make(map[string]any, count)
		}
		record[key] = value
	}

	for i := 0; i < count || i < len(opts.Headers); i++ {
		key := recordKey(opts, i)

		if i >= count {
			if !opts.RemoveEmptyValues {
				set(key, nil)
			}
			continue
		}

		f := fields[i]
		raw := f.Value

		var value any = raw
		if opts.ConvertToNumeric && !f.Quoted && numericAllowed(opts, key) {
			if coerced, ok := coerceNumeric(raw); ok {
				value = coerced
			}
		}

		if opts.RemoveEmptyValues && isEmptyValue(raw) {
			continue
		}
		if opts.RemoveZeroValues && isZeroShape(raw) {
			continue
		}
		set(key, value)
	}

	if record == nil && opts.RemoveEmptyHashes {
		return nil, count, nil
	}
	if record == nil {
		record = make(map[string]any)
	}
	return record, count, nil
}

func recordKey(opts RecordOptions, i int) string {
	if i < len(opts.Headers) {
		return opts.Headers[i]
	}
	return opts.MissingHeaderPrefix + strconv.Itoa(i+1)
}

func numericAllowed(opts RecordOptions, key string) bool {
	if len(opts.NumericOnly) > 0 {
		return opts.NumericOnly[key]
	}
	if len(opts.NumericExcept) > 0 {
		return !opts.NumericExcept[key]
	}
	return true
}

// isEmptyValue reports whether s is entirely whitespace (including
// \r \n \v \f), independent of whether StripWhitespace already ran.
func isEmptyValue(s string) bool {
	return strings.TrimSpace(s) == ""
}

// isZeroShape reports whether s's trimmed content is pure zero digits
// with an optional all-zero fractional part, independent of whether
// ConvertToNumeric coerced it to a numeric type.
func isZeroShape(s string) bool {
	return zeroShape.MatchString(strings.TrimSpace(s))
}

// coerceNumeric attempts int64, then arbitrary-precision decimal on
// int64 overflow of a plain integer literal, then float64. It leaves s
// untouched (returning ok=false) for anything that parses as none of
// those, including values over numericBypassLen bytes long.
func coerceNumeric(s string) (any, bool) {
	if s == "" || len(s) > numericBypassLen {
		return nil, false
	}
	if iv, err := strconv.ParseInt(s, 10, 64); err == nil {
		return iv, true
	} else if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange && isIntegerLiteral(s) {
		if dv, derr := decimal.NewFromString(s); derr == nil {
			return dv, true
		}
	}
	if fv, err := strconv.ParseFloat(s, 64); err == nil {
		return fv, true
	}
	return nil, false
}

func isIntegerLiteral(s string) bool {
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i = 1
	}
	if i >= len(s) {
		return false
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
