package variant

import (
	"fmt"
	"strconv"
	"strings"
)

// Minimum field counts per table.
const (
	snvMinFields       = 10
	svMinFields        = 15
	svMinFieldsInPlace = 10
)

// SNVRecord is one row of the SNV table.
type SNVRecord struct {
	Line       int
	Chrom      string
	Start      int // 0-based offset
	End        int // exclusive
	CallStatus string
	Type       string
	Ref        string
	Alleles    [2]string
	Scores     [2]string
}

// Length returns the span of the record on the reference.
func (r *SNVRecord) Length() int {
	return r.End - r.Start
}

// Frequency is the SV zygosity field: one value applied unconditionally, or
// one value per haplotype.
type Frequency struct {
	PerHaplotype bool
	Values       [2]float64
}

// Gate reports whether the variant applies to haplotype h (0 or 1) at the
// given threshold. A single value always applies.
func (f Frequency) Gate(h int, threshold float64) bool {
	if !f.PerHaplotype {
		return true
	}
	return f.Values[h] > threshold
}

// ParseFrequency parses "f" or "f1;f2". An empty or "." field is a single
// unconditional value.
func ParseFrequency(s string) (Frequency, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return Frequency{}, nil
	}

	parts := strings.Split(s, ";")
	switch len(parts) {
	case 1:
		v, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return Frequency{}, fmt.Errorf("invalid frequency %q", s)
		}
		return Frequency{Values: [2]float64{v, v}}, nil
	case 2:
		var f Frequency
		f.PerHaplotype = true
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return Frequency{}, fmt.Errorf("invalid frequency %q", s)
			}
			f.Values[i] = v
		}
		return f, nil
	}
	return Frequency{}, fmt.Errorf("invalid frequency %q: expected f or f1;f2", s)
}

// SVRecord is one row of the SV table.
type SVRecord struct {
	Line         int
	Type         string
	Frequency    Frequency
	OriginChrom  string
	OriginStart  int
	OriginEnd    int
	OriginLength int
	OriginStrand string
	DestChrom    string
	DestStart    int
	DestEnd      int
	DestLength   int
	DestStrand   string
}

// InPlace reports whether the type edits its origin interval without
// changing its length.
func (r *SVRecord) InPlace() bool {
	return r.Type == TypeDeletion || r.Type == TypeProbableInversion
}

// MalformedRecordError reports a row that cannot be decoded. It is recoverable:
// the row is skipped and parsing continues.
type MalformedRecordError struct {
	Format  string
	Line    int
	Message string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record at line %d: %s", e.Format, e.Line, e.Message)
}

// IsComment reports whether a line carries no record.
func IsComment(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || t[0] == '#' || t[0] == '>'
}

// splitFields splits on tabs when the line has any, keeping empty fields,
// and on runs of whitespace otherwise.
func splitFields(line string) []string {
	line = strings.TrimRight(line, "\r\n")
	if strings.Contains(line, "\t") {
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		return fields
	}
	return strings.Fields(line)
}

// DecodeSNV decodes one SNV table row.
func DecodeSNV(line string, lineNumber int) (*SNVRecord, error) {
	fields := splitFields(line)
	malformed := func(format string, args ...any) error {
		return &MalformedRecordError{Format: "snv", Line: lineNumber, Message: fmt.Sprintf(format, args...)}
	}

	if len(fields) < snvMinFields {
		return nil, malformed("expected at least %d fields, found %d", snvMinFields, len(fields))
	}

	start, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, malformed("invalid start: %q", fields[3])
	}
	end, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, malformed("invalid end: %q", fields[4])
	}
	if start < 0 || end < start {
		return nil, malformed("invalid interval [%d,%d)", start, end)
	}

	r := &SNVRecord{
		Line:       lineNumber,
		Chrom:      fields[2],
		Start:      start,
		End:        end,
		CallStatus: fields[5],
		Type:       strings.ToLower(fields[6]),
		Ref:        fields[7],
		Alleles:    [2]string{fields[8], fields[9]},
	}
	if len(fields) > 10 {
		r.Scores[0] = fields[10]
	}
	if len(fields) > 11 {
		r.Scores[1] = fields[11]
	}
	return r, nil
}

// DecodeSV decodes one SV table row.
func DecodeSV(line string, lineNumber int) (*SVRecord, error) {
	fields := splitFields(line)
	malformed := func(format string, args ...any) error {
		return &MalformedRecordError{Format: "sv", Line: lineNumber, Message: fmt.Sprintf(format, args...)}
	}

	if len(fields) < 2 {
		return nil, malformed("expected at least %d fields, found %d", svMinFieldsInPlace, len(fields))
	}
	r := &SVRecord{Line: lineNumber, Type: strings.ToLower(fields[1])}

	want := svMinFields
	if r.InPlace() {
		want = svMinFieldsInPlace
	}
	if len(fields) < want {
		return nil, malformed("expected at least %d fields for %s, found %d", want, r.Type, len(fields))
	}

	freq, err := ParseFrequency(fields[4])
	if err != nil {
		return nil, malformed("%v", err)
	}
	r.Frequency = freq

	r.OriginChrom = fields[5]
	r.OriginStrand = fields[9]
	origin := []struct {
		name string
		dst  *int
		idx  int
	}{
		{"origin start", &r.OriginStart, 6},
		{"origin end", &r.OriginEnd, 7},
		{"origin length", &r.OriginLength, 8},
	}
	for _, f := range origin {
		if *f.dst, err = parsePosition(fields[f.idx]); err != nil {
			return nil, malformed("invalid %s: %q", f.name, fields[f.idx])
		}
	}
	if r.OriginStart < 0 || r.OriginLength < 0 {
		return nil, malformed("negative origin interval")
	}

	if len(fields) < svMinFields {
		return r, nil
	}

	r.DestChrom = fields[10]
	r.DestStrand = fields[14]
	dest := []struct {
		name string
		dst  *int
		idx  int
	}{
		{"destination start", &r.DestStart, 11},
		{"destination end", &r.DestEnd, 12},
		{"destination length", &r.DestLength, 13},
	}
	for _, f := range dest {
		if *f.dst, err = parsePosition(fields[f.idx]); err != nil {
			return nil, malformed("invalid %s: %q", f.name, fields[f.idx])
		}
	}
	if r.DestStart < 0 || r.DestLength < 0 {
		return nil, malformed("negative destination interval")
	}
	return r, nil
}

// parsePosition parses an integer coordinate. Empty placeholders read as 0.
func parsePosition(s string) (int, error) {
	switch s {
	case "", ".", "-":
		return 0, nil
	}
	return strconv.Atoi(s)
}
