package pmip

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/multimediallc/mixedcallstack/pkg/ranges"
)

const (
	HeaderDelimiter = ":"
	FieldDelimiter  = ";"
	// LegacyMarker prefixes the start address of records carried over from the
	// older encoding.
	LegacyMarker = "---"
	// MaxVersion is the newest side file version this reader understands.
	MaxVersion = 2.0
)

// plain decimal: digits with at most one decimal point, no sign or exponent
var versionRe = regexp.MustCompile(`^(?:[0-9]+\.?[0-9]*|\.[0-9]+)$`)

type Header struct {
	Label   string
	Version float64
}

// ParseHeader validates the first line of a side file.
func ParseHeader(line string) (Header, error) {
	tokens := strings.Split(line, HeaderDelimiter)
	if len(tokens) != 2 {
		return Header{}, fmt.Errorf("%w: expected <label>%s<version>, got %q", ErrMalformedHeader, HeaderDelimiter, line)
	}
	if !versionRe.MatchString(tokens[1]) {
		return Header{}, fmt.Errorf("%w: %q", ErrInvalidVersion, tokens[1])
	}
	version, err := strconv.ParseFloat(tokens[1], 64)
	if err != nil {
		return Header{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, tokens[1], err)
	}
	if version > MaxVersion {
		return Header{}, fmt.Errorf("%w: file version %s, newest supported %.1f", ErrUnsupportedVersion, tokens[1], MaxVersion)
	}
	return Header{Label: tokens[0], Version: version}, nil
}

type Kind int

const (
	// KindSkipped is a line whose shape is not recognised. It is ignored.
	KindSkipped Kind = iota
	KindCurrent
	KindLegacy
)

func (k Kind) String() string {
	switch k {
	case KindCurrent:
		return "current"
	case KindLegacy:
		return "legacy"
	default:
		return "skipped"
	}
}

// Record is one parsed body line.
type Record struct {
	Kind     Kind
	Interval ranges.Interval
}

// ParseLine parses a body line. Lines with other than 3 or 4 fields come back
// as KindSkipped with a nil error; a bad address is an error.
func ParseLine(line string) (Record, error) {
	tokens := strings.Split(line, FieldDelimiter)
	if len(tokens) != 3 && len(tokens) != 4 {
		return Record{Kind: KindSkipped}, nil
	}

	kind := KindCurrent
	startToken := tokens[0]
	if strings.HasPrefix(startToken, LegacyMarker) {
		kind = KindLegacy
		startToken = strings.TrimPrefix(startToken, LegacyMarker)
	}

	start, err := parseAddress(startToken)
	if err != nil {
		return Record{}, fmt.Errorf("start address: %w", err)
	}
	end, err := parseAddress(tokens[1])
	if err != nil {
		return Record{}, fmt.Errorf("end address: %w", err)
	}

	iv := ranges.Interval{Start: start, End: end, Name: tokens[2]}
	if len(tokens) == 4 {
		iv.File = tokens[3]
	}
	return Record{Kind: kind, Interval: iv}, nil
}

func parseAddress(token string) (uint64, error) {
	addr, err := strconv.ParseUint(strings.TrimSpace(token), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAddress, token)
	}
	return addr, nil
}

// FormatLine renders an interval the way the JIT host writes it.
func FormatLine(iv ranges.Interval, legacy bool) string {
	var b strings.Builder
	if legacy {
		b.WriteString(LegacyMarker)
	}
	fmt.Fprintf(&b, "%016X%s%016X%s%s", iv.Start, FieldDelimiter, iv.End, FieldDelimiter, iv.Name)
	if iv.File != "" {
		b.WriteString(FieldDelimiter)
		b.WriteString(iv.File)
	}
	return b.String()
}
