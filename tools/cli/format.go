package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	f "github.com/multimediallc/mixedcallstack/pkg/functional"
	"github.com/multimediallc/mixedcallstack/pkg/pmip"
	"github.com/multimediallc/mixedcallstack/pkg/ranges"
)

type OutputFormat string

const (
	FormatDefault OutputFormat = "default"
	FormatOneLine OutputFormat = "one-line"
	FormatJSON    OutputFormat = "json"
	// FormatTSV prints one tab separated row per range: kind, start, end, name, file.
	FormatTSV OutputFormat = "tsv"
)

var (
	resolveFormats = []OutputFormat{FormatDefault, FormatOneLine, FormatJSON}
	dumpFormats    = []OutputFormat{FormatDefault, FormatOneLine, FormatJSON, FormatTSV}
)

func formatList(allowed []OutputFormat) string {
	names := f.Map(allowed, func(o OutputFormat) string { return string(o) })
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

// validateFormat checks format against the formats a command supports.
func validateFormat(format string, allowed []OutputFormat) (OutputFormat, error) {
	if !slices.Contains(allowed, OutputFormat(format)) {
		return "", fmt.Errorf("invalid format %q. Must be one of %s", format, formatList(allowed))
	}
	return OutputFormat(format), nil
}

// printJSON writes v to stdout as a single line
func printJSON(v any) error {
	jsonString, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("error encoding json: %w", err)
	}
	fmt.Println(string(jsonString))
	return nil
}

// tsvRow renders a range for FormatTSV. Tabs and newlines inside the name or
// file are replaced by spaces so every range stays on one row.
func tsvRow(kind pmip.Kind, iv ranges.Interval) string {
	clean := strings.NewReplacer("\t", " ", "\n", " ", "\r", " ")
	return strings.Join([]string{
		kind.String(),
		fmt.Sprintf("%016X", iv.Start),
		fmt.Sprintf("%016X", iv.End),
		clean.Replace(iv.Name),
		clean.Replace(iv.File),
	}, "\t")
}
