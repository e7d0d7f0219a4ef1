package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// isStdinPiped checks if stdin is being piped to the program
func isStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// scanStdin reads addresses from stdin. Addresses may be separated by
// whitespace or commas; lines starting with # are ignored.
func scanStdin() ([]string, error) {
	scanner := bufio.NewScanner(os.Stdin)
	var addresses []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool {
			return r == ',' || r == ' ' || r == '\t'
		})
		addresses = append(addresses, fields...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from stdin: %w", err)
	}
	return addresses, nil
}
