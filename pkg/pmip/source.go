package pmip

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\ufeff"

// sideFile is the read state of one tracked side file. The reader position
// persists between polls so only lines appended since the last poll are seen.
type sideFile struct {
	path   string
	file   *os.File
	reader *bufio.Reader
	header Header
	// unterminated tail of the file, completed by a later poll
	pending string
	// lines consumed so far, header included
	line int
}

// openSideFile opens path and validates its header.
func openSideFile(path string) (*sideFile, error) {
	file, err := openShared(path)
	if err != nil {
		return nil, fmt.Errorf("opening side file: %w", err)
	}
	sf := &sideFile{
		path:   path,
		file:   file,
		reader: bufio.NewReader(file),
	}
	if err := sf.readHeader(); err != nil {
		_ = file.Close()
		return nil, &HeaderError{Path: path, Err: err}
	}
	return sf, nil
}

func (sf *sideFile) readHeader() error {
	raw, err := sf.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if raw == "" {
		return ErrMissingHeader
	}
	sf.line++
	line := strings.TrimPrefix(trimEOL(raw), utf8BOM)
	header, err := ParseHeader(line)
	if err != nil {
		return err
	}
	sf.header = header
	return nil
}

// next returns the next complete line. ok is false once no complete line is
// available yet; a partial trailing line is kept until its newline arrives.
func (sf *sideFile) next() (line string, ok bool, err error) {
	raw, err := sf.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			sf.pending += raw
			return "", false, nil
		}
		return "", false, err
	}
	raw = sf.pending + raw
	sf.pending = ""
	sf.line++
	return trimEOL(raw), true, nil
}

// flush hands out the unterminated tail, if any, as a final line.
func (sf *sideFile) flush() (line string, ok bool) {
	if sf.pending == "" {
		return "", false
	}
	line = trimEOL(sf.pending)
	sf.pending = ""
	sf.line++
	return line, true
}

func (sf *sideFile) close() error {
	return sf.file.Close()
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
