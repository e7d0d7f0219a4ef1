package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/multimediallc/mixedcallstack/internal/app"
)

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func ignoreError[V any, E error](res V, _ E) V {
	return res
}

var (
	WarningBuffer = bytes.NewBuffer([]byte{})
	InfoBuffer    = bytes.NewBuffer([]byte{})
)

var (
	pid        = flag.Int("pid", ignoreError(strconv.Atoi(getEnv("INPUT_PID", ""))), "Process id of the debuggee")
	searchDir  = flag.String("dir", getEnv("INPUT_DIR", ""), "Directory holding the side files (default from config)")
	configDir  = flag.String("config", getEnv("INPUT_CONFIG", ""), "Directory holding mixedcallstack.toml")
	jsonOutput = flag.Bool("json", ignoreError(strconv.ParseBool(getEnv("INPUT_JSON", "0"))), "Write the result as JSON")
	verbose    = flag.Bool("v", ignoreError(strconv.ParseBool(getEnv("INPUT_VERBOSE", "0"))), "Verbose output")
)

// shouldFail should always be true for errors that are not recoverable
func errorAndExit(shouldFail bool, format string, args ...interface{}) {
	flushBuffers()
	fmt.Fprintf(os.Stderr, format, args...)
	if shouldFail {
		os.Exit(1)
	} else {
		os.Exit(0)
	}
}

func flushBuffers() {
	_, err := WarningBuffer.WriteTo(os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing warning buffer: %v\n", err)
	}
	if *verbose {
		_, err := InfoBuffer.WriteTo(os.Stderr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error writing info buffer: %v\n", err)
		}
	}
}

// readFrames parses one frame per line. Blank lines are ignored; lines that
// are not frames are reported and skipped.
func readFrames(r io.Reader, warningWriter io.Writer) ([]app.Frame, error) {
	scanner := bufio.NewScanner(r)
	frames := make([]app.Frame, 0)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		frame, err := app.ParseFrame(line)
		if err != nil {
			_, _ = fmt.Fprintf(warningWriter, "WARNING: stdin:%d: %v\n", lineNum, err)
			continue
		}
		frames = append(frames, frame)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from stdin: %w", err)
	}
	return frames, nil
}

func writeOutput(w io.Writer, output *app.OutputData, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(w).Encode(output)
	}
	for _, frame := range output.Frames {
		if _, err := fmt.Fprintln(w, frame); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	flag.Parse()
	if *pid <= 0 {
		errorAndExit(true, "Required flags or environment variables not set: %s\n", []string{"pid"})
	}

	frames, err := readFrames(os.Stdin, WarningBuffer)
	if err != nil {
		errorAndExit(true, "%v\n", err)
	}

	a, err := app.New(app.Config{
		PID:           *pid,
		ConfigDir:     *configDir,
		SearchDir:     *searchDir,
		Verbose:       *verbose,
		InfoBuffer:    InfoBuffer,
		WarningBuffer: WarningBuffer,
	})
	if err != nil {
		errorAndExit(true, "Failed to initialize app: %v\n", err)
	}

	output, err := a.Run(frames)
	if err != nil {
		errorAndExit(true, "Run Error: %v\n", err)
	}

	if err := writeOutput(os.Stdout, output, *jsonOutput); err != nil {
		errorAndExit(true, "Error writing output: %v\n", err)
	}
	flushBuffers()
}
