package app

import (
	"fmt"
	"strconv"
	"strings"
)

// Frame is what a stack walker knows about one frame before resolution.
type Frame struct {
	Address uint64
	// Module is the native module owning Address, empty for JIT code.
	Module     string
	MainThread bool
	// Text is shown when the frame is not resolved.
	Text string
}

// Result is a frame after filtering.
type Result struct {
	Frame    Frame
	Name     string
	Resolved bool
}

func (r Result) String() string {
	if r.Resolved {
		return r.Name
	}
	if r.Frame.Text != "" {
		return r.Frame.Text
	}
	return fmt.Sprintf("%016X", r.Frame.Address)
}

// ParseFrame reads "<hexaddr> [module]" as written by a host adapter. The
// address may carry a 0x prefix. Parsed frames count as main thread frames.
func ParseFrame(line string) (Frame, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Frame{}, fmt.Errorf("empty frame")
	}
	token := strings.TrimPrefix(strings.TrimPrefix(fields[0], "0x"), "0X")
	addr, err := strconv.ParseUint(token, 16, 64)
	if err != nil {
		return Frame{}, fmt.Errorf("invalid frame address %q: %w", fields[0], err)
	}
	return Frame{
		Address:    addr,
		Module:     strings.Join(fields[1:], " "),
		MainThread: true,
		Text:       strings.TrimSpace(line),
	}, nil
}
