package serial

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

// maxLine bounds a partial line kept between reads.
const maxLine = 512

// Line is one debug line from the firmware.
type Line struct {
	Text string
	// Tag is the bracketed subsystem prefix such as "REC", or empty.
	Tag string
}

// ParseLine splits the subsystem tag off a debug line.
func ParseLine(s string) Line {
	s = strings.TrimRight(s, "\r")
	if strings.HasPrefix(s, "[") {
		if end := strings.IndexByte(s, ']'); end > 1 {
			return Line{Text: strings.TrimSpace(s[end+1:]), Tag: s[1:end]}
		}
	}
	return Line{Text: s}
}

// Monitor reads lines from r and calls fn for each until ctx is done or
// r fails. Read timeouts that return no data are not errors.
func Monitor(ctx context.Context, r io.Reader, fn func(Line)) error {
	buf := make([]byte, 256)
	var pending []byte
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			pending = append(pending, buf[:n]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				fn(ParseLine(string(pending[:i])))
				pending = pending[i+1:]
			}
			if len(pending) > maxLine {
				fn(ParseLine(string(pending)))
				pending = pending[:0]
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(pending) > 0 {
					fn(ParseLine(string(pending)))
				}
				return nil
			}
			return err
		}
	}
}
