// Package stream frames raw VAPIX metadata streams into single messages and
// feeds captured stream files to a handler.
package stream

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"regexp"
)

// MaxMessageSize bounds one framed message. Larger documents fail Split.
const MaxMessageSize = 1 << 20

var (
	openTag  = regexp.MustCompile(`<([A-Za-z_][\w.-]*:)?MetadataStream[\s/>]`)
	closeTag = regexp.MustCompile(`</([A-Za-z_][\w.-]*:)?MetadataStream\s*>`)
	xmlDecl  = []byte("<?xml")
)

// ScanMessages is a bufio.SplitFunc yielding one MetadataStream document per
// token, including its XML declaration when present. Bytes between
// documents, such as multipart boundaries and part headers, are dropped. At
// EOF an unterminated document is returned as-is.
func ScanMessages(data []byte, atEOF bool) (int, []byte, error) {
	open := openTag.FindIndex(data)
	if open == nil {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a tail that may hold the start of the next opening tag.
		if len(data) > junkTail {
			return len(data) - junkTail, nil, nil
		}
		return 0, nil, nil
	}

	start := open[0]
	if i := bytes.LastIndex(data[:start], xmlDecl); i >= 0 {
		start = i
	}

	body := data[open[0]:]
	gt := bytes.IndexByte(body, '>')
	switch {
	case gt < 0:
		// Opening tag not complete yet.
	case body[gt-1] == '/':
		stop := open[0] + gt + 1
		return stop, data[start:stop], nil
	default:
		if end := closeTag.FindIndex(body); end != nil {
			stop := open[0] + end[1]
			return stop, data[start:stop], nil
		}
	}

	if atEOF {
		return len(data), data[start:], nil
	}
	return start, nil, nil
}

// junkTail is how much unmatched input ScanMessages keeps between documents.
const junkTail = 128

// Split calls fn for every message framed from r. The slice passed to fn is
// only valid until fn returns. An error from fn stops the split.
func Split(r io.Reader, fn func([]byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	scanner.Split(ScanMessages)

	for scanner.Scan() {
		if err := fn(scanner.Bytes()); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("frame messages: %w", err)
	}
	return nil
}

// SplitComplete is Split for input that may still be growing. Only terminated
// documents reach fn; a trailing partial document is left unread. It returns
// the number of bytes consumed, which is where the next call should resume.
func SplitComplete(r io.Reader, fn func([]byte) error) (int64, error) {
	var consumed int64
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxMessageSize)
	scanner.Split(func(data []byte, _ bool) (int, []byte, error) {
		advance, token, err := ScanMessages(data, false)
		consumed += int64(advance)
		return advance, token, err
	})

	for scanner.Scan() {
		if err := fn(scanner.Bytes()); err != nil {
			return consumed, err
		}
	}
	if err := scanner.Err(); err != nil {
		return consumed, fmt.Errorf("frame messages: %w", err)
	}
	return consumed, nil
}

// Messages returns copies of all messages framed from b.
func Messages(b []byte) ([][]byte, error) {
	var out [][]byte
	err := Split(bytes.NewReader(b), func(msg []byte) error {
		out = append(out, bytes.Clone(msg))
		return nil
	})
	return out, err
}
