/*
Package proto pulls HTTP/1.x request signals out of a single TCP payload.

Nothing here parses HTTP properly: the payload is searched for a method
keyword and a CRLF, which is enough to recover the request path and one
header line from the first segment of a request. No reassembly is done.
*/
package proto

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/vearne/lwsniffer/util"
)

// ErrNotFound is returned when the payload carries no usable request line or header.
var ErrNotFound = errors.New("not found")

var crlf = []byte("\r\n")

// methods are tried in this order; the first keyword present wins even
// when a later one occurs at a smaller offset.
var methods = [][]byte{
	[]byte("GET"),
	[]byte("POST"),
	[]byte("PUT"),
	[]byte("DELETE"),
}

// ExtractResource returns the second space-separated token of the request line,
// e.g. "/status" for "GET /status HTTP/1.1".
func ExtractResource(payload []byte) (string, error) {
	start := -1
	for _, m := range methods {
		if idx, ok := util.Find(payload, m); ok {
			start = idx
			break
		}
	}
	if start < 0 {
		return "", errors.Wrap(ErrNotFound, "http method")
	}

	// the terminator is searched over the whole payload, not after the method
	end, ok := util.Find(payload, crlf)
	if !ok {
		return "", errors.Wrap(ErrNotFound, "request line terminator")
	}
	if end < start {
		return "", errors.Wrap(ErrNotFound, "terminator before method")
	}

	tokens := strings.Split(util.LossyString(payload[start:end]), " ")
	if len(tokens) < 2 {
		return "", errors.Wrap(ErrNotFound, "resource")
	}
	return tokens[1], nil
}

// ExtractHeader returns the raw "Name: value" line starting at the first
// occurrence of name. The terminator is searched from the match onwards.
func ExtractHeader(payload, name []byte) (string, error) {
	start, ok := util.Find(payload, name)
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "header %q", name)
	}
	end, ok := util.Find(payload[start:], crlf)
	if !ok {
		return "", errors.Wrapf(ErrNotFound, "header %q terminator", name)
	}
	return util.LossyString(payload[start : start+end]), nil
}

// LinkedKey holds the three spellings of the correlation header that are tried in turn.
type LinkedKey struct {
	variants [][]byte
}

// NewLinkedKey prepares name verbatim, upper-cased and lower-cased.
// An empty name disables extraction.
func NewLinkedKey(name string) *LinkedKey {
	var k LinkedKey
	if name == "" {
		return &k
	}
	k.variants = [][]byte{
		[]byte(name),
		[]byte(strings.ToUpper(name)),
		[]byte(strings.ToLower(name)),
	}
	return &k
}

// Extract returns the first successful header match, or "" if none of the
// spellings is present.
func (k *LinkedKey) Extract(payload []byte) string {
	for _, v := range k.variants {
		if line, err := ExtractHeader(payload, v); err == nil {
			return line
		}
	}
	return ""
}
