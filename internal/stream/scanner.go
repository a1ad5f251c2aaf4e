// Package stream implements the incremental ingestion front end: a resumable
// scanner that finds top-level object boundaries inside a streamed JSON
// array, a best-effort header sniffer over in-progress object text, a record
// parser, and a driver that feeds all three from an io.Reader.
package stream

import "bytes"

// Scanner identifies complete top-level JSON objects inside a top-level
// array fed to it in arbitrary chunks. It is a character state machine, not
// a JSON parser: it tracks string/escape state and brace depth so that
// structural characters inside string literals never affect nesting, and it
// tolerates any fragmentation of the input, including chunk boundaries in
// the middle of an escape sequence.
//
// Memory is bounded by the largest single object: once an object closes,
// everything up to and including it is discarded; while an object is open
// its start anchors the retained buffer.
type Scanner struct {
	buf          []byte
	scanIndex    int
	started      bool // top-level '[' seen
	finished     bool // matching top-level ']' seen
	inObject     bool
	inString     bool
	escape       bool
	depth        int
	objectStart  int
	lastConsumed int
}

// Push appends a chunk and returns the raw spans of all objects completed
// by it, in input order. Returned spans are copies and remain valid after
// further pushes. Input before the top-level '[' and after the matching ']'
// is ignored.
func (s *Scanner) Push(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}
	s.buf = append(s.buf, chunk...)
	return s.process(false)
}

// Finish flushes terminal state. An object left open at end of input is
// incomplete and is discarded.
func (s *Scanner) Finish() {
	s.process(true)
}

// Pending returns the buffered raw text of the object currently being
// captured, or nil when the scanner is between objects. The returned slice
// aliases internal state and is only valid until the next Push.
func (s *Scanner) Pending() []byte {
	if !s.inObject {
		return nil
	}
	return s.buf[s.objectStart:]
}

func (s *Scanner) process(flush bool) [][]byte {
	var spans [][]byte

	for i := s.scanIndex; i < len(s.buf); i++ {
		c := s.buf[i]

		if s.finished {
			s.lastConsumed = i + 1
			continue
		}

		if !s.started {
			if c == '[' {
				s.started = true
				s.lastConsumed = i + 1
			}
			continue
		}

		if !s.inObject {
			switch c {
			case '{':
				s.inObject = true
				s.depth = 1
				s.inString = false
				s.escape = false
				s.objectStart = i
			case ']':
				// Top-level array closed; everything after is ignored.
				s.finished = true
				s.lastConsumed = i + 1
			}
			continue
		}

		if s.inString {
			switch {
			case s.escape:
				s.escape = false
			case c == '\\':
				s.escape = true
			case c == '"':
				s.inString = false
			}
			continue
		}

		switch c {
		case '"':
			s.inString = true
		case '{':
			s.depth++
		case '}':
			s.depth--
			if s.depth == 0 {
				spans = append(spans, bytes.Clone(s.buf[s.objectStart:i+1]))
				s.inObject = false
				s.lastConsumed = i + 1
			}
		}
	}

	s.scanIndex = len(s.buf)

	if flush && s.inObject {
		// End of input with an object still open: it is incomplete and
		// will never close, so drop it.
		s.inObject = false
		s.lastConsumed = len(s.buf)
	}

	// Trim the retained buffer. An open object anchors it at the object
	// start; otherwise everything consumed so far is discardable.
	switch {
	case s.inObject:
		if s.objectStart > 0 {
			n := copy(s.buf, s.buf[s.objectStart:])
			s.buf = s.buf[:n]
			s.scanIndex = max(0, s.scanIndex-s.objectStart)
			s.objectStart = 0
		}
		s.lastConsumed = 0
	case s.lastConsumed > 0:
		n := copy(s.buf, s.buf[s.lastConsumed:])
		s.buf = s.buf[:n]
		s.scanIndex = max(0, s.scanIndex-s.lastConsumed)
		s.lastConsumed = 0
	case flush:
		s.buf = s.buf[:0]
		s.scanIndex = 0
	}

	return spans
}
