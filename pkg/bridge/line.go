package bridge

// LineBuffer accumulates bytes from a serial stream into lines.
// It never allocates: lines longer than the buffer are discarded whole.
type LineBuffer struct {
	buf      [MaxLineLength]byte
	pos      int
	overflow bool
}

// Feed consumes one byte. When b terminates a non-empty line, the line (without
// terminator) is returned with ok set; it stays valid until the next Feed.
// Carriage returns and line feeds both terminate, so CRLF yields one line.
func (l *LineBuffer) Feed(b byte) (line []byte, ok bool, err error) {
	if b == '\n' || b == '\r' {
		n, overflow := l.pos, l.overflow
		l.pos = 0
		l.overflow = false
		if overflow {
			return nil, false, ErrLineTooLong
		}
		if n == 0 {
			return nil, false, nil
		}
		return l.buf[:n], true, nil
	}

	if l.pos == len(l.buf) {
		// Drop everything until the terminator
		l.overflow = true
		return nil, false, nil
	}

	l.buf[l.pos] = b
	l.pos++
	return nil, false, nil
}

// Reset discards any partial line.
func (l *LineBuffer) Reset() {
	l.pos = 0
	l.overflow = false
}
