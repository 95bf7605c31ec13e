package session

import (
	"bufio"
	"context"
	"io"
)

// Lines longer than this fail the read instead of being split
const maxLineSize = 1024 * 1024

type lineResult struct {
	text string
	err  error
}

// lineReader reads lines on a separate goroutine so that waiting for input can be abandoned when the context is
// cancelled. A goroutine blocked reading the terminal is left behind until the process exits.
type lineReader struct {
	lines chan lineResult
	stop  chan struct{}
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{
		lines: make(chan lineResult),
		stop:  make(chan struct{}),
	}
	go lr.read(r)
	return lr
}

func (lr *lineReader) read(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		select {
		case lr.lines <- lineResult{text: scanner.Text()}:
		case <-lr.stop:
			return
		}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	select {
	case lr.lines <- lineResult{err: err}:
	case <-lr.stop:
	}
}

// Next blocks until a line is read, input ends (io.EOF), or ctx is done
func (lr *lineReader) Next(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-lr.lines:
		return res.text, res.err
	}
}

func (lr *lineReader) Close() {
	close(lr.stop)
}
