package tty

import (
	"bufio"
	"io"
)

// key is a decoded keypress.
type key int

const (
	keyNone key = iota
	keyUp
	keyDown
	keyLeft
	keyRight
	keyEnter
	keyPrevMonth
	keyNextMonth
	keyToday
	keyReset
	keyQuit
)

const escape = 0x1b

// readKey reads one keypress from r. Unknown input decodes to keyNone.
func readKey(r *bufio.Reader) (key, error) {
	c, err := r.ReadByte()
	if err != nil {
		return keyNone, err
	}

	switch c {
	case escape:
		// A lone Escape has nothing buffered behind it.
		if r.Buffered() == 0 {
			return keyQuit, nil
		}
		return readEscape(r)
	case '\r', '\n', ' ':
		return keyEnter, nil
	case 'k':
		return keyUp, nil
	case 'j':
		return keyDown, nil
	case 'h':
		return keyLeft, nil
	case 'l':
		return keyRight, nil
	case '[', '<', 'p':
		return keyPrevMonth, nil
	case ']', '>', 'n':
		return keyNextMonth, nil
	case 't':
		return keyToday, nil
	case 'r', 0x7f, 0x08:
		return keyReset, nil
	case 'q', 0x03, 0x04: // q, Ctrl-C, Ctrl-D
		return keyQuit, nil
	}
	return keyNone, nil
}

// readEscape decodes the CSI sequence following an Escape byte.
func readEscape(r *bufio.Reader) (key, error) {
	c, err := r.ReadByte()
	if err != nil {
		return keyNone, err
	}
	if c != '[' && c != 'O' {
		return keyNone, nil
	}

	c, err = r.ReadByte()
	if err != nil {
		return keyNone, err
	}
	switch c {
	case 'A':
		return keyUp, nil
	case 'B':
		return keyDown, nil
	case 'C':
		return keyRight, nil
	case 'D':
		return keyLeft, nil
	case 'H':
		return keyToday, nil
	case '5', '6':
		// Page Up / Page Down end in '~'
		if next, err := r.ReadByte(); err != nil || next != '~' {
			return keyNone, err
		}
		if c == '5' {
			return keyPrevMonth, nil
		}
		return keyNextMonth, nil
	}
	return keyNone, nil
}

// readKeys decodes keypresses from in, sending them on keys, until reading
// fails or done is closed. keys is closed when reading stops. A read already
// blocked on in only notices done after the next keypress.
func readKeys(in io.Reader, keys chan<- key, done <-chan struct{}) {
	defer close(keys)
	r := bufio.NewReader(in)
	for {
		k, err := readKey(r)
		if err != nil {
			return
		}
		if k == keyNone {
			continue
		}
		select {
		case keys <- k:
		case <-done:
			return
		}
	}
}
