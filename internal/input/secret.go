package input

import (
	"sync"
	"unicode/utf8"
)

// SecretBuffer holds the typed secret as UTF-8. Every byte is zeroed before
// it is dropped.
type SecretBuffer struct {
	mu   sync.Mutex
	data []byte
}

// NewSecretBuffer creates an empty buffer
func NewSecretBuffer() *SecretBuffer {
	return &SecretBuffer{
		data: make([]byte, 0, 64),
	}
}

// Append adds a character to the secret
func (s *SecretBuffer) Append(r rune) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := utf8.RuneLen(r)
	if n < 0 {
		r, n = utf8.RuneError, utf8.RuneLen(utf8.RuneError)
	}
	if len(s.data)+n > cap(s.data) {
		s.grow(len(s.data) + n)
	}
	s.data = utf8.AppendRune(s.data, r)
}

// grow moves the secret into a larger array and zeroes the old one, so no
// copy is left behind for the garbage collector.
func (s *SecretBuffer) grow(need int) {
	grown := make([]byte, len(s.data), max(need, 2*cap(s.data)))
	copy(grown, s.data)
	clear(s.data[:cap(s.data)])
	s.data = grown
}

// RemoveLast removes the last character. It does nothing on an empty buffer.
func (s *SecretBuffer) RemoveLast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return
	}
	_, size := utf8.DecodeLastRune(s.data)
	end := len(s.data) - size
	for i := end; i < len(s.data); i++ {
		s.data[i] = 0
	}
	s.data = s.data[:end]
}

// Clear wipes the secret
func (s *SecretBuffer) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.data)
	s.data = s.data[:0]
}

// String returns a copy of the secret (use carefully)
func (s *SecretBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.data)
}

// Len returns the number of characters typed
func (s *SecretBuffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return utf8.RuneCount(s.data)
}

// Empty reports whether nothing has been typed
func (s *SecretBuffer) Empty() bool {
	return s.Len() == 0
}
