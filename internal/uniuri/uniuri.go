package uniuri

import "crypto/rand"

// StdLen is the default length of a generated string, giving ~95 bits of entropy.
const StdLen = 16

// StdChars is the default alphabet: unpadded alphanumerics.
var StdChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789")

// SecretChars is the alphabet used for bearer secrets: letters, digits and a
// small punctuation set safe for HTTP header transport.
var SecretChars = []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-.")

// New returns a random string of the standard length over the standard alphabet.
func New() string {
	return NewLenChars(StdLen, StdChars)
}

// NewLen returns a random string of the given length over the standard alphabet.
func NewLen(length int) string {
	return NewLenChars(length, StdChars)
}

// NewLenChars returns a random string of the given length drawn from chars.
// Bytes from crypto/rand are rejection-sampled so every character of the
// alphabet is equally likely (no modulo bias).
func NewLenChars(length int, chars []byte) string {
	if length == 0 {
		return ""
	}

	clen := len(chars)
	if clen < 2 || clen > 256 {
		panic("uniuri: alphabet must contain between 2 and 256 characters")
	}

	// highest byte value usable without bias
	maxrb := 255 - (256 % clen)

	out := make([]byte, length)
	buf := make([]byte, length+(length/4)+16)

	i := 0

	for {
		if _, err := rand.Read(buf); err != nil {
			panic("uniuri: crypto/rand failed: " + err.Error())
		}

		for _, b := range buf {
			if int(b) > maxrb {
				continue
			}

			out[i] = chars[int(b)%clen]
			i++

			if i == length {
				return string(out)
			}
		}
	}
}
