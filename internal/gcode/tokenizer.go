package gcode

import (
	tstrconv "github.com/tdewolff/parse/v2/strconv"
)

// Word is a single address/value pair such as X12.5 or G1.
type Word struct {
	Letter byte
	Value  float64
}

// Block is the ordered list of words found on one line.
type Block []Word

// Tokenize splits a code fragment into words. Letters are case-insensitive.
// A letter not immediately followed by a number is skipped, as is anything
// that is not a letter, so the tokenizer never fails.
func Tokenize(fragment string) Block {
	var block Block
	for i := 0; i < len(fragment); {
		letter := upper(fragment[i])
		if letter < 'A' || letter > 'Z' {
			i++
			continue
		}

		start := i + 1
		end := scanNumber(fragment, start)
		if end == start {
			i++
			continue
		}

		value, n := tstrconv.ParseFloat([]byte(fragment[start:end]))
		if n == end-start {
			block = append(block, Word{Letter: letter, Value: value})
		}
		i = end
	}
	return block
}

// Value returns the first value for letter.
func (b Block) Value(letter byte) (float64, bool) {
	for _, w := range b {
		if w.Letter == letter {
			return w.Value, true
		}
	}
	return 0, false
}

// Motion returns the kind of the first G0/G1 word on the block.
func (b Block) Motion() (Kind, bool) {
	for _, w := range b {
		if w.Letter != 'G' {
			continue
		}
		switch w.Value {
		case 0:
			return Rapid, true
		case 1:
			return Linear, true
		}
	}
	return 0, false
}

// scanNumber returns the end of a [sign]digits[.digits] run starting at i,
// or i when there is none. Exponents are not accepted: E is a word letter.
func scanNumber(s string, i int) int {
	j := i
	if j < len(s) && (s[j] == '+' || s[j] == '-') {
		j++
	}
	digits := 0
	for j < len(s) && isDigit(s[j]) {
		j++
		digits++
	}
	if j < len(s) && s[j] == '.' {
		j++
		for j < len(s) && isDigit(s[j]) {
			j++
			digits++
		}
	}
	if digits == 0 {
		return i
	}
	return j
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
