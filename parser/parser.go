// Package parser implements a hand-written recursive-descent reader for
// the mini-grammar 07.07 result lines are written in: quoted and
// unquoted strings, integers, ranges, parenthesised lists of each, and
// the two-level ("<name>",(low-high)) "parameter range" lists some test
// commands report their capabilities in.
package parser

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ParserError reports a malformed 07.07 result line, mirroring the
// ParserError kind of the adapter's error taxonomy.
type ParserError struct {
	Message  string
	Position int
	Input    string
}

func (e ParserError) Error() string {
	if e.Message == "" {
		return errors.Errorf("parser: unexpected end of string %q", e.Input).Error()
	}
	return errors.Errorf("parser: %s (at position %d of %q)", e.Message, e.Position, e.Input).Error()
}

// IntRange is a closed integer interval, as parsed from "(low-high)" or a
// bare "(n)".
type IntRange struct {
	Low, High int
}

// ParameterRange names one capability's valid integer range, in the
// ("<name>",(low-high)) form of a parameter range list entry.
type ParameterRange struct {
	Parameter string
	Range     IntRange
}

// Parser reads one 07.07 result line, left to right, with one character
// of pushback.
type Parser struct {
	s          string
	i          int
	eos        bool
	lastWasEOF bool
	pushedBack bool
}

// New returns a Parser over s.
func New(s string) *Parser {
	return &Parser{s: s}
}

func (p *Parser) nextChar(skipWhiteSpace bool) int {
	if p.pushedBack {
		p.pushedBack = false
		return int(p.s[p.i-1])
	}
	if skipWhiteSpace {
		for p.i < len(p.s) && unicode.IsSpace(rune(p.s[p.i])) {
			p.i++
		}
	}
	if p.i >= len(p.s) {
		p.eos = true
		p.lastWasEOF = true
		return -1
	}
	p.lastWasEOF = false
	c := p.s[p.i]
	p.i++
	return int(c)
}

// putBackChar un-reads the last character returned by nextChar. Only one
// level of pushback is supported, matching every call site's usage. A
// char returned because the input was exhausted can't be pushed back:
// the next nextChar call will see end-of-string again on its own.
func (p *Parser) putBackChar() {
	if p.i > 0 && !p.lastWasEOF {
		p.pushedBack = true
	}
}

func (p *Parser) fail(message string) error {
	return ParserError{Message: message, Position: p.i, Input: p.s}
}

// checkEmptyParameter reports whether the next field is empty (a bare
// comma or end of string). If allowed, it leaves the parser positioned
// before the comma/EOS and returns true; otherwise it errors.
func (p *Parser) checkEmptyParameter(allowNoParameter bool) (bool, error) {
	c := p.nextChar(true)
	if c == ',' || c == -1 {
		p.putBackChar()
		if allowNoParameter {
			return true, nil
		}
		return false, p.fail("expected parameter")
	}
	p.putBackChar()
	return false, nil
}

// ParseChar consumes the next non-space character if it equals c. When
// allowNoChar is true and it doesn't match, the character is pushed back
// and ParseChar returns false instead of erroring.
func (p *Parser) ParseChar(c byte, allowNoChar bool) (bool, error) {
	got := p.nextChar(true)
	if got != int(c) {
		p.putBackChar()
		if allowNoChar {
			return false, nil
		}
		return false, p.fail("expected '" + string(c) + "'")
	}
	return true, nil
}

// ParseComma consumes a comma, the field separator used throughout
// 07.07 result lines.
func (p *Parser) ParseComma(allowNoComma ...bool) (bool, error) {
	allow := len(allowNoComma) > 0 && allowNoComma[0]
	c := p.nextChar(true)
	if c != ',' {
		p.putBackChar()
		if allow {
			return false, nil
		}
		return false, p.fail("expected comma")
	}
	return true, nil
}

// ParseString parses a single string parameter: either a double-quoted
// string (returned without its quotes) or, lacking quotes, everything
// up to the next ',' or ')'.
func (p *Parser) ParseString(opts ...StringOption) (string, error) {
	cfg := stringConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	empty, err := p.checkEmptyParameter(cfg.allowEmpty)
	if err != nil {
		return "", err
	}
	if empty {
		return "", nil
	}
	return p.parseStringBody(cfg.withQuotes)
}

func (p *Parser) parseStringBody(withQuotationMarks bool) (string, error) {
	quoted, err := p.ParseChar('"', true)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if quoted {
		if withQuotationMarks {
			for {
				c := p.nextChar(false)
				if c == -1 {
					break
				}
				b.WriteByte(byte(c))
			}
			s := b.String()
			if len(s) == 0 || s[len(s)-1] != '"' {
				return "", p.fail(`expected '"'`)
			}
			return s[:len(s)-1], nil
		}
		for {
			c := p.nextChar(false)
			if c == -1 {
				return "", p.fail("")
			}
			if c == '"' {
				break
			}
			b.WriteByte(byte(c))
		}
		return b.String(), nil
	}
	c := p.nextChar(false)
	for c != ',' && c != ')' && c != -1 {
		b.WriteByte(byte(c))
		c = p.nextChar(false)
	}
	if c == ',' || c == ')' {
		p.putBackChar()
	}
	return b.String(), nil
}

// StringOption configures ParseString.
type StringOption func(*stringConfig)

type stringConfig struct {
	allowEmpty bool
	withQuotes bool
}

// AllowEmptyString permits an absent string parameter, returning "".
func AllowEmptyString() StringOption { return func(c *stringConfig) { c.allowEmpty = true } }

// WithQuotationMarks reads a quoted string to end of line rather than
// stopping at the next quote, for fields that may themselves contain
// quote or comma characters. The opening quote and the final closing
// quote are stripped; the line must end in a closing quote.
func WithQuotationMarks() StringOption { return func(c *stringConfig) { c.withQuotes = true } }

// ParseInt parses a decimal integer parameter.
func (p *Parser) ParseInt(allowNoInt ...bool) (int, error) {
	allow := len(allowNoInt) > 0 && allowNoInt[0]
	empty, err := p.checkEmptyParameter(allow)
	if err != nil {
		return 0, err
	}
	if empty {
		return 0, nil
	}
	return p.parseIntBody()
}

func (p *Parser) parseIntBody() (int, error) {
	var b strings.Builder
	c := p.nextChar(true)
	for c != -1 && c >= '0' && c <= '9' {
		b.WriteByte(byte(c))
		c = p.nextChar(false)
	}
	p.putBackChar()
	if b.Len() == 0 {
		return 0, p.fail("expected number")
	}
	n, err := strconv.Atoi(b.String())
	if err != nil {
		return 0, p.fail("expected number")
	}
	return n, nil
}

// ParseRange parses "(low-high)" or, when allowNonRange is true, a bare
// "(n)" or "n" as the degenerate range [n,n]. A reversed range like
// "(5-3)" is normalised to [3,5].
func (p *Parser) ParseRange(allowNoRange, allowNonRange, allowNoParentheses bool) (IntRange, error) {
	var result IntRange
	empty, err := p.checkEmptyParameter(allowNoRange)
	if err != nil {
		return result, err
	}
	if empty {
		return result, nil
	}
	expectClosingParen, err := p.ParseChar('(', allowNoParentheses)
	if err != nil {
		return result, err
	}
	low, err := p.parseIntBody()
	if err != nil {
		return result, err
	}
	result.Low, result.High = low, low
	hasDash, err := p.ParseChar('-', allowNonRange)
	if err != nil {
		return result, err
	}
	if hasDash {
		high, err := p.parseIntBody()
		if err != nil {
			return result, err
		}
		result.High = high
	}
	if expectClosingParen {
		if _, err := p.ParseChar(')', false); err != nil {
			return result, err
		}
	}
	if result.Low > result.High {
		result.Low, result.High = result.High, result.Low
	}
	return result, nil
}

// ParseIntList parses a bitmap-style integer list: either a parenthesised
// comma/range list such as "(0-4,7)" or, as some TAs emit for a
// single-element list, a bare integer with no parentheses at all. The
// result is a bitmap whose length is one past the largest value seen.
//
// This runs the body in two passes, exactly as the list's maximum index
// isn't known until the whole list has been read, and the bitmap must be
// sized before any bit can be set.
func (p *Parser) ParseIntList(allowNoList, allowNoParentheses bool) ([]bool, error) {
	var result []bool
	empty, err := p.checkEmptyParameter(allowNoList)
	if err != nil {
		return nil, err
	}
	if empty {
		return result, nil
	}

	saveI, savePushed := p.i, p.pushedBack
	c := p.nextChar(true)
	if c >= '0' && c <= '9' {
		p.putBackChar()
		n, err := p.parseIntBody()
		if err != nil {
			return nil, err
		}
		result = make([]bool, n+1)
		result[n] = true
		return result, nil
	}
	p.putBackChar()

	resultCapacity := 0
	isRange := false
	for pass := 0; pass < 2; pass++ {
		if pass == 1 {
			p.i = saveI
			p.pushedBack = savePushed
			result = make([]bool, resultCapacity+1)
		}
		isRange = false

		expectClosingParen, err := p.ParseChar('(', allowNoParentheses)
		if err != nil {
			return nil, err
		}
		nc := p.nextChar(true)
		atEnd := (expectClosingParen && nc == ')') || (!expectClosingParen && nc == -1)
		if atEnd {
			continue
		}
		p.putBackChar()

		lastInt := -1
		for {
			thisInt, err := p.parseIntBody()
			if err != nil {
				return nil, err
			}
			if isRange {
				lo, hi := lastInt, thisInt
				if lo > hi {
					lo, hi = hi, lo
				}
				for i := lo; i < hi; i++ {
					if i > resultCapacity {
						resultCapacity = i
					}
					if pass == 1 {
						result[i] = true
					}
				}
			}
			if thisInt > resultCapacity {
				resultCapacity = thisInt
			}
			if pass == 1 {
				result[thisInt] = true
			}
			lastInt = thisInt

			c := p.nextChar(true)
			if (expectClosingParen && c == ')') || (!expectClosingParen && c == -1) {
				break
			}
			if c == -1 {
				return nil, p.fail("")
			}
			if c != ',' && c != '-' {
				return nil, p.fail("expected ')', ',' or '-'")
			}
			if c == ',' {
				isRange = false
			} else {
				if isRange {
					return nil, p.fail("range of the form a-b-c not allowed")
				}
				isRange = true
			}
		}
	}
	return result, nil
}

// ParseStringList parses a parenthesised, comma-separated list of string
// parameters such as ("SM","SR").
func (p *Parser) ParseStringList(allowNoList, allowNoParentheses bool) ([]string, error) {
	var result []string
	empty, err := p.checkEmptyParameter(allowNoList)
	if err != nil {
		return nil, err
	}
	if empty {
		return result, nil
	}

	expectClosingParen, err := p.ParseChar('(', allowNoParentheses)
	if err != nil {
		return nil, err
	}
	c := p.nextChar(true)
	if c == ')' {
		return result, nil
	}
	p.putBackChar()
	for {
		s, err := p.ParseString()
		if err != nil {
			return nil, err
		}
		result = append(result, s)
		c := p.nextChar(true)
		if c == ')' {
			break
		}
		if c == -1 {
			if expectClosingParen {
				return nil, p.fail("")
			}
			break
		}
		if c != ',' {
			return nil, p.fail("expected ')' or ','")
		}
	}
	return result, nil
}

// ParseParameterRange parses a single "(\"name\",(low-high))" entry.
func (p *Parser) ParseParameterRange(allowNoParameterRange ...bool) (ParameterRange, error) {
	allow := len(allowNoParameterRange) > 0 && allowNoParameterRange[0]
	var result ParameterRange
	empty, err := p.checkEmptyParameter(allow)
	if err != nil {
		return result, err
	}
	if empty {
		return result, nil
	}
	if _, err := p.ParseChar('(', false); err != nil {
		return result, err
	}
	name, err := p.ParseString()
	if err != nil {
		return result, err
	}
	result.Parameter = name
	if _, err := p.ParseComma(); err != nil {
		return result, err
	}
	r, err := p.ParseRange(false, true, true)
	if err != nil {
		return result, err
	}
	result.Range = r
	if _, err := p.ParseChar(')', false); err != nil {
		return result, err
	}
	return result, nil
}

// ParseParameterRangeList parses a comma-separated series of
// ParameterRange entries such as ("mode",(0-3)),("mt",(0-2)).
func (p *Parser) ParseParameterRangeList(allowNoList bool) ([]ParameterRange, error) {
	var result []ParameterRange
	empty, err := p.checkEmptyParameter(allowNoList)
	if err != nil {
		return nil, err
	}
	if empty {
		return result, nil
	}
	first, err := p.ParseParameterRange()
	if err != nil {
		return nil, err
	}
	result = append(result, first)
	for {
		more, err := p.ParseComma(true)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
		next, err := p.ParseParameterRange()
		if err != nil {
			return nil, err
		}
		result = append(result, next)
	}
	return result, nil
}

// CheckEol errors unless the parser is positioned at the end of its
// input.
func (p *Parser) CheckEol() error {
	c := p.nextChar(true)
	if c != -1 {
		p.putBackChar()
		return p.fail("expected end of line")
	}
	return nil
}

// ParseEol consumes and returns everything remaining in the input.
func (p *Parser) ParseEol() string {
	var b strings.Builder
	for {
		c := p.nextChar(false)
		if c == -1 {
			break
		}
		b.WriteByte(byte(c))
	}
	return b.String()
}

// PeekEol returns everything remaining in the input without consuming it.
func (p *Parser) PeekEol() string {
	saveI, saveEos, savePushed := p.i, p.eos, p.pushedBack
	s := p.ParseEol()
	p.i, p.eos, p.pushedBack = saveI, saveEos, savePushed
	return s
}
