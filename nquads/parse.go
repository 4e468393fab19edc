package nquads

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	types "github.com/underlay/canonize/types"
)

// ErrInvalidQuad is wrapped by every ParseError for a line that is not a quad
var ErrInvalidQuad = errors.New("invalid quad")

// ErrInvalidEscape is wrapped by ParseErrors for malformed \u or \U escapes
var ErrInvalidEscape = errors.New("invalid escape sequence")

// ParseError reports the line on which N-Quads parsing failed
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("error while parsing N-Quads on line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MaxLineSize bounds the length of a single N-Quads line
const MaxLineSize = 16 << 20

const (
	wso = "[ \\t]*"
	iri = "(?:<([^:]+:[^>]*)>)"

	// https://www.w3.org/TR/n-quads/#grammar-production-BLANK_NODE_LABEL

	pnCharsBase = "A-Z" + "a-z" +
		"\u00C0-\u00D6" +
		"\u00D8-\u00F6" +
		"\u00F8-\u02FF" +
		"\u0370-\u037D" +
		"\u037F-\u1FFF" +
		"\u200C-\u200D" +
		"\u2070-\u218F" +
		"\u2C00-\u2FEF" +
		"\u3001-\uD7FF" +
		"\uF900-\uFDCF" +
		"\uFDF0-\uFFFD" +
		"\U00010000-\U000EFFFF"

	pnCharsU = pnCharsBase + "_"

	pnChars = pnCharsU +
		"0-9" +
		"\\-" +
		"\u00B7" +
		"\u0300-\u036F" +
		"\u203F-\u2040"

	bnode = "(_:" +
		"(?:[" + pnCharsU + "0-9])" +
		"(?:(?:[" + pnChars + ".])*(?:[" + pnChars + "]))?" +
		")"

	plain    = "\"([^\"\\\\]*(?:\\\\.[^\"\\\\]*)*)\""
	datatype = "(?:\\^\\^" + iri + ")"
	language = "(?:@([a-zA-Z]+(?:-[a-zA-Z0-9]+)*))"
	literal  = "(?:" + plain + "(?:" + datatype + "|" + language + ")?)"
	ws       = "[ \\t]+"
	comment  = "(?:#.*)?"

	subject  = "(?:" + iri + "|" + bnode + ")" + ws
	property = "(?:" + iri + "|" + bnode + ")" + ws
	object   = "(?:" + iri + "|" + bnode + "|" + literal + ")" + wso
	graph    = "(?:\\.|(?:(?:" + iri + "|" + bnode + ")" + wso + "\\.))"
)

var regexEmpty = regexp.MustCompile("^" + wso + comment + "$")

// full quad regex

var regexQuad = regexp.MustCompile("^" + wso + subject + property + object + graph + wso + comment + "$")

// Parse reads N-Quads from input. Exact duplicate quads are dropped,
// keeping the first occurrence, so each graph holds a set of statements.
func Parse(input io.Reader) (types.Dataset, error) {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)

	dataset := types.Dataset{}

	lineNumber := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNumber++

		// skip empty lines
		if regexEmpty.MatchString(line) {
			continue
		}

		match := regexQuad.FindStringSubmatch(line)
		if match == nil {
			return nil, &ParseError{Line: lineNumber, Err: ErrInvalidQuad}
		}

		quad, err := parseMatch(match)
		if err != nil {
			return nil, &ParseError{Line: lineNumber, Err: err}
		}

		dataset = append(dataset, quad)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading N-Quads")
	}

	return dataset.Dedupe(), nil
}

// ParseString parses N-Quads from a string
func ParseString(input string) (types.Dataset, error) {
	return Parse(strings.NewReader(input))
}

func parseMatch(match []string) (quad types.Quad, err error) {
	resource := func(iriGroup, bnodeGroup int) (types.Term, error) {
		if match[iriGroup] != "" {
			value, err := unescape(match[iriGroup])
			return types.NewIRI(value), err
		}
		return types.NewBlankNode(match[bnodeGroup]), nil
	}

	if quad.Subject, err = resource(1, 2); err != nil {
		return
	}

	if quad.Predicate, err = resource(3, 4); err != nil {
		return
	}

	if match[5] != "" || match[6] != "" {
		if quad.Object, err = resource(5, 6); err != nil {
			return
		}
	} else {
		var value, dt string
		if value, err = unescape(match[7]); err != nil {
			return
		}
		if match[8] != "" {
			if dt, err = unescape(match[8]); err != nil {
				return
			}
		}
		quad.Object = types.NewLiteral(value, dt, match[9])
	}

	quad.Graph = types.Default
	if match[10] != "" || match[11] != "" {
		quad.Graph, err = resource(10, 11)
	}
	return
}

// unescape resolves ECHAR and UCHAR escapes
func unescape(str string) (string, error) {
	if strings.IndexByte(str, '\\') == -1 {
		return str, nil
	}

	var b strings.Builder
	b.Grow(len(str))
	for i := 0; i < len(str); i++ {
		c := str[i]
		if c != '\\' || i+1 == len(str) {
			b.WriteByte(c)
			continue
		}

		i++
		switch str[i] {
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case '"', '\'', '\\':
			b.WriteByte(str[i])
		case 'u', 'U':
			size := 4
			if str[i] == 'U' {
				size = 8
			}
			if i+1+size > len(str) {
				return "", errors.Wrapf(ErrInvalidEscape, "%q", str[i-1:])
			}
			code, err := strconv.ParseUint(str[i+1:i+1+size], 16, 32)
			if err != nil || !utf8.ValidRune(rune(code)) {
				return "", errors.Wrapf(ErrInvalidEscape, "%q", str[i-1:i+1+size])
			}
			b.WriteRune(rune(code))
			i += size
		default:
			b.WriteByte('\\')
			b.WriteByte(str[i])
		}
	}
	return b.String(), nil
}
