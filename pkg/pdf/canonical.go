package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// gofpdi assigns imported object numbers and writes dictionary keys in map
// iteration order. canonicalize re-serializes a document so that one object
// graph always yields the same bytes: objects are renumbered breadth-first
// from the trailer, dictionary keys are written sorted and unreachable
// objects are dropped.

var errMalformed = errors.New("malformed document")

type pdfValue interface{}

type (
	pdfName  string
	pdfToken []byte
	pdfDict  map[pdfName]pdfValue
	pdfArray []pdfValue
	pdfRef   struct{ num, gen int }
)

type pdfStream struct {
	dict pdfDict
	data []byte
}

type pdfFile struct {
	header  []byte
	objects map[pdfRef]pdfValue
	trailer pdfDict
}

func canonicalize(data []byte) ([]byte, error) {
	file, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	return file.encode(), nil
}

func (d pdfDict) keys() []pdfName {
	keys := make([]pdfName, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (d pdfDict) integer(key pdfName) (int, bool) {
	tok, ok := d[key].(pdfToken)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(string(tok))
	return n, err == nil
}

func parseDocument(data []byte) (*pdfFile, error) {
	start := bytes.Index(data, []byte("%PDF-"))
	if start < 0 {
		return nil, fmt.Errorf("%w: missing header", errMalformed)
	}
	end := start
	for end < len(data) && data[end] != '\n' && data[end] != '\r' {
		end++
	}

	file := &pdfFile{header: data[start:end], objects: make(map[pdfRef]pdfValue)}
	s := &pdfScanner{buf: data, pos: end}
	for {
		s.skipSpace()
		if s.pos >= len(s.buf) {
			break
		}
		tok, err := s.token()
		if err != nil {
			return nil, err
		}
		switch {
		case string(tok) == "xref":
			if err := s.skipTo("trailer"); err != nil {
				return nil, err
			}
			v, err := s.value()
			if err != nil {
				return nil, err
			}
			trailer, ok := v.(pdfDict)
			if !ok {
				return nil, fmt.Errorf("%w: trailer is not a dictionary", errMalformed)
			}
			if file.trailer == nil {
				file.trailer = trailer
			} else {
				for k, v := range trailer {
					file.trailer[k] = v
				}
			}
		case string(tok) == "startxref":
			if _, err := s.token(); err != nil {
				return nil, err
			}
		case isDigits(tok):
			ref, v, err := s.object(tok)
			if err != nil {
				return nil, err
			}
			file.objects[ref] = v
		default:
			return nil, fmt.Errorf("%w: unexpected %q at offset %d", errMalformed, tok, s.pos)
		}
	}
	if file.trailer == nil {
		return nil, fmt.Errorf("%w: missing trailer", errMalformed)
	}
	return file, nil
}

// object parses "N G obj ... endobj" once the object number has been read.
func (s *pdfScanner) object(numTok []byte) (pdfRef, pdfValue, error) {
	num, _ := strconv.Atoi(string(numTok))
	genTok, err := s.token()
	if err != nil {
		return pdfRef{}, nil, err
	}
	gen, err := strconv.Atoi(string(genTok))
	if err != nil {
		return pdfRef{}, nil, fmt.Errorf("%w: bad generation %q", errMalformed, genTok)
	}
	if err := s.expect("obj"); err != nil {
		return pdfRef{}, nil, err
	}
	ref := pdfRef{num: num, gen: gen}

	v, err := s.value()
	if err != nil {
		return ref, nil, err
	}
	tok, err := s.token()
	if err != nil {
		return ref, nil, err
	}
	if string(tok) == "stream" {
		dict, ok := v.(pdfDict)
		if !ok {
			return ref, nil, fmt.Errorf("%w: stream without dictionary in object %d", errMalformed, num)
		}
		data, err := s.streamData(dict)
		if err != nil {
			return ref, nil, err
		}
		if err := s.expect("endstream"); err != nil {
			return ref, nil, err
		}
		v = &pdfStream{dict: dict, data: data}
		tok, err = s.token()
		if err != nil {
			return ref, nil, err
		}
	}
	if string(tok) != "endobj" {
		return ref, nil, fmt.Errorf("%w: object %d not terminated", errMalformed, num)
	}
	return ref, v, nil
}

type pdfScanner struct {
	buf []byte
	pos int
}

func isSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigits(tok []byte) bool {
	if len(tok) == 0 {
		return false
	}
	for _, c := range tok {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (s *pdfScanner) skipSpace() {
	for s.pos < len(s.buf) {
		c := s.buf[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.buf) && s.buf[s.pos] != '\n' && s.buf[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

// token returns the next lexical token. Strings are returned whole.
func (s *pdfScanner) token() ([]byte, error) {
	s.skipSpace()
	if s.pos >= len(s.buf) {
		return nil, fmt.Errorf("%w: unexpected end of data", errMalformed)
	}
	start := s.pos
	switch c := s.buf[s.pos]; c {
	case '(':
		return s.literalString()
	case '<':
		if s.pos+1 < len(s.buf) && s.buf[s.pos+1] == '<' {
			s.pos += 2
			return s.buf[start:s.pos], nil
		}
		end := bytes.IndexByte(s.buf[s.pos:], '>')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated hex string", errMalformed)
		}
		s.pos += end + 1
		return s.buf[start:s.pos], nil
	case '>':
		if s.pos+1 < len(s.buf) && s.buf[s.pos+1] == '>' {
			s.pos += 2
			return s.buf[start:s.pos], nil
		}
		return nil, fmt.Errorf("%w: stray '>' at offset %d", errMalformed, s.pos)
	case '[', ']', '{', '}', ')':
		s.pos++
		return s.buf[start:s.pos], nil
	case '/':
		s.pos++
	}
	for s.pos < len(s.buf) && !isSpace(s.buf[s.pos]) && !isDelimiter(s.buf[s.pos]) {
		s.pos++
	}
	return s.buf[start:s.pos], nil
}

func (s *pdfScanner) literalString() ([]byte, error) {
	start := s.pos
	depth := 0
	for s.pos < len(s.buf) {
		switch s.buf[s.pos] {
		case '\\':
			s.pos++
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				s.pos++
				return s.buf[start:s.pos], nil
			}
		}
		s.pos++
	}
	return nil, fmt.Errorf("%w: unterminated string", errMalformed)
}

func (s *pdfScanner) expect(keyword string) error {
	tok, err := s.token()
	if err != nil {
		return err
	}
	if string(tok) != keyword {
		return fmt.Errorf("%w: expected %s, got %q", errMalformed, keyword, tok)
	}
	return nil
}

func (s *pdfScanner) skipTo(keyword string) error {
	for {
		tok, err := s.token()
		if err != nil {
			return err
		}
		if string(tok) == keyword {
			return nil
		}
	}
}

func (s *pdfScanner) value() (pdfValue, error) {
	tok, err := s.token()
	if err != nil {
		return nil, err
	}
	switch {
	case string(tok) == "<<":
		dict := pdfDict{}
		for {
			key, err := s.token()
			if err != nil {
				return nil, err
			}
			if string(key) == ">>" {
				return dict, nil
			}
			if key[0] != '/' {
				return nil, fmt.Errorf("%w: dictionary key %q is not a name", errMalformed, key)
			}
			v, err := s.value()
			if err != nil {
				return nil, err
			}
			dict[pdfName(key)] = v
		}
	case string(tok) == "[":
		array := pdfArray{}
		for {
			s.skipSpace()
			if s.pos < len(s.buf) && s.buf[s.pos] == ']' {
				s.pos++
				return array, nil
			}
			v, err := s.value()
			if err != nil {
				return nil, err
			}
			array = append(array, v)
		}
	case tok[0] == '/':
		return pdfName(tok), nil
	case string(tok) == ">>" || string(tok) == "]":
		return nil, fmt.Errorf("%w: unexpected %q at offset %d", errMalformed, tok, s.pos)
	case isDigits(tok):
		mark := s.pos
		if gen, err := s.token(); err == nil && isDigits(gen) {
			if r, err := s.token(); err == nil && string(r) == "R" {
				num, _ := strconv.Atoi(string(tok))
				g, _ := strconv.Atoi(string(gen))
				return pdfRef{num: num, gen: g}, nil
			}
		}
		s.pos = mark
	}
	return pdfToken(tok), nil
}

// streamData returns the stream body that starts after the "stream" keyword.
// A direct /Length is trusted when "endstream" follows it.
func (s *pdfScanner) streamData(dict pdfDict) ([]byte, error) {
	if s.pos < len(s.buf) && s.buf[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < len(s.buf) && s.buf[s.pos] == '\n' {
		s.pos++
	}
	start := s.pos

	if n, ok := dict.integer("/Length"); ok && n >= 0 && start+n <= len(s.buf) {
		rest := bytes.TrimLeft(s.buf[start+n:], "\r\n \t")
		if bytes.HasPrefix(rest, []byte("endstream")) {
			s.pos = start + n
			return s.buf[start:s.pos], nil
		}
	}

	i := bytes.Index(s.buf[start:], []byte("endstream"))
	if i < 0 {
		return nil, fmt.Errorf("%w: unterminated stream", errMalformed)
	}
	end := start + i
	if end > start && s.buf[end-1] == '\n' {
		end--
	}
	if end > start && s.buf[end-1] == '\r' {
		end--
	}
	s.pos = end
	return s.buf[start:end], nil
}

// renumber assigns new object numbers in breadth-first order from the trailer.
func (f *pdfFile) renumber() ([]pdfRef, map[pdfRef]int) {
	var order []pdfRef
	numbers := make(map[pdfRef]int)

	var visit func(v pdfValue)
	visit = func(v pdfValue) {
		switch v := v.(type) {
		case pdfRef:
			if _, seen := numbers[v]; seen {
				return
			}
			if _, ok := f.objects[v]; !ok {
				return
			}
			order = append(order, v)
			numbers[v] = len(order)
		case pdfDict:
			for _, k := range v.keys() {
				visit(v[k])
			}
		case pdfArray:
			for _, e := range v {
				visit(e)
			}
		case *pdfStream:
			visit(v.dict)
		}
	}

	visit(f.trailerWithoutSize())
	for i := 0; i < len(order); i++ {
		visit(f.objects[order[i]])
	}
	return order, numbers
}

func (f *pdfFile) trailerWithoutSize() pdfDict {
	trailer := pdfDict{}
	for k, v := range f.trailer {
		switch k {
		case "/Size", "/Prev", "/XRefStm":
		default:
			trailer[k] = v
		}
	}
	return trailer
}

func (f *pdfFile) encode() []byte {
	order, numbers := f.renumber()

	var buf bytes.Buffer
	buf.Write(f.header)
	buf.WriteByte('\n')

	offsets := make([]int, len(order))
	for i, ref := range order {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		writeValue(&buf, f.objects[ref], numbers)
		buf.WriteString("\nendobj\n")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(order)+1)
	for _, offset := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offset)
	}

	trailer := f.trailerWithoutSize()
	trailer["/Size"] = pdfToken(strconv.Itoa(len(order) + 1))
	buf.WriteString("trailer\n")
	writeValue(&buf, trailer, numbers)
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func writeValue(buf *bytes.Buffer, v pdfValue, numbers map[pdfRef]int) {
	switch v := v.(type) {
	case pdfDict:
		buf.WriteString("<<\n")
		for _, k := range v.keys() {
			buf.WriteString(string(k))
			buf.WriteByte(' ')
			writeValue(buf, v[k], numbers)
			buf.WriteByte('\n')
		}
		buf.WriteString(">>")
	case pdfArray:
		buf.WriteByte('[')
		for i, e := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			writeValue(buf, e, numbers)
		}
		buf.WriteByte(']')
	case pdfRef:
		if n, ok := numbers[v]; ok {
			fmt.Fprintf(buf, "%d 0 R", n)
		} else {
			buf.WriteString("null")
		}
	case *pdfStream:
		writeValue(buf, v.dict, numbers)
		buf.WriteString("\nstream\n")
		buf.Write(v.data)
		buf.WriteString("\nendstream")
	case pdfName:
		buf.WriteString(string(v))
	case pdfToken:
		buf.Write(v)
	}
}
