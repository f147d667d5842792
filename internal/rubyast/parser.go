package rubyast

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/railscope/railscope/internal/domain"
)

var (
	classRe  = regexp.MustCompile(`^class\s+([A-Z][\w:]*)(?:\s*<\s*([\w:]+))?\s*$`)
	moduleRe = regexp.MustCompile(`^module\s+([A-Z][\w:]*)\s*$`)
	defRe    = regexp.MustCompile(`^def\s+(?:self\.)?([a-zA-Z_]\w*[?!=]?)`)
	ifRe     = regexp.MustCompile(`^(if|unless)\s+(.+)$`)
	elsifRe  = regexp.MustCompile(`^elsif\s+(.+)$`)
	assignRe = regexp.MustCompile(`^([A-Za-z_][\w:]*)\s*=\s*([^=].*)$`)
	doRe     = regexp.MustCompile(`\bdo(\s*\|([^|]*)\|)?\s*$`)
	// keywords that consume a matching `end`
	openerRe = regexp.MustCompile(`^(class|module|def|if|unless|case|while|until|begin)\b`)
)

// Parse parses one source file into top-level nodes. It never fails: regions
// the parser cannot interpret become Unknown nodes, and a file yielding no
// recognizable constructs produces an empty list plus a warn diagnostic.
func Parse(file string, src []byte) ([]*Node, []domain.Diagnostic) {
	p := &parser{file: file, lines: assemble(src)}
	nodes := p.parseStatements(nil)

	if len(nodes) == 0 && len(p.lines) > 0 {
		p.diags.Warnf(file, 0, "no recognizable constructs in file")
	}
	return nodes, p.diags.All()
}

type parser struct {
	file  string
	lines []logicalLine
	pos   int
	diags domain.Diagnostics
}

func (p *parser) eof() bool {
	return p.pos >= len(p.lines)
}

func (p *parser) current() logicalLine {
	return p.lines[p.pos]
}

// parseStatements consumes statements until a bare `end` (which it also
// consumes) or until one of the stop keywords is reached (left for the
// caller). A nil stop set parses to end of file.
func (p *parser) parseStatements(stop []string) []*Node {
	var nodes []*Node
	for !p.eof() {
		ll := p.current()
		head := keywordHead(ll.text)

		if head == "end" {
			p.pos++
			return nodes
		}
		for _, s := range stop {
			if head == s {
				return nodes
			}
		}

		node := p.parseStatement(ll)
		if node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

// keywordHead returns the leading keyword of a line ("end", "else", …) or "".
func keywordHead(text string) string {
	for _, kw := range []string{"end", "else", "elsif", "when"} {
		if text == kw || strings.HasPrefix(text, kw+" ") {
			return kw
		}
	}
	return ""
}

func (p *parser) parseStatement(ll logicalLine) *Node {
	text := ll.text

	if m := classRe.FindStringSubmatch(text); m != nil {
		p.pos++
		body := p.parseStatements(nil)
		return &Node{Kind: KindClassDef, File: p.file, Line: ll.line, Name: m[1], Parent: m[2], Body: body}
	}

	if m := moduleRe.FindStringSubmatch(text); m != nil {
		p.pos++
		body := p.parseStatements(nil)
		return &Node{Kind: KindModuleDef, File: p.file, Line: ll.line, Name: m[1], Body: body}
	}

	if m := defRe.FindStringSubmatch(text); m != nil {
		p.pos++
		// single-line `def m; body; end` stays on one logical line
		if strings.Contains(text, ";") && strings.HasSuffix(text, "end") {
			return &Node{Kind: KindMethodDef, File: p.file, Line: ll.line, Name: m[1], Body: p.parseInlineBody(text, ll.line)}
		}
		body := p.parseStatements(nil)
		return &Node{Kind: KindMethodDef, File: p.file, Line: ll.line, Name: m[1], Body: body}
	}

	if m := ifRe.FindStringSubmatch(text); m != nil && !strings.Contains(text, " then ") {
		return p.parseIf(ll, m[1], m[2])
	}

	if head := openerRe.FindString(text); head != "" {
		// case/while/until/begin: out of scope for the DSL; skip the whole
		// construct but keep its raw head as an Unknown node
		p.skipConstruct()
		p.diags.Warnf(p.file, ll.line, "unsupported construct skipped: %s", truncate(text, 60))
		return &Node{Kind: KindUnknown, File: p.file, Line: ll.line, Raw: text}
	}

	// modifier form: `stmt if cond` / `stmt unless cond`
	if stmt, kw, cond := splitModifier(text); kw != "" {
		p.pos++
		inner, ok := parseCallText(p.file, ll.line, stmt)
		if !ok {
			p.diags.Warnf(p.file, ll.line, "unparseable line: %s", truncate(text, 60))
			return &Node{Kind: KindUnknown, File: p.file, Line: ll.line, Raw: text}
		}
		if kw == "unless" {
			cond = "!(" + cond + ")"
		}
		return &Node{Kind: KindIf, File: p.file, Line: ll.line, Cond: cond, Then: []*Node{inner}}
	}

	if m := assignRe.FindStringSubmatch(text); m != nil && !strings.HasPrefix(m[2], "=") {
		p.pos++
		sc := &scanner{s: m[2]}
		value := parseExpr(sc, p.file, ll.line)
		return &Node{Kind: KindAssign, File: p.file, Line: ll.line, Target: m[1], Value: value}
	}

	// plain method call, possibly opening a do…end block
	callText := text
	var blockParams []string
	hasBlock := false
	if m := doRe.FindStringSubmatch(text); m != nil {
		hasBlock = true
		callText = strings.TrimSpace(text[:len(text)-len(m[0])])
		for _, param := range strings.Split(m[2], ",") {
			if param = strings.TrimSpace(param); param != "" {
				blockParams = append(blockParams, param)
			}
		}
	}

	node, ok := parseCallText(p.file, ll.line, callText)
	p.pos++
	if !ok {
		p.diags.Warnf(p.file, ll.line, "unparseable line: %s", truncate(text, 60))
		if hasBlock {
			p.skipBody()
		}
		return &Node{Kind: KindUnknown, File: p.file, Line: ll.line, Raw: text}
	}

	if hasBlock {
		body := p.parseStatements(nil)
		node.Block = &Node{Kind: KindBlock, File: p.file, Line: ll.line, Params: blockParams, Body: body}
	}
	return node
}

// parseIf parses if/elsif/else/end. An unless head is normalized into a
// negated condition.
func (p *parser) parseIf(ll logicalLine, kw, cond string) *Node {
	p.pos++
	thenBody := p.parseStatements([]string{"else", "elsif"})

	node := &Node{Kind: KindIf, File: p.file, Line: ll.line, Cond: cond, Then: thenBody}
	if kw == "unless" {
		node.Cond = "!(" + cond + ")"
	}

	if p.eof() {
		return node
	}

	switch keywordHead(p.current().text) {
	case "elsif":
		elsifLine := p.current()
		cond := "?"
		if m := elsifRe.FindStringSubmatch(elsifLine.text); m != nil {
			cond = m[1]
		}
		nested := p.parseIf(elsifLine, "if", cond)
		node.Else = []*Node{nested}
	case "else":
		p.pos++
		node.Else = p.parseStatements(nil)
	}
	return node
}

// parseInlineBody handles `def m; params.require(...); end` on one line.
func (p *parser) parseInlineBody(text string, line int) []*Node {
	inner := text
	if idx := strings.Index(inner, ";"); idx >= 0 {
		inner = inner[idx+1:]
	}
	inner = strings.TrimSuffix(strings.TrimSpace(inner), "end")
	var body []*Node
	for _, stmt := range strings.Split(inner, ";") {
		if stmt = strings.TrimSpace(stmt); stmt == "" {
			continue
		}
		if node, ok := parseCallText(p.file, line, stmt); ok {
			body = append(body, node)
		}
	}
	return body
}

// skipConstruct consumes lines through the `end` matching the construct
// opened on the current line.
func (p *parser) skipConstruct() {
	depth := 0
	for !p.eof() {
		text := p.current().text
		if opensEnd(text) {
			depth++
		} else if keywordHead(text) == "end" {
			depth--
		}
		p.pos++
		if depth <= 0 {
			return
		}
	}
}

// skipBody consumes an already-opened block through its matching end.
func (p *parser) skipBody() {
	depth := 1
	for !p.eof() {
		text := p.current().text
		if opensEnd(text) {
			depth++
		} else if keywordHead(text) == "end" {
			depth--
		}
		p.pos++
		if depth <= 0 {
			return
		}
	}
}

// opensEnd reports whether a line opens a construct that a later `end`
// closes. A line both starting with an opener keyword and ending in `do`
// still consumes exactly one end.
func opensEnd(text string) bool {
	return openerRe.MatchString(text) || doRe.MatchString(text)
}

// splitModifier finds a trailing `if`/`unless` modifier at depth zero outside
// strings. Returns the statement, the keyword and the condition, or "" when
// the line has no modifier.
func splitModifier(text string) (string, string, string) {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\'', '"':
			i = skipString(text, i)
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case 'i', 'u':
			if depth != 0 || i == 0 || text[i-1] != ' ' {
				continue
			}
			for _, kw := range []string{"if ", "unless "} {
				if strings.HasPrefix(text[i:], kw) {
					stmt := strings.TrimSpace(text[:i])
					cond := strings.TrimSpace(text[i+len(kw):])
					if stmt == "" || cond == "" {
						return "", "", ""
					}
					return stmt, strings.TrimSpace(kw), cond
				}
			}
		}
	}
	return "", "", ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// parseCallText parses a single logical line as a method call. It recognizes
// a dotted receiver chain, a method name, and parenthesized or bare
// arguments.
func parseCallText(file string, line int, text string) (*Node, bool) {
	sc := &scanner{s: text}

	type segment struct {
		name string
		args string
		raw  string
	}
	var segs []segment

	for {
		sc.skipSpace()
		name := sc.scanIdent()
		if name == "" {
			return nil, false
		}
		seg := segment{name: name, args: "", raw: name}
		sc.skipSpace()
		if sc.peek() == '(' {
			seg.args = sc.scanBalanced('(', ')')
			seg.raw = name + "(" + seg.args + ")"
		}
		segs = append(segs, seg)
		if sc.peek() == '.' {
			sc.pos++
			continue
		}
		break
	}

	last := segs[len(segs)-1]
	node := &Node{Kind: KindCall, File: file, Line: line, Method: last.name}
	if len(segs) > 1 {
		parts := make([]string, 0, len(segs)-1)
		for _, s := range segs[:len(segs)-1] {
			parts = append(parts, s.raw)
		}
		node.Receiver = strings.Join(parts, ".")
	}

	// parenthesized arguments win; trailing text after them (inline braces
	// and the like) is tolerated and ignored
	argSrc := last.args
	if argSrc == "" {
		argSrc = sc.rest()
	}

	args, kwargs, ok := parseArgs(&scanner{s: argSrc}, file, line)
	if !ok {
		return nil, false
	}
	node.Args = args
	node.Kwargs = kwargs
	return node, true
}

// parseArgs parses a comma-separated argument list: positional expressions,
// `key: value` keyword arguments, and `expr => value` hashrocket pairs (which
// are recorded as keyword arguments keyed by the left side's text).
func parseArgs(sc *scanner, file string, line int) ([]*Node, []KV, bool) {
	var args []*Node
	var kwargs []KV

	for {
		sc.skipSpace()
		if sc.eof() {
			break
		}

		if key, ok := scanKwargKey(sc); ok {
			value := parseExpr(sc, file, line)
			kwargs = append(kwargs, KV{Key: key, Value: value})
		} else {
			expr := parseExpr(sc, file, line)
			if expr == nil {
				return nil, nil, false
			}
			sc.skipSpace()
			if sc.peek() == '=' && sc.peekAt(1) == '>' {
				sc.pos += 2
				value := parseExpr(sc, file, line)
				kwargs = append(kwargs, KV{Key: expr.Text(), Value: value})
			} else if expr.Kind == KindHash {
				kwargs = append(kwargs, expr.Pairs...)
			} else {
				args = append(args, expr)
			}
		}

		sc.skipSpace()
		if !sc.consume(',') {
			break
		}
	}
	if !sc.eof() {
		return nil, nil, false
	}
	return args, kwargs, true
}

// scanKwargKey detects `key:` (Ruby 3 keyword syntax) at the cursor, without
// confusing it with `::` namespacing or a symbol value.
func scanKwargKey(sc *scanner) (string, bool) {
	save := sc.pos
	sc.skipSpace()
	name := sc.scanIdent()
	if name == "" || strings.Contains(name, "::") {
		sc.pos = save
		return "", false
	}
	if sc.peek() == ':' && sc.peekAt(1) != ':' {
		sc.pos++
		return name, true
	}
	sc.pos = save
	return "", false
}

// parseExpr parses one expression: a literal, an array or hash, an
// identifier/constant, or a nested call with parenthesized arguments.
func parseExpr(sc *scanner, file string, line int) *Node {
	sc.skipSpace()
	if sc.eof() {
		return nil
	}

	switch c := sc.peek(); {
	case c == ':' && sc.peekAt(1) == '"' || c == ':' && sc.peekAt(1) == '\'':
		sc.pos++
		str := scanStringLit(sc)
		return &Node{Kind: KindSymbol, File: file, Line: line, Sym: str}

	case c == ':' && isIdentStart(sc.peekAt(1)):
		sc.pos++
		name := sc.scanIdent()
		return &Node{Kind: KindSymbol, File: file, Line: line, Sym: name}

	case c == '\'' || c == '"':
		str := scanStringLit(sc)
		return &Node{Kind: KindString, File: file, Line: line, Str: str}

	case isDigit(c) || (c == '-' && isDigit(sc.peekAt(1))):
		start := sc.pos
		sc.pos++
		for !sc.eof() && (isDigit(sc.peek()) || sc.peek() == '_') {
			sc.pos++
		}
		n, err := strconv.Atoi(strings.ReplaceAll(sc.s[start:sc.pos], "_", ""))
		if err != nil {
			return &Node{Kind: KindUnknown, File: file, Line: line, Raw: sc.s[start:sc.pos]}
		}
		return &Node{Kind: KindInt, File: file, Line: line, Int: n}

	case c == '[':
		inner := sc.scanBalanced('[', ']')
		return parseArrayLit(inner, file, line)

	case c == '{':
		inner := sc.scanBalanced('{', '}')
		pairs := parseHashPairs(inner, file, line)
		return &Node{Kind: KindHash, File: file, Line: line, Pairs: pairs}

	case c == '%' && (sc.peekAt(1) == 'i' || sc.peekAt(1) == 'w' || sc.peekAt(1) == 'I' || sc.peekAt(1) == 'W'):
		sc.pos += 2
		if sc.peek() != '[' {
			return &Node{Kind: KindUnknown, File: file, Line: line, Raw: sc.rest()}
		}
		inner := sc.scanBalanced('[', ']')
		arr := &Node{Kind: KindArray, File: file, Line: line}
		for _, word := range strings.Fields(inner) {
			arr.Elems = append(arr.Elems, &Node{Kind: KindSymbol, File: file, Line: line, Sym: word})
		}
		return arr

	case isIdentStart(c):
		name := sc.scanIdent()
		if sc.peek() == '(' {
			argsInner := sc.scanBalanced('(', ')')
			args, kwargs, ok := parseArgs(&scanner{s: argsInner}, file, line)
			if !ok {
				return &Node{Kind: KindUnknown, File: file, Line: line, Raw: name + "(" + argsInner + ")"}
			}
			call := &Node{Kind: KindCall, File: file, Line: line, Method: name, Args: args, Kwargs: kwargs}
			// tolerate a trailing method chain, e.g. `.freeze`; the chain is
			// opaque and the head call is kept
			for sc.peek() == '.' {
				sc.pos++
				sc.scanIdent()
				if sc.peek() == '(' {
					sc.scanBalanced('(', ')')
				}
			}
			return call
		}
		return &Node{Kind: KindIdent, File: file, Line: line, Name: name}
	}

	// opaque expression: consume to the next top-level comma
	start := sc.pos
	depth := 0
	for !sc.eof() {
		switch sc.peek() {
		case '\'', '"':
			sc.pos = skipString(sc.s, sc.pos)
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				return &Node{Kind: KindUnknown, File: file, Line: line, Raw: strings.TrimSpace(sc.s[start:sc.pos])}
			}
		}
		sc.pos++
	}
	return &Node{Kind: KindUnknown, File: file, Line: line, Raw: strings.TrimSpace(sc.s[start:sc.pos])}
}

// scanStringLit reads a quoted string at the cursor and returns its contents
// with escapes left as written and #{…} kept opaque.
func scanStringLit(sc *scanner) string {
	end := skipString(sc.s, sc.pos)
	var str string
	if end > sc.pos {
		str = sc.s[sc.pos+1 : end]
	}
	sc.pos = end + 1
	return str
}

func parseArrayLit(inner, file string, line int) *Node {
	arr := &Node{Kind: KindArray, File: file, Line: line}
	sc := &scanner{s: inner}
	for {
		sc.skipSpace()
		if sc.eof() {
			break
		}
		elem := parseExpr(sc, file, line)
		if elem == nil {
			break
		}
		arr.Elems = append(arr.Elems, elem)
		if !sc.consume(',') {
			break
		}
	}
	return arr
}

func parseHashPairs(inner, file string, line int) []KV {
	_, kwargs, _ := parseArgs(&scanner{s: inner}, file, line)
	return kwargs
}
