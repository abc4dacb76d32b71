package extractor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Pattern: module <name> / macromodule <name>
	modulePattern = regexp.MustCompile(`\b(?:macro)?module\s+([A-Za-z_][\w$]*)`)

	// Pattern: endmodule
	endModulePattern = regexp.MustCompile(`\bendmodule\b`)

	// Pattern: input|output|inout [wire|reg|logic|signed ...] [msb:lsb] rest
	directionPattern = regexp.MustCompile(`(?s)^\s*(input|output|inout)\b\s*((?:(?:wire|reg|logic|signed|unsigned|tri|var)\s+)*)(\[[^\]]*\])?\s*(.*)$`)

	// Pattern: parameter|localparam [type] [range] NAME =
	parameterPattern = regexp.MustCompile(`\bparameter\b(?:\s+(?:integer|real|signed|unsigned))?\s*(?:\[[^\]]*\])?\s*([A-Za-z_][\w$]*)\s*=`)

	// Pattern: [msb:lsb] with integer bounds
	rangePattern = regexp.MustCompile(`^\[\s*(-?\d+)\s*:\s*(-?\d+)\s*\]$`)

	// Pattern: endfunction / endtask anywhere in a statement
	endSubroutinePattern = regexp.MustCompile(`\bend(?:function|task)\b`)

	identPattern = regexp.MustCompile(`^[A-Za-z_][\w$]*$`)
)

// keywords can never start an instantiation.
var keywords = map[string]bool{
	"always": true, "always_comb": true, "always_ff": true, "always_latch": true,
	"and": true, "assign": true, "automatic": true, "buf": true, "bufif0": true, "bufif1": true,
	"case": true, "casex": true, "casez": true, "cmos": true, "deassign": true, "default": true,
	"defparam": true, "disable": true, "event": true, "for": true, "force": true, "forever": true,
	"fork": true, "function": true, "genvar": true, "if": true, "initial": true, "inout": true,
	"input": true, "integer": true, "join": true, "localparam": true, "logic": true, "nand": true,
	"nmos": true, "nor": true, "not": true, "notif0": true, "notif1": true, "or": true,
	"output": true, "parameter": true, "pmos": true, "pulldown": true, "pullup": true, "rcmos": true,
	"real": true, "realtime": true, "reg": true, "release": true, "repeat": true, "return": true,
	"rnmos": true, "rpmos": true, "rtran": true, "rtranif0": true, "rtranif1": true, "signed": true,
	"specify": true, "specparam": true, "supply0": true, "supply1": true, "task": true, "time": true,
	"tran": true, "tranif0": true, "tranif1": true, "tri": true, "tri0": true, "tri1": true,
	"triand": true, "trior": true, "trireg": true, "unsigned": true, "wait": true, "wand": true,
	"while": true, "wire": true, "wor": true, "xnor": true, "xor": true,
}

// blockWords are dropped from the front of a statement before looking for
// an instantiation, e.g. "end\n  sub u0 (...)".
var blockWords = map[string]bool{
	"begin": true, "end": true, "else": true, "generate": true, "endgenerate": true,
	"endcase": true, "endfunction": true, "endtask": true, "endspecify": true, "join": true,
}

// controlWords introduce a parenthesised condition that may guard an
// instantiation inside a generate block.
var controlWords = map[string]bool{
	"for": true, "if": true, "while": true, "repeat": true,
}

// scanSource extracts facts without a grammar. Comments and compiler
// directives are blanked first; offsets and line numbers are preserved.
func scanSource(filePath string, content []byte) (FileFacts, error) {
	facts := FileFacts{File: filePath}
	text := blankAttributes(blankDirectives(stripComments(string(content))))

	pos := 0
	for {
		loc := modulePattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		start := pos + loc[0]
		name := text[pos+loc[2] : pos+loc[3]]
		headerStart := pos + loc[1]

		end := endModulePattern.FindStringIndex(text[headerStart:])
		if end == nil {
			return facts, fmt.Errorf("module %s at line %d has no endmodule", name, lineAt(text, start))
		}
		bodyEnd := headerStart + end[0]

		headerEnd := indexAtDepth(text[headerStart:bodyEnd], ';')
		if headerEnd < 0 {
			return facts, fmt.Errorf("module %s at line %d: unterminated header", name, lineAt(text, start))
		}
		headerEnd += headerStart

		mod := Module{Name: name, Line: lineAt(text, start)}
		scanHeader(text, headerStart, headerEnd, &mod)
		scanBody(text, headerEnd+1, bodyEnd, &mod, &facts)
		facts.Modules = append(facts.Modules, mod)

		pos = headerStart + end[1]
	}

	return facts, nil
}

// scanHeader reads "#(parameters) (ports)" between the module name and the
// terminating semicolon.
func scanHeader(text string, start, end int, mod *Module) {
	i := skipSpace(text, start, end)
	if i < end && text[i] == '#' {
		i = skipSpace(text, i+1, end)
		if i < end && text[i] == '(' {
			close := matchParen(text, i, end)
			for _, m := range parameterPattern.FindAllStringSubmatch(text[i:close], -1) {
				mod.Parameters = append(mod.Parameters, m[1])
			}
			i = skipSpace(text, close+1, end)
		}
	}
	if i >= end || text[i] != '(' {
		return
	}
	close := matchParen(text, i, end)

	direction, rng := "", ""
	for _, item := range splitAtDepth(text, i+1, close, ',') {
		decl := strings.TrimSpace(text[item.start:item.end])
		if decl == "" {
			continue
		}
		line := lineAt(text, item.start+leadingSpace(text[item.start:item.end]))
		if m := directionPattern.FindStringSubmatch(decl); m != nil {
			direction, rng = m[1], m[3]
			decl = strings.TrimSpace(m[4])
		}
		name := lastIdent(decl)
		if name == "" || direction == "" {
			// non-ANSI header: names only, directions are declared in the body
			if identPattern.MatchString(decl) {
				mod.Ports = append(mod.Ports, Port{Name: decl, Line: line})
			}
			continue
		}
		mod.Ports = append(mod.Ports, newPort(name, direction, rng, line))
	}
}

// scanBody walks the module body statement by statement, picking up
// non-ANSI port declarations, parameters and instantiations.
func scanBody(text string, start, end int, mod *Module, facts *FileFacts) {
	inSubroutine := false
	for _, stmt := range splitAtDepth(text, start, end, ';') {
		stmtStart := stmt.start
		raw := text[stmtStart:stmt.end]
		if inSubroutine {
			// function and task arguments are not module ports
			loc := endSubroutinePattern.FindStringIndex(raw)
			if loc == nil {
				continue
			}
			// endfunction/endtask take no semicolon, so the next
			// statement shares this one
			inSubroutine = false
			stmtStart += loc[1]
			raw = text[stmtStart:stmt.end]
		}
		body, offset := trimBlockWords(raw)
		if body == "" {
			continue
		}
		if word, _ := readIdent(body, 0); word == "function" || word == "task" {
			inSubroutine = !endSubroutinePattern.MatchString(body)
			continue
		}
		line := lineAt(text, stmtStart+offset)

		if m := directionPattern.FindStringSubmatch(body); m != nil {
			for _, name := range strings.Split(m[4], ",") {
				name = lastIdent(strings.TrimSpace(name))
				if name == "" {
					continue
				}
				setPortDirection(mod, newPort(name, m[1], m[3], line))
			}
			continue
		}
		for _, m := range parameterPattern.FindAllStringSubmatch(body, -1) {
			mod.Parameters = append(mod.Parameters, m[1])
		}
		if ref, labels, ok := parseInstantiation(body); ok {
			for _, label := range labels {
				facts.Instances = append(facts.Instances, Instance{
					ModuleRef: ref,
					Label:     label,
					Parent:    mod.Name,
					Line:      line,
				})
			}
		}
	}
}

func setPortDirection(mod *Module, port Port) {
	for i := range mod.Ports {
		if mod.Ports[i].Name == port.Name {
			mod.Ports[i] = port
			return
		}
	}
	mod.Ports = append(mod.Ports, port)
}

// parseInstantiation recognises "REF [#(...)] LABEL [range] (...) [, LABEL (...)]".
func parseInstantiation(stmt string) (string, []string, bool) {
	ref, i := readIdent(stmt, 0)
	if ref == "" || keywords[ref] || blockWords[ref] {
		return "", nil, false
	}
	n := len(stmt)
	i = skipSpace(stmt, i, n)
	if i < n && stmt[i] == '#' {
		i = skipSpace(stmt, i+1, n)
		if i >= n {
			return "", nil, false
		}
		if stmt[i] == '(' {
			i = matchParen(stmt, i, n) + 1
		} else {
			_, i = readToken(stmt, i)
		}
	}

	var labels []string
	for {
		i = skipSpace(stmt, i, n)
		label, next := readIdent(stmt, i)
		if label == "" {
			return "", nil, false
		}
		i = skipSpace(stmt, next, n)
		if i < n && stmt[i] == '[' {
			close := strings.IndexByte(stmt[i:], ']')
			if close < 0 {
				return "", nil, false
			}
			i = skipSpace(stmt, i+close+1, n)
		}
		if i >= n || stmt[i] != '(' {
			return "", nil, false
		}
		i = skipSpace(stmt, matchParen(stmt, i, n)+1, n)
		labels = append(labels, label)
		if i >= n {
			return ref, labels, true
		}
		if stmt[i] != ',' {
			return "", nil, false
		}
		i++
	}
}

func trimBlockWords(stmt string) (string, int) {
	offset := 0
	for {
		lead := leadingSpace(stmt[offset:])
		word, next := readIdent(stmt, offset+lead)
		if controlWords[word] {
			// "for (...) begin : g" in generate blocks
			open := skipSpace(stmt, next, len(stmt))
			if open < len(stmt) && stmt[open] == '(' {
				offset = matchParen(stmt, open, len(stmt)) + 1
				continue
			}
		}
		if word == "" || !blockWords[word] {
			return strings.TrimSpace(stmt[offset:]), offset + lead
		}
		offset = next
		// "begin : label"
		rest := skipSpace(stmt, offset, len(stmt))
		if rest < len(stmt) && stmt[rest] == ':' {
			_, offset = readIdent(stmt, skipSpace(stmt, rest+1, len(stmt)))
		}
	}
}

func newPort(name, direction, rng string, line int) Port {
	port := Port{Name: name, Direction: direction, Range: strings.TrimSpace(rng), Width: 1, Line: line}
	if port.Range == "" {
		return port
	}
	m := rangePattern.FindStringSubmatch(strings.ReplaceAll(port.Range, " ", ""))
	if m == nil {
		port.Width = 0
		return port
	}
	port.MSB, _ = strconv.Atoi(m[1])
	port.LSB, _ = strconv.Atoi(m[2])
	port.Width = port.MSB - port.LSB
	if port.Width < 0 {
		port.Width = -port.Width
	}
	port.Width++
	return port
}

// stripComments replaces // and /* */ comments with spaces, keeping
// newlines and string literals intact.
func stripComments(s string) string {
	out := []byte(s)
	for i := 0; i < len(out); i++ {
		switch {
		case out[i] == '"':
			for i++; i < len(out) && out[i] != '"' && out[i] != '\n'; i++ {
				if out[i] == '\\' {
					i++
				}
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '/':
			for ; i < len(out) && out[i] != '\n'; i++ {
				out[i] = ' '
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			for i += 2; i < len(out); i++ {
				if out[i] == '*' && i+1 < len(out) && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i++
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
			}
		}
	}
	return string(out)
}

// blankAttributes replaces (* ... *) attribute instances with spaces,
// keeping newlines. "@(*)" is left alone.
func blankAttributes(s string) string {
	out := []byte(s)
	for i := 0; i+2 < len(out); i++ {
		switch {
		case out[i] == '"':
			for i++; i < len(out) && out[i] != '"' && out[i] != '\n'; i++ {
				if out[i] == '\\' {
					i++
				}
			}
		case out[i] == '(' && out[i+1] == '*' && out[i+2] != ')':
			end := strings.Index(s[i+2:], "*)")
			if end < 0 {
				return string(out)
			}
			end += i + 2 + 2
			for j := i; j < end; j++ {
				if out[j] != '\n' {
					out[j] = ' '
				}
			}
			i = end - 1
		}
	}
	return string(out)
}

// blankDirectives removes compiler directive lines (`timescale, `include...).
func blankDirectives(s string) string {
	out := []byte(s)
	lineStart := true
	for i := 0; i < len(out); i++ {
		switch {
		case out[i] == '\n':
			lineStart = true
		case out[i] == ' ' || out[i] == '\t' || out[i] == '\r':
		case out[i] == '`' && lineStart:
			for ; i < len(out) && out[i] != '\n'; i++ {
				out[i] = ' '
			}
			i--
		default:
			lineStart = false
		}
	}
	return string(out)
}

type span struct{ start, end int }

// splitAtDepth splits text[start:end] at sep characters outside any
// parenthesis, bracket or brace.
func splitAtDepth(text string, start, end int, sep byte) []span {
	var parts []span
	depth := 0
	from := start
	for i := start; i < end; i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, span{from, i})
				from = i + 1
			}
		}
	}
	if from < end {
		parts = append(parts, span{from, end})
	}
	return parts
}

func indexAtDepth(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			if depth > 0 {
				depth--
			}
		case c:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// matchParen returns the index of the parenthesis closing the one at open,
// or end-1 when it is unbalanced.
func matchParen(s string, open, end int) int {
	depth := 0
	for i := open; i < end; i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return end - 1
}

func readIdent(s string, i int) (string, int) {
	start := i
	for i < len(s) {
		c := s[i]
		if c == '_' || c == '$' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || i > start && c >= '0' && c <= '9' {
			i++
			continue
		}
		break
	}
	if i == start || s[start] == '$' {
		return "", start
	}
	return s[start:i], i
}

func readToken(s string, i int) (string, int) {
	start := i
	for i < len(s) && !isSpace(s[i]) && s[i] != '(' {
		i++
	}
	return s[start:i], i
}

func lastIdent(decl string) string {
	fields := strings.Fields(strings.TrimSpace(strings.SplitN(decl, "=", 2)[0]))
	if len(fields) == 0 {
		return ""
	}
	name := fields[len(fields)-1]
	if !identPattern.MatchString(name) || keywords[name] {
		return ""
	}
	return name
}

func skipSpace(s string, i, end int) int {
	for i < end && isSpace(s[i]) {
		i++
	}
	return i
}

func leadingSpace(s string) int {
	return skipSpace(s, 0, len(s))
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}

func lineAt(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}
