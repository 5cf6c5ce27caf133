// Package parse converts a template into its in-memory representation (AST).
package parse

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/tmplschema/tmplschema/ast"
)

// tree is the parsed representation of a single template.
type tree struct {
	name      string        // name provided for the input
	root      *ast.ListNode // top-level root of the tree
	text      string        // the full input text
	lex       *lexer        // lexer provides a sequence of tokens
	token     [2]item       // two-token lookahead
	peekCount int           // how many tokens have we backed up?
}

// Template parses the input into a TemplateNode (the AST).
// The result may be used as input to the inference engine.
func Template(name, text string) (node *ast.TemplateNode, err error) {
	var t = &tree{
		name: name,
		text: text,
		lex:  lex(name, text),
	}
	defer t.recover(&err)
	t.root = t.itemList(itemEOF)
	t.lex = nil
	return &ast.TemplateNode{
		Name: t.name,
		Text: t.text,
		Body: t.root.Nodes,
	}, nil
}

// Expr returns the parsed representation of a single template expression:
// anything that can appear inside a print tag.
func Expr(str string) (node ast.Node, err error) {
	var t = &tree{lex: lexExpr("", str), text: str}
	defer t.recover(&err)
	return t.parseExpr(0), err
}

// itemList:
//	textOrTag*
// Terminates when it comes across one of the given end keywords.
func (t *tree) itemList(until ...itemType) *ast.ListNode {
	var list *ast.ListNode
	for {
		var token = t.next()
		if list == nil {
			list = &ast.ListNode{token.pos, nil}
		}
		var node, halt = t.textOrTag(token, until)
		if halt {
			return list
		}
		if node != nil {
			list.Nodes = append(list.Nodes, node)
		}
	}
}

// textOrTag reads raw text or recognizes the start of tags until an end
// keyword.  When it halts on a keyword, the keyword token has been consumed;
// callers backup() to inspect it.
func (t *tree) textOrTag(token item, until []itemType) (node ast.Node, halt bool) {
	if isOneOf(token.typ, until) {
		return nil, true
	}
	switch token.typ {
	case itemText:
		return &ast.TextNode{token.pos, []byte(token.val)}, false
	case itemLeftPrint:
		var expr = t.parseExpr(0)
		t.expect(itemRightPrint, "print tag")
		return &ast.OutputNode{token.pos, expr}, false
	case itemLeftStmt:
		var kw = t.next()
		if isOneOf(kw.typ, until) {
			return nil, true
		}
		return t.beginStmt(kw), false
	case itemError:
		t.errorf("lexical error: %v", token)
	default:
		t.unexpected(token, "input")
	}
	return nil, false
}

// beginStmt parses the contents of a {% ... %} tag.  The keyword has just
// been read.
func (t *tree) beginStmt(kw item) ast.Node {
	switch kw.typ {
	case itemIf:
		return t.parseIf(kw)
	case itemFor:
		return t.parseFor(kw)
	case itemSet:
		return t.parseSet(kw)
	case itemWith:
		return t.parseWith(kw)
	case itemMacro:
		return t.parseMacro(kw)
	case itemInclude:
		return t.parseInclude(kw)
	case itemImport:
		return t.parseImport(kw)
	case itemFrom:
		return t.parseFromImport(kw)
	case itemFilter:
		return t.parseFilterBlock(kw)
	case itemRaw:
		return t.parseRaw(kw)
	case itemBlock:
		return t.parseBlock(kw)
	case itemExtends:
		return t.parseExtends(kw)
	default:
		t.unexpected(kw, "statement tag")
	}
	return nil
}

// "if" has just been read.
func (t *tree) parseIf(token item) ast.Node {
	var conds []*ast.IfCondNode
	var isElse = false
	for {
		var condExpr ast.Node
		if !isElse {
			condExpr = t.parseExpr(0)
		}
		t.expect(itemRightStmt, "if")
		var body = t.itemList(itemElif, itemElse, itemEndif)
		conds = append(conds, &ast.IfCondNode{token.pos, condExpr, body})
		t.backup()
		switch t.next().typ {
		case itemElif:
			// continue
		case itemElse:
			isElse = true
		case itemEndif:
			t.expect(itemRightStmt, "endif")
			return &ast.IfNode{token.pos, conds}
		}
	}
}

// "for" has just been read.
func (t *tree) parseFor(token item) ast.Node {
	var vars = []string{t.expect(itemIdent, "for").val}
	for t.peek().typ == itemComma {
		t.next()
		vars = append(vars, t.expect(itemIdent, "for").val)
	}
	t.expect(itemIn, "for loop (expected 'in')")
	var iter = t.parseExpr(0)
	t.expect(itemRightStmt, "for")

	var body = t.itemList(itemElse, itemEndfor)
	t.backup()
	var ifEmpty *ast.ListNode
	if t.next().typ == itemElse {
		t.expect(itemRightStmt, "else")
		ifEmpty = t.itemList(itemEndfor)
	}
	t.expect(itemRightStmt, "endfor")
	return &ast.ForNode{token.pos, vars, iter, body, ifEmpty}
}

// "set" has just been read.
func (t *tree) parseSet(token item) ast.Node {
	var names = []string{t.expect(itemIdent, "set").val}
	for t.peek().typ == itemComma {
		t.next()
		names = append(names, t.expect(itemIdent, "set").val)
	}
	switch next := t.next(); next.typ {
	case itemEquals:
		var node = &ast.SetNode{token.pos, names, t.parseExprList()}
		t.expect(itemRightStmt, "set")
		return node
	case itemRightStmt:
		if len(names) != 1 {
			t.errorf("set block accepts a single name")
		}
		var node = &ast.SetBlockNode{token.pos, names[0], t.itemList(itemEndset)}
		t.expect(itemRightStmt, "endset")
		return node
	default:
		t.unexpected(next, "set. (expected '=' or '%}')")
	}
	panic("unreachable")
}

// parseExprList parses a comma separated sequence of expressions, producing a
// tuple literal when there is more than one.
func (t *tree) parseExprList() ast.Node {
	var first = t.parseExpr(0)
	if t.peek().typ != itemComma {
		return first
	}
	var items = []ast.Node{first}
	for t.peek().typ == itemComma {
		t.next()
		items = append(items, t.parseExpr(0))
	}
	return &ast.TupleLiteralNode{first.Position(), items}
}

// "with" has just been read.
func (t *tree) parseWith(token item) ast.Node {
	var names []string
	var exprs []ast.Node
	for {
		names = append(names, t.expect(itemIdent, "with").val)
		t.expect(itemEquals, "with")
		exprs = append(exprs, t.parseExpr(0))
		if t.peek().typ != itemComma {
			break
		}
		t.next()
	}
	t.expect(itemRightStmt, "with")
	var body = t.itemList(itemEndwith)
	t.expect(itemRightStmt, "endwith")
	return &ast.WithNode{token.pos, names, exprs, body}
}

// "macro" has just been read.
func (t *tree) parseMacro(token item) ast.Node {
	var name = t.expect(itemIdent, "macro").val
	t.expect(itemLeftParen, "macro")
	var params []*ast.MacroParamNode
	if t.peek().typ == itemRightParen {
		t.next()
	} else {
		for {
			var id = t.expect(itemIdent, "macro param")
			var param = &ast.MacroParamNode{id.pos, id.val, nil}
			if t.peek().typ == itemEquals {
				t.next()
				param.Default = t.parseExpr(0)
			}
			params = append(params, param)
			if tok := t.next(); tok.typ == itemRightParen {
				break
			} else if tok.typ != itemComma {
				t.unexpected(tok, "macro params")
			}
		}
	}
	t.expect(itemRightStmt, "macro")
	var body = t.itemList(itemEndmacro)
	t.expect(itemRightStmt, "endmacro")
	return &ast.MacroNode{token.pos, name, params, body}
}

// "include" has just been read.
func (t *tree) parseInclude(token item) ast.Node {
	var node = &ast.IncludeNode{token.pos, t.parseExpr(0), false}
	for {
		switch tok := t.next(); {
		case tok.typ == itemIdent && tok.val == "ignore":
			t.expectIdent("missing", "include")
			node.IgnoreMissing = true
		case tok.typ == itemWith:
			t.expectIdent("context", "include")
		case tok.typ == itemIdent && tok.val == "without":
			t.expectIdent("context", "include")
		case tok.typ == itemRightStmt:
			return node
		default:
			t.unexpected(tok, "include")
		}
	}
}

// "import" has just been read.
func (t *tree) parseImport(token item) ast.Node {
	var tmpl = t.parseExpr(0)
	t.expect(itemAs, "import")
	var target = t.expect(itemIdent, "import").val
	t.parseContextModifier("import")
	return &ast.ImportNode{token.pos, tmpl, target}
}

// "from" has just been read.
func (t *tree) parseFromImport(token item) ast.Node {
	var tmpl = t.parseExpr(0)
	t.expect(itemImport, "from import")
	var names, aliases []string
	for {
		var name = t.expect(itemIdent, "from import").val
		var alias = name
		if t.peek().typ == itemAs {
			t.next()
			alias = t.expect(itemIdent, "from import").val
		}
		names = append(names, name)
		aliases = append(aliases, alias)
		if t.peek().typ != itemComma {
			break
		}
		t.next()
	}
	t.parseContextModifier("from import")
	return &ast.FromImportNode{token.pos, tmpl, names, aliases}
}

// parseContextModifier consumes an optional "with context" / "without
// context" suffix followed by the closing delimiter.
func (t *tree) parseContextModifier(ctx string) {
	switch tok := t.next(); {
	case tok.typ == itemWith:
		t.expectIdent("context", ctx)
		t.expect(itemRightStmt, ctx)
	case tok.typ == itemIdent && tok.val == "without":
		t.expectIdent("context", ctx)
		t.expect(itemRightStmt, ctx)
	case tok.typ == itemRightStmt:
	default:
		t.unexpected(tok, ctx)
	}
}

// "filter" has just been read.
func (t *tree) parseFilterBlock(token item) ast.Node {
	var name = t.expect(itemIdent, "filter block").val
	var args []ast.Node
	if t.peek().typ == itemLeftParen {
		t.next()
		args, _ = t.parseCallArgs()
	}
	t.expect(itemRightStmt, "filter block")
	var body = t.itemList(itemEndfilter)
	t.expect(itemRightStmt, "endfilter")
	return &ast.FilterBlockNode{token.pos, name, args, body}
}

// "raw" has just been read; the lexer fast-forwards the body.
func (t *tree) parseRaw(token item) ast.Node {
	t.expect(itemRightStmt, "raw")
	var text []byte
	if t.peek().typ == itemText {
		text = []byte(t.next().val)
	}
	t.expect(itemLeftStmt, "endraw")
	t.expect(itemEndraw, "endraw")
	t.expect(itemRightStmt, "endraw")
	return &ast.TextNode{token.pos, text}
}

// "block" has just been read.
func (t *tree) parseBlock(token item) ast.Node {
	var name = t.expect(itemIdent, "block").val
	t.expect(itemRightStmt, "block")
	var body = t.itemList(itemEndblock)
	if t.peek().typ == itemIdent {
		t.next() // tolerate {% endblock name %}
	}
	t.expect(itemRightStmt, "endblock")
	return &ast.BlockNode{token.pos, name, body}
}

// "extends" has just been read.
func (t *tree) parseExtends(token item) ast.Node {
	var node = &ast.ExtendsNode{token.pos, t.parseExpr(0)}
	t.expect(itemRightStmt, "extends")
	return node
}

// Expressions ----------

var precedence = map[itemType]int{
	itemOr:       1,
	itemAnd:      2,
	itemEq:       3,
	itemNotEq:    3,
	itemGt:       3,
	itemGte:      3,
	itemLt:       3,
	itemLte:      3,
	itemIn:       3,
	itemAdd:      4,
	itemSub:      4,
	itemTilde:    4,
	itemMul:      5,
	itemDiv:      5,
	itemFloorDiv: 5,
	itemMod:      5,
	itemPow:      6,
	itemNot:      7,
	itemNegate:   7,
}

// parseExpr parses an arbitrary expression involving filters, tests and
// arithmetic.
//
// For handling binary operators, we use the Precedence Climbing algorithm
// described in:
//   http://www.engr.mun.ca/~theo/Misc/exp_parsing.htm
func (t *tree) parseExpr(prec int) ast.Node {
	n := t.parsePostfix(t.parseExprFirstTerm())
	var tok item
	for {
		tok = t.next()
		if tok.typ == itemNot {
			if t.peek().typ == itemIn && precedence[itemIn] >= prec {
				var in = t.next()
				n = &ast.NotNode{tok.pos, newBinaryOpNode(in, n, t.parseExpr(precedence[itemIn]+1))}
				continue
			}
			// a bare `not` in binary position belongs to the caller
			t.backup2(tok)
			return n
		}
		q := precedence[tok.typ]
		if !isBinaryOp(tok.typ) || q < prec {
			break
		}
		q++
		n = newBinaryOpNode(tok, n, t.parseExpr(q))
	}
	if prec == 0 && tok.typ == itemIf {
		return t.parseCondExpr(n)
	}
	t.backup()
	return n
}

// Primary ->   "(" Expr ["," Expr ...] ")"
//            | u=UnaryOp PrecExpr(prec(u))
//            | Var | ListLiteral | DictLiteral | Primitive
func (t *tree) parseExprFirstTerm() ast.Node {
	switch tok := t.next(); {
	case tok.typ == itemNot:
		return &ast.NotNode{tok.pos, t.parseExpr(precedence[itemNot])}
	case tok.typ == itemNegate:
		return &ast.NegateNode{tok.pos, t.parseExpr(precedence[itemNegate])}
	case tok.typ == itemLeftParen:
		n := t.parseExpr(0)
		if t.peek().typ == itemComma {
			var items = []ast.Node{n}
			for t.peek().typ == itemComma {
				t.next()
				if t.peek().typ == itemRightParen {
					break
				}
				items = append(items, t.parseExpr(0))
			}
			t.expect(itemRightParen, "tuple literal")
			return &ast.TupleLiteralNode{tok.pos, items}
		}
		t.expect(itemRightParen, "expression")
		return n
	case isValue(tok):
		return t.newValueNode(tok)
	default:
		t.unexpected(tok, "expression")
	}
	return nil
}

// parsePostfix parses the postfix chain following a primary expression:
// attribute access, subscripting, calls, filters and tests.
func (t *tree) parsePostfix(n ast.Node) ast.Node {
	for {
		switch tok := t.next(); tok.typ {
		case itemDot:
			var id = t.expect(itemIdent, "attribute access")
			n = &ast.GetAttrNode{tok.pos, n, id.val}
		case itemLeftBracket:
			n = &ast.GetItemNode{tok.pos, n, t.parseSubscript()}
		case itemLeftParen:
			args, kwargs := t.parseCallArgs()
			n = &ast.CallNode{tok.pos, n, args, kwargs}
		case itemPipe:
			var id = t.expect(itemIdent, "filter")
			var filter = &ast.FilterNode{tok.pos, id.val, n, nil, nil}
			if t.peek().typ == itemLeftParen {
				t.next()
				filter.Args, filter.Kwargs = t.parseCallArgs()
			}
			n = filter
		case itemIs:
			n = t.parseTest(tok, n)
		default:
			t.backup()
			return n
		}
	}
}

// "is" has just been read.
func (t *tree) parseTest(token item, n ast.Node) ast.Node {
	var negated = false
	if t.peek().typ == itemNot {
		t.next()
		negated = true
	}
	var name string
	switch tok := t.next(); tok.typ {
	case itemIdent:
		name = tok.val
	case itemNull:
		name = "none"
	default:
		t.unexpected(tok, "test name")
	}
	var args []ast.Node
	switch t.peek().typ {
	case itemLeftParen:
		t.next()
		args, _ = t.parseCallArgs()
	case itemString, itemInteger, itemFloat, itemIdent, itemBool, itemNull:
		// bare single argument, e.g. `x is divisibleby 3`
		args = []ast.Node{t.parsePostfix(t.parseExprFirstTerm())}
	}
	return &ast.TestNode{token.pos, name, n, args, negated}
}

// parseSubscript parses the inside of a [...] access, which is either an
// expression or a slice.  The closing bracket is consumed.
func (t *tree) parseSubscript() ast.Node {
	var pos = t.peek().pos
	var start, stop, step ast.Node
	if t.peek().typ != itemColon {
		start = t.parseExpr(0)
		if t.peek().typ == itemRightBracket {
			t.next()
			return start
		}
	}
	t.expect(itemColon, "subscript")
	if t.peek().typ != itemRightBracket && t.peek().typ != itemColon {
		stop = t.parseExpr(0)
	}
	if t.peek().typ == itemColon {
		t.next()
		if t.peek().typ != itemRightBracket {
			step = t.parseExpr(0)
		}
	}
	t.expect(itemRightBracket, "subscript")
	return &ast.SliceNode{pos, start, stop, step}
}

// parseCallArgs parses a comma separated list of positional and keyword
// arguments.  The opening paren has been read; the closing paren is consumed.
func (t *tree) parseCallArgs() (args []ast.Node, kwargs []*ast.KwargNode) {
	if t.peek().typ == itemRightParen {
		t.next()
		return
	}
	for {
		var tok = t.next()
		if tok.typ == itemIdent {
			if t.peek().typ == itemEquals {
				t.next()
				kwargs = append(kwargs, &ast.KwargNode{tok.pos, tok.val, t.parseExpr(0)})
			} else {
				t.backup2(tok)
				args = append(args, t.parseExpr(0))
			}
		} else {
			t.backup()
			args = append(args, t.parseExpr(0))
		}
		switch tok := t.next(); tok.typ {
		case itemComma:
			// continue to get the next arg
		case itemRightParen:
			return
		default:
			t.unexpected(tok, "call arguments")
		}
	}
}

// parseCondExpr parses the inline condition within an expression.
// "if" has already been read, and the true-branch is provided.
func (t *tree) parseCondExpr(trueExpr ast.Node) ast.Node {
	var cond = t.parseExpr(1)
	var falseExpr ast.Node
	if t.peek().typ == itemElse {
		t.next()
		falseExpr = t.parseExpr(0)
	}
	return &ast.CondNode{trueExpr.Position(), trueExpr, cond, falseExpr}
}

// "[" has just been read.
func (t *tree) parseListLiteral(token item) ast.Node {
	if t.peek().typ == itemRightBracket {
		t.next()
		return &ast.ListLiteralNode{token.pos, nil}
	}
	var items []ast.Node
	for {
		items = append(items, t.parseExpr(0))
		switch next := t.next(); next.typ {
		case itemRightBracket:
			return &ast.ListLiteralNode{token.pos, items}
		case itemComma:
			if t.peek().typ == itemRightBracket {
				t.next()
				return &ast.ListLiteralNode{token.pos, items}
			}
		default:
			t.unexpected(next, "list literal")
		}
	}
}

// "{" has just been read.
func (t *tree) parseDictLiteral(token item) ast.Node {
	if t.peek().typ == itemRightBrace {
		t.next()
		return &ast.DictLiteralNode{token.pos, nil}
	}
	var items []*ast.DictEntryNode
	for {
		var key = t.parseExpr(0)
		t.expect(itemColon, "dict literal")
		items = append(items, &ast.DictEntryNode{key.Position(), key, t.parseExpr(0)})
		switch next := t.next(); next.typ {
		case itemRightBrace:
			return &ast.DictLiteralNode{token.pos, items}
		case itemComma:
			if t.peek().typ == itemRightBrace {
				t.next()
				return &ast.DictLiteralNode{token.pos, items}
			}
		default:
			t.unexpected(next, "dict literal")
		}
	}
}

func isBinaryOp(typ itemType) bool {
	switch typ {
	case itemMul, itemDiv, itemFloorDiv, itemMod, itemPow,
		itemAdd, itemSub, itemTilde,
		itemEq, itemNotEq, itemGt, itemGte, itemLt, itemLte, itemIn,
		itemOr, itemAnd:
		return true
	}
	return false
}

func isValue(t item) bool {
	switch t.typ {
	case itemNull, itemBool, itemInteger, itemFloat, itemString, itemIdent:
		return true
	case itemLeftBracket, itemLeftBrace:
		return true // list or dict literal
	}
	return false
}

func op(n ast.BinaryOpNode, name string) ast.BinaryOpNode {
	n.Name = name
	return n
}

func newBinaryOpNode(t item, n1, n2 ast.Node) ast.Node {
	var bin = ast.BinaryOpNode{"", t.pos, n1, n2}
	switch t.typ {
	case itemMul:
		return &ast.MulNode{op(bin, "*")}
	case itemDiv:
		return &ast.DivNode{op(bin, "/")}
	case itemFloorDiv:
		return &ast.FloorDivNode{op(bin, "//")}
	case itemMod:
		return &ast.ModNode{op(bin, "%")}
	case itemPow:
		return &ast.PowNode{op(bin, "**")}
	case itemAdd:
		return &ast.AddNode{op(bin, "+")}
	case itemSub:
		return &ast.SubNode{op(bin, "-")}
	case itemTilde:
		return &ast.ConcatNode{op(bin, "~")}
	case itemEq:
		return &ast.EqNode{op(bin, "==")}
	case itemNotEq:
		return &ast.NotEqNode{op(bin, "!=")}
	case itemGt:
		return &ast.GtNode{op(bin, ">")}
	case itemGte:
		return &ast.GteNode{op(bin, ">=")}
	case itemLt:
		return &ast.LtNode{op(bin, "<")}
	case itemLte:
		return &ast.LteNode{op(bin, "<=")}
	case itemIn:
		return &ast.InNode{op(bin, "in")}
	case itemOr:
		return &ast.OrNode{op(bin, "or")}
	case itemAnd:
		return &ast.AndNode{op(bin, "and")}
	}
	panic("unimplemented")
}

func (t *tree) newValueNode(tok item) ast.Node {
	switch tok.typ {
	case itemNull:
		return &ast.NullNode{tok.pos}
	case itemBool:
		return &ast.BoolNode{tok.pos, tok.val == "true" || tok.val == "True"}
	case itemInteger:
		var base = 10
		var str = tok.val
		if strings.HasPrefix(str, "0x") {
			base = 16
			str = str[2:]
		}
		value, err := strconv.ParseInt(str, base, 64)
		if err != nil {
			t.error(err)
		}
		return &ast.IntNode{tok.pos, value}
	case itemFloat:
		value, err := strconv.ParseFloat(tok.val, 64)
		if err != nil {
			t.error(err)
		}
		return &ast.FloatNode{tok.pos, value}
	case itemString:
		s, err := unquoteString(tok.val)
		if err != nil {
			t.errorf("error unquoting %s: %s", tok.val, err)
		}
		return &ast.StringNode{tok.pos, tok.val, s}
	case itemIdent:
		return &ast.VarNode{tok.pos, tok.val}
	case itemLeftBracket:
		return t.parseListLiteral(tok)
	case itemLeftBrace:
		return t.parseDictLiteral(tok)
	}
	panic("unreachable")
}

// Helpers ----------

// next returns the next token.
func (t *tree) next() item {
	if t.peekCount > 0 {
		t.peekCount--
	} else {
		t.token[0] = t.lex.nextItem()
	}
	return t.token[t.peekCount]
}

// backup backs the input stream up one token.
func (t *tree) backup() {
	t.peekCount++
}

// backup2 backs the input stream up two tokens.
// The zeroth token is already there.
func (t *tree) backup2(t1 item) {
	t.token[1] = t1
	t.peekCount = 2
}

// peek returns but does not consume the next token.
func (t *tree) peek() item {
	if t.peekCount > 0 {
		return t.token[t.peekCount-1]
	}
	t.peekCount = 1
	t.token[0] = t.lex.nextItem()
	return t.token[0]
}

// recover is the handler that turns panics into returns from the top level of
// Template.
func (t *tree) recover(errp *error) {
	e := recover()
	if e == nil {
		return
	}
	if _, ok := e.(runtime.Error); ok {
		panic(e)
	}
	t.lex = nil
	if str, ok := e.(string); ok {
		*errp = errors.New(str)
	} else {
		*errp = e.(error)
	}
}

// expect consumes the next token and guarantees it has the required type.
func (t *tree) expect(expected itemType, context string) item {
	token := t.next()
	if token.typ != expected {
		t.unexpected(token, fmt.Sprintf("%v (expected %v)", context, expected.String()))
	}
	return token
}

// expectIdent consumes the next token and guarantees it is the given bare
// identifier.
func (t *tree) expectIdent(val, context string) item {
	token := t.next()
	if token.typ != itemIdent || token.val != val {
		t.unexpected(token, fmt.Sprintf("%v (expected %q)", context, val))
	}
	return token
}

// unexpected complains about the token and terminates processing.
func (t *tree) unexpected(token item, context string) {
	if token.typ == itemError {
		t.errorf("lexical error: %v", token)
	}
	t.errorf("unexpected %v in %s", token, context)
}

// errorf formats the error and terminates processing.
func (t *tree) errorf(format string, args ...interface{}) {
	// get current token (taking account of backups)
	var tok = t.token[0]
	if t.peekCount > 0 {
		tok = t.token[t.peekCount-1]
	}
	t.root = nil
	format = fmt.Sprintf("template %s:%d:%d: %s", t.name,
		t.lex.lineNumber(tok.pos), t.lex.columnNumber(tok.pos), format)
	panic(fmt.Errorf(format, args...))
}

// error terminates processing.
func (t *tree) error(err error) {
	t.errorf("%s", err)
}

func isOneOf(tocheck itemType, against []itemType) bool {
	for _, x := range against {
		if tocheck == x {
			return true
		}
	}
	return false
}
