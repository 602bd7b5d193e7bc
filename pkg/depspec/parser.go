// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package depspec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/exherbo-go/resolve/pkg/names"
	"github.com/exherbo-go/resolve/pkg/version"
)

// ParseError is returned by Parse on any malformed input. It carries the
// offending token and its position, per spec §4.1 "all parse errors abort
// with a typed parse error that includes the offending token; no partial
// tree is returned".
type ParseError struct {
	Input    string
	Position int
	Token    string
	Cause    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d (token %q) in %q: %s", e.Position, e.Token, e.Input, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

func parseErr(input string, pos int, tok string, cause error) error {
	return &ParseError{Input: input, Position: pos, Token: tok, Cause: cause}
}

type token struct {
	text string
	pos  int
}

// tokenize splits a dependency string on whitespace, further splitting any
// leading/trailing parens glued to a word so that "(foo" and "foo)" still
// yield separate paren tokens. This mirrors the space-delimited grammar
// used throughout ebuild-family dependency strings.
func tokenize(s string) []token {
	var toks []token
	i := 0
	n := len(s)
	for i < n {
		for i < n && isSpace(s[i]) {
			i++
		}
		if i >= n {
			break
		}
		start := i
		for i < n && !isSpace(s[i]) {
			i++
		}
		word := s[start:i]
		toks = append(toks, splitParens(word, start)...)
	}
	return toks
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' }

func splitParens(word string, base int) []token {
	var out []token
	// Strip leading '(' runs.
	i := 0
	for i < len(word) && word[i] == '(' {
		out = append(out, token{text: "(", pos: base + i})
		i++
	}
	j := len(word)
	trailingParens := 0
	for j > i && word[j-1] == ')' {
		j--
		trailingParens++
	}
	if j > i {
		out = append(out, token{text: word[i:j], pos: base + i})
	}
	for k := 0; k < trailingParens; k++ {
		out = append(out, token{text: ")", pos: base + j + k})
	}
	return out
}

// parser drives the recursive descent over a token stream.
type parser struct {
	input string
	toks  []token
	pos   int
	opts  ParseOptions
	tree  TreeKind
}

// Parse tokenises s and yields an immutable spec tree rooted at AllNode,
// per the grammar legalized by treeKind and opts (spec §4.1).
func Parse(s string, treeKind TreeKind, opts ParseOptions) (AllNode, error) {
	p := &parser{input: s, toks: tokenize(s), opts: opts, tree: treeKind}
	children, err := p.parseSequence()
	if err != nil {
		return AllNode{}, err
	}
	if p.pos != len(p.toks) {
		return AllNode{}, parseErr(s, p.toks[p.pos].pos, p.toks[p.pos].text, fmt.Errorf("unexpected token"))
	}
	return AllNode{Children: children}, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

// parseSequence parses zero or more children up to (but not consuming) a
// closing ")" or end of input.
func (p *parser) parseSequence() ([]Node, error) {
	var nodes []Node
	for {
		tok, ok := p.peek()
		if !ok || tok.text == ")" {
			return nodes, nil
		}
		node, err := p.parseOne()
		if err != nil {
			return nil, err
		}
		if next, ok := p.peek(); ok && next.text == "[[" {
			ann, err := p.parseAnnotations()
			if err != nil {
				return nil, err
			}
			node = attachAnnotations(node, ann)
		}
		nodes = append(nodes, node)
	}
}

// parseAnnotations parses a "[[ key = value ... ]]" block immediately
// trailing a node into a key-value map (spec §4.1 "Annotations [[ ... ]]
// after a node are parsed into a key-value map attached to that node").
// The opening "[[" has not yet been consumed by the caller.
func (p *parser) parseAnnotations() (map[string]string, error) {
	open := p.toks[p.pos]
	p.pos++
	ann := make(map[string]string)
	for {
		tok, ok := p.peek()
		if !ok {
			return nil, parseErr(p.input, open.pos, open.text, fmt.Errorf("unterminated annotation"))
		}
		if tok.text == "]]" {
			p.pos++
			return ann, nil
		}
		key := tok.text
		p.pos++
		eq, ok := p.peek()
		if !ok || eq.text != "=" {
			return nil, parseErr(p.input, open.pos, open.text, fmt.Errorf("expected '=' after annotation key %q", key))
		}
		p.pos++
		val, ok := p.peek()
		if !ok || val.text == "]]" {
			return nil, parseErr(p.input, open.pos, open.text, fmt.Errorf("expected value after annotation key %q", key))
		}
		p.pos++
		ann[key] = val.text
	}
}

// parseOne parses a single spec-tree element starting at p.pos.
func (p *parser) parseOne() (Node, error) {
	tok := p.toks[p.pos]

	switch {
	case tok.text == "(":
		p.pos++
		return p.parseGroup(KindAll, "", false)

	case tok.text == "||":
		if !p.opts.AllowAnyGroups || !p.tree.Legal(KindAny) {
			return nil, parseErr(p.input, tok.pos, tok.text, fmt.Errorf("|| groups are not legal here"))
		}
		p.pos++
		if err := p.expectOpenParen(); err != nil {
			return nil, err
		}
		return p.parseGroup(KindAny, "", false)

	case strings.HasSuffix(tok.text, "?") && tok.text != "?":
		flag := strings.TrimSuffix(tok.text, "?")
		negate := strings.HasPrefix(flag, "!")
		if negate {
			flag = strings.TrimPrefix(flag, "!")
		}
		if !p.tree.Legal(KindConditional) {
			return nil, parseErr(p.input, tok.pos, tok.text, fmt.Errorf("conditionals are not legal here"))
		}
		p.pos++
		if err := p.expectOpenParen(); err != nil {
			return nil, err
		}
		return p.parseGroup(KindConditional, flag, negate)

	case p.opts.AllowLabels && p.tree == TreeDependency && isLabelToken(tok.text):
		if !p.tree.Legal(KindDependencyLabels) {
			return nil, parseErr(p.input, tok.pos, tok.text, fmt.Errorf("labels are not legal here"))
		}
		p.pos++
		return DependencyLabelsNode{Labels: strings.Split(strings.TrimSuffix(tok.text, ":"), ",")}, nil

	case p.opts.AllowLabels && p.tree == TreeFetchableURI && isLabelToken(tok.text):
		if !p.tree.Legal(KindURILabels) {
			return nil, parseErr(p.input, tok.pos, tok.text, fmt.Errorf("labels are not legal here"))
		}
		p.pos++
		return URILabelsNode{Labels: strings.Split(strings.TrimSuffix(tok.text, ":"), ",")}, nil

	default:
		return p.parseLeaf()
	}
}

func isLabelToken(s string) bool {
	// A label token is a bareword ending in ':' that is not itself a slot
	// dep (those always appear glued to a package atom, never standalone).
	return strings.HasSuffix(s, ":") && len(s) > 1 && !strings.Contains(s, "/")
}

func (p *parser) expectOpenParen() error {
	tok, ok := p.peek()
	if !ok {
		return parseErr(p.input, len(p.input), "", fmt.Errorf("expected '(' before end of input"))
	}
	if tok.text != "(" {
		return parseErr(p.input, tok.pos, tok.text, fmt.Errorf("expected '('"))
	}
	p.pos++
	return nil
}

// parseGroup parses the body of a group whose opening "(" has already been
// consumed by the caller.
func (p *parser) parseGroup(kind NodeKind, flag string, negate bool) (Node, error) {
	children, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	tok, ok := p.peek()
	if !ok || tok.text != ")" {
		return nil, parseErr(p.input, len(p.input), "", fmt.Errorf("unterminated group"))
	}
	p.pos++

	switch kind {
	case KindAll:
		return AllNode{Children: children}, nil
	case KindAny:
		return AnyNode{Children: children}, nil
	case KindConditional:
		return ConditionalNode{Flag: flag, Negate: negate, Children: children}, nil
	}
	panic("unreachable")
}

// parseLeaf parses a single bareword leaf, dispatching on the active
// TreeKind.
func (p *parser) parseLeaf() (Node, error) {
	tok := p.toks[p.pos]
	word := tok.text

	switch p.tree {
	case TreeLicense:
		if !p.tree.Legal(KindLicense) {
			return nil, parseErr(p.input, tok.pos, word, fmt.Errorf("license leaves are not legal here"))
		}
		p.pos++
		return LicenseNode{Name: word}, nil

	case TreePlainText:
		p.pos++
		return PlainTextNode{Text: word}, nil

	case TreeSimpleURI:
		p.pos++
		return SimpleURINode{URL: word}, nil

	case TreeFetchableURI:
		p.pos++
		from := word
		rename := ""
		if next, ok := p.peek(); ok && next.text == "->" {
			if !p.opts.AllowArrow {
				return nil, parseErr(p.input, next.pos, next.text, fmt.Errorf("arrow fetch-uris are not legal here"))
			}
			p.pos++
			target, ok := p.peek()
			if !ok {
				return nil, parseErr(p.input, len(p.input), "", fmt.Errorf("expected rename target after '->'"))
			}
			p.pos++
			rename = target.text
		}
		return FetchableURINode{FromURL: from, Rename: rename}, nil

	case TreeSet:
		if strings.HasPrefix(word, "@") {
			p.pos++
			return NamedSetNode{Name: strings.TrimPrefix(word, "@")}, nil
		}
		return p.parsePackageOrBlock()

	default: // TreeDependency, TreeProvide
		if strings.Contains(word, "->") {
			return nil, parseErr(p.input, tok.pos, word, fmt.Errorf("arrows are only legal in fetchable-URI trees"))
		}
		return p.parsePackageOrBlock()
	}
}

func (p *parser) parsePackageOrBlock() (Node, error) {
	tok := p.toks[p.pos]
	word := tok.text

	strong := strings.HasPrefix(word, "!!")
	weak := !strong && strings.HasPrefix(word, "!")
	if strong || weak {
		if !p.tree.Legal(KindBlock) {
			return nil, parseErr(p.input, tok.pos, word, fmt.Errorf("blockers are not legal here"))
		}
		rest := word
		if strong {
			rest = strings.TrimPrefix(rest, "!!")
		} else {
			rest = strings.TrimPrefix(rest, "!")
		}
		spec, err := ParsePackageDepSpec(rest, p.opts)
		if err != nil {
			return nil, parseErr(p.input, tok.pos, word, err)
		}
		p.pos++
		return BlockNode{Spec: spec, Strong: strong}, nil
	}

	if !p.tree.Legal(KindPackage) {
		return nil, parseErr(p.input, tok.pos, word, fmt.Errorf("package leaves are not legal here"))
	}
	spec, err := ParsePackageDepSpec(word, p.opts)
	if err != nil {
		return nil, parseErr(p.input, tok.pos, word, err)
	}
	p.pos++
	return PackageNode{Spec: spec}, nil
}

// --- PackageDepSpec string parsing ---

var pdsRE = regexp.MustCompile(`^` +
	`(?P<op>[<>=~]?=?)` +
	`(?P<cat>[^/\s\[\]:*]+|\*)/(?P<pkg>[^/\s\[\]:*-][^/\s\[\]:]*?|\*)` +
	`(?:-(?P<ver>[0-9][^\s\[\]:]*))?` +
	`(?P<star>\*)?` +
	`(?P<slot>:[^\s\[\]:]+)?` +
	`(?P<repo>::[^\s\[\]]+)?` +
	`(?P<brackets>(?:\[[^\]]*\])*)` +
	`$`)

// ParsePackageDepSpec parses a PackageDepSpec in this subset of the
// canonical grammar of spec §6:
//
//	[op]cat/pkg[-ver][*][:slot|:slot*|:=|:*=][::repo|::[fromrepo]->torepo][[flag,-flag,flag=,flag?]...][[.key=value]...]
//
// The ":slot=" and bare ":*" slot forms and a bracketed list of version
// requirements are not accepted.
func ParsePackageDepSpec(s string, opts ParseOptions) (PackageDepSpec, error) {
	m := pdsRE.FindStringSubmatch(s)
	if m == nil {
		return PackageDepSpec{}, &PackageDepSpecError{Cause: fmt.Errorf("cannot parse %q as a package dep spec", s)}
	}
	groups := make(map[string]string)
	for i, name := range pdsRE.SubexpNames() {
		if name != "" && i < len(m) {
			groups[name] = m[i]
		}
	}

	catStr, pkgStr := groups["cat"], groups["pkg"]
	var b *PackageDepSpecBuilder
	switch {
	case catStr == "*" && pkgStr == "*":
		b = NewWildcardPackageDepSpecBuilder(NameBothWildcard, "", "")
	case catStr == "*":
		pkg, err := names.NewPackageNamePart(pkgStr)
		if err != nil {
			return PackageDepSpec{}, err
		}
		b = NewWildcardPackageDepSpecBuilder(NameCategoryWildcard, "", pkg)
	case pkgStr == "*":
		cat, err := names.NewCategoryNamePart(catStr)
		if err != nil {
			return PackageDepSpec{}, err
		}
		b = NewWildcardPackageDepSpecBuilder(NamePackageWildcard, cat, "")
	default:
		cat, err := names.NewCategoryNamePart(catStr)
		if err != nil {
			return PackageDepSpec{}, err
		}
		pkg, err := names.NewPackageNamePart(pkgStr)
		if err != nil {
			return PackageDepSpec{}, err
		}
		b = NewPackageDepSpecBuilder(names.QualifiedPackageName{Category: cat, Package: pkg})
	}

	if verStr := groups["ver"]; verStr != "" {
		opStr := groups["op"]
		if groups["star"] == "*" {
			opStr = "=*"
		}
		if opStr == "" {
			opStr = "="
		}
		op, err := version.ParseOperator(opStr)
		if err != nil {
			return PackageDepSpec{}, err
		}
		v, err := version.Parse(verStr)
		if err != nil {
			return PackageDepSpec{}, err
		}
		b.AddVersionRequirement(version.Requirement{Operator: op, Version: v})
	} else if groups["op"] != "" {
		return PackageDepSpec{}, &PackageDepSpecError{Cause: fmt.Errorf("version operator given without a version in %q", s)}
	}

	if slotStr := groups["slot"]; slotStr != "" {
		if !opts.AllowSlotDeps {
			return PackageDepSpec{}, &PackageDepSpecError{Cause: fmt.Errorf("slot dependencies are not legal here")}
		}
		sr, err := parseSlotRequirement(slotStr[1:])
		if err != nil {
			return PackageDepSpec{}, err
		}
		b.Slot(sr)
	}

	if repoStr := groups["repo"]; repoStr != "" {
		if !opts.AllowRepositoryQualifiers {
			return PackageDepSpec{}, &PackageDepSpecError{Cause: fmt.Errorf("repository qualifiers are not legal here")}
		}
		rr, err := parseRepositoryRequirement(repoStr[2:])
		if err != nil {
			return PackageDepSpec{}, err
		}
		b.Repository(rr)
	}

	if bracketsStr := groups["brackets"]; bracketsStr != "" {
		if err := parseBrackets(bracketsStr, b); err != nil {
			return PackageDepSpec{}, err
		}
	}

	return b.Build()
}

func parseSlotRequirement(s string) (SlotRequirement, error) {
	switch {
	case s == "=":
		return SlotRequirement{Kind: SlotAny}, nil
	case s == "*=":
		return SlotRequirement{Kind: SlotAnyLocked}, nil
	case strings.HasSuffix(s, "*"):
		slot, err := names.NewSlotName(strings.TrimSuffix(s, "*"))
		if err != nil {
			return SlotRequirement{}, err
		}
		return SlotRequirement{Kind: SlotStar, Slot: slot}, nil
	default:
		slot, err := names.NewSlotName(s)
		if err != nil {
			return SlotRequirement{}, err
		}
		return SlotRequirement{Kind: SlotExact, Slot: slot}, nil
	}
}

func parseRepositoryRequirement(s string) (RepositoryRequirement, error) {
	if i := strings.Index(s, "->"); i >= 0 {
		from, to := s[:i], s[i+2:]
		var rr RepositoryRequirement
		if from != "" {
			fn, err := names.NewRepositoryName(from)
			if err != nil {
				return RepositoryRequirement{}, err
			}
			rr.FromRepository = fn
		}
		tn, err := names.NewRepositoryName(to)
		if err != nil {
			return RepositoryRequirement{}, err
		}
		rr.ToRepository = tn
		return rr, nil
	}
	rn, err := names.NewRepositoryName(s)
	if err != nil {
		return RepositoryRequirement{}, err
	}
	return RepositoryRequirement{InRepository: rn}, nil
}

func parseBrackets(s string, b *PackageDepSpecBuilder) error {
	for len(s) > 0 {
		if s[0] != '[' {
			return &PackageDepSpecError{Cause: fmt.Errorf("malformed bracket requirement in %q", s)}
		}
		end := strings.IndexByte(s, ']')
		if end < 0 {
			return &PackageDepSpecError{Cause: fmt.Errorf("unterminated bracket requirement in %q", s)}
		}
		body := s[1:end]
		s = s[end+1:]

		if strings.HasPrefix(body, ".") {
			kv := strings.SplitN(body[1:], "=", 2)
			if len(kv) != 2 {
				return &PackageDepSpecError{Cause: fmt.Errorf("malformed key requirement [.%s]", body[1:])}
			}
			b.AddKeyRequirement(KeyRequirement{Key: kv[0], Value: kv[1]})
			continue
		}

		// A single bracket may hold several comma-separated requirements,
		// e.g. "[nls,-doc]".
		for _, flag := range strings.Split(body, ",") {
			cond := ConditionPlain
			switch {
			case strings.HasSuffix(flag, "="):
				cond = ConditionEqual
				flag = strings.TrimSuffix(flag, "=")
			case strings.HasSuffix(flag, "?"):
				cond = ConditionReverse
				flag = strings.TrimSuffix(flag, "?")
			}
			enabled := true
			if strings.HasPrefix(flag, "-") {
				enabled = false
				flag = strings.TrimPrefix(flag, "-")
			}
			b.AddChoiceRequirement(ChoiceRequirement{Flag: flag, Enabled: enabled, Condition: cond})
		}
	}
	return nil
}
