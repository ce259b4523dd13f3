package main

import (
	"fmt"
	"strings"

	"github.com/wippyai/foreign-abi/layout"
	"github.com/wippyai/foreign-abi/linker"
)

// signature is a parsed C-like prototype such as
//
//	int32(address, ..., int32, float64)
//
// where "..." marks the first variadic argument and {int32 int64} is a struct.
type signature struct {
	desc          *linker.FunctionDescriptor
	firstVariadic int // -1 when not variadic
}

var scalarTypes = map[string]layout.Layout{
	"bool":    layout.Bool,
	"int8":    layout.Int8,
	"char16":  layout.Char16,
	"int16":   layout.Int16,
	"int32":   layout.Int32,
	"float32": layout.Float32,
	"int64":   layout.Int64,
	"float64": layout.Float64,
	"address": layout.Address,
	"ptr":     layout.Address,
}

func parseSignature(src string) (*signature, error) {
	p := &sigParser{toks: tokenize(src)}

	var ret layout.Layout
	if p.peek() == "void" {
		p.next()
	} else {
		var err error
		if ret, err = p.parseType(); err != nil {
			return nil, err
		}
	}

	if err := p.expect("("); err != nil {
		return nil, err
	}
	sig := &signature{firstVariadic: -1}
	var args []layout.Layout
	for p.peek() != ")" {
		if len(args) > 0 || sig.firstVariadic == 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		if p.peek() == "..." {
			p.next()
			if sig.firstVariadic >= 0 {
				return nil, fmt.Errorf("signature: more than one '...'")
			}
			sig.firstVariadic = len(args)
			continue
		}
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	p.next()
	if tok := p.peek(); tok != "" {
		return nil, fmt.Errorf("signature: unexpected %q after ')'", tok)
	}

	if ret == nil {
		sig.desc = linker.OfVoid(args...)
	} else {
		sig.desc = linker.Of(ret, args...)
	}
	return sig, nil
}

func (s *signature) options() []linker.Option {
	if s.firstVariadic < 0 {
		return nil
	}
	return []linker.Option{linker.FirstVariadicArg(s.firstVariadic)}
}

type sigParser struct {
	toks []string
	pos  int
}

func (p *sigParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *sigParser) next() string {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *sigParser) expect(tok string) error {
	if got := p.next(); got != tok {
		if got == "" {
			got = "end of input"
		}
		return fmt.Errorf("signature: expected %q, got %q", tok, got)
	}
	return nil
}

func (p *sigParser) parseType() (layout.Layout, error) {
	tok := p.next()
	if tok == "{" {
		var members []layout.Layout
		for p.peek() != "}" {
			if p.peek() == "" {
				return nil, fmt.Errorf("signature: unterminated struct")
			}
			p.skip(",")
			m, err := p.parseType()
			if err != nil {
				return nil, err
			}
			members = append(members, m)
		}
		p.next()
		return layout.PaddedStruct(members...)
	}
	if l, ok := scalarTypes[tok]; ok {
		return l, nil
	}
	if tok == "" {
		return nil, fmt.Errorf("signature: expected type, got end of input")
	}
	return nil, fmt.Errorf("signature: unknown type %q", tok)
}

func (p *sigParser) skip(tok string) {
	if p.peek() == tok {
		p.next()
	}
}

func tokenize(src string) []string {
	var toks []string
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case strings.HasPrefix(src[i:], "..."):
			toks = append(toks, "...")
			i += 3
		case strings.ContainsRune("(),{}", rune(c)):
			toks = append(toks, string(c))
			i++
		default:
			j := i
			for j < len(src) && !strings.ContainsRune(" \t\n(),{}.", rune(src[j])) {
				j++
			}
			if j == i {
				j++
			}
			toks = append(toks, src[i:j])
			i = j
		}
	}
	return toks
}
