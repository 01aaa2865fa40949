package adapter

import (
	"bytes"
	"fmt"
	"go/scanner"
	"go/token"
	"path/filepath"
	"strconv"

	m "regcov.dev/pkg/regcov/internal/model"
)

// GoSourceNormalizer reduces a Go source file to its token stream. Comments
// and layout within a line are dropped; every token keeps its line number so
// line mapping survives normalization.
type GoSourceNormalizer struct{}

// NewGoSourceNormalizer returns a GoSourceNormalizer.
func NewGoSourceNormalizer() *GoSourceNormalizer {
	return &GoSourceNormalizer{}
}

// Name implements Normalizer.
func (n *GoSourceNormalizer) Name() string {
	return "go"
}

// Accepts implements Normalizer.
func (n *GoSourceNormalizer) Accepts(path m.Path, _ []byte) bool {
	return filepath.Ext(string(path)) == ".go"
}

// Normalize implements Normalizer.
func (n *GoSourceNormalizer) Normalize(content []byte) ([]byte, error) {
	fset := token.NewFileSet()
	file := fset.AddFile("", fset.Base(), len(content))

	var errs scanner.ErrorList

	var s scanner.Scanner
	s.Init(file, content, func(pos token.Position, msg string) {
		errs.Add(pos, msg)
	}, 0)

	var out bytes.Buffer

	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}

		// Automatic semicolons follow from the tokens and their lines.
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}

		out.WriteString(strconv.Itoa(file.Line(pos)))
		out.WriteByte(' ')
		out.WriteString(tok.String())

		if lit != "" {
			out.WriteByte(' ')
			out.WriteString(strconv.Quote(lit))
		}

		out.WriteByte('\n')
	}

	if len(errs) > 0 {
		errs.Sort()
		return nil, fmt.Errorf("scan go source: %w", errs.Err())
	}

	return out.Bytes(), nil
}
