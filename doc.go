// Package smartercsv is a streaming CSV core: a double-buffered byte
// source (see package source), an encoding-aware character cursor (see
// package charcursor), and a quote-aware row/field tokenizer, plus two
// stateless line-level parsers for callers that already have whole lines
// in hand.
//
// The tokenizer (Parser) is the streaming entry point:
//
//	src, enc, err := source.OpenFile("data.csv")
//	p, err := smartercsv.NewParser(src, enc, smartercsv.Options{})
//	for {
//		fields, err := p.ReadRowAsFields()
//		if err == io.EOF {
//			break
//		}
//	}
//
// ParseLine and ParseLineToRecord operate on an already-materialized
// logical line under the same quoting/escaping rules, for callers whose
// upstream framing already split the stream into lines.
package smartercsv
