// Package rpcgen builds client and server stubs for an interface from its
// Go source, the way contract/v2/sdk/go's generator builds REST client
// source from a service descriptor: parse with go/parser, walk the AST,
// render with text/template. Source-level parsing is required rather than
// reflection because reflect.Type.Method on an interface type returns
// methods sorted alphabetically, not in declaration order, and the wire
// protocol's method index is defined to be declaration order.
package rpcgen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"strings"
)

// Directive is the doc-comment marker that marks an interface for stub
// generation: "//rpcshim:generate" alone emits a synchronous client and
// server; "//rpcshim:generate async" additionally emits an async client.
const Directive = "rpcshim:generate"

// ParamDesc is one method parameter, in declaration order.
type ParamDesc struct {
	Name string
	Type string
}

// MethodDesc is one interface method, fully resolved for template
// rendering. Index is the method's zero-based position among the methods
// declared in its interface (skipped embedded interfaces take no index) —
// the authoritative wire index.
type MethodDesc struct {
	Name       string
	Index      int
	Params     []ParamDesc
	ResultType string
	ErrorType  string
}

// InterfaceDesc is one annotated interface ready for generation. ErrorType
// is the declared error type shared by every method on the interface — it
// need not be the literal built-in error; any type implementing error is
// allowed, and generated code routes it through an ErrorConverter.
type InterfaceDesc struct {
	Name      string
	Methods   []MethodDesc
	Async     bool
	ErrorType string
}

// ParseFile parses the Go source in filename and returns every interface
// declaration annotated with Directive, in source order. Undecorated
// declarations are ignored; an annotated declaration that is not an
// interface is an error.
func ParseFile(filename string, src any) ([]InterfaceDesc, string, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, "", fmt.Errorf("rpcgen: parsing %s: %w", filename, err)
	}

	var out []InterfaceDesc
	for _, decl := range file.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		doc := gd.Doc
		for _, spec := range gd.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			d := doc
			if ts.Doc != nil {
				d = ts.Doc
			}
			async, annotated := directiveArgs(d)
			if !annotated {
				continue
			}
			it, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				return nil, "", fmt.Errorf("rpcgen: %s: %s is annotated but is not an interface", filename, ts.Name.Name)
			}
			desc, err := describeInterface(fset, ts.Name.Name, it)
			if err != nil {
				return nil, "", err
			}
			desc.Async = async
			out = append(out, desc)
		}
	}
	return out, file.Name.Name, nil
}

// directiveArgs reports whether a doc comment carries Directive and, if so,
// whether "async" follows it.
func directiveArgs(doc *ast.CommentGroup) (async bool, found bool) {
	if doc == nil {
		return false, false
	}
	for _, c := range doc.List {
		text := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
		if !strings.HasPrefix(text, Directive) {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(text, Directive))
		return rest == "async", true
	}
	return false, false
}

func describeInterface(fset *token.FileSet, name string, it *ast.InterfaceType) (InterfaceDesc, error) {
	desc := InterfaceDesc{Name: name}
	for i, field := range it.Methods.List {
		ft, ok := field.Type.(*ast.FuncType)
		if !ok {
			continue // embedded interface; unsupported, skipped rather than rejected
		}
		if len(field.Names) != 1 {
			return InterfaceDesc{}, fmt.Errorf("rpcgen: %s: method at index %d must have exactly one name", name, i)
		}

		md := MethodDesc{Name: field.Names[0].Name, Index: len(desc.Methods)}

		params, err := describeParams(fset, ft.Params)
		if err != nil {
			return InterfaceDesc{}, fmt.Errorf("rpcgen: %s.%s: %w", name, md.Name, err)
		}
		if len(params) == 0 || params[0].Type != "context.Context" {
			return InterfaceDesc{}, fmt.Errorf("rpcgen: %s.%s: first parameter must be context.Context", name, md.Name)
		}
		md.Params = params[1:]

		resultType, errType, err := describeResults(fset, ft.Results)
		if err != nil {
			return InterfaceDesc{}, fmt.Errorf("rpcgen: %s.%s: %w", name, md.Name, err)
		}
		md.ResultType = resultType
		md.ErrorType = errType

		if desc.ErrorType == "" {
			desc.ErrorType = errType
		} else if desc.ErrorType != errType {
			return InterfaceDesc{}, fmt.Errorf("rpcgen: %s.%s: declared error type %q does not match %s's declared error type %q; every method on an interface must share one declared error type",
				name, md.Name, errType, name, desc.ErrorType)
		}

		desc.Methods = append(desc.Methods, md)
	}
	return desc, nil
}

func describeParams(fset *token.FileSet, fl *ast.FieldList) ([]ParamDesc, error) {
	if fl == nil {
		return nil, nil
	}
	var out []ParamDesc
	for _, f := range fl.List {
		typ, err := exprString(fset, f.Type)
		if err != nil {
			return nil, err
		}
		if len(f.Names) == 0 {
			out = append(out, ParamDesc{Name: fmt.Sprintf("arg%d", len(out)), Type: typ})
			continue
		}
		for _, n := range f.Names {
			out = append(out, ParamDesc{Name: n.Name, Type: typ})
		}
	}
	return out, nil
}

// describeResults requires exactly (T, E): two return values, the second of
// which is the method's declared error type. E need not be the literal
// built-in error — any type implementing error is accepted, matching
// essrpc's support for a custom declared error type per service.
func describeResults(fset *token.FileSet, fl *ast.FieldList) (resultType, errType string, err error) {
	if fl == nil || len(fl.List) == 0 {
		return "", "", fmt.Errorf("method must return (T, E) where E implements error")
	}
	var types []string
	for _, f := range fl.List {
		typ, err := exprString(fset, f.Type)
		if err != nil {
			return "", "", err
		}
		n := len(f.Names)
		if n == 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			types = append(types, typ)
		}
	}
	if len(types) != 2 {
		return "", "", fmt.Errorf("method must return exactly (T, E) where E implements error, got (%s)", strings.Join(types, ", "))
	}
	return types[0], types[1], nil
}

func exprString(fset *token.FileSet, expr ast.Expr) (string, error) {
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, expr); err != nil {
		return "", err
	}
	return buf.String(), nil
}
