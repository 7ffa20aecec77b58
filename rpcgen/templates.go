package rpcgen

import (
	"bytes"
	"fmt"
	"go/format"
	"text/template"
)

// Generate renders the client and server stubs for every interface in
// ifaces into one Go source file in package pkg. The output is passed
// through go/format before being returned, matching how generated code is
// committed in contract/v2/sdk/go.
func Generate(pkg string, ifaces []InterfaceDesc) ([]byte, error) {
	funcs := template.FuncMap{
		"anyAsync": func(ifaces []InterfaceDesc) bool {
			for _, i := range ifaces {
				if i.Async {
					return true
				}
			}
			return false
		},
	}

	tmpl := template.Must(template.New("file").Funcs(funcs).Parse(fileTemplate))
	template.Must(tmpl.New("client").Parse(clientTemplate))
	template.Must(tmpl.New("server").Parse(serverTemplate))
	template.Must(tmpl.New("asyncClient").Parse(asyncClientTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct {
		Package    string
		Interfaces []InterfaceDesc
	}{Package: pkg, Interfaces: ifaces}); err != nil {
		return nil, fmt.Errorf("rpcgen: rendering template: %w", err)
	}

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("rpcgen: formatting generated source: %w\n%s", err, buf.String())
	}
	return formatted, nil
}

const fileTemplate = `// Code generated by rpcgen. DO NOT EDIT.

package {{.Package}}

import (
	"context"

	"github.com/rpcshim/rpcshim"
{{if anyAsync .Interfaces}}	"github.com/rpcshim/rpcshim/async"
{{end}})

{{range .Interfaces}}
{{template "client" .}}
{{template "server" .}}
{{if .Async}}{{template "asyncClient" .}}{{end}}
{{end}}`

var clientTemplate = `
// {{.Name}}Client implements {{.Name}} by driving a rpcshim.Transport.
type {{.Name}}Client[TX, RX any] struct {
	transport rpcshim.Transport[TX, RX]
	convert   func(*rpcshim.Error) {{.ErrorType}}
}

// {{.Name}}ClientOption configures New{{.Name}}Client, following the same
// functional-options shape used throughout this module.
type {{.Name}}ClientOption[TX, RX any] func(*{{.Name}}Client[TX, RX])

// With{{.Name}}ErrorConverter overrides how the framework's wire error is
// adapted into {{.ErrorType}}, the interface's declared error type.
{{if eq .ErrorType "error"}}// The default keeps *rpcshim.Error as-is.
{{else}}// There is no usable default for a non-built-in error type: callers must
// supply one.
{{end}}func With{{.Name}}ErrorConverter[TX, RX any](convert func(*rpcshim.Error) {{.ErrorType}}) {{.Name}}ClientOption[TX, RX] {
	return func(c *{{.Name}}Client[TX, RX]) { c.convert = convert }
}

// New{{.Name}}Client builds a {{.Name}}Client over transport.
func New{{.Name}}Client[TX, RX any](transport rpcshim.Transport[TX, RX], opts ...{{.Name}}ClientOption[TX, RX]) *{{.Name}}Client[TX, RX] {
	c := &{{.Name}}Client[TX, RX]{transport: transport}
{{if eq .ErrorType "error"}}	c.convert = func(e *rpcshim.Error) error { return e }
{{end}}	for _, opt := range opts {
		opt(c)
	}
	return c
}

{{$iface := .Name}}
{{$errType := .ErrorType}}
{{range .Methods}}
func (c *{{$iface}}Client[TX, RX]) {{.Name}}(ctx context.Context{{range .Params}}, {{.Name}} {{.Type}}{{end}}) ({{.ResultType}}, {{$errType}}) {
	result, rpcErr := rpcshim.Call[TX, RX, {{.ResultType}}](ctx, c.transport, rpcshim.FullMethod{Name: "{{.Name}}", Index: {{.Index}}}, []rpcshim.Param{
{{range .Params}}		{Name: "{{.Name}}", Value: {{.Name}}},
{{end}}	})
	if rpcErr != nil {
		return result, c.convert(rpcErr)
	}
	return result, nil
}
{{end}}
`

var serverTemplate = `
// {{.Name}}Server dispatches incoming calls to an {{.Name}} implementation.
type {{.Name}}Server[TX, RX any] struct {
	impl {{.Name}}
}

// New{{.Name}}Server builds a {{.Name}}Server over impl.
func New{{.Name}}Server[TX, RX any](impl {{.Name}}) *{{.Name}}Server[TX, RX] {
	return &{{.Name}}Server[TX, RX]{impl: impl}
}

// Table returns the dispatch table for use with rpcshim.ServeOne,
// rpcshim.ServeUntil, or rpcshim.ServeForever.
func (s *{{.Name}}Server[TX, RX]) Table() rpcshim.MethodTable[TX, RX] {
	byName := map[string]rpcshim.Handler[TX, RX]{}
	byIndex := make([]rpcshim.Handler[TX, RX], {{len .Methods}})
{{range .Methods}}
{{$method := .}}
	byIndex[{{.Index}}] = func(ctx context.Context, t rpcshim.Transport[TX, RX], rx RX) error {
{{range .Params}}		var {{.Name}} {{.Type}}
		if err := t.ReadParam(rx, "{{.Name}}", &{{.Name}}); err != nil {
			return t.TransmitResponse(rpcshim.Failure[{{$method.ResultType}}](rpcshim.FromSerializationError(err)))
		}
{{end}}		result, err := s.impl.{{.Name}}(ctx{{range .Params}}, {{.Name}}{{end}})
		if err != nil {
			return t.TransmitResponse(rpcshim.Failure[{{.ResultType}}](rpcshim.FromError(err)))
		}
		return t.TransmitResponse(rpcshim.Success(result))
	}
	byName["{{.Name}}"] = byIndex[{{.Index}}]
{{end}}
	return rpcshim.MethodTable[TX, RX]{ByIndex: byIndex, ByName: byName}
}
`

var asyncClientTemplate = `
// {{.Name}}AsyncClient issues {{.Name}}'s methods over an async.Transaction
// instead of an incremental rpcshim.Transport. Each method is exposed as
// <Method>Async returning an async.Future, so the type does not itself
// implement {{.Name}}.
type {{.Name}}AsyncClient struct {
	tx      async.Transaction
	convert func(*rpcshim.Error) {{.ErrorType}}
}

// {{.Name}}AsyncClientOption configures New{{.Name}}AsyncClient.
type {{.Name}}AsyncClientOption func(*{{.Name}}AsyncClient)

// With{{.Name}}AsyncErrorConverter overrides how the framework's wire error
// is adapted into {{.ErrorType}}, the interface's declared error type.
func With{{.Name}}AsyncErrorConverter(convert func(*rpcshim.Error) {{.ErrorType}}) {{.Name}}AsyncClientOption {
	return func(c *{{.Name}}AsyncClient) { c.convert = convert }
}

// New{{.Name}}AsyncClient builds a {{.Name}}AsyncClient over tx.
func New{{.Name}}AsyncClient(tx async.Transaction, opts ...{{.Name}}AsyncClientOption) *{{.Name}}AsyncClient {
	c := &{{.Name}}AsyncClient{tx: tx}
{{if eq .ErrorType "error"}}	c.convert = func(e *rpcshim.Error) error { return e }
{{end}}	for _, opt := range opts {
		opt(c)
	}
	return c
}

{{$iface := .Name}}
{{range .Methods}}
// {{.Name}}Async issues {{.Name}} without blocking for the reply.
func (c *{{$iface}}AsyncClient) {{.Name}}Async(ctx context.Context{{range .Params}}, {{.Name}} {{.Type}}{{end}}) (*async.Future[{{.ResultType}}], error) {
	return async.CallAsync[{{.ResultType}}](ctx, c.tx, rpcshim.FullMethod{Name: "{{.Name}}", Index: {{.Index}}}, []rpcshim.Param{
{{range .Params}}		{Name: "{{.Name}}", Value: {{.Name}}},
{{end}}	}, func(e *rpcshim.Error) error { return c.convert(e) })
}
{{end}}
`
