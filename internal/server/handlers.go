package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"go-method-tracer/internal/program"
	"go-method-tracer/internal/rules"
	"go-method-tracer/internal/selector"
)

// FuncInfo locates one function.
type FuncInfo struct {
	Symbol   string `json:"symbol"`
	Class    string `json:"class"`
	Position string `json:"position,omitempty"`
}

// TypeInfo summarises one class of a package.
type TypeInfo struct {
	Name    string `json:"name"`
	Methods int    `json:"methods"`
}

// PackageInfo summarises one package.
type PackageInfo struct {
	Path  string     `json:"path"`
	Types []TypeInfo `json:"types"`
}

// PackagesResult is the list_packages payload.
type PackagesResult struct {
	Packages []PackageInfo `json:"packages"`
}

// FuncsResult is the payload of select_targets and called_funcs.
type FuncsResult struct {
	Funcs []FuncInfo `json:"funcs"`
}

func funcInfo(m program.Method) FuncInfo {
	info := FuncInfo{Symbol: m.Symbol(), Class: m.Class().Name()}
	if fn, ok := m.(*program.Func); ok {
		info.Position = fn.Position().String()
	}
	return info
}

func funcInfos(ms []program.Method) FuncsResult {
	out := FuncsResult{Funcs: make([]FuncInfo, len(ms))}
	for i, m := range ms {
		out.Funcs[i] = funcInfo(m)
	}
	return out
}

func (s *Server) loadFor(ctx context.Context, request mcp.CallToolRequest) (*program.Program, *mcp.CallToolResult) {
	prog, err := s.load(ctx, request.GetString("project", ""), request.GetBool("refresh", false))
	if err != nil {
		return nil, mcp.NewToolResultError("Failed to load project: " + err.Error())
	}
	return prog, nil
}

// listPackagesHandler handles requests for the 'list_packages' tool.
func (s *Server) listPackagesHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prog, errResult := s.loadFor(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	var result PackagesResult
	for _, p := range prog.Packages() {
		info := PackageInfo{Path: p.Name()}
		for _, c := range p.Classes() {
			info.Types = append(info.Types, TypeInfo{Name: c.Name(), Methods: len(c.Methods())})
		}
		result.Packages = append(result.Packages, info)
	}
	return mcp.NewToolResultStructured(result, fmt.Sprintf("%d packages", len(result.Packages))), nil
}

// selectTargetsHandler handles requests for the 'select_targets' tool.
func (s *Server) selectTargetsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prog, errResult := s.loadFor(ctx, request)
	if errResult != nil {
		return errResult, nil
	}

	var file *rules.File
	if doc := request.GetString("rules", ""); doc != "" {
		f, err := rules.Parse(strings.NewReader(doc))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		file = f
	} else {
		file = &rules.File{Rules: []rules.Rule{{
			Name:     "request",
			Packages: request.GetStringSlice("packages", nil),
			Classes:  request.GetStringSlice("classes", nil),
			Methods:  request.GetStringSlice("methods", nil),
			Filters: rules.Filters{
				Packages: request.GetStringSlice("package_globs", nil),
				Classes:  request.GetStringSlice("class_globs", nil),
				Methods:  request.GetStringSlice("method_globs", nil),
				Params:   request.GetStringSlice("param_types", nil),
				Exported: request.GetBool("exported", false),
			},
			FollowCalls: request.GetInt("follow_calls", 0),
		}}}
	}

	b := selector.New(prog, nil,
		selector.WithLogger(s.logger),
		selector.OnResolve(func(r selector.Resolution) {
			if s.metrics != nil {
				s.metrics.TargetsResolved(r.Root, r.Added)
			}
		}),
	)
	if _, err := file.Apply(b, prog); err != nil {
		return mcp.NewToolResultError("Failed to select targets: " + err.Error()), nil
	}
	result := funcInfos(b.Targets().Methods())
	return mcp.NewToolResultStructured(result, fmt.Sprintf("%d targets", len(result.Funcs))), nil
}

// funcCodeHandler handles requests for the 'func_code' tool.
func (s *Server) funcCodeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := request.RequireString("symbol")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prog, errResult := s.loadFor(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	fn, err := prog.Lookup(symbol)
	if err != nil {
		return mcp.NewToolResultError("Failed to find target: " + err.Error()), nil
	}
	code, err := fn.Source()
	if err != nil {
		return mcp.NewToolResultError("Failed to get function code: " + err.Error()), nil
	}
	return mcp.NewToolResultText(code), nil
}

// typeCodeHandler handles requests for the 'type_code' tool.
func (s *Server) typeCodeHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pkgPath, err := request.RequireString("package")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typeName, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prog, errResult := s.loadFor(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	pkg, err := prog.Package(pkgPath)
	if err != nil {
		return mcp.NewToolResultError("Failed to find package: " + err.Error()), nil
	}
	t, err := pkg.Type(typeName)
	if err != nil {
		return mcp.NewToolResultError("Failed to find type: " + err.Error()), nil
	}
	code, err := t.Source()
	if err != nil {
		return mcp.NewToolResultError("Failed to get type code: " + err.Error()), nil
	}
	return mcp.NewToolResultText(code), nil
}

// calledFuncsHandler handles requests for the 'called_funcs' tool.
func (s *Server) calledFuncsHandler(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := request.RequireString("symbol")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	depth := request.GetInt("depth", 1)
	prog, errResult := s.loadFor(ctx, request)
	if errResult != nil {
		return errResult, nil
	}
	fn, err := prog.Lookup(symbol)
	if err != nil {
		return mcp.NewToolResultError("Failed to find target: " + err.Error()), nil
	}
	result := funcInfos(prog.Callees(fn, depth))
	return mcp.NewToolResultStructured(result, fmt.Sprintf("%d functions", len(result.Funcs))), nil
}

func projectArg() mcp.ToolOption {
	return mcp.WithString("project", mcp.Description("Path to the Go project root. Defaults to the configured project."))
}

func refreshArg() mcp.ToolOption {
	return mcp.WithBoolean("refresh", mcp.Description("Reload the project instead of using the cached load."))
}

// registerTools defines all tools on the server and registers their handlers.
func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("list_packages",
		mcp.WithDescription("List the packages of a Go project with their types and how many functions each declares. Free functions are grouped under the pseudo-type '(funcs)'. Start here to find names for select_targets."),
		projectArg(),
		refreshArg(),
		mcp.WithOutputSchema[PackagesResult](),
	), s.listPackagesHandler)

	s.mcp.AddTool(mcp.NewTool("select_targets",
		mcp.WithDescription("Select trace targets from a Go project. Either pass a YAML rules document in 'rules', or describe one selection with the other arguments. Explicit methods take precedence over classes, classes over packages, and with none of them the whole project is the scope. Returns the runtime symbols of the selected functions."),
		projectArg(),
		refreshArg(),
		mcp.WithString("rules", mcp.Description("YAML rules document: 'rules: [{name, packages, classes, methods, filters: {packages, classes, methods, params, exported}, follow_calls}]'.")),
		mcp.WithArray("packages", mcp.WithStringItems(), mcp.Description("Import paths to select from, e.g. 'example.com/shop/cart'.")),
		mcp.WithArray("classes", mcp.WithStringItems(), mcp.Description("Types as 'importpath.Type'; 'importpath.(funcs)' selects free functions.")),
		mcp.WithArray("methods", mcp.WithStringItems(), mcp.Description("Runtime symbols such as 'example.com/shop/cart.(*Cart).Add'.")),
		mcp.WithArray("package_globs", mcp.WithStringItems(), mcp.Description("Glob patterns on import paths, e.g. 'example.com/shop/**'.")),
		mcp.WithArray("class_globs", mcp.WithStringItems(), mcp.Description("Glob patterns on type names.")),
		mcp.WithArray("method_globs", mcp.WithStringItems(), mcp.Description("Glob patterns on function names.")),
		mcp.WithArray("param_types", mcp.WithStringItems(), mcp.Description("Keep functions with at least one parameter whose type matches, e.g. 'context.Context'.")),
		mcp.WithBoolean("exported", mcp.Description("Keep only exported types and functions.")),
		mcp.WithNumber("follow_calls", mcp.Description("Also select functions called by the selection, up to this many levels deep.")),
		mcp.WithOutputSchema[FuncsResult](),
	), s.selectTargetsHandler)

	s.mcp.AddTool(mcp.NewTool("func_code",
		mcp.WithDescription("Get the formatted source of a function or method by its runtime symbol, as returned by select_targets or called_funcs."),
		projectArg(),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Runtime symbol, e.g. 'example.com/shop/store.(*Store).Checkout' or 'main.run'.")),
	), s.funcCodeHandler)

	s.mcp.AddTool(mcp.NewTool("type_code",
		mcp.WithDescription("Get the formatted declaration of a named type."),
		projectArg(),
		mcp.WithString("package", mcp.Required(), mcp.Description("Import path of the package declaring the type.")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Type name, case-sensitive.")),
	), s.typeCodeHandler)

	s.mcp.AddTool(mcp.NewTool("called_funcs",
		mcp.WithDescription("List the project functions a function calls, breadth first. Depth 1 gives immediate callees; higher depths follow the call chain."),
		projectArg(),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Runtime symbol of the function to start from.")),
		mcp.WithNumber("depth", mcp.Description("Call levels to follow. Defaults to 1.")),
		mcp.WithOutputSchema[FuncsResult](),
	), s.calledFuncsHandler)
}
