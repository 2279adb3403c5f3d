package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-method-tracer/internal/logging"
	"go-method-tracer/internal/metrics"
)

const shop = "../program/testdata/shop"

func newServer(t *testing.T) *Server {
	t.Helper()
	return New(WithProject(shop, nil, false), WithMetrics(metrics.New(false)), WithLogger(logging.Nop()))
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return tc.Text
}

func symbols(t *testing.T, res *mcp.CallToolResult) []string {
	t.Helper()
	require.False(t, res.IsError, text(t, res))
	result, ok := res.StructuredContent.(FuncsResult)
	require.True(t, ok, "structured content is %T", res.StructuredContent)
	out := make([]string, len(result.Funcs))
	for i, f := range result.Funcs {
		out[i] = f.Symbol
	}
	return out
}

func TestTools(t *testing.T) {
	s := newServer(t)
	tools := s.mcp.ListTools()
	for _, name := range []string{"list_packages", "select_targets", "func_code", "type_code", "called_funcs"} {
		assert.Contains(t, tools, name)
	}
}

func TestListPackages(t *testing.T) {
	s := newServer(t)
	res, err := s.listPackagesHandler(context.Background(), call(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	result := res.StructuredContent.(PackagesResult)
	require.Len(t, result.Packages, 3)
	assert.Equal(t, "example.com/shop/cart", result.Packages[0].Path)
	assert.Equal(t, []TypeInfo{
		{Name: "Item", Methods: 0},
		{Name: "Cart", Methods: 3},
		{Name: "(funcs)", Methods: 2},
	}, result.Packages[0].Types)
	assert.Equal(t, "3 packages", text(t, res))
}

func TestSelectTargets(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.selectTargetsHandler(ctx, call(map[string]any{
		"package_globs": []any{"**/store"},
		"exported":      true,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"example.com/shop/store.(*Store).Checkout",
		"example.com/shop/store.(*Stack[...]).Push",
		"example.com/shop/store.Open",
		"example.com/shop/store.Map[...]",
		"example.com/shop/store.Logf",
	}, symbols(t, res))

	res, err = s.selectTargetsHandler(ctx, call(map[string]any{
		"methods":      []any{"main.run"},
		"follow_calls": 1,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"main.run",
		"example.com/shop/cart.New",
		"example.com/shop/cart.(*Cart).Add",
		"example.com/shop/store.Open",
		"example.com/shop/store.(*Store).Checkout",
	}, symbols(t, res))

	res, err = s.selectTargetsHandler(ctx, call(map[string]any{
		"rules": "rules:\n  - name: len\n    classes: [example.com/shop/cart.Cart]\n    filters:\n      methods: [Len]\n",
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"example.com/shop/cart.Cart.Len"}, symbols(t, res))

	body := scrape(t, s)
	assert.Contains(t, body, `gmt_targets_resolved_total{root="domain"} 5`)
	assert.Contains(t, body, `gmt_targets_resolved_total{root="methods"} 5`)
}

func TestSelectTargetsErrors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	for name, args := range map[string]map[string]any{
		"bad rules":       {"rules": "rules: 3"},
		"unknown method":  {"methods": []any{"example.com/shop/cart.Nope"}},
		"unknown project": {"project": "testdata/does-not-exist"},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := s.selectTargetsHandler(ctx, call(args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestCode(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.funcCodeHandler(ctx, call(map[string]any{"symbol": "example.com/shop/store.(*Store).Checkout"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "func (s *Store) Checkout(c *cart.Cart) int {")

	res, err = s.funcCodeHandler(ctx, call(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.typeCodeHandler(ctx, call(map[string]any{"package": "example.com/shop/cart", "type": "Item"}))
	require.NoError(t, err)
	assert.Contains(t, text(t, res), "type Item struct {")

	res, err = s.typeCodeHandler(ctx, call(map[string]any{"package": "example.com/shop/cart", "type": "Nope"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestCalledFuncs(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	res, err := s.calledFuncsHandler(ctx, call(map[string]any{
		"symbol": "example.com/shop/store.(*Store).Checkout",
		"depth":  2,
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"example.com/shop/cart.(*Cart).Total",
		"example.com/shop/cart.lineTotal",
	}, symbols(t, res))

	result := res.StructuredContent.(FuncsResult)
	assert.Equal(t, "Cart", result.Funcs[0].Class)
	assert.Contains(t, result.Funcs[0].Position, "cart.go:")
}

func TestProgramCache(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	a, err := s.load(ctx, "", false)
	require.NoError(t, err)
	b, err := s.load(ctx, shop, false)
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := s.load(ctx, shop, true)
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func scrape(t *testing.T, s *Server) string {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler("/mcp/sse").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestHandler(t *testing.T) {
	s := newServer(t)
	rec := httptest.NewRecorder()
	s.Handler("/mcp/sse").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler("/mcp/sse").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	plain := New(WithLogger(logging.Nop()))
	rec = httptest.NewRecorder()
	plain.Handler("/mcp").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMessagePath(t *testing.T) {
	assert.Equal(t, "/mcp/message", messagePath("/mcp/sse"))
	assert.Equal(t, "/mcp/message", messagePath("/mcp"))
	assert.Equal(t, "/events/message", messagePath("/events/"))
}
