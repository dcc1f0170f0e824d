package plan

import (
	"strings"
	"testing"

	"arrow-spatial/pkg/errkind"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScan(name string) *TableScan {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "geometry", Type: arrow.BinaryTypes.Binary},
	}, nil)
	return Scan(name, schema)
}

func TestParseExpr(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"geometry", "geometry"},
		{"t.geometry", "t.geometry"},
		{"ST_AsText(geometry)", "ST_AsText(geometry)"},
		{"ST_AsText( ST_Envelope(t.geometry) )", "ST_AsText(ST_Envelope(t.geometry))"},
		{"st_astext(geometry, 'Polygon', 'WKB')", `st_astext(geometry, Utf8("Polygon"), Utf8("WKB"))`},
		{"ST_Extent(geometry) AS bbox", "ST_Extent(geometry) AS bbox"},
		{"geometry is not null", "geometry IS NOT NULL"},
		{"'it''s'", `Utf8("it's")`},
	}
	for _, c := range cases {
		e, err := ParseExpr(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, e.String(), c.in)
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, in := range []string{"", "ST_AsText(", "ST_AsText(a b)", "a AS", "'open", "a IS NULL", "a)", "#"} {
		_, err := ParseExpr(in)
		require.Error(t, err, in)
		assert.True(t, errkind.Is(err, errkind.Plan), in)
	}
}

func TestDisplayName(t *testing.T) {
	e, err := ParseExpr("ST_AsText(t.geometry)")
	require.NoError(t, err)
	assert.Equal(t, "ST_AsText(t.geometry)", DisplayName(e))

	aliased := &Alias{Expr: e, Name: "wkt"}
	assert.Equal(t, "wkt", DisplayName(aliased))
	assert.Same(t, e, Unalias(&Alias{Expr: aliased, Name: "x"}))
}

func TestTransformExprUp(t *testing.T) {
	e, err := ParseExpr("ST_AsText(ST_Envelope(geometry))")
	require.NoError(t, err)

	var order []string
	out, err := TransformExprUp(e, func(e Expr) (Expr, error) {
		if name, ok := FunctionName(e); ok {
			order = append(order, name)
			if name == "ST_Envelope" {
				f := e.(*ScalarFunction)
				args := append([]Expr{}, f.Args...)
				return Call(f.Name, append(args, Lit("x"))...), nil
			}
		}
		return e, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ST_Envelope", "ST_AsText"}, order)
	assert.Equal(t, `ST_AsText(ST_Envelope(geometry, Utf8("x")))`, out.String())
	assert.Equal(t, "ST_AsText(ST_Envelope(geometry))", e.String())
}

func TestBuilder(t *testing.T) {
	n, err := From(testScan("t")).
		Filter(&IsNotNull{Expr: Col("geometry")}).
		Project(Call("ST_AsText", Col("geometry"))).
		Limit(10).
		Build()
	require.NoError(t, err)

	want := strings.Join([]string{
		"Limit: fetch=10",
		"  Projection: ST_AsText(geometry)",
		"    Filter: geometry IS NOT NULL",
		"      TableScan: t projection=[id, geometry]",
		"",
	}, "\n")
	assert.Equal(t, want, Explain(n))

	_, err = From(testScan("t")).Project().Build()
	assert.True(t, errkind.Is(err, errkind.Plan))

	_, err = From(testScan("t")).Aggregate([]Expr{Col("id")}, Agg("ST_Extent", Col("geometry"))).Build()
	assert.True(t, errkind.Is(err, errkind.Unimplemented))
}

func TestTransformUpJump(t *testing.T) {
	n, err := From(testScan("plain")).Project(Col("geometry")).Limit(1).Build()
	require.NoError(t, err)

	var visited []string
	res, err := TransformUp(n, func(n Node) (Transformed, error) {
		visited = append(visited, strings.SplitN(n.Describe(), ":", 2)[0])
		if _, ok := n.(*TableScan); ok {
			return Transformed{Node: n, Recursion: Jump}, nil
		}
		return Unchanged(n), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"TableScan"}, visited)
	assert.Equal(t, Jump, res.Recursion)
	assert.Same(t, n, res.Node)
}

func TestTransformUpRewrites(t *testing.T) {
	n, err := From(testScan("t")).Project(Call("f", Col("geometry"))).Build()
	require.NoError(t, err)

	res, err := TransformUp(n, func(n Node) (Transformed, error) {
		return MapExpressions(n, func(e Expr) (Expr, error) {
			return TransformExprUp(e, func(e Expr) (Expr, error) {
				if c, ok := e.(*Column); ok && c.Relation == "" {
					return &Column{Relation: "t", Name: c.Name}, nil
				}
				return e, nil
			})
		})
	})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "Projection: f(t.geometry)", res.Node.Describe())
	assert.Equal(t, "Projection: f(geometry)", n.Describe())
	assert.Len(t, Scans(res.Node), 1)
}

func TestAggregateExpressions(t *testing.T) {
	a := &Aggregate{Aggs: []Expr{Agg("ST_Extent", Col("geometry"))}, Input: testScan("t")}
	exprs := a.Expressions()
	require.Len(t, exprs, 1)

	b := a.WithExpressions([]Expr{Agg("ST_Extent", Col("geometry"), Lit("Point"), Lit("point"))}).(*Aggregate)
	assert.Empty(t, b.GroupBy)
	assert.Equal(t, `Aggregate: groupBy=[], aggr=[ST_Extent(geometry, Utf8("Point"), Utf8("point"))]`, b.Describe())
}
