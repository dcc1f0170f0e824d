// Package rules holds the plan rewrites that prepare spatial calls for
// execution.
package rules

import (
	"context"
	"sort"
	"strings"

	"arrow-spatial/pkg/errkind"
	"arrow-spatial/pkg/logging"
	"arrow-spatial/pkg/metadata"
	"arrow-spatial/pkg/plan"

	"go.uber.org/zap"
)

// Name is the registered name of the spatial analyzer rule.
const Name = "spatial-analyzer-rule"

// producers maps spatial functions whose output feeds another spatial
// call to the (geometry type, encoding) of that output.
var producers = map[string][2]string{
	"st_envelope": {"Polygon", "polygon"},
}

// SpatialAnalyzerRule appends the geometry-type and encoding literals of
// the referenced geometry column to every ST_ call. Tables without geo
// metadata are left alone.
type SpatialAnalyzerRule struct{}

func NewSpatialAnalyzerRule() *SpatialAnalyzerRule { return &SpatialAnalyzerRule{} }

func (*SpatialAnalyzerRule) Name() string { return Name }

func (r *SpatialAnalyzerRule) Analyze(ctx context.Context, n plan.Node) (plan.Node, error) {
	a := &analysis{log: logging.FromContext(ctx), tables: make(map[string]*metadata.GeoMetadata)}

	out, err := plan.TransformUp(n, a.node)
	if err != nil {
		return nil, err
	}
	return out.Node, nil
}

// analysis is the state of one Analyze call.
type analysis struct {
	log    *zap.Logger
	tables map[string]*metadata.GeoMetadata
}

func unqualified(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func (a *analysis) node(n plan.Node) (plan.Transformed, error) {
	if scan, ok := n.(*plan.TableScan); ok {
		name := unqualified(scan.TableName)
		if _, ok := a.tables[name]; ok {
			return plan.Unchanged(n), nil
		}
		md, err := metadata.FromSchema(scan.ProjectedSchema)
		if err != nil {
			return plan.Transformed{}, errkind.Wrap(errkind.MalformedGeoMetadata, err, "table %s", scan.TableName)
		}
		if md == nil {
			return plan.Transformed{Node: n, Recursion: plan.Jump}, nil
		}
		a.tables[name] = md
		return plan.Unchanged(n), nil
	}

	_, isFilter := n.(*plan.Filter)
	return plan.MapExpressions(n, func(e plan.Expr) (plan.Expr, error) {
		out, err := plan.TransformExprUp(e, a.expr)
		if err != nil {
			return nil, err
		}
		if out == e || isFilter {
			return out, nil
		}
		if _, ok := e.(*plan.Alias); ok {
			return out, nil
		}
		return &plan.Alias{Expr: out, Name: plan.DisplayName(e)}, nil
	})
}

func isSpatial(name string) bool {
	return len(name) > 3 && strings.EqualFold(name[:3], "ST_")
}

// expr rewrites a single call; its arguments have already been visited.
func (a *analysis) expr(e plan.Expr) (plan.Expr, error) {
	name, ok := plan.FunctionName(e)
	if !ok || !isSpatial(name) {
		return e, nil
	}
	args := e.Children()
	if len(args) >= 3 {
		return e, nil
	}

	typ, enc, found, err := a.literals(args)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindOf(err), err, "%s", name)
	}
	if !found {
		a.log.Debug("spatial call has no geometry column", zap.String("call", e.String()))
		return e, nil
	}

	out := make([]plan.Expr, 0, len(args)+2)
	out = append(out, args...)
	out = append(out, plan.Lit(typ), plan.Lit(enc))

	a.log.Debug("spatial call rewritten",
		zap.String("call", e.String()),
		zap.String("type", typ),
		zap.String("encoding", enc))
	return e.WithChildren(out), nil
}

// literals derives the type and encoding strings from the first
// argument that is a geo column or a spatial producer call.
func (a *analysis) literals(args []plan.Expr) (string, string, bool, error) {
	for _, arg := range args {
		switch v := plan.Unalias(arg).(type) {
		case *plan.Column:
			if col, ok := a.column(v); ok {
				return col.TypeString(), col.EncodingString(), true, nil
			}
		case *plan.ScalarFunction, *plan.AggregateFunction:
			name, _ := plan.FunctionName(v)
			if !isSpatial(name) {
				continue
			}
			p, ok := producers[strings.ToLower(name)]
			if !ok {
				return "", "", false, errkind.New(errkind.Unsupported, "output type of %s is not known", name)
			}
			return p[0], p[1], true, nil
		}
	}
	return "", "", false, nil
}

// column finds the metadata of c in its own table, or in the first
// table (by name) that declares it when c is unqualified.
func (a *analysis) column(c *plan.Column) (*metadata.ColumnMetadata, bool) {
	if c.Relation != "" {
		return a.tables[unqualified(c.Relation)].Column(c.Name)
	}

	names := make([]string, 0, len(a.tables))
	for name := range a.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if col, ok := a.tables[name].Column(c.Name); ok {
			return col, true
		}
	}
	return nil, false
}
