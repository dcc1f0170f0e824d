package engine

import (
	"context"
	"fmt"
	"strings"

	"arrow-spatial/pkg/plan"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/arrow/scalar"
)

// Signature lists the accepted argument counts; argument types are
// checked by the function itself.
type Signature struct {
	Arities []int
}

// AnyOf accepts any argument types in each of the given counts.
func AnyOf(arities ...int) Signature {
	return Signature{Arities: arities}
}

func (s Signature) Accepts(n int) bool {
	for _, a := range s.Arities {
		if a == n {
			return true
		}
	}
	return false
}

func (s Signature) String() string {
	parts := make([]string, len(s.Arities))
	for i, a := range s.Arities {
		parts[i] = fmt.Sprintf("Any(%d)", a)
	}
	return strings.Join(parts, " | ")
}

// ScalarArgs is one invocation of a scalar function over a batch.
type ScalarArgs struct {
	Ctx     context.Context
	Mem     memory.Allocator
	Args    []ColumnarValue
	NumRows int
}

// ScalarUDF is a row-wise function. Invoke must return NumRows rows, or
// a scalar standing for all of them.
type ScalarUDF interface {
	Name() string
	Aliases() []string
	Signature() Signature
	ReturnType(args []arrow.DataType) (arrow.DataType, error)
	Invoke(args ScalarArgs) (ColumnarValue, error)
}

type AccumulatorArgs struct {
	Mem        memory.Allocator
	InputTypes []arrow.DataType
}

// AggregateUDF is a reducer run as one accumulator per partition and
// merged through its state columns.
type AggregateUDF interface {
	Name() string
	Aliases() []string
	Signature() Signature
	ReturnType(args []arrow.DataType) (arrow.DataType, error)
	StateFields(name string) []arrow.Field
	NewAccumulator(args AccumulatorArgs) (Accumulator, error)
}

type Accumulator interface {
	// UpdateBatch folds the evaluated arguments of one batch.
	UpdateBatch(values []ColumnarValue) error
	// State returns one value per state field.
	State() ([]scalar.Scalar, error)
	// MergeBatch folds state columns, one row per merged partial state.
	MergeBatch(states []arrow.Array) error
	Evaluate() (scalar.Scalar, error)
}

// AnalyzerRule rewrites a logical plan before execution.
type AnalyzerRule interface {
	Name() string
	Analyze(ctx context.Context, n plan.Node) (plan.Node, error)
}

// FunctionInfo describes a registered function.
type FunctionInfo struct {
	Name      string   `json:"name"`
	Aliases   []string `json:"aliases"`
	Kind      string   `json:"kind"`
	Signature string   `json:"signature"`
}
