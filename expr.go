package fsbackend

import (
	"fmt"
	"reflect"

	"github.com/google/cel-go/cel"
	"google.golang.org/protobuf/types/known/structpb"
)

// exprCostLimit bounds the work a single resource expression may perform.
const exprCostLimit = 100000

var structType = reflect.TypeOf(&structpb.Struct{})

// ExprCodec evaluates computed resource files. A file holds a single CEL
// expression that must produce a map, for example:
//
//	{
//	  "key": "passing",
//	  "evaluated": 1 + 1,
//	  "greeting": lng == "de" ? "Hallo" : "Hello"
//	}
//
// The variables lng and ns are bound to the resource being read. The
// environment exposes no functions that reach the file system or network.
type ExprCodec struct {
	env *cel.Env
}

// NewExprCodec builds the evaluation environment once; it is safe for concurrent use.
func NewExprCodec() *ExprCodec {
	env, err := cel.NewEnv(
		cel.Variable("lng", cel.StringType),
		cel.Variable("ns", cel.StringType),
	)
	if err != nil {
		// only reachable if the declarations above are malformed
		panic(fmt.Sprintf("fsbackend: build expression environment: %v", err))
	}
	return &ExprCodec{env: env}
}

func (c *ExprCodec) Parse(key ResourceKey, data []byte) (Resource, error) {
	ast, iss := c.env.Compile(string(data))
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile: %w", iss.Err())
	}

	prg, err := c.env.Program(ast, cel.CostLimit(exprCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}

	out, _, err := prg.Eval(map[string]any{
		"lng": key.Language,
		"ns":  key.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("eval: %w", err)
	}

	native, err := out.ConvertToNative(structType)
	if err != nil {
		return nil, fmt.Errorf("expression must evaluate to a map: %w", err)
	}
	st, ok := native.(*structpb.Struct)
	if !ok {
		return nil, fmt.Errorf("expression must evaluate to a map, got %T", native)
	}
	return Resource(st.AsMap()), nil
}

// Stringify always fails: computed files are maintained by hand.
func (c *ExprCodec) Stringify(_ Resource) ([]byte, error) {
	return nil, ErrReadOnlyFormat
}
