package builtins

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rhuss/plauder/pkg/tools"
)

const calculatorName = "calculator"

type calculatorArgs struct {
	Operation string  `json:"operation" jsonschema:"enum=add,enum=subtract,enum=multiply,enum=divide" jsonschema_description:"Arithmetic operation to perform"`
	A         float64 `json:"a" jsonschema_description:"First operand"`
	B         float64 `json:"b" jsonschema_description:"Second operand"`
}

type calculatorResult struct {
	Calculation string  `json:"calculation"`
	Result      float64 `json:"result"`
}

// Calculator returns the calculator tool: basic arithmetic on two
// numbers. Division by zero is an execution failure, not a result.
func Calculator() tools.Descriptor {
	return tools.Descriptor{
		Name:        calculatorName,
		Description: "Perform basic arithmetic on two numbers: add, subtract, multiply, or divide.",
		Parameters:  tools.GenerateSchema[calculatorArgs](),
		Kind:        tools.KindBuiltin,
		Handler:     runCalculator,
	}
}

func runCalculator(ctx context.Context, args json.RawMessage) (string, error) {
	var in calculatorArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("decoding arguments: %w", err)
	}

	var result float64
	var symbol string
	switch in.Operation {
	case "add":
		result, symbol = in.A+in.B, "+"
	case "subtract":
		result, symbol = in.A-in.B, "-"
	case "multiply":
		result, symbol = in.A*in.B, "*"
	case "divide":
		if in.B == 0 {
			return "", fmt.Errorf("division by zero")
		}
		result, symbol = in.A/in.B, "/"
	default:
		return "", fmt.Errorf("unknown operation %q", in.Operation)
	}

	out := calculatorResult{
		Calculation: fmt.Sprintf("%s %s %s = %s",
			formatNumber(in.A), symbol, formatNumber(in.B), formatNumber(result)),
		Result: result,
	}
	data, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("encoding result: %w", err)
	}
	return string(data), nil
}

// formatNumber renders a float without trailing zeros, so whole numbers
// read naturally in the calculation string ("25", not "25.000000").
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
