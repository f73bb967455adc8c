package nodes

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/flowkit/engine/internal/nodeexec"
	"github.com/flowkit/engine/internal/registry"
	"github.com/flowkit/engine/internal/types"
)

// registerTextOps registers the text_operation node, grounded on the
// teacher's pkg/executor/textoperation.go strategy-style op switch. The
// case-conversion ops are rebuilt against golang.org/x/text/cases instead
// of the teacher's strings.ToUpper/strings.Title (strings.Title is
// deprecated for anything beyond ASCII), and a unicode_normalize op is
// added using golang.org/x/text/unicode/norm so multi-codepoint input
// (combining diacritics, differing NFC/NFD forms) compares and transforms
// consistently downstream.
func registerTextOps(reg *registry.Registry) {
	reg.MustRegister(types.NodeTypeDescriptor{
		Name:        "text_operation",
		Category:    "text",
		Description: "Applies a text transformation (case conversion, Unicode normalization, repeat) to its input.",
		Inputs: []types.PortSpec{
			{Name: "value", Type: types.PortText, ConnectionOnly: true},
			{Name: "op", Type: types.PortText, Default: "uppercase", Widget: types.WidgetCombo, Constraints: map[string]interface{}{
				"enum": []string{"uppercase", "lowercase", "titlecase", "camelcase", "inversecase", "unicode_normalize", "repeat"},
			}},
			{Name: "repeat_count", Type: types.PortNumber, Default: 1.0, Widget: types.WidgetNumber},
		},
		Outputs:    []types.PortSpec{{Name: "result", Type: types.PortText}},
		Provenance: types.Builtin(),
	}, nodeexec.Func(textOperationInvoke))
}

func textOperationInvoke(ctx nodeexec.ExecutionContext) (nodeexec.Outputs, error) {
	valueRaw, _ := ctx.Input("value")
	value, ok := valueRaw.(string)
	if !ok {
		return nil, fmt.Errorf("text_operation node %q: value input must be text", ctx.NodeID())
	}
	opRaw, _ := ctx.Input("op")
	op, _ := opRaw.(string)

	switch op {
	case "uppercase":
		return nodeexec.Outputs{"result": cases.Upper(language.Und).String(value)}, nil
	case "lowercase":
		return nodeexec.Outputs{"result": cases.Lower(language.Und).String(value)}, nil
	case "titlecase":
		return nodeexec.Outputs{"result": cases.Title(language.Und).String(value)}, nil
	case "camelcase":
		return nodeexec.Outputs{"result": toCamelCase(value)}, nil
	case "inversecase":
		return nodeexec.Outputs{"result": toInverseCase(value)}, nil
	case "unicode_normalize":
		return nodeexec.Outputs{"result": norm.NFC.String(value)}, nil
	case "repeat":
		countRaw, _ := ctx.Input("repeat_count")
		count, _ := countRaw.(float64)
		if count < 0 {
			return nil, fmt.Errorf("text_operation node %q: repeat_count must be non-negative", ctx.NodeID())
		}
		return nodeexec.Outputs{"result": strings.Repeat(value, int(count))}, nil
	default:
		return nil, fmt.Errorf("text_operation node %q: unknown op %q", ctx.NodeID(), op)
	}
}

func toCamelCase(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return s
	}
	lower := cases.Lower(language.Und)
	result := lower.String(words[0])
	titleFirst := cases.Title(language.Und)
	for _, word := range words[1:] {
		if word == "" {
			continue
		}
		result += titleFirst.String(lower.String(word))
	}
	return result
}

func toInverseCase(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			runes[i] = unicode.ToLower(r)
		case unicode.IsLower(r):
			runes[i] = unicode.ToUpper(r)
		}
	}
	return string(runes)
}
