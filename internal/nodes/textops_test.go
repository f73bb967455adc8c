package nodes_test

import (
	"testing"
)

func TestTextOperation_CaseConversions(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "text_operation")

	cases := []struct {
		op     string
		value  string
		expect string
	}{
		{"uppercase", "hello world", "HELLO WORLD"},
		{"lowercase", "HELLO WORLD", "hello world"},
		{"titlecase", "hello world", "Hello World"},
		{"camelcase", "hello world again", "helloWorldAgain"},
		{"inversecase", "Hello World", "hELLO wORLD"},
		{"unicode_normalize", "é", "é"},
	}
	for _, c := range cases {
		out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"value": c.value, "op": c.op}))
		if err != nil {
			t.Fatalf("op %q: unexpected error: %v", c.op, err)
		}
		if out["result"] != c.expect {
			t.Fatalf("op %q: expected %q, got %q", c.op, c.expect, out["result"])
		}
	}
}

func TestTextOperation_Repeat(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "text_operation")

	out, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"value": "ab", "op": "repeat", "repeat_count": 3.0}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["result"] != "ababab" {
		t.Fatalf("expected \"ababab\", got %q", out["result"])
	}
}

func TestTextOperation_RejectsNegativeRepeatCount(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "text_operation")

	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"value": "ab", "op": "repeat", "repeat_count": -1.0})); err == nil {
		t.Fatalf("expected an error for negative repeat_count")
	}
}

func TestTextOperation_RejectsUnknownOp(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "text_operation")

	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"value": "ab", "op": "reverse"})); err == nil {
		t.Fatalf("expected an error for an unknown op")
	}
}

func TestTextOperation_RejectsNonTextValue(t *testing.T) {
	reg := builtinRegistry(t)
	exec := execOf(t, reg, "text_operation")

	if _, err := exec.Invoke(newFakeCtx("n", map[string]interface{}{"value": 5.0, "op": "uppercase"})); err == nil {
		t.Fatalf("expected an error for a non-text value")
	}
}
