package expand

import "testing"

func evalArith(t *testing.T, vars map[string]string, expr string) int64 {
	t.Helper()
	ctx := &Context{Get: func(name string) (string, bool) {
		v, ok := vars[name]
		return v, ok
	}}
	n, err := Arith(expr, ctx)
	if err != nil {
		t.Fatalf("Arith(%q): %v", expr, err)
	}
	return n
}

func TestArithPrecedence(t *testing.T) {
	if got := evalArith(t, nil, "1 + 2 * 3"); got != 7 {
		t.Fatalf("got %d", got)
	}
	if got := evalArith(t, nil, "(1 + 2) * 3"); got != 9 {
		t.Fatalf("got %d", got)
	}
}

func TestArithUnaryMinus(t *testing.T) {
	if got := evalArith(t, nil, "-5 + 3"); got != -2 {
		t.Fatalf("got %d", got)
	}
}

func TestArithComparisons(t *testing.T) {
	cases := map[string]int64{
		"1 < 2":  1,
		"2 < 1":  0,
		"2 <= 2": 1,
		"3 == 3": 1,
		"3 != 3": 0,
	}
	for expr, want := range cases {
		if got := evalArith(t, nil, expr); got != want {
			t.Fatalf("%q: got %d want %d", expr, got, want)
		}
	}
}

func TestArithLogical(t *testing.T) {
	if got := evalArith(t, nil, "1 && 0"); got != 0 {
		t.Fatalf("got %d", got)
	}
	if got := evalArith(t, nil, "1 || 0"); got != 1 {
		t.Fatalf("got %d", got)
	}
	if got := evalArith(t, nil, "!0"); got != 1 {
		t.Fatalf("got %d", got)
	}
}

func TestArithVariable(t *testing.T) {
	if got := evalArith(t, map[string]string{"N": "10"}, "N % 3"); got != 1 {
		t.Fatalf("got %d", got)
	}
}

func TestArithUnsetVariableIsZero(t *testing.T) {
	if got := evalArith(t, nil, "UNSET + 5"); got != 5 {
		t.Fatalf("got %d", got)
	}
}

func TestArithDivisionByZero(t *testing.T) {
	ctx := &Context{}
	_, err := Arith("1 / 0", ctx)
	if err == nil {
		t.Fatalf("expected division by zero error")
	}
}
