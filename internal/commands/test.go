package commands

import (
	"strconv"

	"github.com/lifo-sh/vush/internal/shell/runtime"
)

// testBuiltin implements a practical subset of POSIX test(1): file
// existence/type checks, string comparisons and emptiness, integer
// comparisons, negation, and "-a"/"-o" combinators. test() returns 0 for
// true and 1 for false, never a builtin error, matching spec section
// 6.2's fixed exit-code contract.
func testBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	ok, err := evalTest(ctx, args)
	if err != nil {
		return fail(ctx, "test: %v", err)
	}
	if ok {
		return 0, nil
	}
	return 1, nil
}

// bracketTestBuiltin implements "[ ... ]", which requires a trailing "]"
// argument and otherwise behaves exactly like test.
func bracketTestBuiltin(ctx runtime.ExecContext, args []string) (int, error) {
	if len(args) == 0 || args[len(args)-1] != "]" {
		return fail(ctx, "[: missing closing ]")
	}
	return testBuiltin(ctx, args[:len(args)-1])
}

func evalTest(ctx runtime.ExecContext, args []string) (bool, error) {
	switch len(args) {
	case 0:
		return false, nil
	case 1:
		return args[0] != "", nil
	case 2:
		if args[0] == "!" {
			v, err := evalTest(ctx, args[1:])
			return !v, err
		}
		return evalUnary(ctx, args[0], args[1])
	case 3:
		if args[0] == "!" {
			v, err := evalTest(ctx, args[1:])
			return !v, err
		}
		return evalBinary(args[0], args[1], args[2])
	default:
		if args[0] == "!" {
			v, err := evalTest(ctx, args[1:])
			return !v, err
		}
		mid := -1
		for i, a := range args {
			if a == "-a" || a == "-o" {
				mid = i
				break
			}
		}
		if mid < 0 {
			return false, nil
		}
		lhs, err := evalTest(ctx, args[:mid])
		if err != nil {
			return false, err
		}
		rhs, err := evalTest(ctx, args[mid+1:])
		if err != nil {
			return false, err
		}
		if args[mid] == "-a" {
			return lhs && rhs, nil
		}
		return lhs || rhs, nil
	}
}

func evalUnary(ctx runtime.ExecContext, op, operand string) (bool, error) {
	switch op {
	case "-z":
		return operand == "", nil
	case "-n":
		return operand != "", nil
	case "-e", "-f", "-d":
		info, err := ctx.VFS().Stat(operand)
		if err != nil {
			return false, nil
		}
		switch op {
		case "-d":
			return info.IsDir, nil
		case "-f":
			return !info.IsDir, nil
		default:
			return true, nil
		}
	case "-r", "-w", "-x":
		return ctx.VFS().Exists(operand), nil
	}
	return false, nil
}

func evalBinary(lhs, op, rhs string) (bool, error) {
	switch op {
	case "=", "==":
		return lhs == rhs, nil
	case "!=":
		return lhs != rhs, nil
	case "-eq", "-ne", "-lt", "-le", "-gt", "-ge":
		l, err := strconv.Atoi(lhs)
		if err != nil {
			return false, err
		}
		r, err := strconv.Atoi(rhs)
		if err != nil {
			return false, err
		}
		switch op {
		case "-eq":
			return l == r, nil
		case "-ne":
			return l != r, nil
		case "-lt":
			return l < r, nil
		case "-le":
			return l <= r, nil
		case "-gt":
			return l > r, nil
		case "-ge":
			return l >= r, nil
		}
	}
	return false, nil
}
