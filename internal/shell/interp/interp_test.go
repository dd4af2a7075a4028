package interp

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lifo-sh/vush/internal/blob"
	"github.com/lifo-sh/vush/internal/content"
	"github.com/lifo-sh/vush/internal/process"
	"github.com/lifo-sh/vush/internal/vfs"
)

// newTestShell builds a fresh shell over an empty in-memory VFS, with
// stdout/stderr captured into buffers a test can inspect.
func newTestShell(t *testing.T) (*Shell, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	cs := content.New(blob.NewMemStore())
	fs := vfs.New(cs)
	procs := process.New()
	sh := New(fs, procs, cs)

	var out, errb bytes.Buffer
	sh.SetStreams(&out, &errb, strings.NewReader(""))
	return sh, &out, &errb
}

func run(t *testing.T, sh *Shell, src string) int {
	t.Helper()
	status, err := sh.Run(src)
	require.NoError(t, err)
	return status
}

func TestEchoAndVariables(t *testing.T) {
	sh, out, _ := newTestShell(t)
	status := run(t, sh, `NAME=world; echo hello $NAME`)
	require.Equal(t, 0, status)
	require.Equal(t, "hello world\n", out.String())
}

func TestEchoQuotingSuppressesSplit(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `X="a  b"; echo $X`)
	require.Equal(t, "a b\n", out.String())
	out.Reset()
	run(t, sh, `X="a  b"; echo "$X"`)
	require.Equal(t, "a  b\n", out.String())
}

func TestIfElse(t *testing.T) {
	sh, out, _ := newTestShell(t)
	status := run(t, sh, `if true; then echo yes; else echo no; fi`)
	require.Equal(t, 0, status)
	require.Equal(t, "yes\n", out.String())

	out.Reset()
	run(t, sh, `if false; then echo yes; else echo no; fi`)
	require.Equal(t, "no\n", out.String())
}

func TestForLoop(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `for x in a b c; do echo $x; done`)
	require.Equal(t, "a\nb\nc\n", out.String())
}

func TestForLoopBreakContinue(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `for x in 1 2 3 4; do if [ $x = 3 ]; then continue; fi; if [ $x = 4 ]; then break; fi; echo $x; done`)
	require.Equal(t, "1\n2\n", out.String())
}

func TestWhileLoop(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `i=0; while [ $i -lt 3 ]; do echo $i; i=$((i+1)); done`)
	require.Equal(t, "0\n1\n2\n", out.String())
}

func TestPipelineWithRealNewlines(t *testing.T) {
	sh, out, _ := newTestShell(t)
	sh.VFS().WriteFileString("/fruit.txt", "banana\napple\ncherry\n")
	run(t, sh, `cat /fruit.txt | sort | head -n 2`)
	require.Equal(t, "apple\nbanana\n", out.String())
}

func TestFunctionDefinitionAndCall(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `greet() { echo "hi $1"; return 0; }; greet Bob`)
	require.Equal(t, "hi Bob\n", out.String())
}

func TestFunctionReturnStatus(t *testing.T) {
	sh, _, _ := newTestShell(t)
	status := run(t, sh, `f() { return 7; }; f`)
	require.Equal(t, 7, status)
}

func TestAliasExpansion(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `alias ll='echo listing'; ll`)
	require.Equal(t, "listing\n", out.String())
}

func TestAliasSelfReferenceTerminates(t *testing.T) {
	sh, out, _ := newTestShell(t)
	status := run(t, sh, `alias ls='ls -a'; ls`)
	require.Equal(t, 127, status)
	require.Contains(t, out.String(), "")
}

func TestCaseStatement(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `for x in cat dog fish; do
case $x in
  cat|dog) echo pet ;;
  *) echo other ;;
esac
done`)
	require.Equal(t, "pet\npet\nother\n", out.String())
}

func TestBackgroundJobRegistersInJobTable(t *testing.T) {
	sh, _, _ := newTestShell(t)
	run(t, sh, `sleep 0 &`)
	jobs := sh.Procs().GetBackgroundJobs()
	require.Len(t, jobs, 1)
}

func TestCommandSubstitution(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `X=$(echo inner); echo got $X`)
	require.Equal(t, "got inner\n", out.String())
}

func TestArithmeticSubstitution(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `echo $((2 + 3 * 4))`)
	require.Equal(t, "14\n", out.String())
}

func TestRedirectionWritesThroughVFS(t *testing.T) {
	sh, _, _ := newTestShell(t)
	run(t, sh, `echo hello > /out.txt`)
	data, err := sh.VFS().ReadFileString("/out.txt")
	require.NoError(t, err)
	require.Equal(t, "hello\n", data)

	run(t, sh, `echo again >> /out.txt`)
	data, err = sh.VFS().ReadFileString("/out.txt")
	require.NoError(t, err)
	require.Equal(t, "hello\nagain\n", data)
}

func TestCommandNotFound(t *testing.T) {
	sh, _, errb := newTestShell(t)
	status := run(t, sh, `frobnicate`)
	require.Equal(t, 127, status)
	require.Contains(t, errb.String(), "command not found")
}

func TestAndOrConnectors(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `true && echo a || echo b`)
	require.Equal(t, "a\n", out.String())
	out.Reset()
	run(t, sh, `false && echo a || echo b`)
	require.Equal(t, "b\n", out.String())
}

func TestCdAndPwd(t *testing.T) {
	sh, out, _ := newTestShell(t)
	sh.VFS().Mkdir("/tmp", false)
	run(t, sh, `cd /tmp; pwd`)
	require.Equal(t, "/tmp\n", out.String())
}

func TestTrRangeExpansion(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `echo "hello world" | tr a-z A-Z`)
	require.Equal(t, "HELLO WORLD\n", out.String())
}

func TestDoubleQuotedCommandAndArithmeticSubstitution(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `echo "x: $(echo hi)"`)
	require.Equal(t, "x: hi\n", out.String())
	out.Reset()
	run(t, sh, `echo "$((1+1))"`)
	require.Equal(t, "2\n", out.String())
}

func TestVirtualHTTPListenAndFetch(t *testing.T) {
	sh, out, _ := newTestShell(t)
	run(t, sh, `listen 5000 pong`)
	status := run(t, sh, `fetch http://localhost:5000/`)
	require.Equal(t, 0, status)
	require.Equal(t, "pong", out.String())
}
