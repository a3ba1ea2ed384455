package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/muhtutorials/cvm/cpu"
)

// runSource compiles and executes src end to end, capturing everything the
// program printf'd instead of letting it reach os.Stdout.
func runSource(t *testing.T, src string) (stdout string, status int64) {
	t.Helper()
	comp, err := compileSource([]byte(src))
	require.NoError(t, err)

	mainAddr, err := comp.MainAddr()
	require.NoError(t, err)

	var buf bytes.Buffer
	m := cpu.New(comp.Text().Instrs(), comp.Data(), cpu.NewDefaultHost(&buf))
	status, err = m.Run(mainAddr, nil)
	require.NoError(t, err)
	return buf.String(), status
}

func TestAdditionEndToEnd(t *testing.T) {
	out, status := runSource(t, `
int main() {
	printf("%d\n", 10 + 20);
	return 0;
}`)
	require.Equal(t, "30\n", out)
	require.Equal(t, int64(0), status)
}

func TestWhileLoopCountsToTen(t *testing.T) {
	out, status := runSource(t, `
int main() {
	int i;
	i = 0;
	while (i < 10) {
		i = i + 1;
	}
	printf("%d\n", i);
	return 0;
}`)
	require.Equal(t, "10\n", out)
	require.Equal(t, int64(0), status)
}

func TestPrefixAndPostfixIncrement(t *testing.T) {
	out, status := runSource(t, `
int main() {
	int i;
	int r;
	i = 5;
	r = i++ + ++i;
	printf("%d\n", r);
	return 0;
}`)
	require.Equal(t, "12\n", out)
	require.Equal(t, int64(0), status)
}

func TestEnumConstantArithmetic(t *testing.T) {
	out, status := runSource(t, `
enum { A, B = 5, C = 10 };
int main() {
	printf("%d\n", A + B + C);
	return 0;
}`)
	require.Equal(t, "15\n", out)
	require.Equal(t, int64(0), status)
}

func TestMallocAndPointerArithmetic(t *testing.T) {
	out, status := runSource(t, `
int main() {
	int *p;
	p = malloc(16);
	*p = 42;
	*(p + 1) = 7;
	printf("%d\n", *p + *(p + 1));
	return 0;
}`)
	require.Equal(t, "49\n", out)
	require.Equal(t, int64(0), status)
}

func TestPrintfMultipleArguments(t *testing.T) {
	out, status := runSource(t, `
int main() {
	printf("%d-%d\n", 3, 4);
	return 0;
}`)
	require.Equal(t, "3-4\n", out)
	require.Equal(t, int64(0), status)
}

func TestFunctionCallWithMultipleParameters(t *testing.T) {
	out, status := runSource(t, `
int add(int a, int b) {
	return a + b;
}

int main() {
	printf("%d\n", add(4, 9));
	return 0;
}`)
	require.Equal(t, "13\n", out)
	require.Equal(t, int64(0), status)
}

func TestRecursiveFunctionCall(t *testing.T) {
	out, status := runSource(t, `
int fact(int n) {
	if (n <= 1) {
		return 1;
	}
	return n * fact(n - 1);
}

int main() {
	printf("%d\n", fact(5));
	return 0;
}`)
	require.Equal(t, "120\n", out)
	require.Equal(t, int64(0), status)
}

func TestNonZeroExitStatusFromExit(t *testing.T) {
	out, status := runSource(t, `
int main() {
	printf("before\n");
	exit(7);
	printf("after\n");
	return 0;
}`)
	require.Equal(t, "before\n", out)
	require.Equal(t, int64(7), status)
}

func TestStringLiteralPrintedWithPercentS(t *testing.T) {
	out, status := runSource(t, `
int main() {
	printf("%s\n", "hello");
	return 0;
}`)
	require.Equal(t, "hello\n", out)
	require.Equal(t, int64(0), status)
}
