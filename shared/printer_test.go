package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bufferHook struct {
	strings.Builder
	closed bool
}

func (b *bufferHook) Close() error {
	b.closed = true
	return nil
}

func TestNewPrinter(t *testing.T) {
	_, err := NewPrinter("  ")
	assert.Error(t, err)

	_, err = NewPrinter("  ", nil)
	assert.Error(t, err)

	_, err = NewPrinter("  ", &bufferHook{})
	assert.NoError(t, err)
}

func TestPrinterIndentsContinuationLines(t *testing.T) {
	hook := &bufferHook{}
	p, err := NewPrinter("  ", hook)
	require.NoError(t, err)

	require.NoError(t, p.Writeln("first\nsecond", 2))
	assert.Equal(t, "    first\n    second\n", hook.String())
}

func TestPrinterFansOut(t *testing.T) {
	a, b := &bufferHook{}, &bufferHook{}
	p, err := NewPrinter("\t", a, b)
	require.NoError(t, err)

	require.NoError(t, p.Write("hi", 0))
	assert.Equal(t, "hi", a.String())
	assert.Equal(t, "hi", b.String())

	require.NoError(t, p.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}
