package accumulator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith_DoesNotMutateSnapshot(t *testing.T) {
	base := New().With("n1", Output{FieldText: "hello"})
	next := base.With("n2", Output{FieldDisplayedText: "hello", FieldText: "hello"})

	assert.Len(t, base, 1)
	assert.Len(t, next, 2)

	_, ok := base.Get("n2")
	assert.False(t, ok)

	// Mutating the new record must not leak back into the old snapshot.
	next["n1"][FieldText] = "changed"
	assert.Equal(t, "hello", base["n1"].String(FieldText))
}

func TestWith_RerunSameSlot(t *testing.T) {
	snapshot := New().With("n1", Output{FieldText: "x"})

	first := snapshot.With("n2", Output{FieldDisplayedText: "x", FieldText: "x"})
	second := snapshot.With("n2", Output{FieldDisplayedText: "x", FieldText: "x"})

	assert.Equal(t, first, second)
}

func TestOutputHelpers(t *testing.T) {
	out := ErrorOutput("boom")
	msg, ok := out.Err()
	assert.True(t, ok)
	assert.Equal(t, "boom", msg)

	_, ok = Output{FieldText: "fine"}.Err()
	assert.False(t, ok)

	assert.Equal(t, "", Output{}.String(FieldText))
	assert.Equal(t, "12", Output{"n": 12}.String("n"))
	assert.Nil(t, Output(nil).Clone())
}

func TestEncodeDecode(t *testing.T) {
	acc := New().
		With("n1", Output{FieldText: "generated"}).
		With("n2", ErrorOutput("boom"))

	b, err := Encode(acc)
	require.NoError(t, err)

	got, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, acc, got)

	empty, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	b, err = Encode(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))

	_, err = Decode([]byte(`{"n1":`))
	assert.ErrorContains(t, err, "failed to decode accumulator")
}
