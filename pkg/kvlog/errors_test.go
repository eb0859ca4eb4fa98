package kvlog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Error_Formats_Correctly_When_Various_Inputs(t *testing.T) {
	t.Parallel()

	base := errors.New("something failed")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "cause with kind",
			err:  &Error{Kind: KindIO, Err: base},
			want: "something failed (kind=io)",
		},
		{
			name: "cause with kind and key",
			err:  &Error{Kind: KindDecode, Key: "foo", Err: base},
			want: "something failed (kind=decode key=foo)",
		},
		{
			name: "no cause",
			err:  &Error{Kind: KindKeyNotFound, Key: "foo"},
			want: "(kind=key_not_found key=foo)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func Test_Error_Unwraps_To_Sentinel(t *testing.T) {
	t.Parallel()

	err := &Error{Kind: KindKeyNotFound, Key: "a", Err: ErrKeyNotFound}

	require.ErrorIs(t, err, ErrKeyNotFound)

	var kErr *Error

	require.ErrorAs(t, error(err), &kErr)
	assert.Equal(t, KindKeyNotFound, kErr.Kind)
	assert.Equal(t, "a", kErr.Key)
}

func Test_WrapErr_Preserves_Existing_Kind_And_Fills_Key(t *testing.T) {
	t.Parallel()

	inner := &Error{Kind: KindEncode, Err: errors.New("boom")}

	wrapped := wrapErr(KindIO, "k", inner)

	var kErr *Error

	require.ErrorAs(t, wrapped, &kErr)
	assert.Equal(t, KindEncode, kErr.Kind, "existing kind must win")
	assert.Equal(t, "k", kErr.Key, "missing key should be filled")
}

func Test_WrapErr_Returns_Nil_For_Nil_Cause(t *testing.T) {
	t.Parallel()

	require.NoError(t, wrapErr(KindIO, "k", nil))
}

func Test_Kind_Strings_Are_Stable(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "io", KindIO.String())
	assert.Equal(t, "encode", KindEncode.String())
	assert.Equal(t, "decode", KindDecode.String())
	assert.Equal(t, "key_not_found", KindKeyNotFound.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
