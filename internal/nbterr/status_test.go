package nbterr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	require.Equal(t, "OK", OK.String())
	require.Equal(t, "PATH_NOT_FOUND", PathNotFound.String())
	require.Equal(t, "UNKNOWN_STATUS", Status(999).String())
}

func TestMoreInformative(t *testing.T) {
	require.True(t, IndexBounds.MoreInformative(TypeMismatch))
	require.True(t, TypeMismatch.MoreInformative(PathNotFound))
	require.False(t, PathNotFound.MoreInformative(IndexBounds))
	require.False(t, PathNotFound.MoreInformative(PathNotFound))
}

func TestResultErr(t *testing.T) {
	require.Nil(t, Ok().Err())

	r := New(PathNotFound, "tag %q missing", "Age")
	err := r.Err()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrPathNotFound))
	require.False(t, errors.Is(err, ErrIndexBounds))
	require.Contains(t, err.Error(), "PATH_NOT_FOUND")
}

func TestNewAtCarriesOffset(t *testing.T) {
	r := NewAt(Memory, 42, "unexpected end of input")
	require.Equal(t, int64(42), r.Offset)
	require.Contains(t, r.Error(), "offset 42")
}

func TestWrap(t *testing.T) {
	require.True(t, Wrap(Memory, "ctx", nil).IsOK())

	r := Wrap(Memory, "allocate array", errors.New("boom"))
	require.False(t, r.IsOK())
	require.Equal(t, Memory, r.Status)
	require.Contains(t, r.Detail, "boom")
}
