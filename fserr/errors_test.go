package fserr

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkError_Unwrap(t *testing.T) {
	cause := fs.ErrNotExist
	err := NewWalkError("/tmp/missing", cause)

	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Contains(t, err.Error(), "/tmp/missing")
	assert.Contains(t, err.Error(), "walk")
}

func TestHashError_WrapsCause(t *testing.T) {
	cause := errors.New("unknown algorithm: md5")
	err := NewHashError("", cause)

	assert.Same(t, cause, errors.Unwrap(err))
}

func TestCopyError_Message(t *testing.T) {
	err := NewCopyError("/dst/a.txt", errors.New("destination already exists"))
	assert.Equal(t, "copy /dst/a.txt: destination already exists", err.Error())
}

func TestWatchError_PermissionDenied(t *testing.T) {
	err := NewWatchError("/w", fs.ErrPermission)
	assert.True(t, errors.Is(err, fs.ErrPermission))
}

func TestError_PathAccessor(t *testing.T) {
	var errs []Error
	errs = append(errs, NewWalkError("/w", errors.New("x")))
	errs = append(errs, NewHashError("/h", errors.New("x")))
	errs = append(errs, NewCopyError("/c", errors.New("x")))
	errs = append(errs, NewWatchError("/t", errors.New("x")))

	for _, e := range errs {
		assert.NotEmpty(t, e.Path())
	}
}
