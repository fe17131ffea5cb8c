package errs

import (
	"errors"
	"io"
	"testing"
)

func TestKinds(t *testing.T) {
	tests := []struct {
		err  error
		kind error
	}{
		{Transport("abc", io.ErrUnexpectedEOF), ErrTransport},
		{Decode("abc", io.EOF), ErrDecode},
		{Transform("abc", errors.New("boom")), ErrTransform},
		{Invalid("no uri"), ErrInvalidRequest},
		{Conflict("mipmap after resize"), ErrConfigurationConflict},
		{errors.New("other"), nil},
	}
	for _, tst := range tests {
		if KindOf(tst.err) != tst.kind {
			t.Fail()
		}
	}
}

func TestCauseIsPreserved(t *testing.T) {
	err := Transport("0123456789abcdef", io.ErrUnexpectedEOF)
	if !errors.Is(err, io.ErrUnexpectedEOF) || !errors.Is(err, ErrTransport) {
		t.Fail()
	}
	var e *Error
	if !errors.As(err, &e) || e.Key != "0123456789abcdef" {
		t.Fail()
	}
	if e.Error() != "transport failure (key 0123456789): unexpected EOF" {
		t.Fail()
	}
}
