package clerk

import (
	"errors"
	"fmt"
	"testing"
)

func asInfo(err error, info **ErrorInfo) bool {
	return errors.As(err, info)
}

func TestErrorCodes(t *testing.T) {
	err := NewErr(TruncatedBuffer, "field %s: need %d bytes, have %d", "amount", 8, 3)
	if !IsError(err, TruncatedBuffer) || IsError(err, InvalidEncoding) {
		t.Errorf("IsError: wrong code match for %v", err)
	}
	if err.Error() != "field amount: need 8 bytes, have 3" {
		t.Errorf("Error: unexpected message: %q", err.Error())
	}
	wrapped := fmt.Errorf("scan: %w", err)
	if CodeOf(wrapped) != TruncatedBuffer {
		t.Errorf("CodeOf: did not unwrap: %v", CodeOf(wrapped))
	}
	if CodeOf(errors.New("plain")) != UnknownError {
		t.Errorf("CodeOf: plain error should be UnknownError")
	}
}

func TestWithAccount(t *testing.T) {
	err := WithAccount(NewErr(UnknownTag, "unknown tag 0000000000000000"), testOrg)
	var info *ErrorInfo
	if !asInfo(err, &info) {
		t.Fatalf("WithAccount: not an ErrorInfo")
	}
	if info.Code != UnknownTag || info.Account != testOrg {
		t.Errorf("WithAccount: wrong info: %+v", info)
	}
	if err.Error() != testOrg.String()+": unknown tag 0000000000000000" {
		t.Errorf("WithAccount: unexpected message: %q", err.Error())
	}
	plain := WithAccount(errors.New("boom"), testOrg)
	if CodeOf(plain) != UnknownError {
		t.Errorf("WithAccount: plain error should become UnknownError")
	}
	if WithAccount(nil, testOrg) != nil {
		t.Errorf("WithAccount: nil should stay nil")
	}
}
