package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestScopeErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *ScopeError
		want string
	}{
		{"plain", New(ErrRender, "no surface"), "[RENDER] no surface"},
		{"with op", New(ErrConfigValidation, "out of range").SetOp("scope.hscale"), "[CONFIG_VALIDATION:scope.hscale] out of range"},
		{"wrapped", TransportError("dial", io.EOF), "[TRANSPORT:dial] connection failed: EOF"},
		{"formatted", Newf(ErrProtocol, "odd block of %d bytes", 3), "[PROTOCOL] odd block of 3 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, ErrRPC, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := RPCError("setChannels", io.ErrUnexpectedEOF)

	if !stderrors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("errors.Is should see through the wrap")
	}
	if Cause(err) != io.ErrUnexpectedEOF {
		t.Errorf("Cause() = %v", Cause(err))
	}
	if !IsRPC(err) || IsTransport(err) {
		t.Error("code classification mismatch")
	}
}

func TestCodeOfThroughFmtWrap(t *testing.T) {
	inner := TransportError("read", io.EOF)
	outer := fmt.Errorf("session: %w", inner)

	if CodeOf(outer) != ErrTransport {
		t.Errorf("CodeOf() = %q", CodeOf(outer))
	}
	if !Is(outer, ErrTransport) {
		t.Error("Is() should match")
	}
	if CodeOf(io.EOF) != "" {
		t.Error("plain errors have no code")
	}
}

func TestFormatStack(t *testing.T) {
	err := Wrap(io.EOF, ErrTransportClosed, "socket closed")
	verbose := fmt.Sprintf("%+v", err)
	if !strings.Contains(verbose, "errors_test.go") {
		t.Errorf("expected stack trace in %%+v output, got: %s", verbose)
	}
	if short := fmt.Sprintf("%v", err); strings.Contains(short, "\n") {
		t.Errorf("%%v should be single-line, got: %s", short)
	}
}

func TestRemoteErrorContext(t *testing.T) {
	err := RemoteError("setHscale", -32601, "method not found")
	if err.Context["code"] != -32601 {
		t.Errorf("expected code in context, got %v", err.Context)
	}
	if !Is(err, ErrRPCRemote) {
		t.Error("expected RPC_REMOTE code")
	}
}
