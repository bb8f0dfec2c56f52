package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Wrap(t *testing.T) {
	base := errors.New("disk gone")
	err := Wrap(base, CodeFatalIO, "read repository root")

	if !IsCode(err, CodeFatalIO) {
		t.Errorf("expected FATAL_IO code, got %v", CodeOf(err))
	}
	if !errors.Is(err, base) {
		t.Error("expected wrapped error to match errors.Is")
	}
}

func TestDomainError_AddContext(t *testing.T) {
	err := New(CodeExtractionDegraded, "parse failed")
	err = AddContext(err, CtxPath, "a/b.go")

	var de *DomainError
	if !errors.As(err, &de) {
		t.Fatal("expected DomainError")
	}
	if de.Context[CtxPath] != "a/b.go" {
		t.Errorf("expected path context, got %v", de.Context)
	}
}

func TestDomainError_AddContextPlainError(t *testing.T) {
	err := AddContext(fmt.Errorf("plain"), CtxUnit, "module:x")
	if CodeOf(err) != CodeInternal {
		t.Errorf("plain errors should wrap as INTERNAL_ERROR, got %v", CodeOf(err))
	}
}

func TestCodeOf_Plain(t *testing.T) {
	if CodeOf(errors.New("x")) != CodeInternal {
		t.Error("expected CodeInternal for non-domain error")
	}
}
