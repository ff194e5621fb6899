package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeNotFound, fiber.StatusNotFound},
		{CodeValidation, fiber.StatusBadRequest},
		{CodeConflict, fiber.StatusBadRequest},
		{CodeInvalidState, fiber.StatusBadRequest},
		{CodeUnauthenticated, fiber.StatusUnauthorized},
		{CodeForbidden, fiber.StatusForbidden},
		{CodeInternal, fiber.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), fiber.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.code.HTTPStatus(); got != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestCodeSurvivesWrapping(t *testing.T) {
	base := NotFound("quest not found")
	wrapped := fmt.Errorf("complete quest: %w", base)

	if CodeOf(wrapped) != CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", CodeOf(wrapped))
	}
	if !errors.Is(wrapped, NotFound("")) {
		t.Fatal("errors.Is should match by code")
	}
	if errors.Is(wrapped, Conflict("")) {
		t.Fatal("errors.Is must not match a different code")
	}
}

func TestForeignErrorsAreInternal(t *testing.T) {
	if CodeOf(errors.New("boom")) != CodeInternal {
		t.Fatal("expected INTERNAL for plain errors")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeInternal, "load user", cause)

	if !errors.Is(err, cause) {
		t.Fatal("cause should be reachable through Unwrap")
	}
	if err.Error() != "load user: connection reset" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestHasCodeSeesInnerCodes(t *testing.T) {
	err := Wrap(CodeInternal, "load quest", NotFound("quest not found"))

	if CodeOf(err) != CodeInternal {
		t.Fatalf("CodeOf should report the outermost code, got %s", CodeOf(err))
	}
	if !HasCode(err, CodeNotFound) {
		t.Fatal("HasCode should find NOT_FOUND under the internal wrapper")
	}
	if !HasCode(err, CodeInternal) {
		t.Fatal("HasCode should match the outer code too")
	}
	if HasCode(err, CodeConflict) {
		t.Fatal("HasCode must not match a code absent from the chain")
	}
}

func TestHasCodeForeignAndNil(t *testing.T) {
	if !HasCode(errors.New("boom"), CodeInternal) {
		t.Fatal("plain errors count as INTERNAL")
	}
	if HasCode(errors.New("boom"), CodeNotFound) {
		t.Fatal("plain errors carry no other code")
	}
	if HasCode(nil, CodeInternal) {
		t.Fatal("nil carries no code")
	}
}
