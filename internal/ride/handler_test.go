package ride

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func errorStatus(t *testing.T, err error) (int, string) {
	t.Helper()
	var fe *fiber.Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected fiber error, got %T", err)
	}
	return fe.Code, fe.Message
}

func TestMapErrorBusinessCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrVehicleNotFound, http.StatusNotFound},
		{ErrNotOwner, http.StatusForbidden},
		{ErrInsufficientBalance, http.StatusForbidden},
		{ErrActiveRideExists, http.StatusConflict},
		{ErrVehicleUnavailable, http.StatusConflict},
		{ErrRideEnded, http.StatusConflict},
		{ErrBillingFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if code, _ := errorStatus(t, mapError(tc.err)); code != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, code)
		}
	}
}

func TestMapErrorValidation(t *testing.T) {
	err := fmt.Errorf("%w: at least one waypoint is required", ErrInvalidInput)
	code, msg := errorStatus(t, mapError(err))
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for validation error, got %d", code)
	}
	if !strings.Contains(msg, "waypoint") {
		t.Fatalf("validation message should be returned to the caller, got %q", msg)
	}
}

func TestMapErrorHidesInfrastructureFailures(t *testing.T) {
	raw := errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")
	code, msg := errorStatus(t, mapError(raw))
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for unrecognized error, got %d", code)
	}
	if msg != "internal server error" {
		t.Fatalf("internal detail must not reach the client, got %q", msg)
	}
}
