package service

import (
	"errors"
	"fmt"
	"testing"

	"netbanking/internal/repository"
	"netbanking/internal/validation"
)

func TestAsServiceError(t *testing.T) {
	_, verr := validation.Phone("")
	tests := []struct {
		name string
		err  error
		kind Kind
		msg  string
	}{
		{"validation", verr, KindValidation, "Phone number is required"},
		{"optimistic lock", fmt.Errorf("update: %w", repository.ErrOptimisticLock), KindConflict, msgConcurrentUpdate},
		{"missing account", repository.ErrAccountNotFound, KindNotFound, msgAccountNotFound},
		{"service error passes through", newErr(KindBusiness, "nope"), KindBusiness, "nope"},
		{"anything else", errors.New("disk on fire"), KindInternal, "Transaction failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertKind(t, asServiceError(tt.err, "Transaction failed"), tt.kind, tt.msg)
		})
	}
	if asServiceError(nil, "x") != nil {
		t.Error("nil must stay nil")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := internalErr("Payment failed", cause)
	if !errors.Is(err, cause) {
		t.Error("cause not reachable through Unwrap")
	}
	if KindOf(cause) != KindInternal {
		t.Error("plain errors are internal")
	}
}
