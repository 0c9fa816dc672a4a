package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "plain error is internal", err: errors.New("boom"), want: KindInternal},
		{name: "not found", err: NewNotFound("Ad not found"), want: KindNotFound},
		{name: "wrapped forbidden", err: fmt.Errorf("gate: %w", NewForbidden("nope")), want: KindForbidden},
		{name: "conflict with cause", err: Wrap(KindConflict, "dup", errors.New("23505")), want: KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorKindHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindValidation.HTTPStatus())
	assert.Equal(t, http.StatusBadRequest, KindConflict.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindForbidden.HTTPStatus())
	assert.Equal(t, http.StatusUnauthorized, KindUnauthenticated.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, ErrorKind(99).HTTPStatus())
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("driver failure")
	err := Wrap(KindInternal, "failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed: driver failure", err.Error())
	assert.True(t, IsKind(err, KindInternal))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestRoleAndConditionValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("admin").Valid())

	assert.True(t, ConditionUsed.Valid())
	assert.False(t, Condition("BROKEN").Valid())
}
