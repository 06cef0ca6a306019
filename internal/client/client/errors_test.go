package client

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindForStatus(t *testing.T) {
	assert.Equal(t, ErrUnauthorized, kindForStatus(http.StatusUnauthorized))
	assert.Equal(t, ErrUnauthorized, kindForStatus(http.StatusForbidden))
	assert.Equal(t, ErrNotFound, kindForStatus(http.StatusNotFound))
	assert.Equal(t, ErrTooManyRequests, kindForStatus(http.StatusTooManyRequests))
	assert.Equal(t, ErrUnavailable, kindForStatus(http.StatusBadGateway))
	assert.Equal(t, ErrBadRequest, kindForStatus(http.StatusConflict))
}

func TestAPIError_ErrorText(t *testing.T) {
	assert.Equal(t, "boom", (&APIError{Status: 400, Detail: "boom"}).Error())
	assert.Equal(t, "Not Found", (&APIError{Status: 404}).Error())
	assert.Equal(t, "unexpected status 599", (&APIError{Status: 599}).Error())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "fallback", Message(errors.New("x"), "fallback"))
	assert.Equal(t, "detail", Message(&APIError{Status: 400, Detail: "detail", Kind: ErrBadRequest}, "fallback"))

	verr := fmt.Errorf("%w: email is required", ErrValidation)
	assert.Equal(t, verr.Error(), Message(verr, "fallback"))
}

func TestClassifyOTP_MissingChallengeIsTerminal(t *testing.T) {
	notFound := &APIError{Status: http.StatusNotFound, Detail: "No pending OTP for this email", Kind: ErrNotFound}
	classifyOTP(notFound, "")
	assert.ErrorIs(t, notFound, ErrOtpNotFound)
	assert.ErrorIs(t, notFound, ErrOtpTerminal)
	assert.NotErrorIs(t, notFound, ErrOtpRetryable)

	gone := &APIError{Status: http.StatusGone, Detail: "No pending OTP for this email", Kind: ErrBadRequest}
	classifyOTP(gone, "")
	assert.ErrorIs(t, gone, ErrOtpExpired)
	assert.ErrorIs(t, gone, ErrOtpTerminal)
}

func TestClassifyOTP_LeavesServerErrors(t *testing.T) {
	e := &APIError{Status: http.StatusBadGateway, Kind: ErrUnavailable}
	classifyOTP(e, "")
	assert.ErrorIs(t, e, ErrUnavailable)
	assert.NotErrorIs(t, e, ErrOtpTerminal)
}
