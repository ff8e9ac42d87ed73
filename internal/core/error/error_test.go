package errx

import (
	"errors"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorWrapsUnderlying(t *testing.T) {
	cause := errors.New("boom")
	err := New(cause, http.StatusInternalServerError, SystemErrorMessage)

	assert.Equal(t, "internal server error: boom", err.Error())
	assert.True(t, errors.Is(err, cause))

	var app *AppError
	require.True(t, errors.As(err, &app))
	assert.Equal(t, http.StatusInternalServerError, app.Status)
}

func TestAppErrorWithoutCause(t *testing.T) {
	err := New(nil, http.StatusBadRequest, "missing user text")

	assert.Equal(t, "missing user text", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestWrapRedisNilKey(t *testing.T) {
	err := WrapRedis(redis.Nil)

	var app *AppError
	require.True(t, errors.As(err, &app))
	assert.Equal(t, http.StatusNotFound, app.Status)
	assert.Equal(t, RedisNotFoundMessage, app.Message)
	assert.True(t, errors.Is(err, redis.Nil))
}

func TestWrapRedisGenericFailure(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapRedis(cause)

	var app *AppError
	require.True(t, errors.As(err, &app))
	assert.Equal(t, http.StatusBadGateway, app.Status)
	assert.Equal(t, RedisErrorMessage, app.Message)
}

func TestWrapRedisNil(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))
}
