package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfrastructureKeepsRawMessage(t *testing.T) {
	err := Infrastructure(errors.New("connection refused"))

	assert.Equal(t, "connection refused", err.Error())
	assert.Equal(t, KindInfrastructure, KindOf(err))
	assert.Equal(t, http.StatusBadGateway, StatusCode(err))
	assert.Nil(t, Infrastructure(nil))
}

func TestInfrastructurePassesAppErrorsThrough(t *testing.T) {
	wrapped := fmt.Errorf("update: %w", ErrPipelineNotFound)

	assert.Same(t, wrapped, Infrastructure(wrapped))
	assert.ErrorIs(t, Infrastructure(wrapped), ErrPipelineNotFound)
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(nil))
	assert.Equal(t, http.StatusForbidden, StatusCode(ErrAdminRequired))
	assert.Equal(t, http.StatusBadRequest, StatusCode(ErrInvalidPipelineID))
	assert.Equal(t, http.StatusNotFound, StatusCode(ErrPipelineNotFound))
	assert.Equal(t, http.StatusConflict, StatusCode(ErrStageExists))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("boom")))
}
