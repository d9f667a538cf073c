package controller

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"quizdesk_backend/internal/service"
	"quizdesk_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{&service.ValidationError{Msg: "bad"}, http.StatusBadRequest},
		{util.ErrInvalidFileType, http.StatusBadRequest},
		{util.ErrInvalidCredentials, http.StatusUnauthorized},
		{util.ErrPermissionDenied, http.StatusForbidden},
		{fmt.Errorf("load: %w", util.ErrQuizNotPublished), http.StatusNotFound},
		{gorm.ErrRecordNotFound, http.StatusNotFound},
		{util.ErrAlreadyAttempted, http.StatusConflict},
		{util.ErrSessionNotActive, http.StatusConflict},
		{util.ErrAIGeneration, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		code, ok := statusFor(tc.err)
		assert.True(t, ok, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}

	_, ok := statusFor(errors.New("boom"))
	assert.False(t, ok)
}

func TestParamID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Params = gin.Params{{Key: "id", Value: "abc"}}
	_, ok := paramID(ctx, "id")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	ctx, _ = gin.CreateTestContext(httptest.NewRecorder())
	ctx.Params = gin.Params{{Key: "id", Value: "42"}}
	id, ok := paramID(ctx, "id")
	assert.True(t, ok)
	assert.Equal(t, uint(42), id)
}
