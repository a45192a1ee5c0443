package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteRequest struct {
	Content string `json:"content" binding:"notblank,max=10"`
}

func TestRegisterValidators(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())
	require.NoError(t, RegisterValidators(), "registering twice replaces the tag")

	r := gin.New()
	r.POST("/notes", func(c *gin.Context) {
		var req noteRequest
		if !bindJSON(c, &req) {
			return
		}
		c.String(http.StatusOK, req.Content)
	})

	for body, want := range map[string]int{
		`{"content":"hello"}`:        http.StatusOK,
		`{"content":"   "}`:          http.StatusBadRequest,
		`{}`:                         http.StatusBadRequest,
		`{"content":"far too long"}`: http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, body)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader(`{"content":" \t "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "content is required")
}
