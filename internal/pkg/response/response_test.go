package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) Response {
	var resp Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func serve(handler gin.HandlerFunc) *httptest.ResponseRecorder {
	router := gin.New()
	router.GET("/test", handler)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSuccess(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Success(c, gin.H{"key": "value"})
	})

	assert.Equal(t, http.StatusOK, w.Code)

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "value", data["key"])
}

func TestSuccess_NilData(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Success(c, nil)
	})

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Nil(t, resp.Data)
}

func TestSuccessWithMessage(t *testing.T) {
	w := serve(func(c *gin.Context) {
		SuccessWithMessage(c, "Request approved", gin.H{"id": 1})
	})

	resp := parseResponse(t, w)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "Request approved", resp.Message)
}

func TestSuccessList(t *testing.T) {
	w := serve(func(c *gin.Context) {
		SuccessList(c, 2, []string{"a", "b"})
	})

	resp := parseResponse(t, w)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["total"])
	assert.Len(t, data["items"], 2)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name     string
		call     func(c *gin.Context, message string)
		code     int
		message  string
		expected string
	}{
		{"param default", ParamError, CodeParamError, "", "invalid parameters"},
		{"param custom", ParamError, CodeParamError, "group_id is required", "group_id is required"},
		{"auth default", AuthError, CodeAuthFailed, "", "authentication failed"},
		{"permission default", PermissionError, CodePermissionDenied, "", "permission denied"},
		{"not found custom", NotFoundError, CodeResourceNotFound, "Request not found", "Request not found"},
		{"already processed", AlreadyProcessedError, CodeAlreadyProcessed, "Request already approved", "Request already approved"},
		{"server default", ServerError, CodeServerError, "", "internal server error"},
		{"partial apply default", PartialApplyError, CodePartialApply, "", "operation may be partially applied"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(func(c *gin.Context) {
				tt.call(c, tt.message)
			})

			assert.Equal(t, http.StatusOK, w.Code)
			resp := parseResponse(t, w)
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.expected, resp.Message)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestError_UnknownCode(t *testing.T) {
	w := serve(func(c *gin.Context) {
		Error(c, 9999, "")
	})

	resp := parseResponse(t, w)
	assert.Equal(t, 9999, resp.Code)
	assert.Empty(t, resp.Message)
}
