package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return body
}

func TestSuccessWritesMoneyAsNumber(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Success(c, gin.H{"balance": decimal.RequireFromString("1100.50")})

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	body := decode(t, w)
	if body["status"] != StatusSuccess {
		t.Errorf("status = %v", body["status"])
	}
	if _, ok := body["message"]; ok {
		t.Error("message should be omitted when empty")
	}
	data := body["data"].(map[string]interface{})
	if data["balance"] != 1100.5 {
		t.Errorf("balance = %#v, want number 1100.5", data["balance"])
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(c *gin.Context, msg string)
		code int
	}{
		{"param", ParamError, http.StatusBadRequest},
		{"unauthorized", Unauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden, http.StatusForbidden},
		{"not found", NotFound, http.StatusNotFound},
		{"conflict", Conflict, http.StatusConflict},
		{"server", ServerError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			tt.fn(c, "boom")

			if w.Code != tt.code {
				t.Errorf("code = %d, want %d", w.Code, tt.code)
			}
			body := decode(t, w)
			if body["status"] != StatusError || body["message"] != "boom" {
				t.Errorf("body = %v", body)
			}
			if !c.IsAborted() {
				t.Error("error responses should abort the chain")
			}
		})
	}
}
