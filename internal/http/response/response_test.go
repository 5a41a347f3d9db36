package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vinoplan-backend/internal/modules/tasting"
	"github.com/yungbote/vinoplan-backend/internal/platform/apierr"
)

func respond(t *testing.T, err error) (int, ErrorEnvelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondDomainError(c, err)
	var env ErrorEnvelope
	if jErr := json.Unmarshal(rec.Body.Bytes(), &env); jErr != nil {
		t.Fatalf("decode: %v", jErr)
	}
	return rec.Code, env
}

func TestRespondDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"rejected", tasting.Rejected("Sign up first."), http.StatusBadRequest, "validation_rejected", "Sign up first."},
		{"quota", tasting.QuotaExceeded("Daily limit."), http.StatusTooManyRequests, "quota_exceeded", "Daily limit."},
		{"upstream", tasting.UpstreamFailure("ai", errors.New("secret detail")), http.StatusBadGateway, "generation_failed", tasting.GenericFailureMessage},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, "internal_error", tasting.GenericFailureMessage},
		{"explicit", apierr.NotFound("plan_not_found", errors.New("plan not found")), http.StatusNotFound, "plan_not_found", "plan not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := respond(t, tc.err)
			if status != tc.status || env.Error.Code != tc.code || env.Error.Message != tc.msg {
				t.Fatalf("got status=%d code=%q msg=%q", status, env.Error.Code, env.Error.Message)
			}
		})
	}
}
