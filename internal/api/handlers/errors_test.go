package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bruno-romeu/balm-api/internal/domain"
	"github.com/bruno-romeu/balm-api/pkg/errors"
)

func TestWriteError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &errors.ErrNotFound{Resource: "order", ID: "x"}, http.StatusNotFound},
		{"validation", &errors.ErrValidation{Message: "bad"}, http.StatusBadRequest},
		// An illegal status move is a caller mistake, not a conflict
		{"invalid transition", &errors.ErrInvalidTransition{From: domain.OrderStatusPending, To: domain.OrderStatusShipped}, http.StatusBadRequest},
		{"conflict", &errors.ErrConflict{Message: "dup"}, http.StatusConflict},
		{"unauthorized", &errors.ErrUnauthorized{}, http.StatusUnauthorized},
		{"unknown", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			writeError(c, zap.NewNop(), tc.err)

			assert.Equal(t, tc.want, w.Code)
		})
	}
}
