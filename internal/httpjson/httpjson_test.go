package httpjson

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resitrack/backend/internal/apperr"
)

type form struct {
	Date   string `json:"date"`
	SlotID string `json:"slotId"`
}

func TestRead(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "ok", body: `{"date":"2024-05-01","slotId":"S1"}`},
		{name: "unknown field", body: `{"date":"2024-05-01","slot":"S1"}`, wantErr: true},
		{name: "trailing object", body: `{"date":"2024-05-01"}{}`, wantErr: true},
		{name: "not json", body: `date=2024-05-01`, wantErr: true},
		{name: "empty", body: ``, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var f form
			err := Read(httptest.NewRecorder(), r, &f)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidJSON)
				assert.True(t, apperr.IsErrValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, form{Date: "2024-05-01", SlotID: "S1"}, f)
		})
	}
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "slot already booked")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"slot already booked"}`, w.Body.String())
}
