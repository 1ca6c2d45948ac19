package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/gistify/internal/domain"
)

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusOK, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "value", result["key"])
}

func TestJSON_NilData(t *testing.T) {
	w := httptest.NewRecorder()

	JSON(w, http.StatusNoContent, nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, http.StatusCreated, map[string]string{"id": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	var result SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	data, ok := result.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "123", data["id"])
}

func TestDomainErrorToHTTP(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{domain.ErrEmptyQuestion, http.StatusBadRequest},
		{domain.ErrDocumentNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrDocumentNotFound), http.StatusNotFound},
		{domain.ErrInvalidAPIKey, http.StatusUnauthorized},
		{domain.ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{domain.ErrStorageNotConfigured, http.StatusServiceUnavailable},
		{domain.NewDomainError(domain.ErrCodeInternalError, "boom"), http.StatusInternalServerError},
		{&http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, DomainErrorToHTTP(tc.err), fmt.Sprint(tc.err))
	}
}

func TestHandleError(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/documents/x", nil)

	w := httptest.NewRecorder()
	HandleError(w, r, domain.ErrDocumentNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "document not found", resp.Error)
	assert.Equal(t, domain.ErrCodeNotFound, resp.Code)

	w = httptest.NewRecorder()
	HandleError(w, r, errors.New("pq: connection reset"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "internal error", resp.Error)
}

type askBody struct {
	Question string `json:"question" validate:"required,max=20"`
	Kind     string `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestDecodeJSON(t *testing.T) {
	var body askBody
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"question":"why?"}`))
	require.NoError(t, DecodeJSON(r, &body))
	assert.Equal(t, "why?", body.Question)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"kind":"c"}`))
	err := DecodeJSON(r, &askBody{})
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeValidation, de.Code)
	assert.Equal(t, "question is required; kind must be one of: a b", de.Message)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	err = DecodeJSON(r, &askBody{})
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "invalid request body", de.Message)
}

func TestValidate_UsesJSONNames(t *testing.T) {
	type req struct {
		SummaryType string `json:"summary_type" validate:"oneof=x y"`
		Polarity    string `validate:"required"`
	}
	err := Validate(req{SummaryType: "z"})
	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "summary_type must be one of: x y; polarity is required", de.Message)
}
