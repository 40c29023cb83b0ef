/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

func postRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/v1/projects", strings.NewReader(body))
}

func TestReadBody(t *testing.T) {
	data, err := ReadBody(postRequest(`{"name":"alpha"}`))
	assert.NoError(t, err)
	assert.Equal(t, `{"name":"alpha"}`, string(data))
}

func TestReadBodyTooLarge(t *testing.T) {
	oversized := bytes.Repeat([]byte("a"), int(DefaultMaxRequestBodyBytes)+1)
	req := httptest.NewRequest(http.MethodPost, "/v1/charts", bytes.NewReader(oversized))
	_, err := ReadBody(req)
	assert.Error(t, err)
	assert.Equal(t, commonerrors.EntityTooLarge, commonerrors.GetErrorCode(err))
}

func TestParseRequestBody(t *testing.T) {
	type createRequest struct {
		Name string `json:"name"`
	}

	var parsed createRequest
	raw, err := ParseRequestBody(postRequest(`{"name":"alpha"}`), &parsed)
	assert.NoError(t, err)
	assert.Equal(t, "alpha", parsed.Name)
	assert.NotEmpty(t, raw)

	// Empty bodies parse to nothing without error.
	raw, err = ParseRequestBody(postRequest(""), &parsed)
	assert.NoError(t, err)
	assert.Nil(t, raw)

	// Unknown fields are refused.
	_, err = ParseRequestBody(postRequest(`{"name":"alpha","surprise":true}`), &parsed)
	assert.Error(t, err)
	assert.Equal(t, commonerrors.Validation, commonerrors.GetErrorCode(err))

	_, err = ParseRequestBody(postRequest(`{broken`), &parsed)
	assert.Error(t, err)
}

func TestCvtToErrResponse(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		httpCode int
		code     string
	}{
		{
			name:     "airm not found",
			err:      commonerrors.NewNotFound("Project", "p1"),
			httpCode: http.StatusNotFound,
			code:     commonerrors.ProjectNotFound,
		},
		{
			name:     "airm validation",
			err:      commonerrors.NewValidation("bad name"),
			httpCode: http.StatusBadRequest,
			code:     commonerrors.Validation,
		},
		{
			name:     "airm conflict",
			err:      commonerrors.NewConflict("name taken"),
			httpCode: http.StatusConflict,
			code:     commonerrors.Conflict,
		},
		{
			name:     "plain error becomes internal",
			err:      fmt.Errorf("the database exploded"),
			httpCode: http.StatusInternalServerError,
			code:     commonerrors.InternalError,
		},
		{
			name:     "preformatted api error passes through",
			err:      &AirmApiError{HttpCode: http.StatusTeapot, ErrorCode: "Airm.99999", ErrorMessage: "teapot"},
			httpCode: http.StatusTeapot,
			code:     "Airm.99999",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rsp := cvtToErrResponse(tt.err)
			assert.Equal(t, tt.httpCode, rsp.HttpCode)
			assert.Equal(t, tt.code, rsp.ErrorCode)
			assert.NotEmpty(t, rsp.ErrorMessage)
		})
	}
}
