/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"fmt"
	"io"
	"net/http"

	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
	jsonutil "github.com/amd-enterprise-ai/airm/pkg/utils/json"
)

const (
	DefaultMaxRequestBodyBytes = int64(2 * 1024 * 1024)
)

// ReadBody reads the request body through a LimitedReader so an oversized
// payload fails fast instead of exhausting memory. The body is closed.
func ReadBody(req *http.Request) ([]byte, error) {
	defer req.Body.Close()
	lr := &io.LimitedReader{
		R: req.Body,
		N: DefaultMaxRequestBodyBytes + 1,
	}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, commonerrors.NewInternalError(err.Error())
	}
	if lr.N <= 0 {
		return nil, commonerrors.NewEntityTooLarge(
			fmt.Sprintf("the max length is %d bytes", DefaultMaxRequestBodyBytes))
	}
	return data, nil
}

// ParseRequestBody reads the body and unmarshals it into bodyStruct. An empty
// body returns nil for both values.
func ParseRequestBody(req *http.Request, bodyStruct interface{}) ([]byte, error) {
	body, err := ReadBody(req)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}
	if err = jsonutil.UnmarshalWithCheck(body, bodyStruct); err != nil {
		return body, commonerrors.NewValidation(err.Error())
	}
	return body, nil
}
