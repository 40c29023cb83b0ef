/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package apiutils

import (
	"errors"

	"github.com/gin-gonic/gin"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	commonerrors "github.com/amd-enterprise-ai/airm/pkg/errors"
)

// AirmApiError is the wire shape of every error response.
type AirmApiError struct {
	HttpCode     int    `json:"-"`
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

func (err *AirmApiError) Error() string {
	return err.ErrorMessage
}

func AbortWithApiError(c *gin.Context, err error) {
	recordErrors(c, err)
	rsp := cvtToErrResponse(err)
	c.AbortWithStatusJSON(rsp.HttpCode, rsp)
}

func cvtToErrResponse(err error) AirmApiError {
	var preformatted *AirmApiError
	if errors.As(err, &preformatted) {
		return *preformatted
	}
	statusErr := asStatusError(err)
	return AirmApiError{
		HttpCode:     int(statusErr.Status().Code),
		ErrorCode:    string(statusErr.Status().Reason),
		ErrorMessage: statusErr.Error(),
	}
}

// asStatusError coerces arbitrary errors into a coded StatusError. Errors
// without a recognizable kind become internal errors so no raw message
// decides its own HTTP status.
func asStatusError(err error) *apierrors.StatusError {
	var statusErr *apierrors.StatusError
	if errors.As(err, &statusErr) {
		return statusErr
	}
	switch {
	case apierrors.IsNotFound(err):
		return commonerrors.NewNotFoundWithMessage(err.Error())
	case apierrors.IsBadRequest(err), apierrors.IsInvalid(err):
		return commonerrors.NewValidation(err.Error())
	case apierrors.IsAlreadyExists(err), apierrors.IsConflict(err):
		return commonerrors.NewConflict(err.Error())
	case apierrors.IsForbidden(err):
		return commonerrors.NewForbidden(err.Error())
	case apierrors.IsRequestEntityTooLargeError(err):
		return commonerrors.NewEntityTooLarge(err.Error())
	default:
		return commonerrors.NewInternalError(err.Error())
	}
}

// recordErrors attaches the error chain to the gin context so the logging
// middleware can record it with the request line.
func recordErrors(c *gin.Context, err error) {
	errs := []error{err}
	if aggregate, ok := err.(utilerrors.Aggregate); ok {
		errs = aggregate.Errors()
	}
	for _, val := range errs {
		if val != nil {
			_ = c.Error(val)
		}
	}
}
