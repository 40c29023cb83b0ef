/*
 * Copyright (c) 2025, Advanced Micro Devices, Inc. All rights reserved.
 * See LICENSE for license information.
 */

package errors

import (
	"fmt"
	"net/http"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v1 "github.com/amd-enterprise-ai/airm/pkg/apis/airm/v1"
)

const AirmPrefix = "Airm."

/*
   5-digit Error Code Convention: [xx][yyy]
   [xx] Business ID (00–99), used to distinguish errors from different business interfaces.
   00: General errors
   01: Project and quota errors
   02: Cluster errors
   03: Workload errors
   04: Secret and storage errors
   05: API key and AIM errors
   [yyy] Error code range (000–999)
*/

// public: 00xxx
const (
	InternalError        = AirmPrefix + "00001"
	Validation           = AirmPrefix + "00002"
	Forbidden            = AirmPrefix + "00003"
	Conflict             = AirmPrefix + "00004"
	NotFound             = AirmPrefix + "00005"
	Unauthorized         = AirmPrefix + "00006"
	PreconditionNotMet   = AirmPrefix + "00007"
	Unhealthy            = AirmPrefix + "00008"
	ExternalServiceError = AirmPrefix + "00009"
	UploadFailed         = AirmPrefix + "00010"
	InconsistentState    = AirmPrefix + "00011"
	EntityTooLarge       = AirmPrefix + "00012"
)

// project and quota: 01xxx
const (
	ProjectNotFound = AirmPrefix + "01001"
	QuotaNotFound   = AirmPrefix + "01002"
	QuotaExceeded   = AirmPrefix + "01003"
	RestrictedName  = AirmPrefix + "01004"
)

// cluster: 02xxx
const (
	ClusterNotFound  = AirmPrefix + "02001"
	ClusterUnhealthy = AirmPrefix + "02002"
	ClusterFull      = AirmPrefix + "02003"
)

// workload: 03xxx
const (
	WorkloadNotFound = AirmPrefix + "03001"
	ChartNotFound    = AirmPrefix + "03002"
)

// secret and storage: 04xxx
const (
	SecretNotFound   = AirmPrefix + "04001"
	StorageNotFound  = AirmPrefix + "04002"
	SecretReferenced = AirmPrefix + "04003"
)

// api key and AIM: 05xxx
const (
	ApiKeyNotFound = AirmPrefix + "05001"
	AimNotFound    = AirmPrefix + "05002"
)

// IsAirm returns true if the specified error carries an Airm error code.
func IsAirm(err error) bool {
	if err == nil {
		return false
	}
	return strings.HasPrefix(string(apierrors.ReasonForError(err)), AirmPrefix)
}

func IsConflict(err error) bool {
	return apierrors.ReasonForError(err) == Conflict
}

func IsValidation(err error) bool {
	reason := apierrors.ReasonForError(err)
	return reason == Validation || reason == QuotaExceeded || reason == RestrictedName || reason == ClusterFull
}

func IsInternal(err error) bool {
	reason := apierrors.ReasonForError(err)
	return reason == InternalError || reason == InconsistentState
}

func IsExternalService(err error) bool {
	return apierrors.ReasonForError(err) == ExternalServiceError
}

func IsNotFound(err error) bool {
	switch apierrors.ReasonForError(err) {
	case NotFound, ProjectNotFound, QuotaNotFound, ClusterNotFound,
		WorkloadNotFound, ChartNotFound, SecretNotFound, StorageNotFound,
		ApiKeyNotFound, AimNotFound:
		return true
	}
	return false
}

func IgnoreFound(err error) error {
	if err == nil || IsNotFound(err) {
		return nil
	}
	return err
}

func GetErrorCode(err error) string {
	if err == nil || !IsAirm(err) {
		return ""
	}
	return string(apierrors.ReasonForError(err))
}

func NewValidation(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  Validation,
		Message: fmt.Sprintf("Invalid request. %s", message),
	}}
}

func NewInternalError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  InternalError,
		Message: fmt.Sprintf("Internal error. %s", message),
	}}
}

func NewInconsistentState(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusInternalServerError,
		Reason:  InconsistentState,
		Message: message,
	}}
}

func NewConflict(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusConflict,
		Reason:  Conflict,
		Message: message,
	}}
}

func NewForbidden(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusForbidden,
		Reason:  Forbidden,
		Message: message,
	}}
}

func NewUnauthorized(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusUnauthorized,
		Reason:  Unauthorized,
		Message: message,
	}}
}

func NewPreconditionNotMet(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusPreconditionFailed,
		Reason:  PreconditionNotMet,
		Message: message,
	}}
}

func NewUnhealthy(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusServiceUnavailable,
		Reason:  Unhealthy,
		Message: message,
	}}
}

func NewExternalServiceError(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadGateway,
		Reason:  ExternalServiceError,
		Message: message,
	}}
}

func NewUploadFailed(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadGateway,
		Reason:  UploadFailed,
		Message: message,
	}}
}

func NewEntityTooLarge(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusRequestEntityTooLarge,
		Reason:  EntityTooLarge,
		Message: message,
	}}
}

func NewQuotaExceeded(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  QuotaExceeded,
		Message: message,
	}}
}

func NewRestrictedName(name string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  RestrictedName,
		Message: fmt.Sprintf("the name %q is reserved", name),
	}}
}

func NewClusterFull(cluster string, limit int) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  ClusterFull,
		Message: fmt.Sprintf("cluster %s already hosts the maximum of %d projects", cluster, limit),
	}}
}

func NewSecretReferenced(name string, storages []string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusBadRequest,
		Reason:  SecretReferenced,
		Message: fmt.Sprintf("secret %s is still referenced by storages: %s", name, strings.Join(storages, ", ")),
	}}
}

func NotFoundErrorCode(kind string) metav1.StatusReason {
	switch kind {
	case v1.ProjectKind:
		return ProjectNotFound
	case v1.QuotaKind:
		return QuotaNotFound
	case v1.ClusterKind:
		return ClusterNotFound
	case v1.WorkloadKind:
		return WorkloadNotFound
	case v1.ChartKind:
		return ChartNotFound
	case v1.SecretKind:
		return SecretNotFound
	case v1.StorageKind:
		return StorageNotFound
	case v1.ApiKeyKind:
		return ApiKeyNotFound
	case v1.AimKind:
		return AimNotFound
	default:
		return NotFound
	}
}

func NewNotFound(kind, name string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status: metav1.StatusFailure,
		Code:   http.StatusNotFound,
		Reason: NotFoundErrorCode(kind),
		Details: &metav1.StatusDetails{
			Kind: kind,
			Name: name,
		},
		Message: fmt.Sprintf("%s %s not found.", kind, name),
	}}
}

func NewNotFoundWithMessage(message string) *apierrors.StatusError {
	return &apierrors.StatusError{ErrStatus: metav1.Status{
		Status:  metav1.StatusFailure,
		Code:    http.StatusNotFound,
		Reason:  NotFound,
		Message: message,
	}}
}
