/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

import (
	"errors"
	"fmt"
)

// NotFoundError reports that a requested resource does not exist.
type NotFoundError struct {
	Resource string
	ID       interface{}
}

func (e *NotFoundError) Error() string {
	switch {
	case e.Resource == "":
		return "not found"
	case e.ID == nil:
		return e.Resource + " not found"
	default:
		return fmt.Sprintf("%s %v not found", e.Resource, e.ID)
	}
}

// NewNotFoundError returns a NotFoundError for resource id. id may be nil.
func NewNotFoundError(resource string, id interface{}) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ConflictError reports a write rejected by a uniqueness or integrity constraint.
type ConflictError struct {
	Resource string
	Err      error
}

func (e *ConflictError) Error() string {
	msg := "conflict"
	if e.Resource != "" {
		msg = e.Resource + " conflict"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConflictError) Unwrap() error { return e.Err }

// NewConflictError wraps cause as a ConflictError.
func NewConflictError(resource string, cause error) *ConflictError {
	return &ConflictError{Resource: resource, Err: cause}
}

// UnauthorizedError reports missing or invalid credentials.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason == "" {
		return "unauthorized"
	}
	return "unauthorized: " + e.Reason
}

// ForbiddenError reports an authenticated caller lacking permission.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	if e.Reason == "" {
		return "forbidden"
	}
	return "forbidden: " + e.Reason
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsUnauthorized(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

func IsForbidden(err error) bool {
	var target *ForbiddenError
	return errors.As(err, &target)
}
