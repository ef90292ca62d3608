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

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tomoncle/crudgate/types"
	"github.com/tomoncle/crudgate/utils"
)

const internalErrorDetail = "internal server error"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError maps domain errors to status codes. Anything unknown is
// logged and hidden behind a generic 500.
func respondError(c *gin.Context, err error) {
	switch {
	case types.IsNotFound(err):
		abortWithError(c, http.StatusNotFound, err.Error())
	case types.IsConflict(err):
		abortWithError(c, http.StatusConflict, err.Error())
	case types.IsUnauthorized(err):
		c.Header("WWW-Authenticate", "Bearer")
		abortWithError(c, http.StatusUnauthorized, err.Error())
	case types.IsForbidden(err):
		abortWithError(c, http.StatusForbidden, err.Error())
	default:
		utils.GetOrCreateLogger("HTTP").
			WithField("request_id", GetRequestID(c)).
			WithError(err).
			Error("unhandled error")
		abortWithError(c, http.StatusInternalServerError, internalErrorDetail)
	}
}

// respondBindError answers 422 for malformed or invalid input.
func respondBindError(c *gin.Context, err error) {
	abortWithError(c, http.StatusUnprocessableEntity, err.Error())
}

func abortWithError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: detail, RequestID: GetRequestID(c)})
}
