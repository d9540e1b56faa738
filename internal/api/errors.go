package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"checkin-backend/internal/checkin"
)

// statusOf maps an admission failure kind to an HTTP status.
func statusOf(kind checkin.Kind) int {
	switch kind {
	case checkin.KindUnauthorized:
		return http.StatusUnauthorized
	case checkin.KindForbidden:
		return http.StatusForbidden
	case checkin.KindConflict:
		return http.StatusConflict
	case checkin.KindNotAcceptable:
		return http.StatusNotAcceptable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders an admission failure. Expected business refusals pass
// through with their message; config and persistence failures are logged
// loudly because the service cannot make a correct decision without them.
func writeError(c *gin.Context, err error) {
	kind := checkin.KindOf(err)
	switch kind {
	case checkin.KindConfigMissing:
		log.Printf("CONFIG MISSING: %v (method=%s path=%s)", err, c.Request.Method, c.Request.URL.Path)
	case checkin.KindInternal:
		log.Printf("internal error: %v (method=%s path=%s)", err, c.Request.Method, c.Request.URL.Path)
	}
	c.AbortWithStatusJSON(statusOf(kind), gin.H{"error": err.Error()})
}
