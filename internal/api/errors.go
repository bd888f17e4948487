package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cleared-dev/ledger/internal/apperr"
)

// fail writes err with the status its category maps to.
func fail(c *gin.Context, err error) {
	var verrs apperr.ValidationErrors
	var verr apperr.ValidationError

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "violations": violations(verrs)})
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "violations": violations(apperr.ValidationErrors{verr})})
	case errors.Is(err, apperr.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

type violation struct {
	Rule        string `json:"rule"`
	Subject     string `json:"subject,omitempty"`
	Description string `json:"description"`
}

func violations(errs apperr.ValidationErrors) []violation {
	out := make([]violation, len(errs))
	for i, e := range errs {
		out[i] = violation{Rule: e.Rule, Subject: e.Subject, Description: e.Description}
	}
	return out
}
