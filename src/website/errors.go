package website

import (
	"errors"
	"net/http"

	"git.burrowchat.net/burrow/burrow/src/apperrors"
	"git.burrowchat.net/burrow/burrow/src/db"
)

type errorPayload struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    apperrors.Kind `json:"kind"`
	Message string         `json:"message"`
}

func statusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.Validation:
		return http.StatusUnprocessableEntity
	case apperrors.Authentication:
		return http.StatusUnauthorized
	case apperrors.Authorization:
		return http.StatusForbidden
	case apperrors.NotFound:
		return http.StatusNotFound
	case apperrors.Conflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

/*
ErrorResponse turns any error into the stable JSON error shape. Classified
errors pass their kind and message through; anything else becomes an opaque
internal error, logged with its stack but never shown to the client.
*/
func (c *RequestContext) ErrorResponse(errs ...error) ResponseData {
	kind := apperrors.Internal
	message := "something went wrong on our end"

	if len(errs) > 0 {
		err := errs[0]
		if errors.Is(err, db.NotFound) {
			err = apperrors.Wrap(err, apperrors.NotFound, "not found")
			errs[0] = err
		}

		var appErr *apperrors.Error
		if errors.As(err, &appErr) {
			kind = appErr.Kind
			message = appErr.Message
		}
	}

	var res ResponseData
	res.StatusCode = statusForKind(kind)
	if kind == apperrors.Internal {
		// Only unclassified errors are worth a stack trace in the log.
		res.Errors = errs
	}
	res.WriteJson(errorPayload{Error: errorBody{Kind: kind, Message: message}})
	return res
}

func FourOhFour(c *RequestContext) ResponseData {
	return c.ErrorResponse(apperrors.New(apperrors.NotFound, "no such resource"))
}
