package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
)

const (
	typeData  = "data"
	typeError = "error"
)

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type errorBody struct {
	ErrorType string `json:"errorType"`
	Info      string `json:"info"`
}

func dataResponse(data any) envelope {
	return envelope{Type: typeData, Data: data}
}

func errorResponse(body errorBody) envelope {
	return envelope{Type: typeError, Data: body}
}

func statusOf(kind apperror.Kind) int {
	switch kind {
	case apperror.RoomNotFound, apperror.UserNotFound:
		return http.StatusNotFound
	case apperror.NotCreator:
		return http.StatusForbidden
	case apperror.HasActiveRoom, apperror.AlreadyInARoom, apperror.SlotOccupied, apperror.NotInRoom,
		apperror.WrongTurn, apperror.CellOccupied, apperror.AlreadyDecided:
		return http.StatusConflict
	case apperror.InvalidSeat, apperror.InvalidCell, apperror.InvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (that *Server) fail(c *gin.Context, err error) {
	kind := apperror.KindOf(err)

	body := errorBody{ErrorType: kind.String(), Info: apperror.Detail(err)}
	if kind == apperror.InternalError {
		that.logger.Error("request failed", "path", c.FullPath(), "error", err)
		body.Info = "internal server error"
	}

	c.JSON(statusOf(kind), errorResponse(body))
}

func badRequest(c *gin.Context, info string) {
	c.JSON(http.StatusBadRequest, errorResponse(errorBody{
		ErrorType: apperror.InvalidInput.String(),
		Info:      info,
	}))
}
