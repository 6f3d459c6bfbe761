package rest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type createRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

type joinRoomRequest struct {
	Slot string `json:"slot" binding:"required"`
}

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type roomIDResponse struct {
	RoomID string `json:"roomId"`
}

// listRooms - GET /rooms?skip=&limit=&oldestFirst=. skip and limit are required, limit -1 lists everything.
func (that *Server) listRooms(c *gin.Context) {
	skipParam, ok := c.GetQuery("skip")
	if !ok {
		badRequest(c, `query parameter "skip" is required`)
		return
	}

	limitParam, ok := c.GetQuery("limit")
	if !ok {
		badRequest(c, `query parameter "limit" is required`)
		return
	}

	skip, err := strconv.Atoi(skipParam)
	if err != nil {
		badRequest(c, `bad query parameter "skip"`)
		return
	}

	limit, err := strconv.Atoi(limitParam)
	if err != nil {
		badRequest(c, `bad query parameter "limit"`)
		return
	}

	if skip < 0 {
		badRequest(c, `query parameter "skip" must be >= 0`)
		return
	}

	if limit < -1 {
		badRequest(c, `query parameter "limit" must be >= 0 or be -1`)
		return
	}

	oldestFirst := false
	if raw := c.Query("oldestFirst"); raw != "" {
		if oldestFirst, err = strconv.ParseBool(raw); err != nil {
			badRequest(c, `bad query parameter "oldestFirst"`)
			return
		}
	}

	rooms, err := that.rooms.ListRooms(c.Request.Context(), skip, limit, oldestFirst)
	if err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dataResponse(rooms))
}

func (that *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name must be provided")
		return
	}

	room, err := that.rooms.CreateRoom(c.Request.Context(), req.Name, currentUser(c))
	if err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dataResponse(room))
}

func (that *Server) getRoom(c *gin.Context) {
	room, err := that.rooms.GetRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dataResponse(room))
}

func (that *Server) deleteRoom(c *gin.Context) {
	roomID := c.Param("id")

	if err := that.rooms.DeleteRoom(c.Request.Context(), roomID, currentUser(c)); err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dataResponse(roomIDResponse{RoomID: roomID}))
}

func (that *Server) resetRoom(c *gin.Context) {
	room, err := that.rooms.ResetRoom(c.Request.Context(), c.Param("id"), currentUser(c))
	if err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dataResponse(room))
}

func (that *Server) joinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "slot must be provided")
		return
	}

	seat, err := entity.ParseSeat(req.Slot)
	if err != nil {
		that.fail(c, apperror.New(apperror.InvalidSeat, "slot is invalid"))
		return
	}

	room, err := that.rooms.JoinRoom(c.Request.Context(), c.Param("id"), currentUser(c), seat)
	if err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dataResponse(room))
}

func (that *Server) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "username and password must be provided")
		return
	}

	user, err := that.users.CreateUser(c.Request.Context(), req.Username, req.Password, req.Email, req.Phone)
	if err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, dataResponse(user))
}

func (that *Server) getUser(c *gin.Context) {
	user, err := that.users.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dataResponse(user))
}

func (that *Server) getUserByUsername(c *gin.Context) {
	user, err := that.users.GetUserByUsername(c.Request.Context(), c.Param("username"))
	if err != nil {
		that.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dataResponse(user))
}
