package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"studentconnect/internal/repository"
)

// RoomHandler serves read-only room snapshots for initial page loads; live
// updates arrive over the WebSocket.
type RoomHandler struct {
	rooms *repository.RoomRegistry
}

func NewRoomHandler(rooms *repository.RoomRegistry) *RoomHandler {
	return &RoomHandler{rooms: rooms}
}

// List returns every country room with live counters.
func (h *RoomHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.rooms.Rooms()})
}

// Messages returns the current in-memory history for one room.
func (h *RoomHandler) Messages(c *gin.Context) {
	snapshot, err := h.rooms.Snapshot(c.Param("country"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}
