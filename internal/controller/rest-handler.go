package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/watchsync/server/internal/service/room"
	"github.com/watchsync/server/pkg/rest"
)

type createRoomRequest struct {
	OwnerId   string `json:"owner_id" validate:"required,min=1,max=64"`
	OwnerName string `json:"owner_name" validate:"max=32"`
}

func (c *controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	createRoomResp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		OwnerId:   req.OwnerId,
		OwnerName: req.OwnerName,
	})
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to create room", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to create room"})
		return
	}

	c.metrics.RoomCreated()

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": createRoomResp.Room})
}

func (c *controller) listRooms(w http.ResponseWriter, r *http.Request) {
	ownerId := r.URL.Query().Get("owner-id")
	if ownerId == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "owner-id is required"})
		return
	}

	listRoomsResp, err := c.roomService.ListRooms(r.Context(), ownerId)
	if err != nil {
		c.logger.ErrorContext(r.Context(), "failed to list rooms", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "failed to list rooms"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": listRoomsResp.Rooms})
}

func (c *controller) deleteRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	senderId := r.URL.Query().Get("sender-id")
	if senderId == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "sender-id is required"})
		return
	}

	err := c.roomService.DeleteRoom(r.Context(), &room.DeleteRoomParams{
		RoomId:   roomId,
		SenderId: senderId,
	})
	if err != nil {
		c.writeRESTError(w, r, err, "failed to delete room")
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": "deleted"})
}

func (c *controller) getRoomCookie(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	senderId := r.URL.Query().Get("sender-id")
	if senderId == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "sender-id is required"})
		return
	}

	getCredentialResp, err := c.roomService.GetSharedCredential(r.Context(), roomId, senderId)
	if err != nil {
		c.writeRESTError(w, r, err, "failed to get room cookie")
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": map[string]any{"cookie": getCredentialResp.Credential}})
}

type putRoomCookieRequest struct {
	Cookie string `json:"cookie" validate:"required"`
}

func (c *controller) putRoomCookie(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	senderId := r.URL.Query().Get("sender-id")
	if senderId == "" {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "sender-id is required"})
		return
	}

	var req putRoomCookieRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	setCredentialResp, err := c.roomService.SetSharedCredential(r.Context(), &room.SetSharedCredentialParams{
		RoomId:     roomId,
		SenderId:   senderId,
		Credential: &req.Cookie,
	})
	if err != nil {
		c.writeRESTError(w, r, err, "failed to set room cookie")
		return
	}

	c.broadcastRoomUpdate(r.Context(), setCredentialResp.Conns, setCredentialResp.Room)

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": "updated"})
}

func (c *controller) writeRESTError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
	case errors.Is(err, room.ErrPermissionDenied):
		rest.WriteJSON(w, http.StatusForbidden, rest.Envelope{"error": "permission denied"})
	default:
		c.logger.ErrorContext(r.Context(), internalMsg, "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": internalMsg})
	}
}
