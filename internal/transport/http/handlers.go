package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// qrSize is the edge length of generated QR codes in pixels
const qrSize = 320

// Response is a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateBoardResponse is the response for board id creation
type CreateBoardResponse struct {
	BoardID    string `json:"boardId"`
	InviteLink string `json:"inviteLink"`
	QRCode     string `json:"qrCode"`
}

// GetBoardResponse is the response for getting live board info
type GetBoardResponse struct {
	BoardID    string    `json:"boardId"`
	Members    int       `json:"members"`
	Words      int       `json:"words"`
	CreatedAt  time.Time `json:"createdAt"`
	LastActive time.Time `json:"lastActive"`
}

// HealthResponse is the response for health check
type HealthResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the response for stats endpoint
type StatsResponse struct {
	ActiveBoards     int `json:"activeBoards"`
	ConnectedMembers int `json:"connectedMembers"`
}

// handleCreateBoard handles POST /api/boards. Boards come into existence on
// first join; this only reserves an id that no live board uses.
func (s *Server) handleCreateBoard(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	boardID, err := s.registry.NewBoardID(s.config.Relay.BoardIDLength)
	if err != nil {
		s.logger.Error("board id generation failed", "error", err)
		s.sendError(w, http.StatusInternalServerError, "CREATION_FAILED", "Failed to create board")
		return
	}

	s.logger.Info("board id issued", "boardId", boardID)

	s.sendSuccess(w, &CreateBoardResponse{
		BoardID:    boardID,
		InviteLink: s.inviteLink(r, boardID),
		QRCode:     "/api/boards/" + boardID + "/qr",
	})
}

// handleGetBoard handles GET /api/boards/:boardId
func (s *Server) handleGetBoard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	boardID := ps.ByName("boardId")

	info, ok := s.registry.Room(boardID)
	if !ok {
		s.sendError(w, http.StatusNotFound, "BOARD_NOT_FOUND", "No one is connected to this board")
		return
	}

	s.sendSuccess(w, &GetBoardResponse{
		BoardID:    info.BoardID,
		Members:    info.Members,
		Words:      info.Words,
		CreatedAt:  info.CreatedAt,
		LastActive: info.LastActive,
	})
}

// handleBoardQR handles GET /api/boards/:boardId/qr with a PNG of the invite link
func (s *Server) handleBoardQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	boardID := ps.ByName("boardId")

	png, err := qrcode.Encode(s.inviteLink(r, boardID), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.Error("qr generation failed", "boardId", boardID, "error", err)
		s.sendError(w, http.StatusInternalServerError, "QR_FAILED", "QR generation failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(png)
}

// handleHealth handles GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &HealthResponse{
		Status: "ok",
	})
}

// handleHealthText handles GET /health
func (s *Server) handleHealthText(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.sendSuccess(w, &StatsResponse{
		ActiveBoards:     s.registry.BoardCount(),
		ConnectedMembers: s.registry.MemberCount(),
	})
}

// inviteLink builds the shareable board URL, from the configured public URL
// or else from the request.
func (s *Server) inviteLink(r *http.Request, boardID string) string {
	base := strings.TrimSuffix(s.config.Server.PublicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/poem/" + boardID
}

// sendSuccess sends a successful JSON response
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&Response{
		Success: true,
		Data:    data,
	})
}

// sendError sends an error JSON response
func (s *Server) sendError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}
