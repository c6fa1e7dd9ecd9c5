package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"pixelwar/internal/canvas"
	"pixelwar/internal/pixelwar"
)

const maxBodyBytes = 4096

type Server struct {
	service  *pixelwar.Service
	clients  *clientManager
	sessions *sessions

	allowedOrigin string
	upgrader      websocket.Upgrader
}

func NewServer(service *pixelwar.Service, clients *clientManager, sessions *sessions, allowedOrigin string) *Server {
	server := &Server{
		service:       service,
		clients:       clients,
		sessions:      sessions,
		allowedOrigin: allowedOrigin,
	}
	server.upgrader = websocket.Upgrader{
		ReadBufferSize:  256,
		WriteBufferSize: 10240,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == server.allowedOrigin
		},
	}
	return server
}

func (server *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{server.allowedOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/size", server.handleGetSize)
	r.Post("/api/pixel", server.handlePostPixel)
	r.Get("/api/pixels", server.handleGetPixels)
	r.Post("/api/pixels", server.handleGetPixelRegion)
	r.Get("/api/delay", server.handleGetDelay)
	r.Get("/api/active", server.handleGetActive)
	r.Post("/api/admin-login", server.handleAdminLogin)
	r.Get("/api/me", server.handleMe)

	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/pixels", server.handleWhiten)
		r.Post("/size", server.handleResize)
		r.Post("/reset", server.handleReset)
		r.Post("/delay", server.handleSetDelay)
		r.Post("/active", server.handleSetActive)
	})

	r.Get("/ws", server.handleConnections)
	return r
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(v); err != nil {
		log.Printf("error encoding response: %v", err)
	}
}

func writeMessage(rw http.ResponseWriter, msg string) {
	writeJSON(rw, http.StatusOK, map[string]string{"message": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pixelwar.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, pixelwar.ErrServiceInactive):
		return http.StatusForbidden
	case errors.Is(err, pixelwar.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, canvas.ErrOutOfBounds),
		errors.Is(err, canvas.ErrInvalidColor),
		errors.Is(err, canvas.ErrInvalidRegion),
		errors.Is(err, canvas.ErrInvalidDimensions),
		errors.Is(err, canvas.ErrShrinkNotAllowed),
		errors.Is(err, pixelwar.ErrInvalidCooldown):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err to the client. Only faults are logged as errors;
// validation and throttling outcomes are routine.
func writeError(rw http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("error handling %s %s: %v", req.Method, req.URL.Path, err)
		msg = "internal error"
	}
	writeJSON(rw, status, map[string]string{"error": msg})
}

func decodeBody(rw http.ResponseWriter, req *http.Request, v any) bool {
	req.Body = http.MaxBytesReader(rw, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		writeJSON(rw, http.StatusBadRequest, map[string]string{"error": "Invalid input type"})
		return false
	}
	return true
}

func (server *Server) handleGetSize(rw http.ResponseWriter, req *http.Request) {
	writeJSON(rw, http.StatusOK, server.service.Size())
}

func (server *Server) handlePostPixel(rw http.ResponseWriter, req *http.Request) {
	var pixel pixelwar.Pixel
	if !decodeBody(rw, req, &pixel) {
		return
	}

	ip := getIP(req)
	err := server.service.PlacePixel(req.Context(), ip, pixel)
	if errors.Is(err, pixelwar.ErrRateLimited) {
		log.Printf("Request from %s is not allowed due to rate limiting", ip)
		wait := server.service.RetryAfter(ip)
		rw.Header().Set("Retry-After", fmt.Sprint(int((wait+time.Second-1)/time.Second)))
	}
	if err != nil {
		writeError(rw, req, err)
		return
	}

	server.clients.Broadcast(OutgoingMessage{Type: "update", Data: &pixel})
	writeMessage(rw, "Pixel updated successfully")
}

func (server *Server) handleGetPixels(rw http.ResponseWriter, req *http.Request) {
	_, pixels, err := server.service.Canvas(req.Context())
	if err != nil {
		writeError(rw, req, err)
		return
	}
	writeJSON(rw, http.StatusOK, canvas.EncodeHex(pixels))
}

func (server *Server) handleGetPixelRegion(rw http.ResponseWriter, req *http.Request) {
	var region RegionRequest
	if !decodeBody(rw, req, &region) {
		return
	}

	pixels, err := server.service.Region(req.Context(), canvas.Region{
		XMin: region.XStart, YMin: region.YStart,
		XMax: region.XEnd, YMax: region.YEnd,
	})
	if err != nil {
		writeError(rw, req, err)
		return
	}
	writeJSON(rw, http.StatusOK, canvas.EncodeHex(pixels))
}

func (server *Server) handleGetDelay(rw http.ResponseWriter, req *http.Request) {
	writeJSON(rw, http.StatusOK, int(server.service.Settings().Cooldown/time.Second))
}

func (server *Server) handleGetActive(rw http.ResponseWriter, req *http.Request) {
	writeJSON(rw, http.StatusOK, ActiveRequest{Active: server.service.Settings().Active})
}

func (server *Server) handleAdminLogin(rw http.ResponseWriter, req *http.Request) {
	req.Body = http.MaxBytesReader(rw, req.Body, maxBodyBytes)
	if !server.sessions.login(rw, req.FormValue("password")) {
		writeJSON(rw, http.StatusUnauthorized, map[string]string{"error": "Bad Password"})
		return
	}
	writeMessage(rw, "Login successful")
}

func (server *Server) handleMe(rw http.ResponseWriter, req *http.Request) {
	writeJSON(rw, http.StatusOK, UserInfo{Admin: server.sessions.isAdmin(req)})
}

func (server *Server) handleWhiten(rw http.ResponseWriter, req *http.Request) {
	var whiten WhitenRequest
	if !decodeBody(rw, req, &whiten) {
		return
	}
	if err := server.service.Whiten(req.Context(), server.sessions.isAdmin(req), whiten.Start, whiten.End); err != nil {
		writeError(rw, req, err)
		return
	}
	server.clients.Broadcast(OutgoingMessage{Type: "refresh"})
	writeMessage(rw, "Pixels whitened successfully")
}

func (server *Server) handleResize(rw http.ResponseWriter, req *http.Request) {
	var size SizeRequest
	if !decodeBody(rw, req, &size) {
		return
	}
	if err := server.service.Resize(req.Context(), server.sessions.isAdmin(req), size.Width, size.Height); err != nil {
		writeError(rw, req, err)
		return
	}
	server.clients.Broadcast(OutgoingMessage{Type: "refresh"})
	writeMessage(rw, "Canvas resized successfully")
}

func (server *Server) handleReset(rw http.ResponseWriter, req *http.Request) {
	var size SizeRequest
	if !decodeBody(rw, req, &size) {
		return
	}
	if err := server.service.Reset(req.Context(), server.sessions.isAdmin(req), size.Width, size.Height); err != nil {
		writeError(rw, req, err)
		return
	}
	server.clients.Broadcast(OutgoingMessage{Type: "refresh"})
	writeMessage(rw, "Canvas reset successfully")
}

func (server *Server) handleSetDelay(rw http.ResponseWriter, req *http.Request) {
	var delay DelayRequest
	if !decodeBody(rw, req, &delay) {
		return
	}
	if err := server.service.SetCooldownSeconds(server.sessions.isAdmin(req), delay.Delay); err != nil {
		writeError(rw, req, err)
		return
	}
	writeMessage(rw, "Delay updated successfully")
}

func (server *Server) handleSetActive(rw http.ResponseWriter, req *http.Request) {
	var active ActiveRequest
	if !decodeBody(rw, req, &active) {
		return
	}
	if err := server.service.SetActive(server.sessions.isAdmin(req), active.Active); err != nil {
		writeError(rw, req, err)
		return
	}
	writeMessage(rw, "Active state updated successfully")
}

func (server *Server) handleConnections(rw http.ResponseWriter, req *http.Request) {
	conn, err := server.upgrader.Upgrade(rw, req, nil)
	if err != nil {
		log.Printf("error upgrading connection: %v", err)
		return
	}
	client := newClient(conn, getIP(req))

	if err := server.clients.Register(client); err != nil {
		client.WriteText("client limit exceeded")
		client.Close()
		return
	}
	defer server.clients.Unregister(client)

	dims, pixels, err := server.service.Canvas(req.Context())
	if err != nil {
		log.Printf("error getting initial canvas: %v", err)
		return
	}

	initialMsg := InitialMessage{
		Type:        "initial",
		Data:        canvas.EncodeHex(pixels),
		Width:       dims.Width,
		Height:      dims.Height,
		ClientCount: server.clients.Num(),
	}
	jsonMsg, err := json.Marshal(initialMsg)
	if err != nil {
		log.Printf("error marshaling initial JSON: %v", err)
		return
	}
	if err := client.WriteMessage(websocket.TextMessage, jsonMsg); err != nil {
		log.Printf("error sending initial message: %v", err)
		return
	}

	client.SetReadLimit(maxBodyBytes)
	for {
		_, msgBytes, err := client.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message from client %s: %v", client.ID, err)
			}
			break
		}

		if !client.limiter.Allow() {
			client.WriteText("rate limit exceeded")
			continue
		}

		var update IncomingMessage
		if err := json.Unmarshal(msgBytes, &update); err != nil {
			client.WriteText("Invalid input type")
			continue
		}
		if update.Type != "update" {
			client.WriteText(fmt.Sprintf("Error: invalid message type: %s", update.Type))
			continue
		}

		if err := server.service.PlacePixel(req.Context(), client.Identity, update.Data); err != nil {
			if statusFor(err) == http.StatusInternalServerError {
				log.Printf("error placing pixel for client %s: %v", client.ID, err)
			}
			client.WriteText(fmt.Sprintf("Error: %v", err))
			continue
		}
		server.clients.Broadcast(OutgoingMessage{Type: "update", Data: &update.Data})
	}
}
