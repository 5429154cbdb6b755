package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shooter/pkg/core"
	"shooter/pkg/logger"
)

// adminTeleportRequest POST /teleport 的请求体
type adminTeleportRequest struct {
	Room     string  `json:"room"`
	PlayerID int32   `json:"player"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
}

type roomView struct {
	ID          string  `json:"id"`
	PlayerCount int     `json:"players"`
	IdleSeconds float64 `json:"idle_seconds"`
}

// NewAdminHandler 运维接口：/metrics 指标，/rooms 房间列表与创建，/teleport 传送玩家
func NewAdminHandler(s *GameServer) http.Handler {
	mux := http.NewServeMux()
	reg := s.Metrics().Registry
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("/rooms", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
		case http.MethodPost:
			id, err := s.Rooms().CreateRoom()
			if err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			writeJSON(w, http.StatusCreated, roomView{ID: id})
			return
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		stats := s.Rooms().GetRoomStats()
		rooms := make([]roomView, 0, len(stats))
		for id, st := range stats {
			rooms = append(rooms, roomView{ID: id, PlayerCount: st.PlayerCount, IdleSeconds: st.IdleFor.Round(time.Millisecond).Seconds()})
		}
		sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
		writeJSON(w, http.StatusOK, rooms)
	})
	mux.HandleFunc("/teleport", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req adminTeleportRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		pos := core.Vec3{X: req.X, Y: req.Y, Z: req.Z}
		if !pos.Finite() {
			http.Error(w, "position must be finite", http.StatusBadRequest)
			return
		}

		err := s.Teleport(req.Room, req.PlayerID, pos)
		switch {
		case err == nil:
			logger.Log.WithField("player", req.PlayerID).WithField("pos", pos).Info("管理接口传送玩家")
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, ErrNoSuchRoom), errors.Is(err, ErrNoSuchPlayer):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
		}
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Warn("写入响应失败")
	}
}
