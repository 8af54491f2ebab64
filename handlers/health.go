package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/akinalp/storefront/pkg"
)

// healthTimeout, DB ping için üst süre.
const healthTimeout = 2 * time.Second

// UpstreamStatus, uzak servis client'ının circuit breaker durumunu raporlar.
type UpstreamStatus interface {
	Name() string
	BreakerState() string
}

// OnlineCounter, ws hub'ının bağlı kullanıcı sayısı.
type OnlineCounter interface {
	OnlineUserCount() int
}

// HealthResponse, GET /api/health yanıtı. Gateway bu endpoint'i upstream
// sağlığını toplamak için çağırır.
type HealthResponse struct {
	Status      string            `json:"status"`
	Database    string            `json:"database"`
	OnlineUsers int               `json:"online_users"`
	Upstreams   map[string]string `json:"upstreams,omitempty"`
}

type HealthHandler struct {
	db        *sql.DB
	online    OnlineCounter
	upstreams []UpstreamStatus
}

// NewHealthHandler, constructor. online nil olabilir; upstreams sadece
// uzak servis modunda doludur.
func NewHealthHandler(db *sql.DB, online OnlineCounter, upstreams ...UpstreamStatus) *HealthHandler {
	return &HealthHandler{db: db, online: online, upstreams: upstreams}
}

// Health godoc
// GET /api/health
//
// DB erişilemezse 503. Açık devre kesici (breaker open) "degraded" olarak
// raporlanır ama 200 döner; servis kendi verisiyle çalışmaya devam eder.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "ok"}
	if h.online != nil {
		resp.OnlineUsers = h.online.OnlineUserCount()
	}

	if len(h.upstreams) > 0 {
		resp.Upstreams = make(map[string]string, len(h.upstreams))
		for _, u := range h.upstreams {
			state := u.BreakerState()
			resp.Upstreams[u.Name()] = state
			if state == "open" {
				resp.Status = "degraded"
			}
		}
	}

	if err := h.db.PingContext(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		pkg.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	pkg.JSON(w, http.StatusOK, resp)
}
