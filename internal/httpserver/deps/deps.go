package deps

import (
	"time"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
	"github.com/MrSnakeDoc/keepmark/internal/identity"
	"github.com/MrSnakeDoc/keepmark/internal/logger"
	"github.com/MrSnakeDoc/keepmark/internal/metrics"
	"github.com/MrSnakeDoc/keepmark/internal/view"
)

type Deps struct {
	Logger        logger.Logger
	StartTime     time.Time
	Version       string
	Commit        string
	BuildDate     string
	GoVersion     string
	TimeNow       func() time.Time     // for testing, defaults to time.Now
	AllowedHosts  []string             // Host headers allowed to access the server
	AllowedCIDRS  []string             // IPs allowed to access ops endpoints
	TrustProxy    bool                 // true if running behind a trusted reverse proxy (e.g., cloudflared)
	Service       *domain.Service      // Bookmark CRUD and search
	StoreName     string               // Active storage backend, reported by /infra
	Pinger        domain.Pinger        // nil when the store has no remote server
	Tokens        *identity.TokenTable // Bearer token -> owner
	View          *view.List           // Dashboard renderer
	Metrics       *metrics.Metrics     // nil disables /metrics and request metrics
	ReloadTrigger chan struct{}        // Channel to trigger a manual token reload
	CreateBurst   int                  // Rate limit bucket size for bookmark creation
	CreatePerMin  int                  // Rate limit refill per IP per minute
}
