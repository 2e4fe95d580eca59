package deps

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/glimpse/internal/flow"
	"github.com/MrSnakeDoc/glimpse/internal/kv"
	"github.com/MrSnakeDoc/glimpse/internal/logger"
	"github.com/MrSnakeDoc/glimpse/internal/metrics"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedHosts       []string // Host headers allowed on page and API routes
	AllowedCIDRS       []string // IPs allowed to access ops endpoints
	TrustProxy         bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSAllowedOrigins []string // Origins allowed to call the API from a browser

	Storage      kv.Store      // Browser storage stand-in, unscoped
	RedisClient  *redis.Client // nil when Storage is in-memory
	CookieSecure bool          // Secure flag on profile and session cookies

	Flow              *flow.Flow
	WebhookConfigured bool
	PlaceholderImage  string // imageUrl of artworks built from a handoff
	MaxImageBytes     int    // decoded upload limit

	IdentifyBurst        int // per-IP burst on POST /api/identify
	IdentifyRefillPerMin int

	Metrics *metrics.Metrics
}

// Now returns the current time through TimeNow when set.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
