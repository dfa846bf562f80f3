package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/caribbeat/caribbeat/internal/auth"
	"github.com/caribbeat/caribbeat/internal/config"
	"github.com/caribbeat/caribbeat/internal/curation"
	"github.com/caribbeat/caribbeat/internal/db"
	"github.com/caribbeat/caribbeat/internal/docfeed"
	"github.com/caribbeat/caribbeat/internal/httputil"
	"github.com/caribbeat/caribbeat/internal/jobs"
	"github.com/caribbeat/caribbeat/internal/models"
	"github.com/caribbeat/caribbeat/internal/notifications"
	"github.com/caribbeat/caribbeat/internal/repository"
)

type Server struct {
	config          *config.Config
	db              *db.DB
	auth            *auth.Auth
	userRepo        *repository.UserRepository
	contentRepo     *repository.ContentRepository
	layoutRepo      *repository.LayoutRepository
	eventRepo       *repository.EventRepository
	ticketRepo      *repository.TicketRepository
	chatRepo        *repository.ChatRepository
	campaignRepo    *repository.CampaignRepository
	opportunityRepo *repository.OpportunityRepository
	socialRepo      *repository.SocialRepository
	notifRepo       *repository.NotificationRepository
	reportRepo      *repository.ReportRepository
	settingsRepo    *repository.SettingsRepository
	feed            *docfeed.Store
	compositor      *curation.Compositor
	jobQueue        *jobs.Queue
	wsHub           *WSHub
	webhookSender   *notifications.WebhookSender
	notifier        *notifications.Notifier
	router          *http.ServeMux
	httpServer      *http.Server
}

func NewServer(cfg *config.Config, database *db.DB, jobQueue *jobs.Queue, feed *docfeed.Store, compositor *curation.Compositor) (*Server, error) {
	authService, err := auth.NewAuth(cfg.JWT.Secret, cfg.JWT.ExpiresIn)
	if err != nil {
		return nil, err
	}

	notifRepo := repository.NewNotificationRepository(database.DB)
	socialRepo := repository.NewSocialRepository(database.DB)
	webhookSender := notifications.NewWebhookSender()

	s := &Server{
		config:          cfg,
		db:              database,
		auth:            authService,
		userRepo:        repository.NewUserRepository(database.DB),
		contentRepo:     repository.NewContentRepository(database.DB),
		layoutRepo:      repository.NewLayoutRepository(database.DB),
		eventRepo:       repository.NewEventRepository(database.DB),
		ticketRepo:      repository.NewTicketRepository(database.DB),
		chatRepo:        repository.NewChatRepository(database.DB),
		campaignRepo:    repository.NewCampaignRepository(database.DB),
		opportunityRepo: repository.NewOpportunityRepository(database.DB),
		socialRepo:      socialRepo,
		notifRepo:       notifRepo,
		reportRepo:      repository.NewReportRepository(database.DB),
		settingsRepo:    repository.NewSettingsRepository(database.DB),
		feed:            feed,
		compositor:      compositor,
		jobQueue:        jobQueue,
		wsHub:           NewWSHub(),
		webhookSender:   webhookSender,
		notifier:        notifications.NewNotifier(notifRepo, socialRepo, webhookSender),
		router:          http.NewServeMux(),
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) WSHub() *WSHub {
	return s.wsHub
}

func (s *Server) Notifier() *notifications.Notifier {
	return s.notifier
}

func (s *Server) ContentRepo() *repository.ContentRepository {
	return s.contentRepo
}

func (s *Server) LayoutRepo() *repository.LayoutRepository {
	return s.layoutRepo
}

func (s *Server) EventRepo() *repository.EventRepository {
	return s.eventRepo
}

func (s *Server) CampaignRepo() *repository.CampaignRepository {
	return s.campaignRepo
}

func (s *Server) setupRoutes() {
	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.router.HandleFunc("POST /api/v1/auth/register", s.rlAuth(s.handleRegister))
	s.router.HandleFunc("POST /api/v1/auth/login", s.rlAuth(s.handleLogin))

	// Home feed (anonymous browse is allowed, playback is not)
	s.router.HandleFunc("GET /api/v1/home", s.rlRead(s.handleHomeFeed))

	// WebSocket
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)

	// Content
	s.router.HandleFunc("GET /api/v1/content", s.rlRead(s.handleListContent))
	s.router.HandleFunc("GET /api/v1/content/{id}", s.rlRead(s.handleGetContent))
	s.router.HandleFunc("GET /api/v1/content/{id}/play", s.handlePlayContent)
	s.router.HandleFunc("POST /api/v1/content/{id}/view", s.rlRead(s.handleRecordView))
	s.router.HandleFunc("POST /api/v1/content", s.authMiddleware(s.handleCreateContent, models.RoleCreator))
	s.router.HandleFunc("PUT /api/v1/content/{id}", s.authMiddleware(s.handleUpdateContent, models.RoleCreator))
	s.router.HandleFunc("DELETE /api/v1/content/{id}", s.authMiddleware(s.handleDeleteContent, models.RoleCreator))
	s.router.HandleFunc("POST /api/v1/content/{id}/like", s.authMiddleware(s.handleLikeContent, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/creators/{id}/content", s.rlRead(s.handleListCreatorContent))

	// Premieres
	s.router.HandleFunc("GET /api/v1/events", s.rlRead(s.handleListEvents))
	s.router.HandleFunc("GET /api/v1/events/{id}", s.rlRead(s.handleGetEvent))
	s.router.HandleFunc("POST /api/v1/events", s.authMiddleware(s.handleCreateEvent, models.RoleCreator))
	s.router.HandleFunc("POST /api/v1/events/{id}/start", s.authMiddleware(s.handleStartEvent, models.RoleCreator))
	s.router.HandleFunc("POST /api/v1/events/{id}/end", s.authMiddleware(s.handleEndEvent, models.RoleCreator))
	s.router.HandleFunc("GET /api/v1/events/{id}/watch", s.handleWatchEvent)
	s.router.HandleFunc("POST /api/v1/events/{id}/tickets", s.authMiddleware(s.handleBuyTicket, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/events/{id}/tickets", s.authMiddleware(s.handleListTickets, models.RoleCreator))
	s.router.HandleFunc("GET /api/v1/events/{id}/chat", s.rlRead(s.handleListChat))
	s.router.HandleFunc("POST /api/v1/events/{id}/chat", s.authMiddleware(s.handlePostChat, models.RoleUser))

	// Campaigns
	s.router.HandleFunc("GET /api/v1/campaigns", s.rlRead(s.handleListCampaigns))
	s.router.HandleFunc("GET /api/v1/campaigns/{id}", s.rlRead(s.handleGetCampaign))
	s.router.HandleFunc("POST /api/v1/campaigns", s.authMiddleware(s.handleCreateCampaign, models.RoleCreator))
	s.router.HandleFunc("PUT /api/v1/campaigns/{id}/status", s.authMiddleware(s.handleSetCampaignStatus, models.RoleCreator))
	s.router.HandleFunc("POST /api/v1/campaigns/{id}/pledges", s.authMiddleware(s.handleCreatePledge, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/campaigns/{id}/pledges", s.authMiddleware(s.handleListPledges, models.RoleCreator))

	// Opportunities
	s.router.HandleFunc("GET /api/v1/opportunities", s.rlRead(s.handleListOpportunities))
	s.router.HandleFunc("GET /api/v1/opportunities/{id}", s.rlRead(s.handleGetOpportunity))
	s.router.HandleFunc("POST /api/v1/opportunities", s.authMiddleware(s.handleCreateOpportunity, models.RoleAuthority))
	s.router.HandleFunc("PUT /api/v1/opportunities/{id}", s.authMiddleware(s.handleUpdateOpportunity, models.RoleAuthority))
	s.router.HandleFunc("POST /api/v1/opportunities/{id}/apply", s.authMiddleware(s.handleApplyOpportunity, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/opportunities/{id}/applications", s.authMiddleware(s.handleListApplications, models.RoleAuthority))

	// Profile and social
	s.router.HandleFunc("GET /api/v1/profile", s.authMiddleware(s.handleGetProfile, models.RoleUser))
	s.router.HandleFunc("PUT /api/v1/profile", s.authMiddleware(s.handleUpdateProfile, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/profile/following", s.authMiddleware(s.handleListFollowing, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/creators/{id}", s.rlRead(s.handleGetCreator))
	s.router.HandleFunc("POST /api/v1/creators/{id}/follow", s.authMiddleware(s.handleFollow, models.RoleUser))
	s.router.HandleFunc("DELETE /api/v1/creators/{id}/follow", s.authMiddleware(s.handleUnfollow, models.RoleUser))
	s.router.HandleFunc("POST /api/v1/users/{id}/block", s.authMiddleware(s.handleBlock, models.RoleUser))
	s.router.HandleFunc("DELETE /api/v1/users/{id}/block", s.authMiddleware(s.handleUnblock, models.RoleUser))
	s.router.HandleFunc("GET /api/v1/notifications", s.authMiddleware(s.handleListNotifications, models.RoleUser))
	s.router.HandleFunc("POST /api/v1/notifications/{id}/read", s.authMiddleware(s.handleMarkRead, models.RoleUser))
	s.router.HandleFunc("POST /api/v1/notifications/read-all", s.authMiddleware(s.handleMarkAllRead, models.RoleUser))

	// Notification channels (creator webhooks)
	s.router.HandleFunc("GET /api/v1/notifications/channels", s.authMiddleware(s.handleListChannels, models.RoleCreator))
	s.router.HandleFunc("POST /api/v1/notifications/channels", s.authMiddleware(s.handleCreateChannel, models.RoleCreator))
	s.router.HandleFunc("PUT /api/v1/notifications/channels/{id}", s.authMiddleware(s.handleUpdateChannel, models.RoleCreator))
	s.router.HandleFunc("DELETE /api/v1/notifications/channels/{id}", s.authMiddleware(s.handleDeleteChannel, models.RoleCreator))
	s.router.HandleFunc("POST /api/v1/notifications/channels/{id}/test", s.authMiddleware(s.handleTestChannel, models.RoleCreator))

	// Reports
	s.router.HandleFunc("POST /api/v1/reports", s.authMiddleware(s.handleCreateReport, models.RoleUser))

	// Moderation (authority and up)
	s.router.HandleFunc("GET /api/v1/admin/reports", s.authMiddleware(s.handleListReports, models.RoleAuthority))
	s.router.HandleFunc("PUT /api/v1/admin/reports/{id}", s.authMiddleware(s.handleResolveReport, models.RoleAuthority))
	s.router.HandleFunc("POST /api/v1/admin/content/{id}/deactivate", s.authMiddleware(s.handleDeactivateContent, models.RoleAuthority))
	s.router.HandleFunc("POST /api/v1/admin/content/{id}/activate", s.authMiddleware(s.handleActivateContent, models.RoleAuthority))
	s.router.HandleFunc("PUT /api/v1/admin/content/{id}/featured", s.authMiddleware(s.handleSetFeatured, models.RoleAuthority))
	s.router.HandleFunc("DELETE /api/v1/admin/events/{id}/chat", s.authMiddleware(s.handleClearChat, models.RoleAuthority))

	// Admin
	s.router.HandleFunc("GET /api/v1/admin/users", s.authMiddleware(s.handleListUsers, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/users/{id}/role", s.authMiddleware(s.handleSetUserRole, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/users/{id}/premium", s.authMiddleware(s.handleSetPremium, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/users/{id}/active", s.authMiddleware(s.handleSetUserActive, models.RoleAdmin))
	s.router.HandleFunc("GET /api/v1/admin/settings", s.authMiddleware(s.handleGetSettings, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/settings", s.authMiddleware(s.handleUpdateSettings, models.RoleAdmin))

	// Home curation (admin)
	s.router.HandleFunc("GET /api/v1/admin/home/layout", s.authMiddleware(s.handleGetLayout, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/home/layout", s.authMiddleware(s.handleUpdateLayout, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/home/slots/{n}", s.authMiddleware(s.handleAssignSlot, models.RoleAdmin))
	s.router.HandleFunc("PUT /api/v1/admin/home/slots/{n}/lock", s.authMiddleware(s.handleLockSlot, models.RoleAdmin))
	s.router.HandleFunc("POST /api/v1/admin/home/rotate", s.authMiddleware(s.handleTriggerRotation, models.RoleAdmin))
}

// ──────────────────── Middleware ────────────────────

func (s *Server) authMiddleware(next http.HandlerFunc, requiredRole models.UserRole) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, err := s.claimsFromRequest(r)
		if err != nil {
			httputil.WriteError(w, http.StatusUnauthorized, "invalid_token", "missing or invalid token")
			return
		}

		if !s.auth.CheckPermission(claims.Role, requiredRole) {
			httputil.WriteError(w, http.StatusForbidden, "forbidden", "insufficient permissions")
			return
		}

		r.Header.Set("X-User-ID", claims.UserID.String())
		r.Header.Set("X-User-Role", string(claims.Role))
		r.Header.Set("X-Username", claims.Username)

		next(w, r)
	}
}

// claimsFromRequest validates the bearer token. Falls back to the token query
// param for media elements and websockets that cannot set headers.
func (s *Server) claimsFromRequest(r *http.Request) (*auth.Claims, error) {
	tokenString := ""
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	} else if t := r.URL.Query().Get("token"); t != "" {
		tokenString = t
	}
	if tokenString == "" {
		return nil, auth.ErrInvalidCredentials
	}
	return s.auth.ValidateToken(tokenString)
}

// optionalClaims is for endpoints anonymous viewers may hit: a bad token is
// treated the same as no token.
func (s *Server) optionalClaims(r *http.Request) *auth.Claims {
	claims, err := s.claimsFromRequest(r)
	if err != nil {
		return nil
	}
	return claims
}

// ──────────────────── Rate limiting ────────────────────

type ipLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newIPLimiter(r rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{limiters: make(map[string]*rate.Limiter), r: r, burst: burst}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.r, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

var (
	authLimiter = newIPLimiter(rate.Every(3*time.Second), 10)
	readLimiter = newIPLimiter(rate.Every(50*time.Millisecond), 60)
)

// rlAuth throttles credential endpoints hard per client IP.
func (s *Server) rlAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.rateLimit(authLimiter, next)
}

// rlRead throttles anonymous read endpoints more loosely.
func (s *Server) rlRead(next http.HandlerFunc) http.HandlerFunc {
	return s.rateLimit(readLimiter, next)
}

func (s *Server) rateLimit(l *ipLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			httputil.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ──────────────────── Helpers ────────────────────

func (s *Server) getUserID(r *http.Request) uuid.UUID {
	id, _ := uuid.Parse(r.Header.Get("X-User-ID"))
	return id
}

func (s *Server) getUserRole(r *http.Request) models.UserRole {
	return models.UserRole(r.Header.Get("X-User-Role"))
}

// pagination reads page_size/offset query params with sane bounds.
func pagination(r *http.Request, defaultSize int) (limit, offset int) {
	limit = defaultSize
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 200 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

func (s *Server) Start() error {
	handler := s.securityHeadersMiddleware(s.corsMiddleware(s.router))
	s.httpServer = &http.Server{
		Addr:         s.config.Server.Address(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // websockets and long polls manage their own deadlines
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// securityHeadersMiddleware adds standard security headers to all responses.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		w.Header().Set("X-XSS-Protection", "0")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS preflight and response headers globally.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
