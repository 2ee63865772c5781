package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/shopnearby-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/shopnearby-backend/api/controllers/webhooks"
	"github.com/angelmondragon/shopnearby-backend/api/middleware"
	"github.com/angelmondragon/shopnearby-backend/internal/catalog"
	checkoutsvc "github.com/angelmondragon/shopnearby-backend/internal/checkout"
	"github.com/angelmondragon/shopnearby-backend/internal/orders"
	stripewebhook "github.com/angelmondragon/shopnearby-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/shopnearby-backend/pkg/config"
	"github.com/angelmondragon/shopnearby-backend/pkg/logger"
	"github.com/angelmondragon/shopnearby-backend/pkg/redis"
	"github.com/angelmondragon/shopnearby-backend/pkg/stripe"
)

// Deps carries everything the HTTP surface is wired to. Redis and the Stripe
// fields are optional; their routes degrade when they are nil.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB       controllers.Pinger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer

	Catalog  catalog.Service
	Carts    controllers.CartRegistry
	Checkout checkoutsvc.Service
	Orders   orders.Service
	Chat     controllers.ChatHub

	StripeClient       *stripe.Client
	StripeWebhook      *stripewebhook.Service
	StripeWebhookGuard *stripewebhook.IdempotencyGuard

	Clock func() time.Time
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		readyDeps   = map[string]controllers.Pinger{"db": deps.DB}
		recordStore middleware.IdempotencyRecordStore
		counter     middleware.RateLimitStore
	)
	if deps.Redis != nil {
		readyDeps["redis"] = deps.Redis
		recordStore = deps.Redis
		counter = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		var (
			webhookSvc webhookcontrollers.StripeWebhookService
			verifier   webhookcontrollers.StripeVerifier
			guard      webhookcontrollers.StripeWebhookGuard
		)
		if deps.StripeWebhook != nil {
			webhookSvc = deps.StripeWebhook
		}
		if deps.StripeClient != nil {
			verifier = deps.StripeClient
		}
		if deps.StripeWebhookGuard != nil {
			guard = deps.StripeWebhookGuard
		}
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookSvc, verifier, guard, logg))
	})

	chatPolicy := middleware.NewRateLimitPolicy(
		"chat",
		cfg.Chat.RateWindow,
		cfg.Chat.RateIPLimit,
		cfg.Chat.RateSessionLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CartSession(cfg.Session, logg, now))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Catalog, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(deps.Carts, logg))
			r.Delete("/", controllers.ClearCart(deps.Carts, logg))
			r.Get("/count", controllers.CartCount(deps.Carts, logg))
			r.Post("/items", controllers.AddCartItem(deps.Carts, deps.Catalog, logg))
			r.Get("/items/{productId}", controllers.CartItemStatus(deps.Carts, logg))
			r.Patch("/items/{productId}", controllers.UpdateCartItem(deps.Carts, logg))
			r.Delete("/items/{productId}", controllers.RemoveCartItem(deps.Carts, logg))
			r.Post("/coupon", controllers.ApplyCoupon(deps.Carts, logg))
			r.Delete("/coupon", controllers.RemoveCoupon(deps.Carts, logg))
		})

		// Idempotency matches on the full route pattern, which chi only
		// completes for inline middleware.
		idempotent := r.With(middleware.Idempotency(recordStore, logg))
		idempotent.Post("/checkout", controllers.BeginCheckout(deps.Checkout, logg))
		r.Get("/checkout/{checkoutId}", controllers.GetCheckout(deps.Checkout, cfg.Checkout.AwaitTimeout, logg))
		idempotent.Post("/checkout/{checkoutId}/cancel", controllers.CancelCheckout(deps.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(deps.Orders, logg))
			r.Get("/{orderNumber}", controllers.GetOrder(deps.Orders, logg))
		})

		r.Route("/chat", func(r chi.Router) {
			r.Get("/messages", controllers.ChatHistory(deps.Chat, logg))
			r.With(
				middleware.RateLimit(chatPolicy, counter, logg),
				middleware.Idempotency(recordStore, logg),
			).Post("/messages", controllers.SendChatMessage(deps.Chat, logg))
			r.Get("/stream", controllers.ChatStream(deps.Chat, logg))
		})
	})

	r.Route("/api/v1/support", func(r chi.Router) {
		r.Use(middleware.RequireSupportKey(cfg.Chat.SupportKey, logg))
		r.Get("/conversations", controllers.ListConversations(deps.Chat, logg))
		r.Get("/conversations/{conversationId}/messages", controllers.ConversationHistory(deps.Chat, logg))
		r.Post("/conversations/{conversationId}/messages", controllers.SupportReply(deps.Chat, logg))
		r.Get("/conversations/{conversationId}/stream", controllers.ConversationStream(deps.Chat, logg))
	})

	return r
}
