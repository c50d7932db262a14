package api

import (
	"time" // Token lifetime

	"group_fund/internal/middleware" // Auth and logging middleware
	"group_fund/internal/service"    // Domain workflows
	"group_fund/internal/utils"      // Cache helpers
	"group_fund/internal/wallet"     // Ledger implementation

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

var _ WalletLedger = (*wallet.LedgerGateway)(nil)

// RouterDeps holds everything the HTTP surface is built from
type RouterDeps struct {
	Users         UserStore
	Groups        GroupStore
	Notifications NotificationStore
	Ledger        WalletLedger
	Members       MemberCache // May be nil
	Cache         *utils.Cache

	Contributions *service.ContributionService
	Votes         *service.VoteService
	Payouts       *service.PayoutService
	Reconcile     *service.ReconcileService

	JWTSecret      string
	JWTTTL         time.Duration
	TrustedProxies []string
	Logger         logrus.FieldLogger
}

// NewRouter registers every route on a fresh gin engine
func NewRouter(d RouterDeps) (*gin.Engine, error) {
	log := d.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))
	if err := r.SetTrustedProxies(d.TrustedProxies); err != nil {
		return nil, err
	}

	// Auth routes
	r.POST("/user", RegisterHandler(d.Users))                    // Registration endpoint
	r.GET("/user", LoginHandler(d.Users, d.JWTSecret, d.JWTTTL)) // Login endpoint

	auth := middleware.JWTAuthMiddleware(d.JWTSecret)

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet", auth)
	walletGroup.POST("", CreateWalletHandler(d.Ledger, d.Cache))                      // Create wallet endpoint
	walletGroup.GET("", GetWalletHandler(d.Ledger, d.Cache))                          // Get wallet endpoint
	walletGroup.POST("/deposit", DepositHandler(d.Ledger, d.Cache))                   // Deposit endpoint
	walletGroup.POST("/transfer", TransferHandler(d.Ledger, d.Users, d.Cache))        // Transfer endpoint
	walletGroup.GET("/transactions", GetTransactionHistoryHandler(d.Ledger, d.Cache)) // Transaction history endpoint

	// Group routes
	groups := r.Group("/groups", auth)
	groups.POST("", CreateGroupHandler(d.Groups))
	groups.POST("/:id/members", AddMemberHandler(d.Groups, d.Users, d.Members))
	groups.GET("/:id/members", ListMembersHandler(d.Groups))
	groups.POST("/:id/contributions", CreateContributionHandler(d.Groups, d.Contributions))
	groups.GET("/:id/contributions", ListGroupContributionsHandler(d.Groups, d.Contributions))
	groups.POST("/:id/votes", CreateVoteHandler(d.Groups, d.Votes))
	groups.GET("/:id/votes", ListGroupVotesHandler(d.Groups, d.Votes))

	// Contribution routes
	contributions := r.Group("/contributions", auth)
	contributions.GET("/:id", GetContributionHandler(d.Groups, d.Contributions))
	contributions.POST("/:id/contribute", ContributeHandler(d.Groups, d.Contributions))
	contributions.GET("/:id/mine", MyContributionsHandler(d.Contributions))
	contributions.GET("/:id/payout", GetContributionPayoutHandler(d.Groups, d.Contributions, d.Payouts))

	// Vote routes
	votes := r.Group("/votes", auth)
	votes.GET("/:id", GetVoteHandler(d.Groups, d.Votes))
	votes.POST("/:id/responses", SubmitVoteHandler(d.Groups, d.Votes))

	// Notification routes
	notifications := r.Group("/notifications", auth)
	notifications.GET("", ListNotificationsHandler(d.Notifications))
	notifications.PUT("/:id/read", MarkNotificationReadHandler(d.Notifications))

	// Admin routes (protected, admin only)
	admin := r.Group("/admin", auth, middleware.AdminOnlyMiddleware(d.Users))
	admin.GET("/users", ListUsersHandler(d.Users, d.Cache)) // List users endpoint
	admin.POST("/contributions/:id/close", CloseContributionHandler(d.Contributions))
	admin.POST("/contributions/:id/payout", TriggerPayoutHandler(d.Payouts))
	admin.GET("/contributions/unsettled", ListUnsettledHandler(d.Reconcile))
	admin.GET("/payouts", ListProcessingPayoutsHandler(d.Payouts))
	admin.POST("/payouts/:id/complete", CompletePayoutHandler(d.Payouts))
	admin.POST("/payouts/:id/fail", FailPayoutHandler(d.Payouts))

	return r, nil
}
