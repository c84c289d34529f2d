package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/tradesettle/internal/audit/domain"
	commissiondomain "github.com/smallbiznis/tradesettle/internal/commission/domain"
	"github.com/smallbiznis/tradesettle/internal/config"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
	margindomain "github.com/smallbiznis/tradesettle/internal/margin/domain"
	"github.com/smallbiznis/tradesettle/internal/observability"
	obslogger "github.com/smallbiznis/tradesettle/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/tradesettle/internal/observability/metrics"
	obstracing "github.com/smallbiznis/tradesettle/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/tradesettle/internal/payment/domain"
	payrolldomain "github.com/smallbiznis/tradesettle/internal/payroll/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) {
		s.RegisterAPIRoutes()
	}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type ServerParams struct {
	fx.In

	Engine        *gin.Engine
	Log           *zap.Logger
	InvoiceSvc    invoicedomain.Service
	PaymentSvc    paymentdomain.Service
	CommissionSvc commissiondomain.Service
	MarginSvc     margindomain.Service
	PayrollSvc    payrolldomain.Service
	AuditSvc      auditdomain.Service
}

type Server struct {
	engine        *gin.Engine
	log           *zap.Logger
	invoiceSvc    invoicedomain.Service
	paymentSvc    paymentdomain.Service
	commissionSvc commissiondomain.Service
	marginSvc     margindomain.Service
	payrollSvc    payrolldomain.Service
	auditSvc      auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:        p.Engine,
		log:           p.Log.Named("http.server"),
		invoiceSvc:    p.InvoiceSvc,
		paymentSvc:    p.PaymentSvc,
		commissionSvc: p.CommissionSvc,
		marginSvc:     p.MarginSvc,
		payrollSvc:    p.PayrollSvc,
		auditSvc:      p.AuditSvc,
	}
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	invoices := api.Group("/invoices")
	invoices.GET("/:id", s.GetInvoice)
	invoices.GET("/:id/snapshot", s.GetIssuedSnapshot)
	invoices.GET("/:id/margin", s.GetMarginSnapshot)
	invoices.POST("/:id/issue", s.IssueInvoice)
	invoices.POST("/:id/override", s.RecordAdminOverride)
	invoices.POST("/:id/customer-approval", s.RecordCustomerApproval)
	invoices.GET("/:id/payments", s.ListInvoicePayments)
	invoices.POST("/:id/payments", s.RecordPayment)

	payments := api.Group("/payments")
	payments.GET("/:id", s.GetPayment)
	payments.POST("/:id/settle", s.SettlePayment)
	payments.GET("/:id/commission-events", s.ListCommissionEvents)

	api.GET("/commission-packets", s.CommissionPacketCSV)

	payroll := api.Group("/payroll-packets")
	payroll.POST("/:week_start", s.GeneratePayrollPacket)
	payroll.GET("/:week_start", s.GetPayrollPacket)
	payroll.GET("/:week_start/csv", s.PayrollPacketCSV)

	api.GET("/audit-logs", s.ListAuditLogs)
}
