package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/hrms-payroll-api/api/swagger"
	"github.com/noah-isme/hrms-payroll-api/internal/cleaner"
	"github.com/noah-isme/hrms-payroll-api/internal/handler"
	"github.com/noah-isme/hrms-payroll-api/internal/middleware"
	"github.com/noah-isme/hrms-payroll-api/internal/models"
	"github.com/noah-isme/hrms-payroll-api/internal/payout"
	"github.com/noah-isme/hrms-payroll-api/internal/repository"
	"github.com/noah-isme/hrms-payroll-api/internal/service"
	"github.com/noah-isme/hrms-payroll-api/pkg/cache"
	"github.com/noah-isme/hrms-payroll-api/pkg/config"
	"github.com/noah-isme/hrms-payroll-api/pkg/database"
	"github.com/noah-isme/hrms-payroll-api/pkg/jobs"
	"github.com/noah-isme/hrms-payroll-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/hrms-payroll-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hrms-payroll-api/pkg/middleware/requestid"
	"github.com/noah-isme/hrms-payroll-api/pkg/storage"
)

// @title HRMS Payroll API
// @version 1.0.0
// @description Attendance ingestion, leave and payroll backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connect failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	blobs, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage init failed", "error", err)
	}

	employeeRepo := repository.NewEmployeeRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	uploadLogRepo := repository.NewUploadLogRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	salaryRepo := repository.NewSalaryRepository(db)
	deductionRepo := repository.NewDeductionRepository(db)
	overtimeRepo := repository.NewOvertimeRepository(db)
	payrollRepo := repository.NewPayrollRepository(db)

	validate := validator.New()
	normalizer := cleaner.NewNormalizer(cfg.Ingestion.EmpIDPrefix)
	gateway := payout.New(cfg.Payout)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(employeeRepo, cfg.JWT, logr)
	employeeSvc := service.NewEmployeeService(employeeRepo, normalizer, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, cacheRepo, cfg.Payroll.SummaryCacheTTL, validate, logr)
	leaveSvc := service.NewLeaveService(leaveRepo, holidayRepo, attendanceRepo, validate, logr)
	salarySvc := service.NewSalaryService(salaryRepo, deductionRepo, employeeRepo, validate, logr)
	overtimeSvc := service.NewOvertimeService(overtimeRepo, attendanceRepo, salaryRepo, cfg.Payroll.OvertimeMultiplier, logr)
	payrollSvc := service.NewPayrollService(payrollRepo, salaryRepo, deductionRepo, overtimeRepo, attendanceRepo, employeeRepo, gateway, logr)
	reportSvc := service.NewReportService(payrollRepo, attendanceRepo, employeeRepo, logr)
	ingestionSvc := service.NewIngestionService(attendanceRepo, uploadLogRepo, employeeRepo, cacheRepo, blobs, normalizer, cfg.Ingestion.DirectoryCacheTTL, logr)

	queue := jobs.NewQueue(service.JobType, ingestionSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Ingestion.WorkerConcurrency,
		BufferSize: cfg.Ingestion.QueueBuffer,
		MaxRetries: cfg.Ingestion.WorkerRetries,
		Logger:     logr,
	})
	ingestionSvc.AttachQueue(queue)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	queue.Start(ctx)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r, cfg, authSvc, handlers{
		auth:       handler.NewAuthHandler(authSvc),
		employees:  handler.NewEmployeeHandler(employeeSvc),
		attendance: handler.NewAttendanceHandler(ingestionSvc, attendanceSvc, reportSvc),
		leaves:     handler.NewLeaveHandler(leaveSvc),
		salaries:   handler.NewSalaryHandler(salarySvc),
		overtime:   handler.NewOvertimeHandler(overtimeSvc),
		payroll:    handler.NewPayrollHandler(payrollSvc, reportSvc, metricsSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
	queue.Stop()
}

type handlers struct {
	auth       *handler.AuthHandler
	employees  *handler.EmployeeHandler
	attendance *handler.AttendanceHandler
	leaves     *handler.LeaveHandler
	salaries   *handler.SalaryHandler
	overtime   *handler.OvertimeHandler
	payroll    *handler.PayrollHandler
}

func registerRoutes(r *gin.Engine, cfg *config.Config, authSvc *service.AuthService, h handlers) {
	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", h.auth.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.GET("/auth/me", h.auth.Me)

	hrUp := middleware.RequireRoles(models.RoleHR, models.RoleCEO, models.RoleSuperAdmin)
	adminOnly := middleware.RequireRoles(models.RoleCEO, models.RoleSuperAdmin)
	selfOrHR := middleware.RBAC("SELF", string(models.RoleHR), string(models.RoleCEO), string(models.RoleSuperAdmin))

	employees := authed.Group("/employees")
	{
		employees.POST("", hrUp, h.employees.Onboard)
		employees.GET("", hrUp, h.employees.List)
		employees.GET("/:emp_id", selfOrHR, h.employees.Get)
		employees.PUT("/:emp_id", hrUp, h.employees.Update)
	}

	attendance := authed.Group("/attendance")
	{
		attendance.POST("/upload", hrUp, h.attendance.Upload)
		attendance.GET("/uploads", hrUp, h.attendance.Uploads)
		attendance.GET("", hrUp, h.attendance.List)
		attendance.GET("/:emp_id/summary", selfOrHR, h.attendance.Summary)
		attendance.GET("/:emp_id/register", selfOrHR, h.attendance.Register)
		attendance.PUT("/:emp_id/:date", hrUp, h.attendance.Update)
		attendance.DELETE("/:id", adminOnly, h.attendance.Delete)
	}

	leaves := authed.Group("/leaves")
	{
		leaves.GET("/types", h.leaves.Types)
		leaves.POST("", h.leaves.Apply)
		leaves.GET("", hrUp, h.leaves.List)
		leaves.GET("/balances/:emp_id", selfOrHR, h.leaves.Balances)
		leaves.POST("/:id/approve-hr", hrUp, h.leaves.ApproveHR)
		leaves.POST("/:id/approve-final", adminOnly, h.leaves.ApproveFinal)
		leaves.GET("/:id/history", hrUp, h.leaves.History)
	}

	holidays := authed.Group("/holidays")
	{
		holidays.GET("", h.leaves.Holidays)
		holidays.POST("", hrUp, h.leaves.AddHoliday)
		holidays.DELETE("/:id", hrUp, h.leaves.DeleteHoliday)
	}

	salaries := authed.Group("/salaries")
	{
		salaries.POST("", hrUp, h.salaries.Assign)
		salaries.GET("/:emp_id", selfOrHR, h.salaries.Active)
		salaries.GET("/:emp_id/history", hrUp, h.salaries.History)
	}

	deductions := authed.Group("/deductions")
	{
		deductions.GET("/types", hrUp, h.salaries.DeductionTypes)
		deductions.POST("", hrUp, h.salaries.AssignDeduction)
		deductions.GET("/:emp_id", selfOrHR, h.salaries.EmployeeDeductions)
		deductions.DELETE("/:id", hrUp, h.salaries.RemoveDeduction)
	}

	overtime := authed.Group("/overtime")
	{
		overtime.POST("", hrUp, h.overtime.Record)
		overtime.POST("/:id/review", hrUp, h.overtime.Review)
		overtime.GET("", hrUp, h.overtime.List)
	}

	payroll := authed.Group("/payroll")
	{
		payroll.POST("/process", hrUp, h.payroll.Process)
		payroll.POST("/process-all", hrUp, h.payroll.ProcessAll)
		payroll.POST("/:id/pay", adminOnly, h.payroll.Pay)
		payroll.GET("", hrUp, h.payroll.List)
		payroll.GET("/:id", hrUp, h.payroll.Get)
		payroll.GET("/:id/payslip", hrUp, h.payroll.Payslip)
		payroll.GET("/period/:emp_id", selfOrHR, h.payroll.Period)
	}
}
