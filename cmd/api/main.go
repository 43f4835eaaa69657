package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/classync-go-api/internal/config"
	"github.com/noah-isme/classync-go-api/internal/database"
	"github.com/noah-isme/classync-go-api/internal/handler"
	"github.com/noah-isme/classync-go-api/internal/middleware"
	"github.com/noah-isme/classync-go-api/internal/models"
	"github.com/noah-isme/classync-go-api/internal/repository"
	"github.com/noah-isme/classync-go-api/internal/router"
	"github.com/noah-isme/classync-go-api/internal/schema"
	"github.com/noah-isme/classync-go-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Teacher{},
		&models.Classroom{},
		&models.Assignment{},
		&models.Enrollment{},
		&models.Submission{},
		&models.Grade{},
		&models.GradeHistory{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	natsConn, err := database.ConnectNATS(cfg.NATSURL)
	if err != nil {
		log.Fatalf("failed to connect to nats: %v", err)
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	snapshotSchema, err := schema.CompileSnapshot()
	if err != nil {
		log.Fatalf("failed to compile snapshot schema: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	teacherRepo := repository.NewTeacherRepository(db)
	classroomRepo := repository.NewClassroomRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	gradeRepo := repository.NewGradeRepository(db)

	gradeService := service.NewGradeVersioningService(gradeRepo, submissionRepo, logger)
	versioningService := service.NewSubmissionVersioningService(submissionRepo, logger)
	counterService := service.NewCounterSyncService(teacherRepo, classroomRepo, assignmentRepo, enrollmentRepo, submissionRepo, logger)
	lockService := service.NewImportLockService(redisClient, cfg.ImportLockTTL, logger)
	eventPublisher := service.NewImportEventPublisher(natsConn, logger)

	processor := service.NewSnapshotProcessor(service.SnapshotProcessorDeps{
		Teachers:    teacherRepo,
		Classrooms:  classroomRepo,
		Assignments: assignmentRepo,
		Enrollments: enrollmentRepo,
		Submissions: submissionRepo,
		Grades:      gradeService,
		Versioning:  versioningService,
		Counters:    counterService,
		Lock:        lockService,
		Events:      eventPublisher,
		Cache:       redisClient,
	}, logger)

	importHandler := handler.NewImportHandler(processor, snapshotSchema, validate, logger)
	gradeHandler := handler.NewGradeHandler(gradeService, validate, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ImportHandler: importHandler,
		GradeHandler:  gradeHandler,
		JWTMiddleware: middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
