package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/skuforge/skuforge/app/repository"
	"github.com/skuforge/skuforge/internal/pkg/cache"
	"github.com/skuforge/skuforge/internal/pkg/database"
	"github.com/skuforge/skuforge/internal/pkg/env"
	"github.com/skuforge/skuforge/internal/pkg/jobqueue"
	"github.com/skuforge/skuforge/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	jobqueue.GetManager().Stop()
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())

	// Background workers for imports, webhook dispatches and bulk deletes
	jobqueue.GetManager().Start()

	app := fiber.New(fiber.Config{
		BodyLimit: env.GetEnvInt("MAX_FILE_SIZE_MB", 100) * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
