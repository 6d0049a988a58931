package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/centinela-pi/centinela/internal/botapi"
	"github.com/centinela-pi/centinela/internal/camera"
	"github.com/centinela-pi/centinela/internal/centinela/service"
	"github.com/centinela-pi/centinela/internal/centinela/store"
	"github.com/centinela-pi/centinela/internal/centinela/store/sqlite"
	"github.com/centinela-pi/centinela/internal/centinela/types"
	"github.com/centinela-pi/centinela/internal/config"
	"github.com/centinela-pi/centinela/internal/db"
	"github.com/centinela-pi/centinela/internal/gpio"
	"github.com/centinela-pi/centinela/internal/sysinfo"
)

func main() {
	var (
		configPath = pflag.String("config", "centinela.yaml", "path to the YAML config file")
		dbPath     = pflag.String("db", "", "override the database path from the config")
		console    = pflag.Bool("console", false, "read operator commands from stdin (local dev frontend)")
	)
	pflag.Parse()

	logger := log.New(os.Stdout, "centinela ", log.LstdFlags|log.LUTC)

	if err := run(logger, *configPath, *dbPath, *console); err != nil {
		logger.Fatalf("fatal: %v", err)
	}
}

func run(logger *log.Logger, configPath, dbPath string, console bool) error {
	snap, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfgStore := config.NewStore(snap)

	watcher, err := config.NewWatcher(configPath, cfgStore, logger)
	if err != nil {
		logger.Printf("config watcher unavailable, hot reload disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	if dbPath == "" {
		dbPath = snap.DBPath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Open(ctx, db.Config{Path: dbPath})
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	events := sqlite.NewSecurityEventStore(sqlDB, writer)
	tasks := sqlite.NewTaskStore(sqlDB, writer)

	// Services
	auth := service.NewAuthorizer(cfgStore, events, logger)
	guard := service.NewGuard(cfgStore)
	executor := service.NewExecutor(guard, cfgStore, events, logger)
	scheduler := service.NewScheduler(tasks, events, executor, guard, cfgStore, logger)
	motion := service.NewMotion(cfgStore, events, nil, logger)
	gpioSvc := service.NewGPIO(&gpio.SysfsDriver{}, cfgStore, events, logger)
	system := service.NewSystem(cfgStore, events, logger)

	router := botapi.NewRouter(botapi.Dependencies{
		Logger:    logger,
		Auth:      auth,
		Executor:  executor,
		Scheduler: scheduler,
		Motion:    motion,
		GPIO:      gpioSvc,
		System:    system,
		Events:    events,
		Camera:    &camera.FSWebcam{MediaDir: snap.MediaDir},
		Status:    sysinfo.Collect,
	})

	if _, err := events.Append(ctx, store.SecurityEventRecord{
		Type:        store.EventSystemStarted,
		Description: "controller started",
	}); err != nil {
		logger.Printf("failed to record startup event: %v", err)
	}

	scheduler.Start(ctx)
	defer scheduler.Stop()

	logger.Printf("controller running (db=%s, %d operators)", dbPath, len(snap.AuthorizedOperators))

	if console {
		go consoleLoop(ctx, logger, router, snap.AuthorizedOperators[0])
	}

	<-ctx.Done()
	logger.Printf("shutting down")
	return nil
}

// consoleLoop is a local frontend for development: each stdin line is routed
// as a command from the given operator.
func consoleLoop(ctx context.Context, logger *log.Logger, router *botapi.Router, operatorID int64) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		// "as <id> /cmd" impersonates another operator id, for testing the
		// authorization gate from the console.
		id := operatorID
		if rest, found := strings.CutPrefix(line, "as "); found {
			idStr, cmd, ok := strings.Cut(rest, " ")
			if parsed, err := strconv.ParseInt(idStr, 10, 64); ok && err == nil {
				id = parsed
				line = cmd
			}
		}

		reply := router.Handle(ctx, types.Incoming{OperatorID: id, Text: line})
		fmt.Println(reply.Text)
		if reply.PhotoPath != "" {
			fmt.Printf("[photo: %s]\n", reply.PhotoPath)
		}
	}
	if err := sc.Err(); err != nil {
		logger.Printf("console: %v", err)
	}
}
