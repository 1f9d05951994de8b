package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/caarlos0/env/v11"
	"github.com/sglre6355/tenisplay/internal/domain"
	"github.com/sglre6355/tenisplay/internal/infrastructure"
	"github.com/sglre6355/tenisplay/internal/infrastructure/database"
	"github.com/sglre6355/tenisplay/internal/presentation"
	"github.com/sglre6355/tenisplay/internal/usecase"
)

type config struct {
	DiscordToken         string `env:"DISCORD_TOKEN,required"`
	OpenWeatherAPIKey    string `env:"OPENWEATHER_API_KEY,required"`
	DatabaseDSN          string `env:"DATABASE_DSN"           envDefault:"sqlite://tenisplay.db"`
	OpenWeatherBaseURL   string `env:"OPENWEATHER_BASE_URL"   envDefault:"https://api.openweathermap.org/data/2.5"`
	OpenWeatherLanguage  string `env:"OPENWEATHER_LANG"       envDefault:"pt_br"`
	StorageKey           string `env:"STORAGE_KEY"            envDefault:"@tenisplay_agendamentos"`
	RainWarningThreshold int    `env:"RAIN_WARNING_THRESHOLD" envDefault:"40"`
	Timezone             string `env:"TIMEZONE"               envDefault:"America/Sao_Paulo"`
}

func run() int {
	cfg, err := env.ParseAs[config]()
	if err != nil {
		slog.Error("failed to parse environment variables", slog.Any("error", err))
		return 1
	}

	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Error("failed to load timezone", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		return 1
	}

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		slog.Error("failed to connect to database", slog.Any("error", err))
		return 1
	}

	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("failed to access database handle", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("failed to close database connection", slog.Any("error", err))
		}
	}()

	kvStore := database.NewKeyValueStore(db)
	if err := kvStore.AutoMigrate(context.Background()); err != nil {
		slog.Error("failed to run database migrations", slog.Any("error", err))
		return 1
	}

	weatherService, err := infrastructure.NewWeatherService(
		cfg.OpenWeatherAPIKey,
		infrastructure.WithWeatherBaseURL(cfg.OpenWeatherBaseURL),
		infrastructure.WithWeatherLanguage(cfg.OpenWeatherLanguage),
	)
	if err != nil {
		slog.Error("failed to create weather service", slog.Any("error", err))
		return 1
	}

	forecastLookup := usecase.NewForecastLookup(
		weatherService,
		usecase.WithForecastLocation(location),
		usecase.WithForecastErrorHandler(
			func(city string, date domain.Date, stage usecase.ForecastErrorStage, err error) {
				slog.Warn(
					"weather unavailable",
					slog.String("city", city),
					slog.String("date", date.String()),
					slog.Any("stage", stage),
					slog.Any("error", err),
				)
			},
		),
	)

	sessionManager := usecase.NewSessionManager(
		kvStore,
		forecastLookup,
		usecase.WithSessionStoreOptions(
			usecase.WithStorageKey(cfg.StorageKey),
			usecase.WithCorruptionHandler(func(key string, err error) {
				slog.Error(
					"persisted reservations are corrupt and were reset",
					slog.String("key", key),
					slog.Any("error", err),
				)
			}),
		),
	)

	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		slog.Error("failed to create Discord session", slog.Any("error", err))
		return 1
	}

	bot, err := presentation.NewBookingBot(session, sessionManager, cfg.RainWarningThreshold)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		return 1
	}

	if err := bot.Start(); err != nil {
		bot.Stop()
		slog.Error("failed to start bot", "error", err)
		return 1
	}

	if err := bot.RegisterCommands(); err != nil {
		bot.Stop()
		slog.Error("failed to register commands", "error", err)
		return 1
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Termination signal received, shutting down...")
	bot.Stop()
	slog.Info("Bot successfully terminated")

	return 0
}

func main() {
	os.Exit(run())
}
