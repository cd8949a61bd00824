package main

import (
	"log"
	"os"
	"time"

	"github.com/openhrms/taskcycle/internal/assoc"
	"github.com/openhrms/taskcycle/internal/config"
	"github.com/openhrms/taskcycle/internal/db"
	"github.com/openhrms/taskcycle/internal/directory"
	"github.com/openhrms/taskcycle/internal/notify"
	"github.com/openhrms/taskcycle/internal/recurrence"
	"github.com/openhrms/taskcycle/internal/verification"
	"gorm.io/gorm"
)

// connectFromConfig loads config (falling back to defaults when the file is
// absent) and opens the database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

func loadConfig(configPath string) (*config.Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

// buildDirectory seeds the static directory from config.
func buildDirectory(cfg *config.Config) *directory.Static {
	dir := directory.NewStatic()
	for _, u := range cfg.Directory {
		dir.Active[u.ID] = u.Active
		dir.CoreTask[u.ID] = u.CoreTasks
		if u.HR {
			dir.HRHolders = append(dir.HRHolders, u.ID)
		}
	}
	return dir
}

// buildNotifier assembles the notification sink from config, falling back
// to the log sink when no channel is configured.
func buildNotifier(cfg *config.Config) notify.Sink {
	var sinks notify.Multi
	if cfg.Notify.Slack.BotToken != "" {
		s, err := notify.NewSlack(notify.SlackOpts{
			BotToken:  cfg.Notify.Slack.BotToken,
			ChannelID: cfg.Notify.Slack.Channel,
		})
		if err != nil {
			log.Printf("notify: slack disabled: %v", err)
		} else {
			sinks = append(sinks, s)
		}
	}
	if cfg.Notify.Discord.Token != "" {
		d, err := notify.NewDiscord(notify.DiscordOpts{
			Token:     cfg.Notify.Discord.Token,
			ChannelID: cfg.Notify.Discord.Channel,
		})
		if err != nil {
			log.Printf("notify: discord disabled: %v", err)
		} else {
			sinks = append(sinks, d)
		}
	}
	if len(sinks) == 0 {
		return notify.LogSink{}
	}
	return sinks
}

func assocDeps(cfg *config.Config) assoc.Deps {
	dir := buildDirectory(cfg)
	return assoc.Deps{Directory: dir, Notifier: buildNotifier(cfg)}
}

func verificationDeps(cfg *config.Config) verification.Deps {
	dir := buildDirectory(cfg)
	return verification.Deps{
		Notifier:         buildNotifier(cfg),
		HRRecipients:     dir.HRRecipients,
		MaxScoringCycles: cfg.Verification.MaxScoringCycles,
	}
}

func recurrenceDeps(cfg *config.Config) recurrence.Deps {
	return recurrence.Deps{
		Directory:    buildDirectory(cfg),
		AbandonAfter: time.Duration(cfg.Recurrence.AbandonAfterDays) * 24 * time.Hour,
	}
}

func horizon(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Recurrence.HorizonDays) * 24 * time.Hour
}
