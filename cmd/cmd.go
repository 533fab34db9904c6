package cmd

import (
	"context"
	"fmt"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/jackc/pgx/v5"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/dash480-integration/internal/pkg/config"
	"github.com/anicoll/dash480-integration/internal/pkg/database"
	"github.com/anicoll/dash480-integration/internal/pkg/ha"
	"github.com/anicoll/dash480-integration/internal/pkg/model"
	"github.com/anicoll/dash480-integration/internal/pkg/mqtt"
	"github.com/anicoll/dash480-integration/internal/pkg/panel"
	"github.com/anicoll/dash480-integration/internal/pkg/publisher"
)

func Dash480Command(ctx *cli.Context) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if v := ctx.String("mqtt-host"); v != "" {
		cfg.MqttCfg.Host = v
	}
	if v := ctx.String("mqtt-user"); v != "" {
		cfg.MqttCfg.Username = v
	}
	if v := ctx.String("mqtt-pass"); v != "" {
		cfg.MqttCfg.Password = v
	}
	if v := ctx.String("ha-url"); v != "" {
		cfg.HACfg.URL = v
	}
	if v := ctx.String("ha-token"); v != "" {
		cfg.HACfg.Token = v
	}
	if v := ctx.String("database-url"); v != "" {
		cfg.Database.URL = v
	}
	if v := ctx.StringSlice("panel-nodes"); len(v) > 0 {
		cfg.PanelNodes = v
	}
	if ctx.IsSet("debounce-window") {
		cfg.DebounceWindow = ctx.Duration("debounce-window")
	}
	if v := ctx.String("log-level"); v != "" {
		cfg.LogLevel = v
	}
	return run(ctx.Context, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	logCfg := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logCfg.Level = level
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	logger := zap.Must(logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel)))
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()
	zap.ReplaceGlobals(logger)

	errorChan := make(chan error, 1000)

	opts := paho_mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s", cfg.MqttCfg.Host)).
		SetClientID(cfg.MqttCfg.ClientID).
		SetUsername(cfg.MqttCfg.Username).
		SetPassword(cfg.MqttCfg.Password).
		SetAutoReconnect(true).
		SetResumeSubs(true)
	mqttSvc := mqtt.New(paho_mqtt.NewClient(opts))
	if err := mqttSvc.Connect(); err != nil {
		return err
	}

	registry := model.NewRegistry()
	if cfg.Database.URL != "" {
		conn, err := pgx.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		db := database.NewDatabase(ctx, conn)
		defer db.Close()
		panels, err := db.LoadPanels(ctx)
		if err != nil {
			return err
		}
		for _, p := range panels {
			if err := registry.Add(p); err != nil {
				return err
			}
		}
	}
	for _, node := range cfg.PanelNodes {
		p := model.NewPanel(node)
		if err := registry.Add(p); err != nil && err != model.ErrPanelExists {
			return err
		}
	}
	if len(registry.Panels()) == 0 {
		return fmt.Errorf("no panels configured")
	}

	haClient := ha.New(cfg.HACfg, errorChan)
	pub := publisher.New(mqttSvc)

	services := make([]panelService, 0, len(registry.Panels()))
	for _, p := range registry.Panels() {
		services = append(services, panel.New(p, pub, mqttSvc, haClient, cfg.DebounceWindow, errorChan))
	}

	refresh := func() {
		for _, p := range registry.Panels() {
			if !pub.Online(p.NodeName) {
				continue
			}
			if err := pub.PublishAll(p); err != nil {
				errorChan <- err
			}
		}
	}

	return supervise(ctx, services, haClient, refresh, errorChan, logger)
}

type panelService interface {
	Start() error
	Close()
}

type haRunner interface {
	Run(ctx context.Context) error
}

func supervise(ctx context.Context, services []panelService, haClient haRunner, refresh func(), errorChan chan error, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	defer func() {
		for _, svc := range services {
			svc.Close()
		}
	}()
	for _, svc := range services {
		if err := svc.Start(); err != nil {
			return err
		}
	}

	eg.Go(func() error {
		return haClient.Run(ctx)
	})

	if refresh != nil {
		// Nightly full republish; keeps panels consistent even if an update
		// was lost to a broker hiccup during the day.
		c := cron.New()
		if _, err := c.AddFunc("0 3 * * *", refresh); err != nil {
			return err
		}
		c.Start()
		defer c.Stop()
	}

	eg.Go(func() error {
		// handle any async errors from the services
		for {
			select {
			case err := <-errorChan:
				logger.Error("service error", zap.Error(err))
			case <-ctx.Done():
				logger.Info("context done")
				return ctx.Err()
			}
		}
	})

	return eg.Wait()
}
