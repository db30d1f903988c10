package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/clawcore/runtime/internal/agent"
	"github.com/clawcore/runtime/internal/bootstrap"
	"github.com/clawcore/runtime/internal/bus"
	"github.com/clawcore/runtime/internal/channels"
	"github.com/clawcore/runtime/internal/channels/cli"
	"github.com/clawcore/runtime/internal/channels/discord"
	"github.com/clawcore/runtime/internal/channels/feishu"
	"github.com/clawcore/runtime/internal/channels/telegram"
	"github.com/clawcore/runtime/internal/channels/whatsapp"
	"github.com/clawcore/runtime/internal/config"
	"github.com/clawcore/runtime/internal/heartbeat"
	"github.com/clawcore/runtime/internal/providers"
	"github.com/clawcore/runtime/internal/scheduler"
	"github.com/clawcore/runtime/internal/sessions"
	"github.com/clawcore/runtime/internal/tools"
)

func runGateway() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if cfg.Providers.Anthropic.APIKey == "" {
		fmt.Fprintln(os.Stderr, "No Anthropic API key configured.")
		fmt.Fprintln(os.Stderr, "Set providers.anthropic.apiKey in the config file, or export CLAWCORE_ANTHROPIC_API_KEY.")
		os.Exit(1)
	}

	paths := config.NewPaths(cfg, cfgPath)
	if err := os.MkdirAll(paths.Workspace, 0o755); err != nil {
		slog.Error("failed to create workspace", "path", paths.Workspace, "error", err)
		os.Exit(1)
	}

	if seeded, err := bootstrap.EnsureWorkspaceFiles(paths.Workspace); err != nil {
		slog.Warn("bootstrap template seeding failed", "error", err)
	} else if len(seeded) > 0 {
		slog.Info("seeded workspace templates", "files", seeded)
	}

	msgBus := bus.New()

	var providerOpts []providers.AnthropicOption
	if cfg.Agents.Defaults.Model != "" {
		providerOpts = append(providerOpts, providers.WithAnthropicModel(cfg.Agents.Defaults.Model))
	}
	if cfg.Providers.Anthropic.APIBase != "" {
		providerOpts = append(providerOpts, providers.WithAnthropicBaseURL(cfg.Providers.Anthropic.APIBase))
	}
	provider := providers.NewAnthropicProvider(cfg.Providers.Anthropic.APIKey, providerOpts...)

	sessManager := sessions.NewManager(paths.SessionsDir)

	holder := &loopHolder{}
	tracker := &lastChannelTracker{}

	sched := scheduler.New(paths.CronJobs, makeCronJobHandler(holder, msgBus))

	toolsReg := buildRegistry(cfg, paths.Workspace, msgBus, sched)

	subagentCfg := tools.DefaultSubagentConfig()
	if sc := cfg.Agents.Defaults.Subagents; sc != nil {
		if sc.MaxConcurrent > 0 {
			subagentCfg.MaxConcurrent = sc.MaxConcurrent
		}
		if sc.MaxSpawnDepth > 0 {
			subagentCfg.MaxSpawnDepth = sc.MaxSpawnDepth
		}
	}
	subagentMgr := tools.NewSubagentManager(provider, cfg.Agents.Defaults.Model, msgBus, func() *tools.Registry {
		return buildRegistry(cfg, paths.Workspace, msgBus, sched)
	}, subagentCfg)
	toolsReg.Register(tools.NewSubagentTool(subagentMgr))

	loop := agent.New(paths.Workspace, provider, cfg.Agents.Defaults.Model, cfg.Agents.Defaults.MaxToolIterations, sessManager, toolsReg, msgBus)
	holder.set(loop)

	var heartbeatSvc *heartbeat.Service
	if minutes, enabled := heartbeatMinutes(cfg.Agents.Defaults.Heartbeat); enabled {
		heartbeatSvc = heartbeat.New(paths.Workspace, minutes, msgBus, makeHeartbeatHandler(holder, tracker))
		if hb := cfg.Agents.Defaults.Heartbeat; hb != nil && hb.ActiveHours != nil {
			heartbeatSvc.SetActiveHours(&heartbeat.ActiveHours{
				Start:    hb.ActiveHours.Start,
				End:      hb.ActiveHours.End,
				Timezone: hb.ActiveHours.Timezone,
			})
		}
	}

	var channelList []channels.Channel
	if cfg.Channels.CLI.Enabled {
		channelList = append(channelList, cli.New(msgBus))
	}
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		if tg, err := telegram.New(cfg.Channels.Telegram, msgBus); err != nil {
			slog.Error("failed to initialize telegram channel", "error", err)
		} else {
			channelList = append(channelList, tg)
		}
	}
	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		if dc, err := discord.New(cfg.Channels.Discord, msgBus); err != nil {
			slog.Error("failed to initialize discord channel", "error", err)
		} else {
			channelList = append(channelList, dc)
		}
	}
	if cfg.Channels.WhatsApp.Enabled && cfg.Channels.WhatsApp.BridgeURL != "" {
		if wa, err := whatsapp.New(cfg.Channels.WhatsApp, msgBus); err != nil {
			slog.Error("failed to initialize whatsapp channel", "error", err)
		} else {
			channelList = append(channelList, wa)
		}
	}
	if cfg.Channels.Feishu.Enabled && cfg.Channels.Feishu.AppID != "" {
		if fs, err := feishu.New(cfg.Channels.Feishu, msgBus); err != nil {
			slog.Error("failed to initialize feishu channel", "error", err)
		} else {
			channelList = append(channelList, fs)
		}
	}

	for _, ch := range channelList {
		ch := ch
		msgBus.Subscribe(ch.Name(), func(msg bus.OutboundMessage) error {
			return ch.Send(context.Background(), msg)
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgBus.Start(ctx)
	sched.Start()
	if heartbeatSvc != nil {
		heartbeatSvc.Start()
	}

	var namesMu sync.Mutex
	var channelNames []string
	var startGroup errgroup.Group
	for _, ch := range channelList {
		ch := ch
		startGroup.Go(func() error {
			if err := ch.Start(ctx); err != nil {
				slog.Error("failed to start channel", "channel", ch.Name(), "error", err)
				return nil
			}
			namesMu.Lock()
			channelNames = append(channelNames, ch.Name())
			namesMu.Unlock()
			return nil
		})
	}
	_ = startGroup.Wait()

	go consumeInbound(ctx, msgBus, loop, tracker, heartbeatSvc)

	slog.Info("clawcore gateway started",
		"model", cfg.Agents.Defaults.Model,
		"workspace", paths.Workspace,
		"tools", toolsReg.Names(),
		"channels", channelNames,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	var stopGroup errgroup.Group
	for _, ch := range channelList {
		ch := ch
		stopGroup.Go(func() error {
			if err := ch.Stop(shutdownCtx); err != nil {
				slog.Warn("channel stop failed", "channel", ch.Name(), "error", err)
			}
			return nil
		})
	}
	_ = stopGroup.Wait()
	if heartbeatSvc != nil {
		heartbeatSvc.Stop()
	}
	sched.Stop()
	msgBus.Stop()
	cancel()
}

// consumeInbound drains the bus and runs one agent turn per message,
// tracking the most recently active channel/chat for heartbeat delivery.
func consumeInbound(ctx context.Context, msgBus *bus.MessageBus, loop *agent.Loop, tracker *lastChannelTracker, heartbeatSvc *heartbeat.Service) {
	for {
		msg, ok := msgBus.ConsumeInbound(ctx)
		if !ok {
			return
		}

		if !channels.IsInternalChannel(msg.Channel) {
			tracker.set(msg.Channel, msg.ChatID)
			if heartbeatSvc != nil {
				heartbeatSvc.SetLastChannel(msg.Channel, msg.ChatID)
			}
		}

		if err := loop.Run(ctx, msg); err != nil {
			slog.Error("agent turn failed", "channel", msg.Channel, "chat_id", msg.ChatID, "error", err)
		}
	}
}

// buildRegistry constructs a full tool set rooted at workspace. Used both
// for the main agent loop and, called fresh each time, as the subagent
// manager's isolated registry factory.
func buildRegistry(cfg *config.Config, workspace string, msgBus *bus.MessageBus, sched *scheduler.Scheduler) *tools.Registry {
	reg := tools.NewRegistry()
	restrict := cfg.Tools.RestrictToWorkspace

	reg.Register(tools.NewReadFileTool(workspace, restrict))
	reg.Register(tools.NewWriteFileTool(workspace, restrict))
	reg.Register(tools.NewEditFileTool(workspace, restrict))
	reg.Register(tools.NewListDirTool(workspace, restrict))

	timeout := time.Duration(cfg.Tools.Exec.TimeoutSec) * time.Second
	reg.Register(tools.NewExecTool(workspace, restrict, timeout))

	reg.Register(tools.NewWebFetchTool(tools.WebFetchConfig{}))
	reg.Register(tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveAPIKey:  cfg.Tools.Web.Search.APIKey,
		BraveEnabled: cfg.Tools.Web.Search.APIKey != "",
		DDGEnabled:   true,
	}))

	reg.Register(tools.NewMessageTool(msgBus))
	reg.Register(tools.NewCronTool(sched))

	return reg
}

// heartbeatMinutes converts the configured "30m"-style interval into the
// minutes heartbeat.New expects. A zero duration disables the service; a
// nil config or unset value falls back to heartbeat.New's own default.
func heartbeatMinutes(hb *config.HeartbeatConfig) (minutes int, enabled bool) {
	if hb == nil || hb.Every == "" {
		return 0, true
	}
	d, err := time.ParseDuration(hb.Every)
	if err != nil {
		return 0, true
	}
	if d <= 0 {
		return 0, false
	}
	return int(d.Minutes()), true
}
