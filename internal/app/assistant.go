package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/alexpernaoficial/Alex-Perna/internal/audio"
	"github.com/alexpernaoficial/Alex-Perna/internal/chat"
	"github.com/alexpernaoficial/Alex-Perna/internal/config"
	"github.com/alexpernaoficial/Alex-Perna/internal/failure"
	"github.com/alexpernaoficial/Alex-Perna/internal/history"
	"github.com/alexpernaoficial/Alex-Perna/internal/input"
	"github.com/alexpernaoficial/Alex-Perna/internal/live"
	"github.com/alexpernaoficial/Alex-Perna/internal/logger"
	"github.com/alexpernaoficial/Alex-Perna/internal/metrics"
	"github.com/alexpernaoficial/Alex-Perna/internal/output"
	"github.com/alexpernaoficial/Alex-Perna/internal/playback"
	"github.com/alexpernaoficial/Alex-Perna/internal/screen"
	"github.com/alexpernaoficial/Alex-Perna/internal/session"
)

const saveTimeout = 2 * time.Second

// Chatter answers one text turn given the prior conversation
type Chatter interface {
	Send(ctx context.Context, prior []history.Message, text string, attachment *chat.Attachment) (string, error)
}

// VoiceSession is the part of session.Coordinator the assistant drives
type VoiceSession interface {
	Connect(ctx context.Context, setup live.Setup) error
	Disconnect()
	State() session.State
	SetMuted(muted bool) error
	Muted() bool
	SendText(text string) error
	StartScreenShare(ctx context.Context) error
	StopScreenShare()
	ScreenSharing() bool
}

// AssistantConfig holds the resolved settings of one assistant run
type AssistantConfig struct {
	Config *config.Config

	// Input is read for typed commands (default: os.Stdin)
	Input io.Reader

	// AutoConnect opens the voice session at startup
	AutoConnect bool
}

// Assistant ties the voice session, text chat, history and terminal together
type Assistant struct {
	config AssistantConfig
	cfg    *config.Config
	log    *slog.Logger

	conversation *history.Log
	store        history.Store
	chat         Chatter
	voice        VoiceSession
	formatter    output.Formatter
	status       *output.ConsoleOutput
	metrics      *metrics.Metrics
	hotkey       *input.MuteHotkey

	saveMu     sync.Mutex
	connecting sync.WaitGroup
}

// NewAssistant creates an assistant; Run wires its dependencies
func NewAssistant(config AssistantConfig) *Assistant {
	if config.Input == nil {
		config.Input = os.Stdin
	}
	return &Assistant{
		config: config,
		cfg:    config.Config,
		log:    logger.With("assistant"),
	}
}

// Run opens every component, processes commands until quit or a signal, and
// releases everything on the way out
func (a *Assistant) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := a.cfg
	if cfg.APIKey == "" {
		return &failure.AuthError{Err: errors.New("GEMINI_API_KEY is not set")}
	}

	writer := io.Writer(os.Stdout)
	if cfg.Output.File != "" {
		outFile, err := os.Create(cfg.Output.File)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer outFile.Close()
		writer = outFile
	}

	formatter, err := output.NewFormatter(cfg.Output.Format, writer)
	if err != nil {
		return err
	}
	defer formatter.Close()
	a.formatter = formatter

	// Status lines go to stderr unless the conversation itself is on the console
	a.status = output.NewConsoleOutput(output.ConsoleConfig{ShowTimestamp: true, Writer: os.Stderr})
	if console, ok := formatter.(*output.ConsoleOutput); ok {
		a.status = console
	}

	store, closeStore, err := OpenStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	a.store = store

	msgs, err := store.Load(ctx)
	if err != nil {
		a.status.Error(fmt.Sprintf("Falha ao carregar histórico: %v", err))
	}
	a.conversation = history.NewLog(msgs)

	a.metrics = metrics.NewMetrics()

	client, err := chat.NewClient(ctx, chat.Config{
		APIKey:            cfg.APIKey,
		Model:             cfg.Gemini.TextModel,
		SystemInstruction: cfg.Assistant.SystemInstruction,
		Search:            cfg.Assistant.Search,
		Metrics:           a.metrics,
	})
	if err != nil {
		return err
	}
	a.chat = client

	coordinator := session.New(a.sessionConfig(), a)
	defer coordinator.Disconnect()
	a.voice = coordinator

	a.hotkey = input.NewMuteHotkey(a.onMuteHotkey)
	if cfg.Hotkey.Mute != "" {
		if err := a.hotkey.Start(ctx, cfg.Hotkey.Mute); err != nil {
			a.status.Error(fmt.Sprintf("Atalho de mudo indisponível: %v", err))
		} else {
			defer a.hotkey.Stop()
			a.status.Info(fmt.Sprintf("Atalho de mudo: %s", cfg.Hotkey.Mute))
		}
	}

	a.status.Info(fmt.Sprintf("Aria pronta (voz: %s, %d mensagens no histórico)", cfg.Gemini.Voice, a.conversation.Len()))
	a.status.Info("Digite ? para ver os comandos.")

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Metrics.Listen != "" {
		g.Go(func() error {
			return a.metrics.Serve(gctx, cfg.Metrics.Listen)
		})
	}

	if a.config.AutoConnect {
		a.toggleConnection(gctx)
	}

	g.Go(func() error {
		defer stop()
		commands := input.ReadCommands(gctx, a.config.Input, func(err error) {
			a.status.Error(err.Error())
		})
		for {
			select {
			case <-gctx.Done():
				return nil
			case cmd, ok := <-commands:
				if !ok {
					return nil
				}
				if quit := a.Handle(gctx, cmd); quit {
					return nil
				}
			}
		}
	})

	err = g.Wait()
	a.voice.Disconnect()
	a.connecting.Wait()
	a.save()
	a.status.Info("Até logo!")
	return err
}

func (a *Assistant) sessionConfig() session.Config {
	cfg := a.cfg

	capture := audio.DefaultConfig()
	capture.BlockSize = cfg.Audio.BlockSize
	capture.DeviceID = cfg.Audio.InputDevice

	vad := audio.DefaultVADConfig()
	if cfg.Audio.VADThreshold > 0 {
		vad.EnergyThreshold = cfg.Audio.VADThreshold
	}

	sampler := screen.DefaultConfig()
	sampler.Interval = cfg.Screen.Interval
	sampler.MaxWidth = cfg.Screen.MaxWidth
	sampler.MaxHeight = cfg.Screen.MaxHeight
	sampler.Quality = cfg.Screen.Quality

	player := playback.DefaultPlayerConfig()
	player.DeviceID = cfg.Audio.OutputDevice

	screenCommand := cfg.Screen.Command
	if screenCommand == "" {
		screenCommand = screen.DefaultCommand()
	}

	sc := session.Config{
		Transport: live.NewGeminiTransport(live.GeminiConfig{
			URL:       cfg.Gemini.URL,
			APIKey:    cfg.APIKey,
			Model:     cfg.Gemini.LiveModel,
			QueueSize: cfg.Audio.SendQueue,
			Metrics:   a.metrics,
		}),
		Capture: capture,
		NewOutput: func() (session.Output, error) {
			p, err := playback.NewPlayer(player)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		NewScreenSource: func() (screen.Source, error) {
			src, err := screen.NewCommandSource(screenCommand)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		Screen:    sampler,
		KeepAlive: cfg.Audio.KeepAlive,
		VAD:       &vad,
		Metrics:   a.metrics,
	}
	if cfg.Assistant.Proactive {
		sc.ProactiveAfter = cfg.Assistant.ProactiveAfter
	}
	return sc
}

// OpenStore returns the history store selected by history.backend and a
// function releasing it
func OpenStore(cfg *config.Config) (history.Store, func(), error) {
	switch cfg.History.Backend {
	case "none":
		return history.NopStore{}, func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.History.RedisAddr})
		store := history.NewRedisStore(client, history.WithKey(cfg.History.RedisKey))
		return store, func() { _ = client.Close() }, nil
	case "file", "":
		path := cfg.History.Path
		if path == "" {
			path = history.DefaultPath()
		}
		return history.NewFileStore(path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.History.Backend)
	}
}

// Handle executes one command and reports whether the assistant should quit
func (a *Assistant) Handle(ctx context.Context, cmd input.Command) bool {
	switch cmd.Kind {
	case input.CmdQuit:
		return true
	case input.CmdHelp:
		a.status.Info(input.Help)
	case input.CmdConnect:
		a.toggleConnection(ctx)
	case input.CmdMute:
		a.toggleMute()
	case input.CmdScreen:
		a.toggleScreen(ctx)
	case input.CmdText:
		a.sendText(ctx, cmd.Text)
	case input.CmdFile:
		a.sendFile(ctx, cmd.Path, cmd.Text)
	case input.CmdHistory:
		a.printHistory()
	case input.CmdClear:
		a.clearHistory(ctx)
	}
	return false
}

func (a *Assistant) toggleConnection(ctx context.Context) {
	if a.voice.State() == session.Connecting || a.voice.State() == session.Connected {
		a.voice.Disconnect()
		return
	}

	setup := live.Setup{
		SystemInstruction: a.cfg.Assistant.SystemInstruction,
		Voice:             a.cfg.Gemini.Voice,
	}
	if a.cfg.Assistant.Memory {
		setup.SystemInstruction += a.conversation.MemoryContext(a.cfg.Assistant.MemoryTurns)
	}

	a.status.Info("Conectando...")
	a.connecting.Add(1)
	go func() {
		defer a.connecting.Done()
		if err := a.voice.Connect(ctx, setup); err != nil {
			if errors.Is(err, failure.ErrAborted) || errors.Is(err, context.Canceled) {
				return
			}
			// the observer already reported session failures
			if a.voice.State() != session.Error {
				a.status.Error(failure.Describe(err))
			}
		}
	}()
}

// onMuteHotkey ignores the hotkey's own flag; the session decides
func (a *Assistant) onMuteHotkey(bool) {
	a.toggleMute()
}

func (a *Assistant) toggleMute() {
	muted := !a.voice.Muted()
	err := a.voice.SetMuted(muted)
	if err != nil {
		muted = a.voice.Muted()
	}
	if a.hotkey != nil {
		a.hotkey.Set(muted)
	}
	if err != nil {
		a.status.Error(failure.Describe(err))
		return
	}
	a.announceMute(muted)
}

func (a *Assistant) announceMute(muted bool) {
	if muted {
		a.status.Info("Microfone silenciado")
		return
	}
	a.status.Info("Microfone ativo")
}

func (a *Assistant) toggleScreen(ctx context.Context) {
	if a.voice.ScreenSharing() {
		a.voice.StopScreenShare()
		return
	}
	if err := a.voice.StartScreenShare(ctx); err != nil {
		a.status.Error(failure.Describe(err))
	}
}

// sendText speaks into the live session while connected and falls back to the
// text model otherwise
func (a *Assistant) sendText(ctx context.Context, text string) {
	if a.voice.State() == session.Connected {
		if err := a.voice.SendText(text); err != nil {
			a.status.Error(failure.Describe(err))
			return
		}
		a.record(history.RoleUser, text)
		return
	}
	a.ask(ctx, text, nil)
}

func (a *Assistant) sendFile(ctx context.Context, path, text string) {
	attachment, err := chat.LoadAttachment(path)
	if err != nil {
		a.status.Error(err.Error())
		return
	}
	a.ask(ctx, text, attachment)
}

func (a *Assistant) ask(ctx context.Context, text string, attachment *chat.Attachment) {
	prior := a.conversation.Messages()

	label := text
	if attachment != nil {
		label = attachment.Label(text)
	}
	a.record(history.RoleUser, label)

	answer, err := a.chat.Send(ctx, prior, text, attachment)
	if err != nil {
		a.log.Debug("chat failed", "error", err)
		a.status.Error(failure.Describe(err))
		return
	}
	a.record(history.RoleModel, answer)
}

// record adds a complete message to the log and the output
func (a *Assistant) record(role history.Role, text string) {
	msg := a.conversation.Add(role, text)
	if err := a.formatter.WriteEntry(output.Entry{
		Type:      "chat",
		Role:      string(msg.Role),
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}); err != nil {
		a.log.Debug("write entry failed", "error", err)
	}
	a.save()
}

func (a *Assistant) printHistory() {
	msgs := a.conversation.Messages()
	if len(msgs) == 0 {
		a.status.Info("Histórico vazio")
		return
	}
	for _, m := range msgs {
		_ = a.formatter.WriteEntry(output.Entry{Type: "chat", Role: string(m.Role), Text: m.Text, Timestamp: m.Timestamp})
	}
}

func (a *Assistant) clearHistory(ctx context.Context) {
	a.conversation.Clear()
	if err := a.store.Clear(ctx); err != nil {
		a.status.Error(fmt.Sprintf("Falha ao limpar histórico: %v", err))
		return
	}
	a.status.Info("Histórico apagado")
}

// save persists the log; failures are logged and otherwise ignored
func (a *Assistant) save() {
	if a.store == nil || a.conversation == nil {
		return
	}
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := a.store.Save(ctx, a.conversation.Messages()); err != nil {
		a.log.Warn("history save failed", "error", err)
	}
}

// OnState reports lifecycle changes
func (a *Assistant) OnState(state session.State) {
	_ = a.formatter.WriteEvent("state", state.String())
	switch state {
	case session.Connected:
		a.status.Info("Conectado. Pode falar!")
	case session.Disconnected, session.Error:
		// the next session starts unmuted
		if a.hotkey != nil {
			a.hotkey.Set(false)
		}
	}
}

// OnTranscript merges streamed speech into the log and echoes it
func (a *Assistant) OnTranscript(ev live.TranscriptEvent) {
	a.conversation.AppendTranscript(history.Role(ev.Role), ev.Text)
	_ = a.formatter.WriteFragment(string(ev.Role), ev.Text)
	a.save()
}

// OnLevel drives the microphone meter on the console
func (a *Assistant) OnLevel(level float64) {
	if console, ok := a.formatter.(*output.ConsoleOutput); ok {
		_ = console.WriteAudioLevel(level)
	}
}

// OnError shows a session failure
func (a *Assistant) OnError(err error) {
	a.log.Debug("session error", "error", err)
	a.status.Error(failure.Describe(err))
}

// OnScreenShare reports screen sharing changes
func (a *Assistant) OnScreenShare(active bool) {
	if active {
		a.status.Info("Compartilhando tela")
		return
	}
	a.status.Info("Compartilhamento de tela encerrado")
}
