// Command interactivectl connects a project to the interactive service and
// logs what its audience does. It prints the short code to approve on first
// run and persists the resulting tokens for the next one.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	interactive "github.com/NeboLoop/interactive-go-sdk"
	"github.com/NeboLoop/interactive-go-sdk/model"
	"github.com/NeboLoop/interactive-go-sdk/tokenstore"
)

var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

type options struct {
	ClientID       string
	VersionID      string
	ShareCode      string
	APIServer      string
	Hosts          []string
	Compression    []string
	TokenFile      string
	ValkeyAddr     string
	PollInterval   time.Duration
	StatusInterval time.Duration
	AutoStart      bool
	Debug          bool
}

func loadOptions(args []string) (options, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return options{}, fmt.Errorf("load .env: %w", err)
	}

	flags := pflag.NewFlagSet("interactivectl", pflag.ContinueOnError)
	configFile := flags.String("config", "", "config file (yaml, toml or json)")
	flags.String("client-id", "", "OAuth client ID")
	flags.String("version-id", "", "project version ID")
	flags.String("share-code", "", "share code for unpublished versions")
	flags.String("api-server", "", "REST API base URL")
	flags.StringSlice("hosts", nil, "websocket hosts, skips discovery")
	flags.StringSlice("compression", nil, "frame compression schemes to offer")
	flags.String("token-file", "interactive-tokens.json", "token file")
	flags.String("valkey-addr", "", "store tokens in valkey instead of a file")
	flags.Duration("poll-interval", 50*time.Millisecond, "how often to poll the session")
	flags.Duration("status-interval", 30*time.Second, "how often to log a status line, 0 disables")
	flags.Bool("auto-start", true, "mark the project ready once initialized")
	flags.Bool("debug", false, "log frame traffic")
	if err := flags.Parse(args); err != nil {
		return options{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("INTERACTIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(flags); err != nil {
		return options{}, fmt.Errorf("bind flags: %w", err)
	}
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return options{}, fmt.Errorf("read config: %w", err)
		}
	}

	o := options{
		ClientID:       v.GetString("client-id"),
		VersionID:      v.GetString("version-id"),
		ShareCode:      v.GetString("share-code"),
		APIServer:      v.GetString("api-server"),
		Hosts:          v.GetStringSlice("hosts"),
		Compression:    v.GetStringSlice("compression"),
		TokenFile:      v.GetString("token-file"),
		ValkeyAddr:     v.GetString("valkey-addr"),
		PollInterval:   v.GetDuration("poll-interval"),
		StatusInterval: v.GetDuration("status-interval"),
		AutoStart:      v.GetBool("auto-start"),
		Debug:          v.GetBool("debug"),
	}
	if o.ClientID == "" || o.VersionID == "" {
		return options{}, errors.New("client-id and version-id are required")
	}
	if o.PollInterval <= 0 {
		return options{}, errors.New("poll-interval must be positive")
	}
	return o, nil
}

func main() {
	o, err := loadOptions(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "interactivectl:", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if o.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if err := run(o, log); err != nil {
		log.Error("interactivectl stopped", "error", err)
		os.Exit(1)
	}
}

func run(o options, log *slog.Logger) error {
	var store tokenstore.Store = tokenstore.NewFile(o.TokenFile, o.ClientID)
	if o.ValkeyAddr != "" {
		vs, err := tokenstore.DialValkey(o.ValkeyAddr, o.ClientID)
		if err != nil {
			return err
		}
		defer vs.Close()
		store = vs
	}

	s := interactive.New(interactive.Config{
		ClientID:         o.ClientID,
		ProjectVersionID: o.VersionID,
		ShareCode:        o.ShareCode,
		APIServer:        o.APIServer,
		Hosts:            o.Hosts,
		Compression:      o.Compression,
		TokenStore:       store,
		Logger:           log,
	})

	var (
		state        atomic.Int32
		participants atomic.Int64
		inputs       atomic.Int64
		fatal        = make(chan interactive.ErrorEvent, 1)
	)

	s.OnStateChanged(func(e interactive.StateChangedEvent) {
		state.Store(int32(e.State))
	})
	s.OnParticipantStateChanged(func(e interactive.ParticipantStateChangedEvent) {
		participants.Store(int64(present(s.Participants())))
		log.Info("participant", "user", e.Participant.UserName, "from", e.Previous, "to", e.State)
	})
	s.OnButton(func(e interactive.ButtonEvent) {
		inputs.Add(1)
		log.Info("button", "control", e.ControlID, "user", userName(e.Participant), "pressed", e.Pressed)
		if e.Pressed && e.TransactionID != "" {
			if err := s.Capture(e.TransactionID); err != nil {
				log.Warn("capture failed", "error", err)
			}
		}
	})
	s.OnJoystick(func(e interactive.JoystickEvent) {
		inputs.Add(1)
		log.Debug("joystick", "control", e.ControlID, "x", e.X, "y", e.Y)
	})
	s.OnMouseButton(func(e interactive.MouseButtonEvent) {
		inputs.Add(1)
		log.Info("mouse", "control", e.ControlID, "button", e.Button, "pressed", e.Pressed)
	})
	s.OnCoordinates(func(e interactive.CoordinatesEvent) {
		inputs.Add(1)
		log.Debug("coordinates", "control", e.ControlID, "x", e.X, "y", e.Y)
	})
	s.OnTextInput(func(e interactive.TextInputEvent) {
		inputs.Add(1)
		log.Info("text", "control", e.ControlID, "text", e.Text, "submitted", e.Submitted)
	})
	s.OnError(func(e interactive.ErrorEvent) {
		if !e.Fatal {
			log.Warn("session error", "code", e.Code, "message", e.Message)
			return
		}
		select {
		case fatal <- e:
		default:
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals...)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	// The session is only ever touched from this goroutine.
	g.Go(func() error {
		defer s.Dispose()
		s.Initialize(o.AutoStart, "")
		var shown string
		tick := time.NewTicker(o.PollInterval)
		defer tick.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case e := <-fatal:
				return e
			case <-tick.C:
				s.Poll()
				if code := s.ShortCode(); code != "" && code != shown {
					shown = code
					log.Info("approve this project", "code", code)
				}
			}
		}
	})

	if o.StatusInterval > 0 {
		g.Go(func() error {
			tick := time.NewTicker(o.StatusInterval)
			defer tick.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-tick.C:
					log.Info("status",
						"state", interactive.State(state.Load()),
						"participants", participants.Load(),
						"inputs", inputs.Swap(0))
				}
			}
		})
	}

	log.Info("interactivectl started", "client", o.ClientID, "version", o.VersionID)
	err := g.Wait()
	log.Info("interactivectl stopped")
	return err
}

func present(ps []*model.Participant) int {
	n := 0
	for _, p := range ps {
		if p.State != model.ParticipantLeft {
			n++
		}
	}
	return n
}

func userName(p *model.Participant) string {
	if p == nil {
		return "?"
	}
	return p.UserName
}
