package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/autodev/shade/app/server"
	"github.com/autodev/shade/app/store"
)

var opts struct {
	DB string `short:"d" long:"db" env:"SHADE_DB" default:"shade.db" description:"database URL (sqlite file or postgres://...)"`

	Server struct {
		Address     string `long:"address" env:"ADDRESS" default:":8480" description:"server listen address"`
		ReadTimeout int    `long:"read-timeout" env:"READ_TIMEOUT" default:"5" description:"read timeout in seconds"`
		BaseURL     string `long:"base-url" env:"BASE_URL" description:"base URL path for reverse proxy (e.g., /shade)"`
		NoControl   bool   `long:"no-control" env:"NO_CONTROL" description:"render pages without the theme toggle control"`
	} `group:"server" namespace:"server" env-namespace:"SHADE_SERVER"`

	Auth struct {
		File      string `long:"file" env:"FILE" description:"auth config file with users and tokens (enables auth)"`
		HotReload bool   `long:"hot-reload" env:"HOT_RELOAD" description:"reload auth config file on change"`
		LoginTTL  int    `long:"login-ttl" env:"LOGIN_TTL" default:"1440" description:"login session TTL in minutes"`
	} `group:"auth" namespace:"auth" env-namespace:"SHADE_AUTH"`

	Cache struct {
		MaxKeys int `long:"max-keys" env:"MAX_KEYS" default:"1000" description:"max entries in preference read cache, 0 disables caching"`
	} `group:"cache" namespace:"cache" env-namespace:"SHADE_CACHE"`

	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `long:"version" description:"show version and exit"`
}

var revision = "unknown"

func main() {
	fmt.Printf("shade %s\n", revision)

	p := flags.NewParser(&opts, flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			p.WriteHelp(os.Stderr)
			os.Exit(2)
		}
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}

	if opts.Version {
		os.Exit(0)
	}

	setupLogs()

	defer func() {
		if x := recover(); x != nil {
			log.Printf("[WARN] run time panic:\n%v", x)
			panic(x)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	signals(cancel)

	if err := run(ctx); err != nil {
		log.Printf("[ERROR] failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log.Printf("[INFO] starting shade server on %s", opts.Server.Address)
	if opts.Auth.File != "" {
		log.Printf("[INFO] authentication enabled, config: %s", opts.Auth.File)
	}
	if opts.Server.NoControl {
		log.Printf("[INFO] theme toggle control disabled")
	}

	// initialize storage
	prefStore, err := makeStore()
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer prefStore.Close()

	// initialize and start HTTP server
	srv, err := server.New(prefStore, server.Config{
		Address:        opts.Server.Address,
		ReadTimeout:    time.Duration(opts.Server.ReadTimeout) * time.Second,
		BaseURL:        opts.Server.BaseURL,
		Version:        revision,
		AuthFile:       opts.Auth.File,
		AuthHotReload:  opts.Auth.HotReload,
		LoginTTL:       time.Duration(opts.Auth.LoginTTL) * time.Minute,
		ControlEnabled: !opts.Server.NoControl,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// makeStore creates the preference store, wrapped with a read cache unless disabled.
func makeStore() (store.Interface, error) {
	dbStore, err := store.New(opts.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.Cache.MaxKeys <= 0 {
		return dbStore, nil
	}

	cached, err := store.NewCached(dbStore, opts.Cache.MaxKeys)
	if err != nil {
		_ = dbStore.Close()
		return nil, fmt.Errorf("failed to create cached store: %w", err)
	}
	return cached, nil
}

func setupLogs() {
	log.Setup(log.Msec)
	if opts.Debug {
		log.Setup(log.Debug, log.CallerFunc, log.CallerPkg, log.CallerFile)
	}
}

func signals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	go func() {
		stacktrace := make([]byte, 8192)
		for sig := range sigChan {
			switch sig {
			case syscall.SIGQUIT:
				length := runtime.Stack(stacktrace, true)
				fmt.Println(string(stacktrace[:length]))
			case syscall.SIGTERM, syscall.SIGINT:
				cancel()
			}
		}
	}()
	signal.Notify(sigChan, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
}
