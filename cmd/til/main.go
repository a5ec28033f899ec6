// Command til hosts a rendering pipeline: picks a module by name, sets it
// up from CLI flags, and drives it into a memfb.Backend at a fixed frame
// rate, optionally serving an introspection API over the live stream.
// Flag/config wiring follows core.Bgpipe's pattern (pflag + koanf +
// posflag + zerolog), generalized from one BGP pipeline's flags to one
// til module's settings string.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/time/rate"

	"github.com/tilengine/til"
	"github.com/tilengine/til/backend/memfb"
	"github.com/tilengine/til/pkg/introspect"
	_ "github.com/tilengine/til/pkg/rocket"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("til: fatal")
	}
}

func run() error {
	f := pflag.NewFlagSet("til", pflag.ExitOnError)
	f.SortFlags = false
	f.StringP("module", "m", "blank", "module name to render")
	f.StringP("settings", "s", "", "module settings string (key=value,key=value,...)")
	f.StringP("log", "l", "info", "log level (debug/info/warn/error/disabled)")
	f.IntP("width", "W", 1920, "frame width")
	f.IntP("height", "H", 1080, "frame height")
	f.Float64P("fps", "r", 60, "target frames per second")
	f.IntP("cpus", "j", 0, "worker pool size (0 = number of logical CPUs)")
	f.StringP("introspect", "I", "", "address to serve introspection API on (empty disables it)")
	f.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: til [OPTIONS]\n\nOptions:\n")
		f.PrintDefaults()
	}
	if err := f.Parse(os.Args[1:]); err != nil {
		return err
	}

	k := koanf.New(".")
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return fmt.Errorf("til: could not load flags: %w", err)
	}

	logger := log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})
	if lvl, err := zerolog.ParseLevel(k.String("log")); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		return fmt.Errorf("til: bad --log level: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	module := til.Lookup(k.String("module"))
	if module == nil {
		return fmt.Errorf("til: unknown module %q", k.String("module"))
	}
	if module.Setup == nil {
		return fmt.Errorf("til: module %q has no Setup", module.Name)
	}

	settings := til.ParseSettings(k.String("settings"))
	var setup *til.Setup
	if err := module.Setup(settings, nil, nil, &setup); err != nil {
		return fmt.Errorf("til: setting up %q: %w", module.Name, err)
	}
	if setup == nil {
		return fmt.Errorf("til: module %q needs more settings than given", module.Name)
	}
	defer setup.Unref()

	stream := til.NewStream()
	defer stream.End()

	pool := til.NewPool(k.Int("cpus"))
	defer pool.Close()

	renderCtx, err := til.NewContext(module, stream, uint(time.Now().UnixNano()), 0, pool.NumThreads(), setup)
	if err != nil {
		return fmt.Errorf("til: creating context for %q: %w", module.Name, err)
	}
	defer til.DestroyContext(renderCtx, stream)

	fbSettings := til.ParseSettings(fmt.Sprintf("width=%d,height=%d", k.Int("width"), k.Int("height")))
	backend, err := memfb.NewBackend(fbSettings)
	if err != nil {
		return fmt.Errorf("til: configuring memfb: %w", err)
	}

	fb, err := til.NewFB(backend, fbSettings, 3)
	if err != nil {
		return fmt.Errorf("til: starting framebuffer: %w", err)
	}
	defer fb.Free()

	if addr := k.String("introspect"); addr != "" {
		srv := introspect.NewServer(stream)
		httpSrv := &http.Server{Addr: addr, Handler: srv.Router()}
		go func() {
			logger.Info().Str("addr", addr).Msg("til: introspection API listening")
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn().Err(err).Msg("til: introspection API stopped")
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpSrv.Shutdown(shutdownCtx)
		}()
	}

	fps := k.Float64("fps")
	if fps <= 0 {
		fps = 60
	}
	limiter := rate.NewLimiter(rate.Limit(fps), 1)

	logger.Info().Str("module", module.Name).Float64("fps", fps).Msg("til: rendering")

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("til: shutting down")
			return nil
		default:
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil // context canceled
		}

		ticks := uint(time.Since(start).Milliseconds())

		page := fb.PageGet()
		if page == nil {
			return nil // framebuffer closing
		}

		fragment := &page.Fragment
		til.ModuleRender(context.Background(), module, renderCtx, pool, stream, ticks, &fragment)

		fb.PagePut(page)
	}
}
