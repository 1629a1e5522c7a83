package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gowvp/review/internal/conf"
	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
)

// Run 启动 http 服务，收到退出信号后优雅关闭
func Run(bc *conf.Bootstrap) error {
	log, closeLog, err := SetupLog(bc.Log, bc.Debug)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(log)

	handler, cleanup, err := wireApp(bc)
	if err != nil {
		return fmt.Errorf("wire app: %w", err)
	}
	defer cleanup()

	timeout := bc.Server.HTTP.Timeout.Duration()
	svc := http.Server{
		Addr:              fmt.Sprintf(":%d", bc.Server.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "port", bc.Server.HTTP.Port, "version", bc.BuildVersion)
		if err := svc.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return svc.Shutdown(shutdownCtx)
}

// SetupLog 调试模式输出文本日志，否则输出 JSON
// Dir 不为空时同时写入按时间切分的日志文件
func SetupLog(cfg conf.Log, debug bool) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	if debug {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, err
		}
		rl, err := rotatelogs.New(
			filepath.Join(cfg.Dir, "%Y%m%d%H%M.log"),
			rotatelogs.WithLinkName(filepath.Join(cfg.Dir, "current.log")),
			rotatelogs.WithMaxAge(cfg.MaxAge.Duration()),
			rotatelogs.WithRotationTime(cfg.RotationTime.Duration()),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("rotatelogs: %w", err)
		}
		w = io.MultiWriter(os.Stdout, rl)
		closeFn = func() { _ = rl.Close() }
	}

	opts := slog.HandlerOptions{
		AddSource: debug,
		Level:     level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.SourceKey {
				if src, ok := a.Value.Any().(*slog.Source); ok {
					src.File = filepath.Base(filepath.Dir(src.File)) + "/" + filepath.Base(src.File)
				}
			}
			return a
		},
	}
	var h slog.Handler
	if debug {
		h = slog.NewTextHandler(w, &opts)
	} else {
		h = slog.NewJSONHandler(w, &opts)
	}
	return slog.New(h), closeFn, nil
}
