// Package logger, zerolog tabanlı global logger'ı yönetir.
//
// Uygulama başlangıcında main.go Init çağırır; sonrasında her paket
// logger.Info() / logger.Error() ile structured log atar:
//
//	logger.Info().Str("order_id", id).Msg("[order] order created")
//
// Mesajlar "[bileşen]" prefix'i taşır, değişken veriler field olarak eklenir.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config, logger ayarları.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // json | console
	Output io.Writer // nil → os.Stderr
}

var (
	log zerolog.Logger
	mu  sync.RWMutex
)

func init() {
	configure(Config{Level: "info", Format: "json"})
}

// Init, global logger'ı yeniden yapılandırır. Birden fazla çağrılabilir.
func Init(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	configure(cfg)
}

func configure(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	log = zerolog.New(out).With().Timestamp().Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Logger, global logger'ın bir kopyasını döner.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func Debug() *zerolog.Event { l := Logger(); return l.Debug() }
func Info() *zerolog.Event  { l := Logger(); return l.Info() }
func Warn() *zerolog.Event  { l := Logger(); return l.Warn() }
func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal, log atıp os.Exit(1) çağırır. Sadece main paketinde kullanılır.
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }
