package conductor

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// Sets the time allowed for a service to start before timing out
func StartupTimeout(d time.Duration) func(*Conductor) {
	return func(c *Conductor) {
		c.startTimeout = d
	}
}

// Sets the time allowed for services to stop before timing out
func ShutdownTimeout(d time.Duration) func(*Conductor) {
	return func(c *Conductor) {
		c.stopTimeout = d
	}
}

// Noisy logs service start and stop through the global logger.
func Noisy() func(*Conductor) {
	return func(c *Conductor) {
		c.log = log.With().Str("component", "Conductor").Logger()
	}
}

// This hooks SIGTERM and SIGINT and will shut down the Conductor
// if one is detected.
func HookSignals() func(*Conductor) {
	return func(c *Conductor) {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		go func() {
			select {
			case sig := <-sigCh: // sigterm/sigint caught
				c.log.Info().Str("signal", sig.String()).Msg("caught signal, shutting down")
				c.Stop()
			case <-c.shutdown: // service is closing down..
			}
			signal.Stop(sigCh)
		}()
	}
}
