// Package statsd is a helper package that wraps the statsd methods the engine
// cares about. It hides the datadog dependency so a future metrics migration
// only needs to touch this one file.
package statsd

import (
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitPhaseStat reports how long a match-cycle phase (intermission, match,
// reset) actually ran.
func EmitPhaseStat(start time.Time, phase string) {
	duration := time.Since(start)
	if err := Client().Timing("phase", duration, []string{phase}, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit phase stat: %v", err)
	}
}

// EmitRosterSize reports the player count of a starting match.
func EmitRosterSize(size int) {
	if err := Client().Gauge("roster_size", float64(size), nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit roster size: %v", err)
	}
}

// EmitQueueDepth reports the current join-queue length.
func EmitQueueDepth(depth int) {
	if err := Client().Gauge("queue_depth", float64(depth), nil, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit queue depth: %v", err)
	}
}

// EmitCount bumps a named counter (relegations, resets, rejected joins).
func EmitCount(name string, value int64, tags []string) {
	if err := Client().Count(name, value, tags, 1); err != nil {
		log.Logger.Warn().Msgf("failed to emit count stat %q: %v", name, err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("arena"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return err
	}
	// Success! replace the global client
	client = newClient
	return nil
}
