package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mavrell/drumbeat/internal/config"
	"github.com/mavrell/drumbeat/pkg/agent"
	"github.com/mavrell/drumbeat/pkg/corpus"
)

func TestRunIDIsUnique(t *testing.T) {
	cfg := config.DefaultConfig()

	a := New(cfg, zerolog.Nop())
	b := New(cfg, zerolog.Nop())

	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestRunFailsFastOnBadCorpus(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Corpus.Descriptor = "& and &"
	o := New(cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := o.Run(ctx)
	require.Error(t, err)

	var perr *corpus.ParseError
	assert.ErrorAs(t, err, &perr)
}

func TestStartSummaryRejectsBadInterval(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Status.SummaryEvery = "whenever"
	o := New(cfg, zerolog.Nop())

	assert.Nil(t, o.startSummary(nil))

	cfg.Status.SummaryEvery = ""
	assert.Nil(t, o.startSummary(nil))
}

func TestStartSummaryRuns(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Status.SummaryEvery = "1s"
	o := New(cfg, zerolog.Nop())

	stop := o.startSummary(agent.NewTally())
	require.NotNil(t, stop)
	stop()
}
