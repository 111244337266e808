package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pdiddy/barcode-sync/internal/logging"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

// run is the per-invocation logging context shared by the commands that
// touch a live system.
type run struct {
	ID      string
	Base    string
	Started time.Time
	Log     *zerolog.Logger
	file    *logging.RunLog
}

// startRun opens logs/{command}_{parts}_{timestamp}.log and stamps every
// event with a fresh run id. With an empty log directory events go to
// stderr only.
func startRun(cmd *cobra.Command, cfg types.Config, command string, parts ...string) (*run, error) {
	started := time.Now()
	base := logging.RunName(command, started, parts...)

	var (
		logger *zerolog.Logger
		f      *logging.RunLog
	)
	if cfg.Log.Dir == "" {
		l := logging.New(os.Stderr, cfg.Log)
		logger = &l
	} else {
		var console io.Writer
		if printOutput, _ := cmd.Flags().GetBool("print-output"); printOutput {
			console = os.Stderr
		}
		var err error
		if f, err = logging.Open(cfg.Log, base, console); err != nil {
			return nil, err
		}
		logger = f.Log()
		fmt.Fprintf(os.Stderr, "Logging to %s\n", f.Path)
	}

	id := uuid.NewString()
	l := logger.With().Str("run_id", id).Logger()
	return &run{ID: id, Base: base, Started: started, Log: &l, file: f}, nil
}

func (r *run) Close() error {
	return r.file.Close()
}
