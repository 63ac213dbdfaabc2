// Package filter wires session establishment, block codec and the
// streaming state machine into the five ABI entry points a host filter
// registration expects (spec.md §6): Init, Shutdown, DataPrepare,
// DataProcess, DataFinish.
package filter

import (
	"github.com/google/uuid"

	"aes256filter/internal/aes256/hostio"
	"aes256filter/internal/aes256/mode"
	"aes256filter/internal/aes256/session"
	"aes256filter/internal/aes256/stream"
)

// FilterUUID stably identifies this filter to a host's plugin registry.
var FilterUUID = uuid.MustParse("35a5404d-1513-4009-904c-6ee5b0cd8634")

// FilterName is the short name a host registers this filter under.
const FilterName = "aes256"

// ABICompatVersion is the {major, minor} ABI-compat version this filter
// implements.
var ABICompatVersion = [2]int{1, 6}

// Host bundles the collaborators spec.md §6 abstracts away: logging, the
// interactive password prompt, the volume-scoped custom-meta map, and the
// local config directory.
type Host struct {
	CfgDir     hostio.ConfigDir
	CustomMeta hostio.MetaStore
	Logger     hostio.Logger
	Prompter   hostio.PasswordPrompter
}

// Filter is one prepare/process/finish session. It carries no internal
// mutex (spec.md §5): concurrent use by more than one goroutine is caller
// error, surfaced by -race rather than serialized away.
type Filter struct {
	mode   mode.Mode
	host   Host
	est    *session.Established
	stream *stream.Stream
}

// Init is a trivial ABI entry point: the session lives on the
// prepare/finish axis, not init/shutdown.
func Init() error { return nil }

// Shutdown is a trivial ABI entry point, the mirror of Init.
func Shutdown() error { return nil }

// DataPrepare establishes a session key (spec.md §4.3) and constructs the
// streaming state machine for the given direction and cfgdata.
func DataPrepare(m mode.Mode, cfgData []byte, filename string, host Host) (*Filter, error) {
	est, err := session.Setup(session.Params{
		Mode:       m,
		Filename:   filename,
		CfgData:    cfgData,
		CfgDir:     host.CfgDir,
		CustomMeta: host.CustomMeta,
		Logger:     host.Logger,
		Prompter:   host.Prompter,
	})
	if err != nil {
		return nil, err
	}

	return &Filter{
		mode:   m,
		host:   host,
		est:    est,
		stream: stream.New(m, est.Codec),
	}, nil
}

// DataProcess drives the streaming state machine one step (spec.md §4.5).
func (f *Filter) DataProcess(inBuf []byte, action stream.Action, outBuf []byte) (int, stream.Action, error) {
	return f.stream.Process(inBuf, action, outBuf)
}

// DataFinish releases all session resources: buffers and key material are
// wiped, regardless of whether prior calls returned errors (spec.md §5).
func (f *Filter) DataFinish() {
	if f == nil {
		return
	}

	if f.stream != nil {
		f.stream.Close()
	}

	if f.est != nil {
		f.est.Destroy()
	}
}
