package measure

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/roman-kulish/vna-sparams/internal/vna"
)

// Emitter receives progress of a measurement. Calls are made from the
// goroutine running the measurement.
type Emitter interface {
	OnState(vna.State)
	OnIdentity(string)
	OnResult(*Result)
	OnError(error)
}

type nopEmitter struct{}

func (nopEmitter) OnState(vna.State) {}
func (nopEmitter) OnIdentity(string) {}
func (nopEmitter) OnResult(*Result)  {}
func (nopEmitter) OnError(error)     {}

// Console prints progress as plain lines
type Console struct {
	w io.Writer
}

// NewConsole creates an emitter writing to w
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) OnState(s vna.State) {
	fmt.Fprintf(c.w, "state: %s\n", s)
}

func (c *Console) OnIdentity(id string) {
	fmt.Fprintf(c.w, "instrument: %s\n", id)
}

func (c *Console) OnResult(r *Result) {
	if r.Config != nil {
		fmt.Fprintf(c.w, "sweep: %s\n", r.Config.Summary())
	} else {
		fmt.Fprintln(c.w, "sweep: instrument settings")
	}

	fmt.Fprintf(c.w, "saved %s (%s) in %s, run %s\n",
		r.LocalFile,
		humanize.Bytes(uint64(r.Size)),
		r.Duration().Round(time.Millisecond),
		r.RunID)
}

func (c *Console) OnError(err error) {
	fmt.Fprintf(c.w, "error: %s\n", err)
}
