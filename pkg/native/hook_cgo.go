//go:build cgo

package native

import (
	"fmt"
	"sync"

	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog"

	"github.com/offlinefirst/pattern-replay/pkg/events"
	"github.com/offlinefirst/pattern-replay/pkg/permissions"
)

// NewSource returns the global input hook as a shareable events.Source.
func NewSource(logger zerolog.Logger) events.Source {
	return events.NewHub(hookFeed, logger)
}

func hookFeed() (<-chan events.Raw, func(), error) {
	if capture := permissions.ProbeInputCapture(nil); !capture.Usable() {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnavailable, capture.Message)
	}

	in := hook.Start()
	out := make(chan events.Raw, 256)
	done := make(chan struct{})

	go func() {
		defer close(out)
		for ev := range in {
			raw, ok := convertHook(hookEdge{
				Kind:    ev.Kind,
				X:       ev.X,
				Y:       ev.Y,
				Button:  ev.Button,
				Keychar: ev.Keychar,
				Rawcode: ev.Rawcode,
				KeyName: hook.RawcodetoKeychar(ev.Rawcode),
				When:    ev.When,
			})
			if !ok {
				continue
			}
			select {
			case out <- raw:
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			go hook.End()
		})
	}
	return out, stop, nil
}
