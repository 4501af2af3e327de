package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eiannone/keyboard"

	"github.com/itohio/goscale/pkg/hx711"
	"github.com/itohio/goscale/pkg/sink"
)

const keyQuit = 'q'

// keyEvents emits single key presses read without Enter until ctx is done.
// ESC and Ctrl-C are reported as 'q' since raw mode swallows SIGINT.
func keyEvents(ctx context.Context) (<-chan rune, error) {
	if err := keyboard.Open(); err != nil {
		return nil, err
	}

	ch := make(chan rune, 16)
	go func() {
		defer close(ch)
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			switch key {
			case keyboard.KeyEsc, keyboard.KeyCtrlC:
				char = keyQuit
			case 0:
			default:
				continue
			}

			select {
			case ch <- char:
			default:
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = keyboard.Close()
	}()

	fmt.Println("keys: [t] tare  [c] calibrate  [+/-] mock load  [q] quit")
	return ch, nil
}

func interact(keys <-chan rune, quit context.CancelFunc, ctl sink.Controller, mock *hx711.Mock, reference int32) {
	for k := range keys {
		if !handleKey(k, ctl, mock, reference) {
			quit()
			return
		}
	}
}

// handleKey applies one key press. It returns false when the user asked to quit.
func handleKey(k rune, ctl sink.Controller, mock *hx711.Mock, reference int32) bool {
	switch k {
	case 't', 'T':
		ctl.Tare()
	case 'c', 'C':
		if _, err := ctl.Calibrate(reference); err != nil {
			slog.Warn("calibration failed", "err", err)
		}
	case '+', '=':
		if mock != nil {
			mock.SetLoad(mock.Load() + reference)
			slog.Info("mock load", "load", mock.Load())
		}
	case '-', '_':
		if mock != nil {
			mock.SetLoad(mock.Load() - reference)
			slog.Info("mock load", "load", mock.Load())
		}
	case keyQuit, 'Q':
		return false
	}
	return true
}
