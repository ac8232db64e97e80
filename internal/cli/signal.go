package cli

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// SignalContext is a context cancelled on SIGTERM, with SIGINT delivered as
// pulses instead: an interrupt aborts the command in flight, not the session.
type SignalContext struct {
	context.Context
	Cancel func()

	start      sync.Once
	stop       sync.Once
	sigCh      chan os.Signal
	interrupts chan struct{}
}

// NewSignalContext installs the signal handlers on top of parent.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context:    ctx,
		Cancel:     cancel,
		sigCh:      make(chan os.Signal, 1),
		interrupts: make(chan struct{}, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			for {
				select {
				case sig := <-sc.sigCh:
					if sig == syscall.SIGTERM {
						sc.Cancel()
						sc.Stop()
						return
					}
					// SIGINT: pulse without blocking; a second interrupt
					// while one is pending is collapsed into it.
					select {
					case sc.interrupts <- struct{}{}:
					default:
					}
				case <-sc.Context.Done():
					sc.Stop()
					return
				}
			}
		}()
	})

	return sc
}

// Interrupts returns the SIGINT pulse channel.
func (sc *SignalContext) Interrupts() <-chan struct{} {
	return sc.interrupts
}

// Stop detaches the signal handlers.
func (sc *SignalContext) Stop() {
	sc.stop.Do(func() { signal.Stop(sc.sigCh) })
}
