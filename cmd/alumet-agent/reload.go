package main

import (
	"context"
	"time"

	"alumet/control"
	"alumet/internal/config"
	"alumet/internal/telemetry/logging"
	"alumet/naming"
	"alumet/trigger"
	"alumet/versioned"
)

// applyConfigReloads watches cell for the reloads the config watcher
// pushes into it and translates a changed poll_interval/flush_interval/
// update_interval into a SetTrigger control message for every running
// source, so the new cadence takes effect without restarting the
// pipeline.
func applyConfigReloads(cell *versioned.Versioned[config.Config], ctrl *control.AnonymousHandle, stop <-chan struct{}, log logging.Logger) {
	if ctrl == nil {
		return
	}
	_, version := cell.Read()
	for {
		select {
		case <-stop:
			return
		case <-cell.Changed():
		}

		cfg, next := cell.Read()
		if next == version {
			continue
		}
		version = next

		spec, err := trigger.NewInterval(cfg.PollInterval).
			FlushInterval(cfg.FlushInterval).
			UpdateInterval(cfg.UpdateInterval).
			Build()
		if err != nil {
			log.WarnCtx(context.Background(), "reloaded config produced an invalid trigger, keeping the running one", "err", err.Error())
			continue
		}
		if err := ctrl.SendWait(control.Message{
			Kind:       control.KindSource,
			Selector:   naming.All(),
			SetTrigger: &spec,
		}, time.Second); err != nil {
			log.WarnCtx(context.Background(), "could not push reloaded trigger to running sources", "err", err.Error())
		}
	}
}
