// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

package services

import (
	"context"
)

// StartStopper is the lifecycle surface of the integration poller
// manager.
type StartStopper interface {
	Start(ctx context.Context)
	Stop()
}

// PollerService runs the integration poller manager under supervision.
type PollerService struct {
	Manager StartStopper
}

// Serve implements suture.Service. The poller manager runs its own
// goroutines; Serve just ties their lifetime to the supervisor's context.
func (s *PollerService) Serve(ctx context.Context) error {
	s.Manager.Start(ctx)
	<-ctx.Done()
	s.Manager.Stop()
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *PollerService) String() string { return "integration-pollers" }
