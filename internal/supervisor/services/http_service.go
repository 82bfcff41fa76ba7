// Homeglass - Self-Hosted Home Dashboard Backend
// Copyright 2026 A. Henriksen (ahenriksen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ahenriksen/homeglass

// Package services adapts Homeglass components to suture's Serve
// contract.
package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ahenriksen/homeglass/internal/logging"
)

// HTTPService runs an http.Server under supervision. Serve blocks until
// the context is canceled, then drains connections within
// ShutdownTimeout.
type HTTPService struct {
	Server          *http.Server
	ShutdownTimeout time.Duration
}

// Serve implements suture.Service.
func (s *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.Server.Addr).Msg("http server listening")
		errCh <- s.Server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	if err := s.Server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("http server shutdown incomplete, closing")
		s.Server.Close()
	}
	<-errCh
	logging.Info().Msg("http server stopped")
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *HTTPService) String() string { return "http-server" }
