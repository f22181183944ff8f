// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	bannerouter "opengauss.org/monitor-publisher-go/internal/banner"
	cfgloader "opengauss.org/monitor-publisher-go/internal/config"
	"opengauss.org/monitor-publisher-go/internal/metrics"
	"opengauss.org/monitor-publisher-go/internal/publisher"
	pubserver "opengauss.org/monitor-publisher-go/internal/server"
	configtypes "opengauss.org/monitor-publisher-go/internal/types/config"
	errtypes "opengauss.org/monitor-publisher-go/internal/types/err"
	servertypes "opengauss.org/monitor-publisher-go/internal/types/server"
)

var (
	cfgPath string
)

type Runner[I servertypes.Info] interface {
	Start(ctx context.Context) error
	Info() I
	Close() error
}

func ServerCommand() *cobra.Command {

	cmd := &cobra.Command{
		Use:     "server",
		Aliases: []string{"server", "srv", "s"},
		Short:   "Serve the openGauss monitor publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return server(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "config file path")
	return cmd
}

func getConfigByPath() (*cfgloader.Loader, *configtypes.PublisherConfig, error) {

	loader := cfgloader.New(cfgPath)
	cfg, err := loader.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	if err := loader.ValidateConfig(cfg); err != nil {
		return nil, nil, err
	}

	return loader, cfg, nil
}

func server(ctx context.Context, logOut io.Writer) error {

	loader, cfg, err := getConfigByPath()
	if err != nil {
		return err
	}
	cfgloader.SetGlobalConfig(cfg)

	publisherServer := pubserver.New(cfg, logOut)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	banner := bannerouter.New(&bannerouter.Config{
		Server: *publisherServer,
	})
	err = banner.PrintBanner(cfg.Publisher.Info.Name, strconv.Itoa(cfg.Publisher.Metrics.Port))
	if err != nil {
		return err
	}

	go func() {
		if err := loader.WatchConfigAndReload(ctx); err != nil && ctx.Err() == nil {
			publisherServer.Logger.Error(err, "config watcher exited")
		}
	}()

	return startRunners(ctx, loader, publisherServer)
}

func startRunners(ctx context.Context, loader *cfgloader.Loader, srv *pubserver.Server) error {

	publisherRunner, err := publisher.New(srv, loader.ActivateDelay(srv.Config))
	if err != nil {
		return err
	}

	metricsRunner := metrics.NewRunner(
		srv.Config.Publisher.Metrics.Port,
		publisherRunner.SelfRegistry(),
		publisherRunner.SeriesHandler(),
		srv.Logger,
	)

	runners := []struct {
		runner Runner[servertypes.Info]
	}{
		{publisherRunner},
		{metricsRunner},
	}

	errCh := make(chan error, len(runners))

	var wg sync.WaitGroup

	for _, r := range runners {
		wg.Add(1)
		go func(runner Runner[servertypes.Info]) {
			defer wg.Done()
			srv.Logger.Info("Starting runner", "runner component", runner.Info().Name)
			if err := runner.Start(ctx); err != nil {
				select {
				case errCh <- err:
				default:
				}
			}
		}(r.runner)
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)

	cleanup := func() {
		signal.Stop(signalCh)
		for _, r := range runners {
			if err := r.runner.Close(); err != nil {
				srv.Logger.Info("error closing runner", "runner", r.runner.Info().Name, "error", err)
			}
		}
	}

	select {
	case <-ctx.Done():
		srv.Logger.Info("Context cancelled")
		cleanup()
		return ctx.Err()
	case sig := <-signalCh:
		srv.Logger.Info("Received signal", "signal", sig.String())
		cleanup()
		return nil
	case err := <-errCh:
		cleanup()
		srv.Logger.Error(errtypes.PublisherServerStop, "runner error", "error", err)
		return err
	}
}
