package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"distorage/internal/bootstrap"
	"distorage/internal/chordring"
	"distorage/internal/client"
	"distorage/internal/config"
	"distorage/internal/dispatch"
	"distorage/internal/domain"
	"distorage/internal/logger"
	zapfactory "distorage/internal/logger/zap"
	"distorage/internal/peer"
	"distorage/internal/rpcproto"
	"distorage/internal/server"
	"distorage/internal/telemetry"
)

var defaultConfigPath = "config/server/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	peerLis, peerAddr, err := server.Listen(cfg.Ring.Mode, "", cfg.Node.Host, cfg.Node.PeerControlPort)
	if err != nil {
		lgr.Error("failed to open peer-control listener", logger.F("err", err))
		os.Exit(1)
	}
	dhtLis, dhtAddr, err := server.Listen(cfg.Ring.Mode, "", cfg.Node.Host, cfg.Node.DHTPort)
	if err != nil {
		lgr.Error("failed to open DHT listener", logger.F("err", err))
		os.Exit(1)
	}
	clientLis, clientAddr, err := server.Listen(cfg.Ring.Mode, "", cfg.Node.Host, cfg.Node.ClientPort)
	if err != nil {
		lgr.Error("failed to open client listener", logger.F("err", err))
		os.Exit(1)
	}
	lgr.Info("listeners ready",
		logger.F("peerControl", peerAddr),
		logger.F("dht", dhtAddr),
		logger.F("client", clientAddr),
	)

	space, err := domain.NewSpace(cfg.Ring.IDBits)
	if err != nil {
		lgr.Error("failed to initialize identifier space", logger.F("err", err))
		os.Exit(1)
	}

	selfClients := &domain.Node{ID: space.NewIdFromString(dhtAddr), Addr: dhtAddr}
	selfData := &domain.Node{ID: space.NewIdFromString(dhtAddr), Addr: dhtAddr}

	shutdownTracer := telemetry.InitTracer(cfg.Telemetry, "distorage-server", selfClients.ID)
	defer shutdownTracer(context.Background())

	pool := client.NewPool(client.WithLogger(lgr.Named("clientpool")))
	defer pool.CloseAll()

	ringClients := chordring.New(selfClients, domain.RingClients, space, cfg.Cluster.Secret, cfg.Storage.Root, pool,
		chordring.WithLogger(lgr.Named("ring.clients")))
	ringData := chordring.New(selfData, domain.RingData, space, cfg.Cluster.Secret, cfg.Storage.Root, pool,
		chordring.WithLogger(lgr.Named("ring.data")))

	mgr := peer.New(peerAddr, cfg.Cluster.Secret, pool, ringClients, ringData,
		peer.WithLogger(lgr.Named("peer")))

	dhtAdapter := chordring.NewDHTAdapter(cfg.Cluster.Secret, ringClients, ringData, lgr.Named("dht"))
	peerAdapter := peer.NewPeerControlAdapter(mgr)
	clientAdapter := dispatch.New(mgr, lgr.Named("dispatch"))

	tracingEnabled := cfg.Telemetry.Tracing.Enabled
	peerSrv := server.New(peerLis, &rpcproto.PeerControlServiceDesc, peerAdapter, server.WithTracing(tracingEnabled), server.WithLogger(lgr.Named("server.peer")))
	dhtSrv := server.New(dhtLis, &rpcproto.DHTServiceDesc, dhtAdapter, server.WithTracing(tracingEnabled), server.WithLogger(lgr.Named("server.dht")))
	clientSrv := server.New(clientLis, &rpcproto.ClientServiceDesc, clientAdapter, server.WithTracing(tracingEnabled), server.WithLogger(lgr.Named("server.client")))

	serveErr := make(chan error, 3)
	go func() { serveErr <- peerSrv.Start() }()
	go func() { serveErr <- dhtSrv.Start() }()
	go func() { serveErr <- clientSrv.Start() }()
	lgr.Info("servers started")

	bootstrapper, err := newBootstrap(cfg.Cluster.Bootstrap, cfg.Node.PeerControlPort)
	if err != nil {
		lgr.Error("failed to initialize bootstrap strategy", logger.F("err", err))
		os.Exit(1)
	}

	joinCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	peers, err := bootstrapper.Discover(joinCtx)
	cancel()
	if err != nil {
		lgr.Error("failed to resolve bootstrap peers", logger.F("err", err))
		os.Exit(1)
	}
	lgr.Info("resolved bootstrap peers", logger.F("peers", peers))

	for _, p := range peers {
		if p == peerAddr {
			continue
		}
		if err := mgr.Announce(p); err != nil {
			lgr.Warn("failed to announce to bootstrap peer", logger.F("peer", p), logger.F("err", err))
		}
	}

	joinCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if len(peers) == 0 {
		lgr.Info("no bootstrap peers found, starting a new cluster")
	} else if err := ringClients.Join(joinCtx, peers[0]); err != nil {
		lgr.Warn("failed to join clients ring, starting alone", logger.F("err", err))
	}
	cancel()

	joinCtx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if len(peers) != 0 {
		if err := ringData.Join(joinCtx, peers[0]); err != nil {
			lgr.Warn("failed to join data ring, starting alone", logger.F("err", err))
		}
	}
	cancel()

	regCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapper.Register(regCtx, selfClients); err != nil {
		lgr.Warn("failed to register with bootstrap registry", logger.F("err", err))
	}
	cancel()
	mgr.MarkStarted()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	ringClients.StartStabilizers(ctx, cfg.Ring.StabilizeInterval, cfg.Ring.FixFingersInterval, cfg.Ring.CheckPredecessorInterval)
	ringData.StartStabilizers(ctx, cfg.Ring.StabilizeInterval, cfg.Ring.FixFingersInterval, cfg.Ring.CheckPredecessorInterval)
	mgr.StartWorkers(ctx, cfg.Cluster.DiscoverInterval, cfg.Cluster.StaleSweepInterval, cfg.Storage.RepairInterval, cfg.Cluster.StaleTimeout)
	lgr.Info("background workers started")

	select {
	case <-ctx.Done():
		lgr.Info("shutdown signal received, stopping gracefully")
		stop()

		deregCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := bootstrapper.Deregister(deregCtx, selfClients); err != nil {
			lgr.Warn("failed to deregister", logger.F("err", err))
		}
		cancel()

		done := make(chan struct{})
		go func() {
			peerSrv.GracefulStop()
			dhtSrv.GracefulStop()
			clientSrv.GracefulStop()
			close(done)
		}()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		select {
		case <-done:
			lgr.Info("servers stopped gracefully")
		case <-shutdownCtx.Done():
			lgr.Warn("graceful stop timed out, forcing shutdown")
			peerSrv.Stop()
			dhtSrv.Stop()
			clientSrv.Stop()
		}
	case err := <-serveErr:
		lgr.Error("a gRPC server terminated unexpectedly", logger.F("err", err))
		stop()
		peerSrv.Stop()
		dhtSrv.Stop()
		clientSrv.Stop()
		os.Exit(1)
	}
}

func newBootstrap(cfg config.BootstrapConfig, peerControlPort int) (bootstrap.Bootstrap, error) {
	switch cfg.Mode {
	case "init":
		return bootstrap.NewStaticBootstrap(nil), nil
	case "static":
		return bootstrap.NewStaticBootstrap(cfg.Peers), nil
	case "subnet":
		return bootstrap.NewSubnetBootstrap(cfg.SubnetCIDR, peerControlPort, 0, 0), nil
	case "dns":
		return bootstrap.NewRoute53Bootstrap(cfg.Register.HostedZoneID, cfg.Register.DomainSuffix, cfg.Register.TTL)
	default:
		return nil, fmt.Errorf("unsupported bootstrap mode: %s", cfg.Mode)
	}
}
