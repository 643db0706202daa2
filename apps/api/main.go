package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/shieldhq/shield/apps/api/echo"
	"github.com/shieldhq/shield/core"
	"github.com/shieldhq/shield/core/catalog"
	"github.com/shieldhq/shield/core/certificate"
	"github.com/shieldhq/shield/core/org"
	"github.com/shieldhq/shield/core/scoring"
	emailsvc "github.com/shieldhq/shield/services/email"
	logsvc "github.com/shieldhq/shield/services/logger"
	pdfsvc "github.com/shieldhq/shield/services/pdf"
	rendersvc "github.com/shieldhq/shield/services/render"
	"github.com/shieldhq/shield/storage/database"
	sqlxrepos "github.com/shieldhq/shield/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	var logger core.Logger
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	if conf.Debug || conf.RollbarToken == "" {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	orgSvc := org.NewService(sqlxrepos.NewOrganizationRepository(db), mailSvc, conf)
	catalogSvc := catalog.NewService(sqlxrepos.NewCatalogRepository(db))
	scoringSvc := scoring.NewService(sqlxrepos.NewSubmissionRepository(db), catalogSvc, logger, conf)

	renderQueue := rendersvc.NewQueue(pdfsvc.NewRenderer(conf), nil, logger, conf)
	certSvc := certificate.NewService(
		sqlxrepos.NewCertificateRepository(db),
		scoringSvc, orgSvc, renderQueue, mailSvc, logger, conf,
	)
	renderQueue.SetSink(certSvc)
	renderQueue.Start()
	defer renderQueue.Stop()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidators()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	if conf.Debug {
		go func() {
			if err := http.ListenAndServe("localhost:6060", http.DefaultServeMux); err != nil {
				logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
			}
		}()
	}

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Address:        fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port),
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		OrgSvc:         orgSvc,
		CatalogSvc:     catalogSvc,
		ScoringSvc:     scoringSvc,
		CertificateSvc: certSvc,
		SignalShutdown: func() { shutdown <- syscall.SIGTERM },
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
