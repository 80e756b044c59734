package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/eteeap/apps/api/echo"
	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/course"
	"github.com/trezcool/eteeap/core/evaluation"
	"github.com/trezcool/eteeap/core/user"
	emailsvc "github.com/trezcool/eteeap/services/email"
	"github.com/trezcool/eteeap/services/filestore"
	logsvc "github.com/trezcool/eteeap/services/logger"
	"github.com/trezcool/eteeap/services/scheduler"
	"github.com/trezcool/eteeap/services/spreadsheet"
	"github.com/trezcool/eteeap/storage/database"
	inmemdb "github.com/trezcool/eteeap/storage/database/inmem"
	sqlxrepos "github.com/trezcool/eteeap/storage/database/sqlx"
)

// repositories groups the storage of every aggregate.
type repositories struct {
	user       user.Repository
	assessor   assessor.Repository
	applicant  applicant.Repository
	evaluation evaluation.Repository
	course     course.Repository
	close      func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Flush()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up document storage
	files, err := filestore.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(logger, conf)
	}
	usrSvc := user.NewService(repos.user, mailSvc, conf)
	asrSvc := assessor.NewService(repos.assessor, usrSvc, repos.applicant, mailSvc)
	appSvc := applicant.NewService(repos.applicant, usrSvc, asrSvc, repos.evaluation, files, mailSvc)
	evalSvc := evaluation.NewService(repos.evaluation, appSvc)
	courseSvc := course.NewService(repos.course)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	assessor.InitValidators(validate, translator)
	applicant.InitValidators(validate, translator)
	evaluation.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start Assessment Reminders

	if conf.Reminder.Enabled {
		stop := scheduler.NewReminder(appSvc, asrSvc, mailSvc, logger, conf.Reminder).Start()
		defer stop()
	}

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			UserSvc:       usrSvc,
			AssessorSvc:   asrSvc,
			ApplicantSvc:  appSvc,
			EvaluationSvc: evalSvc,
			CourseSvc:     courseSvc,
			Reporter:      spreadsheet.NewReporter(appSvc, asrSvc, evalSvc),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpRepositories opens the configured database. The "memory" engine keeps everything in memory, for demos.
func setUpRepositories(conf *core.Config) (repositories, error) {
	if conf.Database.Engine == "memory" {
		db := inmemdb.Open()
		return repositories{
			user:       inmemdb.NewUserRepository(db),
			assessor:   inmemdb.NewAssessorRepository(db),
			applicant:  inmemdb.NewApplicantRepository(db),
			evaluation: inmemdb.NewEvaluationRepository(db),
			course:     inmemdb.NewCourseRepository(db),
			close:      func() error { return nil },
		}, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return repositories{}, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return repositories{}, err
	}
	if err = database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return repositories{}, err
	}
	return repositories{
		user:       sqlxrepos.NewUserRepository(db),
		assessor:   sqlxrepos.NewAssessorRepository(db),
		applicant:  sqlxrepos.NewApplicantRepository(db),
		evaluation: sqlxrepos.NewEvaluationRepository(db),
		course:     sqlxrepos.NewCourseRepository(db),
		close:      db.Close,
	}, nil
}
