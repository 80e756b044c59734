package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/course"
	"github.com/trezcool/eteeap/core/evaluation"
	"github.com/trezcool/eteeap/core/user"
	emailsvc "github.com/trezcool/eteeap/services/email"
	"github.com/trezcool/eteeap/services/filestore"
	logsvc "github.com/trezcool/eteeap/services/logger"
	"github.com/trezcool/eteeap/services/spreadsheet"
	"github.com/trezcool/eteeap/storage/database"
	sqlxrepos "github.com/trezcool/eteeap/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	rl := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	rl.Enable(false)
	logger = rl

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	files, err := filestore.New(context.Background(), conf)
	errAndDie(err)

	// set up services
	mailSvc := emailsvc.NewConsoleService(conf)
	appRepo := sqlxrepos.NewApplicantRepository(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf)
	asrSvc := assessor.NewService(sqlxrepos.NewAssessorRepository(db), usrSvc, appRepo, mailSvc)
	evalRepo := sqlxrepos.NewEvaluationRepository(db)
	appSvc := applicant.NewService(appRepo, usrSvc, asrSvc, evalRepo, files, mailSvc)
	evalSvc := evaluation.NewService(evalRepo, appSvc)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		out:       os.Stdout,
		usrSvc:    usrSvc,
		courseSvc: course.NewService(sqlxrepos.NewCourseRepository(db)),
		reporter:  spreadsheet.NewReporter(appSvc, asrSvc, evalSvc),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("command failed", err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
