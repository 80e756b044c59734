// Package testutil builds the services on top of the in-memory database for tests.
package testutil

import (
	"context"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/eteeap/core"
	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/course"
	"github.com/trezcool/eteeap/core/evaluation"
	"github.com/trezcool/eteeap/core/user"
	"github.com/trezcool/eteeap/services/email"
	"github.com/trezcool/eteeap/services/filestore"
	"github.com/trezcool/eteeap/storage/database/inmem"
)

// Password satisfies the password policy for every user created by the helpers.
const Password = "v3ry-S3cure!pwd"

type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Files      core.FileStore
	Mail       core.EmailService

	UserRepo      user.Repository
	AssessorRepo  assessor.Repository
	ApplicantRepo applicant.Repository
	EvalRepo      evaluation.Repository

	UserSvc       *user.Service
	AssessorSvc   *assessor.Service
	ApplicantSvc  *applicant.Service
	EvaluationSvc *evaluation.Service
	CourseSvc     *course.Service
}

// NewEnv wires every service on a fresh in-memory database, a disk store in a temp dir and the silent mail mock.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewConfig()
	conf.TestMode = true
	conf.Storage.DiskRoot = t.TempDir()

	files, err := filestore.NewDiskStore(conf.Storage.DiskRoot)
	if err != nil {
		t.Fatalf("NewDiskStore(): %v", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	assessor.InitValidators(validate, translator)
	applicant.InitValidators(validate, translator)
	evaluation.InitValidators(validate, translator)

	db := inmemdb.Open()
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrRepo := inmemdb.NewUserRepository(db)
	asrRepo := inmemdb.NewAssessorRepository(db)
	appRepo := inmemdb.NewApplicantRepository(db)
	evalRepo := inmemdb.NewEvaluationRepository(db)

	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	asrSvc := assessor.NewService(asrRepo, usrSvc, appRepo, mailSvc)
	appSvc := applicant.NewService(appRepo, usrSvc, asrSvc, evalRepo, files, mailSvc)

	return &Env{
		Conf:          conf,
		DB:            db,
		Validate:      validate,
		Translator:    translator,
		Files:         files,
		Mail:          mailSvc,
		UserRepo:      usrRepo,
		AssessorRepo:  asrRepo,
		ApplicantRepo: appRepo,
		EvalRepo:      evalRepo,
		UserSvc:       usrSvc,
		AssessorSvc:   asrSvc,
		ApplicantSvc:  appSvc,
		EvaluationSvc: evaluation.NewService(evalRepo, appSvc),
		CourseSvc:     course.NewService(inmemdb.NewCourseRepository(db)),
	}
}

func CreateUser(t *testing.T, env *Env, name, email string, roles []string) user.User {
	t.Helper()
	usr, err := env.UserSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Email:           email,
		Password:        Password,
		PasswordConfirm: Password,
		Roles:           roles,
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateAssessor(t *testing.T, env *Env, name, email string, approved bool) assessor.Assessor {
	t.Helper()
	ctx := context.Background()
	asr, err := env.AssessorSvc.Register(ctx, assessor.NewAssessor{
		FullName:        name,
		Email:           email,
		Password:        Password,
		PasswordConfirm: Password,
		Expertise:       assessor.ExpertiseInformationTechnology,
		AssessorType:    assessor.TypeInternal,
	})
	if err != nil {
		t.Fatalf("CreateAssessor(): %v", err)
	}
	if approved {
		if asr, err = env.AssessorSvc.Update(ctx, asr.ID, assessor.UpdateAssessor{IsApproved: &approved}); err != nil {
			t.Fatalf("CreateAssessor(): %v", err)
		}
	}
	return asr
}

// CreateApplicant registers an applicant and fills their personal information.
func CreateApplicant(t *testing.T, env *Env, email, firstname, lastname string) applicant.Applicant {
	t.Helper()
	ctx := context.Background()
	a, err := env.ApplicantSvc.Register(ctx, applicant.NewApplicant{
		Email:           email,
		Password:        Password,
		PasswordConfirm: Password,
	})
	if err != nil {
		t.Fatalf("CreateApplicant(): %v", err)
	}
	a, err = env.ApplicantSvc.UpdatePersonalInfo(ctx, a.ID, applicant.PersonalInfo{
		Firstname:           firstname,
		Lastname:            lastname,
		MobileNumber:        "09171234567",
		FirstPriorityCourse: "BS Information Technology",
	})
	if err != nil {
		t.Fatalf("CreateApplicant(): %v", err)
	}
	return a
}

// PutUnderAssessment approves the applicant and assigns them to asr.
func PutUnderAssessment(t *testing.T, env *Env, a applicant.Applicant, asr assessor.Assessor) applicant.Applicant {
	t.Helper()
	ctx := context.Background()
	if _, err := env.ApplicantSvc.Approve(ctx, a.ID); err != nil {
		t.Fatalf("PutUnderAssessment(): %v", err)
	}
	a, err := env.ApplicantSvc.AssignAssessor(ctx, a.ID, asr.ID)
	if err != nil {
		t.Fatalf("PutUnderAssessment(): %v", err)
	}
	return a
}
