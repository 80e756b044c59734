package inmemdb

import (
	"sync"

	"github.com/trezcool/eteeap/core/applicant"
	"github.com/trezcool/eteeap/core/assessor"
	"github.com/trezcool/eteeap/core/course"
	"github.com/trezcool/eteeap/core/evaluation"
	"github.com/trezcool/eteeap/core/user"
)

// DB keeps every aggregate in memory. It backs the tests and local runs without postgres.
type (
	DB struct {
		user       *userTable
		assessor   *assessorTable
		applicant  *applicantTable
		evaluation *evaluationTable
		course     *courseTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	assessorTable struct {
		sync.RWMutex
		table map[string]*assessor.Assessor
	}

	applicantTable struct {
		sync.RWMutex
		table     map[string]*applicant.Applicant
		documents map[string]*applicant.Document
	}

	evaluationTable struct {
		sync.RWMutex
		table  map[string]*evaluation.Evaluation // by applicant ID
		points []evaluation.PointsEntry
	}

	courseTable struct {
		sync.RWMutex
		table    map[string]*course.Course
		students map[string]*course.Student
	}
)

func Open() *DB {
	return &DB{
		user:     &userTable{table: make(map[string]*user.User)},
		assessor: &assessorTable{table: make(map[string]*assessor.Assessor)},
		applicant: &applicantTable{
			table:     make(map[string]*applicant.Applicant),
			documents: make(map[string]*applicant.Document),
		},
		evaluation: &evaluationTable{table: make(map[string]*evaluation.Evaluation)},
		course: &courseTable{
			table:    make(map[string]*course.Course),
			students: make(map[string]*course.Student),
		},
	}
}
