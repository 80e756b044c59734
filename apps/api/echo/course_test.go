package echoapi

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/eteeap/core/course"
	"github.com/trezcool/eteeap/core/user"
	"github.com/trezcool/eteeap/testutil"
)

func coursesSheet(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func Test_courseApi_courses(t *testing.T) {
	s := setup(t)
	adminToken := s.token(t, testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin}))
	a := testutil.CreateApplicant(t, s.env, "juan@test.ph", "Juan", "Dela Cruz")
	appToken := s.token(t, s.userOf(t, a.UserID))

	var bsit course.Course
	t.Run("create", func(t *testing.T) {
		tt := httpTest{
			method: http.MethodPost, path: "/api/courses", token: appToken,
			body:     marchallObj(t, course.NewCourse{Name: "BSIT", Duration: 48}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		}
		checkCodeAndData(t, tt, s.do(tt))

		rec := s.do(httpTest{
			method: http.MethodPost, path: "/api/courses", token: adminToken,
			body: marchallObj(t, course.NewCourse{Name: " BS Information Technology ", Description: "IT program", Duration: 48}),
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		unmarchall(t, rec, &bsit)
		assert.Equal(t, "BS Information Technology", bsit.Name)
		assert.Equal(t, course.StatusActive, bsit.Status)

		tt = httpTest{
			method: http.MethodPost, path: "/api/courses", token: adminToken,
			body:     marchallObj(t, course.NewCourse{Name: "bs information technology", Duration: 48}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"name": course.ErrNameExists.Error()}),
		}
		checkCodeAndData(t, tt, s.do(tt))

		tt = httpTest{
			method: http.MethodPost, path: "/api/courses", token: adminToken,
			body: marchallObj(t, course.NewCourse{Name: "BS Nursing", Duration: 500}), wantCode: http.StatusBadRequest,
		}
		checkCode(t, tt, s.do(tt))
	})

	t.Run("read", func(t *testing.T) {
		rec := s.do(httpTest{path: "/api/courses?search=information", token: appToken})
		checkCode(t, httpTest{}, rec)
		var courses []course.Course
		unmarchall(t, rec, &courses)
		require.Len(t, courses, 1)
		assert.Equal(t, bsit.ID, courses[0].ID)

		rec = s.do(httpTest{path: "/api/courses/" + bsit.ID, token: appToken})
		checkCode(t, httpTest{}, rec)

		tt := httpTest{path: "/api/courses/lol", token: appToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})}
		checkCodeAndData(t, tt, s.do(tt))
	})

	t.Run("update", func(t *testing.T) {
		rec := s.do(httpTest{
			method: http.MethodPut, path: "/api/courses/" + bsit.ID, token: adminToken,
			body: marchallObj(t, course.UpdateCourse{Status: course.StatusInactive}),
		})
		checkCode(t, httpTest{}, rec)
		var c course.Course
		unmarchall(t, rec, &c)
		assert.Equal(t, course.StatusInactive, c.Status)
		assert.Equal(t, bsit.Name, c.Name)
	})

	t.Run("import", func(t *testing.T) {
		data := coursesSheet(t,
			[]interface{}{"Name", "Description", "Duration", "Status"},
			[]interface{}{"BS Information Technology", "dup", 48, "active"},
			[]interface{}{"BS Accountancy", "", 48, ""},
			[]interface{}{"BS Criminology", "", "forever", "active"},
		)
		req, rec := newMultipartRequest(t, "/api/courses/import", adminToken, upload{field: "file", filename: "courses.xlsx", content: data})
		s.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var report course.ImportReport
		unmarchall(t, rec, &report)
		require.Len(t, report.Created, 1)
		assert.Equal(t, "BS Accountancy", report.Created[0].Name)
		assert.Equal(t, []string{"BS Information Technology"}, report.Skipped)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, 4, report.Errors[0].Row)

		req, rec = newMultipartRequest(t, "/api/courses/import", adminToken, upload{field: "file", filename: "courses.csv", content: []byte("a,b")})
		s.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		req, rec = newMultipartRequest(t, "/api/courses/import", appToken, upload{field: "file", filename: "courses.xlsx", content: data})
		s.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		tt := httpTest{method: http.MethodDelete, path: "/api/courses/" + bsit.ID, token: adminToken, wantCode: http.StatusNoContent}
		checkCode(t, tt, s.do(tt))
		tt = httpTest{path: "/api/courses/" + bsit.ID, token: adminToken, wantCode: http.StatusNotFound}
		checkCode(t, tt, s.do(tt))
	})
}

func Test_courseApi_students(t *testing.T) {
	s := setup(t)
	token := s.token(t, testutil.CreateUser(t, s.env, "Admin", "admin@test.ph", []string{user.RoleAdmin}))
	bsit, err := s.env.CourseSvc.Create(bgCtx, course.NewCourse{Name: "BSIT", Duration: 48, Status: course.StatusActive})
	require.NoError(t, err)

	var student course.Student
	t.Run("create", func(t *testing.T) {
		tests := []struct {
			httpTest
			body course.NewStudent
		}{
			{
				httpTest: httpTest{name: "unknown course", wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"course_id": "unknown course"})},
				body:     course.NewStudent{Name: "Juan", CourseID: "lol", EnrollmentDate: "2024-06-01"},
			},
			{
				httpTest: httpTest{name: "bad date", wantCode: http.StatusBadRequest},
				body:     course.NewStudent{Name: "Juan", CourseID: bsit.ID, EnrollmentDate: "06/01/2024"},
			},
			{
				httpTest: httpTest{name: "ok", wantCode: http.StatusCreated},
				body:     course.NewStudent{Name: "Juan Dela Cruz", CourseID: bsit.ID, EnrollmentDate: "2024-06-01"},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tt.method = http.MethodPost
				tt.path = "/api/students"
				tt.token = token
				tt.httpTest.body = marchallObj(t, tt.body)
				rec := s.do(tt.httpTest)
				if tt.wantData != nil {
					checkCodeAndData(t, tt.httpTest, rec)
					return
				}
				checkCode(t, tt.httpTest, rec)
				if rec.Code == http.StatusCreated {
					unmarchall(t, rec, &student)
				}
			})
		}
		assert.Equal(t, "BSIT", student.CourseName)
	})

	t.Run("list and update", func(t *testing.T) {
		rec := s.do(httpTest{path: "/api/students?course=" + bsit.ID, token: token})
		checkCode(t, httpTest{}, rec)
		var students []course.Student
		unmarchall(t, rec, &students)
		require.Len(t, students, 1)

		rec = s.do(httpTest{
			method: http.MethodPut, path: "/api/students/" + student.ID, token: token,
			body: marchallObj(t, course.UpdateStudent{Status: course.StudentStatus("graduated")}),
		})
		checkCode(t, httpTest{}, rec)
		var got course.Student
		unmarchall(t, rec, &got)
		assert.Equal(t, course.StudentStatus("graduated"), got.Status)
	})

	t.Run("course in use", func(t *testing.T) {
		tt := httpTest{method: http.MethodDelete, path: "/api/courses/" + bsit.ID, token: token, wantCode: http.StatusUnprocessableEntity}
		checkCode(t, tt, s.do(tt))
	})

	t.Run("delete", func(t *testing.T) {
		tt := httpTest{method: http.MethodDelete, path: "/api/students/" + student.ID, token: token, wantCode: http.StatusNoContent}
		checkCode(t, tt, s.do(tt))
		tt = httpTest{path: "/api/students/" + student.ID, token: token, wantCode: http.StatusNotFound}
		checkCode(t, tt, s.do(tt))
	})
}
