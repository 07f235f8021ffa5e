package tests

import (
	"net/http"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/certdesk/apps/api/echo"
	"github.com/trezcool/certdesk/core/user"
)

func Test_userApi_login(t *testing.T) {
	app, env := setup(t)
	invalidCreds := marshallObj(t, httpErr{Error: "Invalid credentials"})

	tests := []struct {
		httpTest
		wantID   string
		wantRole user.Role
	}{
		{httpTest: httpTest{name: "student by username", body: []byte(`{"username":"student","password":"pass","role":"student"}`), wantCode: http.StatusOK}, wantID: "STU001", wantRole: user.RoleStudent},
		{httpTest: httpTest{name: "advisor by username", body: []byte(`{"username":"advisor","password":"pass"}`), wantCode: http.StatusOK}, wantID: "FAC001", wantRole: user.RoleTeacher},
		{httpTest: httpTest{name: "by ID (case-insensitive)", body: []byte(`{"username":"org001","password":"pass"}`), wantCode: http.StatusOK}, wantID: "ORG001", wantRole: user.RoleOrganizer},
		{httpTest: httpTest{name: "role is ignored", body: []byte(`{"username":"admin","password":"pass","role":"student"}`), wantCode: http.StatusOK}, wantID: "ADM001", wantRole: user.RoleAdmin},
		{httpTest: httpTest{name: "wrong password", body: []byte(`{"username":"student","password":"nope"}`), wantCode: http.StatusUnauthorized, wantData: invalidCreds}},
		{httpTest: httpTest{name: "unknown user", body: []byte(`{"username":"ghost","password":"pass"}`), wantCode: http.StatusUnauthorized, wantData: invalidCreds}},
		{
			httpTest: httpTest{
				name: "password required", body: []byte(`{"username":"student"}`), wantCode: http.StatusBadRequest,
				wantData: marshallObj(t, httpErr{
					Error:  "password: this field is required",
					Fields: map[string]string{"password": "this field is required"},
				}),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt.httpTest, rec)

			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				decode(t, rec, &resp)
				assert.True(t, resp.Success)
				assert.Equal(t, tt.wantID, resp.User.ID)
				assert.Equal(t, tt.wantRole, resp.User.Role)
				assert.False(t, resp.User.LastLogin.IsZero())

				claims := new(echoapi.Claims)
				_, err := jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
					return []byte(env.Conf.SecretKey), nil
				})
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, claims.Subject)
			}
		})
	}
}

func Test_userApi_register(t *testing.T) {
	app, _ := setup(t)
	pwd := "Xq7#Lm9$zW"

	tests := []httpTest{
		{
			name:     "registered",
			body:     []byte(`{"name":"Jane Roe","email":"Jane@Test.cd","role":"student","password":"` + pwd + `"}`),
			wantCode: http.StatusCreated,
		},
		{
			name:     "email taken",
			body:     []byte(`{"name":"Jane Again","email":"jane@test.cd","role":"teacher","password":"` + pwd + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "User already exists", Fields: map[string]string{"email": "User already exists"}}),
		},
		{
			name:     "email required",
			body:     []byte(`{"name":"No Mail","role":"student","password":"` + pwd + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{Error: "email: this field is required", Fields: map[string]string{"email": "this field is required"}}),
		},
		{
			name:     "unknown role",
			body:     []byte(`{"name":"Jim Doe","email":"jim@test.cd","role":"janitor","password":"` + pwd + `"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error:  "role: role must be one of: student, teacher, organizer, admin",
				Fields: map[string]string{"role": "role must be one of: student, teacher, organizer, admin"},
			}),
		},
		{
			name:     "password too similar",
			body:     []byte(`{"name":"Jim Doe","email":"jim@test.cd","role":"student","password":"jimdoe"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, httpErr{
				Error:  "password: password cannot be similar to user attributes",
				Fields: map[string]string{"password": "password cannot be similar to user attributes"},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/register", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("allocated ID", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/api/login", []byte(`{"email":"jane@test.cd","password":"`+pwd+`"}`))
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		assert.Equal(t, "STU004", resp.User.ID)
		assert.Equal(t, "Jane Roe", resp.User.Name)
	})
}

func Test_userApi_adminCreateUser(t *testing.T) {
	app, _ := setup(t)
	pwd := "Xq7#Lm9$zW"

	tests := []struct {
		httpTest
		wantID string
	}{
		{
			httpTest: httpTest{name: "student", body: []byte(`{"role":"student","name":"Mia Paul","password":"` + pwd + `","class_id":"S2","dept":"CSE"}`), wantCode: http.StatusCreated},
			wantID:   "STU004",
		},
		{
			httpTest: httpTest{name: "advisor alias", body: []byte(`{"role":"advisor","name":"Dr. Rao","password":"` + pwd + `","class_id":"S2","dept":"ECE"}`), wantCode: http.StatusCreated},
			wantID:   "FAC002",
		},
		{
			httpTest: httpTest{name: "organizer", body: []byte(`{"role":"organizer","name":"Arts Club","password":"` + pwd + `","club_name":"Arts Club"}`), wantCode: http.StatusCreated},
			wantID:   "ORG002",
		},
		{
			httpTest: httpTest{
				name: "student without class", body: []byte(`{"role":"student","name":"Mia Paul","password":"` + pwd + `"}`), wantCode: http.StatusBadRequest,
				wantData: marshallObj(t, httpErr{
					Error:  "class_id: class_id is required for this role",
					Fields: map[string]string{"class_id": "class_id is required for this role", "dept": "dept is required for this role"},
				}),
			},
		},
		{
			httpTest: httpTest{
				name: "organizer without club", body: []byte(`{"role":"organizer","name":"Arts Club","password":"` + pwd + `"}`), wantCode: http.StatusBadRequest,
				wantData: marshallObj(t, httpErr{
					Error:  "club_name: club_name is required for this role",
					Fields: map[string]string{"club_name": "club_name is required for this role"},
				}),
			},
		},
		{
			httpTest: httpTest{
				name: "name required", body: []byte(`{"role":"admin","password":"` + pwd + `"}`), wantCode: http.StatusBadRequest,
				wantData: marshallObj(t, httpErr{Error: "name: this field is required", Fields: map[string]string{"name": "this field is required"}}),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/admin/create-user", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt.httpTest, rec)

			if tt.wantID != "" {
				var resp echoapi.UserResponse
				decode(t, rec, &resp)
				assert.True(t, resp.Success)
				assert.Equal(t, tt.wantID, resp.User.ID)
			}
		})
	}
}

func Test_userApi_adminUsers(t *testing.T) {
	app, _ := setup(t)

	tests := []struct {
		name    string
		path    string
		wantIDs []string
	}{
		{name: "all", path: "/api/admin/users", wantIDs: []string{"ADM001", "FAC001", "ORG001", "STU001", "STU002", "STU003"}},
		{name: "students", path: "/api/admin/users?role=student", wantIDs: []string{"STU001", "STU002", "STU003"}},
		{name: "advisors", path: "/api/admin/users?role=advisor", wantIDs: []string{"FAC001"}},
		{name: "students of a dept", path: "/api/admin/users?role=student&dept=ece", wantIDs: []string{"STU003"}},
		{name: "unknown role", path: "/api/admin/users?role=janitor", wantIDs: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)

			var users []user.User
			decode(t, rec, &users)
			ids := make([]string, 0, len(users))
			for _, u := range users {
				ids = append(ids, u.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func Test_userApi_dashboards(t *testing.T) {
	app, _ := setup(t)

	t.Run("student", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/student/STU001")
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp echoapi.StudentResponse
		decode(t, rec, &resp)
		assert.True(t, resp.Success)
		assert.Equal(t, "Anusree K Jinan", resp.Student.Name)
		require.Len(t, resp.Certificates, 2)
		for _, c := range resp.Certificates {
			assert.Equal(t, "STU001", c.StudentID)
		}
	})

	t.Run("teacher", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/api/teacher/FAC001")
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp echoapi.TeacherResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Dr. John Mathew", resp.Teacher.Name)
		require.Len(t, resp.Students, 2) // CSE only
		assert.Equal(t, "STU001", resp.Students[0].ID)
		assert.Equal(t, "STU002", resp.Students[1].ID)
		assert.Len(t, resp.Certificates, 3)
	})

	notFound := []httpTest{
		{name: "unknown student", path: "/api/student/STU999", wantData: marshallObj(t, httpErr{Error: "Student not found"})},
		{name: "teacher is not a student", path: "/api/student/FAC001", wantData: marshallObj(t, httpErr{Error: "Student not found"})},
		{name: "unknown teacher", path: "/api/teacher/FAC999", wantData: marshallObj(t, httpErr{Error: "Teacher not found"})},
	}
	for _, tt := range notFound {
		tt.wantCode = http.StatusNotFound
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
