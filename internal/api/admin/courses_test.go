package admin

import (
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

var courseCols = []string{
	"id", "title", "slug", "description", "instructor_id", "published",
	"created_at", "updated_at", "instructor_name", "enrolled_count",
}

var courseSlugCols = []string{
	"id", "title", "slug", "description", "instructor_id", "published",
	"created_at", "updated_at",
}

func courseRow(id, slug string, published bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(courseCols).
		AddRow(id, "Intro to Go", slug, nil, nil, published, now, now, nil, int64(3))
}

func newCourseRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockSqlxDB(t)
	h := NewCourseHandlers(testConfig(), db, nil)
	r := newRouter("admin-1")
	r.GET("/api/admin/courses", h.ListCoursesHandler())
	r.GET("/api/admin/courses/:id", h.GetCourseHandler())
	r.POST("/api/admin/courses", h.CreateCourseHandler())
	r.PUT("/api/admin/courses/:id", h.UpdateCourseHandler())
	r.PUT("/api/admin/courses/:id/publish", h.SetPublishedHandler(true))
	r.PUT("/api/admin/courses/:id/unpublish", h.SetPublishedHandler(false))
	r.DELETE("/api/admin/courses/:id", h.DeleteCourseHandler())
	return r, mock
}

// ---------------------------------------------------------------------------
// slugify
// ---------------------------------------------------------------------------

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Intro to Go", "intro-to-go"},
		{"Advanced   SQL!!", "advanced-sql"},
		{"C++ & Systems (2026)", "c-systems-2026"},
		{"---", ""},
	}
	for _, tt := range tests {
		if got := slugify(tt.title); got != tt.want {
			t.Errorf("slugify(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// List / Get
// ---------------------------------------------------------------------------

func TestListCourses(t *testing.T) {
	r, mock := newCourseRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM courses`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs(20, 0).
		WillReturnRows(courseRow("course-1", "intro-to-go", true))

	w, resp := doJSON(t, r, http.MethodGet, "/api/admin/courses", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	courses, ok := resp["courses"].([]interface{})
	if !ok || len(courses) != 1 {
		t.Errorf("courses = %v, want one course", resp["courses"])
	}
}

func TestGetCourse_NotFound(t *testing.T) {
	r, mock := newCourseRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(courseCols))

	w, _ := doJSON(t, r, http.MethodGet, "/api/admin/courses/missing", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateCourse_SlugDerivedFromTitle(t *testing.T) {
	r, mock := newCourseRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs("intro-to-go").
		WillReturnRows(sqlmock.NewRows(courseSlugCols))
	mock.ExpectExec("INSERT INTO courses").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, resp := doJSON(t, r, http.MethodPost, "/api/admin/courses",
		`{"title": "Intro to Go"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", w.Code, w.Body.String())
	}
	course := resp["course"].(map[string]interface{})
	if course["slug"] != "intro-to-go" {
		t.Errorf("slug = %v, want intro-to-go", course["slug"])
	}
}

func TestCreateCourse_SlugConflict(t *testing.T) {
	r, mock := newCourseRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs("intro-to-go").
		WillReturnRows(sqlmock.NewRows(courseSlugCols).
			AddRow("course-1", "Intro to Go", "intro-to-go", nil, nil, true, now, now))

	w, _ := doJSON(t, r, http.MethodPost, "/api/admin/courses",
		`{"title": "Intro to Go"}`)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestCreateCourse_StudentInstructorRejected(t *testing.T) {
	r, mock := newCourseRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs("intro-to-go").
		WillReturnRows(sqlmock.NewRows(courseSlugCols))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("user-student").
		WillReturnRows(userRow("user-student", "s@example.com", "student"))

	w, _ := doJSON(t, r, http.MethodPost, "/api/admin/courses",
		`{"title": "Intro to Go", "instructor_id": "user-student"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Update / publish / delete
// ---------------------------------------------------------------------------

func TestUpdateCourse_Title(t *testing.T) {
	r, mock := newCourseRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs("course-1").
		WillReturnRows(courseRow("course-1", "intro-to-go", true))
	mock.ExpectExec("UPDATE courses").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, resp := doJSON(t, r, http.MethodPut, "/api/admin/courses/course-1",
		`{"title": "Intro to Go, 2nd Edition"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	course := resp["course"].(map[string]interface{})
	if course["title"] != "Intro to Go, 2nd Edition" {
		t.Errorf("title = %v", course["title"])
	}
}

func TestPublishCourse(t *testing.T) {
	r, mock := newCourseRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs("course-1").
		WillReturnRows(courseRow("course-1", "intro-to-go", false))
	mock.ExpectExec("UPDATE courses").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, resp := doJSON(t, r, http.MethodPut, "/api/admin/courses/course-1/publish", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	course := resp["course"].(map[string]interface{})
	if course["published"] != true {
		t.Errorf("published = %v, want true", course["published"])
	}
}

func TestUnpublishCourse(t *testing.T) {
	r, mock := newCourseRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs("course-1").
		WillReturnRows(courseRow("course-1", "intro-to-go", true))
	mock.ExpectExec("UPDATE courses").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, resp := doJSON(t, r, http.MethodPut, "/api/admin/courses/course-1/unpublish", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	course := resp["course"].(map[string]interface{})
	if course["published"] != false {
		t.Errorf("published = %v, want false", course["published"])
	}
}

func TestDeleteCourse(t *testing.T) {
	r, mock := newCourseRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM courses").
		WithArgs("course-1").
		WillReturnRows(courseRow("course-1", "intro-to-go", true))
	mock.ExpectExec("DELETE FROM courses").
		WithArgs("course-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, _ := doJSON(t, r, http.MethodDelete, "/api/admin/courses/course-1", "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
