package admin

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

func userRow(id, email, role string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(userCols).
		AddRow(id, email, "Test User", "$2a$10$hashhashhashhashhashha", role, now, now)
}

func newUserRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	h := NewUserHandlers(testConfig(), db, nil)
	r := newRouter("admin-1")
	r.GET("/api/admin/users", h.ListUsersHandler())
	r.GET("/api/admin/users/:id", h.GetUserHandler())
	r.POST("/api/admin/users", h.CreateUserHandler())
	r.PUT("/api/admin/users/:id", h.UpdateUserHandler())
	r.DELETE("/api/admin/users/:id", h.DeleteUserHandler())
	return r, mock
}

// ---------------------------------------------------------------------------
// List / Get
// ---------------------------------------------------------------------------

func TestListUsers(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(userRow("user-1", "a@example.com", "student"))

	w, resp := doJSON(t, r, http.MethodGet, "/api/admin/users", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	users, ok := resp["users"].([]interface{})
	if !ok || len(users) != 1 {
		t.Errorf("users = %v, want one user", resp["users"])
	}
}

func TestListUsers_Search(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users").
		WillReturnRows(userRow("user-1", "alice@example.com", "student"))

	w, resp := doJSON(t, r, http.MethodGet, "/api/admin/users?search=alice", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	if _, ok := resp["users"].([]interface{}); !ok {
		t.Errorf("users missing: %v", resp)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	w, _ := doJSON(t, r, http.MethodGet, "/api/admin/users/missing", "")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCreateUser(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("new@example.com").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, resp := doJSON(t, r, http.MethodPost, "/api/admin/users",
		`{"email": "new@example.com", "name": "New User", "password": "secret-password", "role": "instructor"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201\nbody: %s", w.Code, w.Body.String())
	}
	user, ok := resp["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("user missing: %v", resp)
	}
	if user["role"] != "instructor" {
		t.Errorf("role = %v, want instructor", user["role"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("password hash leaked in response")
	}
}

func TestCreateUser_InvalidRole(t *testing.T) {
	r, mock := newUserRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/admin/users",
		`{"email": "new@example.com", "name": "New User", "password": "secret-password", "role": "superuser"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database access: %v", err)
	}
}

func TestCreateUser_ShortPassword(t *testing.T) {
	r, _ := newUserRouter(t)

	w, _ := doJSON(t, r, http.MethodPost, "/api/admin/users",
		`{"email": "new@example.com", "name": "New User", "password": "short", "role": "student"}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("taken@example.com").
		WillReturnRows(userRow("user-1", "taken@example.com", "student"))

	w, _ := doJSON(t, r, http.MethodPost, "/api/admin/users",
		`{"email": "taken@example.com", "name": "New User", "password": "secret-password", "role": "student"}`)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdateUser_Role(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", "a@example.com", "student"))
	mock.ExpectExec("UPDATE users").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, resp := doJSON(t, r, http.MethodPut, "/api/admin/users/user-1",
		`{"role": "instructor"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	user := resp["user"].(map[string]interface{})
	if user["role"] != "instructor" {
		t.Errorf("role = %v, want instructor", user["role"])
	}
}

func TestUpdateUser_EmailConflict(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("user-1").
		WillReturnRows(userRow("user-1", "a@example.com", "student"))
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("taken@example.com").
		WillReturnRows(userRow("user-2", "taken@example.com", "student"))

	w, _ := doJSON(t, r, http.MethodPut, "/api/admin/users/user-1",
		`{"email": "taken@example.com"}`)

	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
}

func TestUpdateUser_NotFound(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(userCols))

	w, _ := doJSON(t, r, http.MethodPut, "/api/admin/users/missing", `{"name": "X"}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestDeleteUser(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs("user-2").
		WillReturnRows(userRow("user-2", "b@example.com", "student"))
	mock.ExpectExec("DELETE FROM users").
		WithArgs("user-2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	w, _ := doJSON(t, r, http.MethodDelete, "/api/admin/users/user-2", "")

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestDeleteUser_OwnAccount(t *testing.T) {
	r, mock := newUserRouter(t)

	// The router authenticates as admin-1; deleting admin-1 must be refused
	w, _ := doJSON(t, r, http.MethodDelete, "/api/admin/users/admin-1", "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database access: %v", err)
	}
}

func TestDeleteUser_DBError(t *testing.T) {
	r, mock := newUserRouter(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WillReturnError(errors.New("connection refused"))

	w, _ := doJSON(t, r, http.MethodDelete, "/api/admin/users/user-2", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
