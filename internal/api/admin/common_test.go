package admin

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/edustack/edustack/internal/audit"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/db/repositories"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal("sqlmock.New:", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func newMockSqlxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return sqlx.NewDb(db, "sqlmock"), mock
}

// newTestRecorder builds a Recorder over its own mock database so audit
// expectations do not interleave with the handler's repository expectations.
func newTestRecorder(t *testing.T) (*audit.Recorder, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	return audit.NewRecorder(repositories.NewAuditRepository(db), nil), mock
}

func testConfig() *config.Config {
	return &config.Config{}
}

// newRouter returns a gin engine with a fake auth layer that injects the
// given actor as the authenticated admin.
func newRouter(actorID string) *gin.Engine {
	r := gin.New()
	if actorID != "" {
		r.Use(func(c *gin.Context) {
			c.Set("user_id", actorID)
			c.Next()
		})
	}
	return r
}

// doJSON performs a request with an optional JSON body and decodes the response.
func doJSON(t *testing.T, r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response is not JSON: %v\nbody: %s", err, w.Body.String())
		}
	}
	return w, resp
}
