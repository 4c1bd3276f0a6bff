package admin

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
)

var auditLogCols = []string{
	"id", "user_id", "action", "resource_type", "resource_id",
	"details", "metadata", "ip_address", "created_at",
}

func auditLogRow(id, action string) *sqlmock.Rows {
	return sqlmock.NewRows(auditLogCols).
		AddRow(id, "admin-1", action, "Forum", "post-1", "Forum post approved",
			[]byte(`{"reason":"ok"}`), "10.0.0.1", time.Now())
}

func newAuditRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newMockDB(t)
	h := NewAuditHandlers(testConfig(), db)
	r := newRouter("admin-1")
	r.GET("/api/admin/cms/audit-trail", h.ListAuditTrailHandler())
	r.GET("/api/admin/cms/audit-trail/resource/:resourceType/:resourceId", h.GetResourceAuditTrailHandler())
	return r, mock
}

// ---------------------------------------------------------------------------
// ListAuditTrailHandler
// ---------------------------------------------------------------------------

func TestListAuditTrail_NoFilters(t *testing.T) {
	r, mock := newAuditRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WithArgs(20, 0).
		WillReturnRows(auditLogRow("log-1", "moderate"))

	w, resp := doJSON(t, r, http.MethodGet, "/api/admin/cms/audit-trail", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	if resp["success"] != true {
		t.Errorf("success = %v, want true", resp["success"])
	}
	if total, _ := resp["total"].(float64); total != 2 {
		t.Errorf("total = %v, want 2", resp["total"])
	}
}

func TestListAuditTrail_AllFilters(t *testing.T) {
	r, mock := newAuditRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WithArgs("admin-1", "moderate", "Forum", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WithArgs("admin-1", "moderate", "Forum", sqlmock.AnyArg(), sqlmock.AnyArg(), 10, 0).
		WillReturnRows(auditLogRow("log-1", "moderate"))

	w, _ := doJSON(t, r, http.MethodGet,
		"/api/admin/cms/audit-trail?user=admin-1&action=moderate&resourceType=Forum&startDate=2026-01-01&endDate=2026-12-31&limit=10", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestListAuditTrail_RFC3339Dates(t *testing.T) {
	r, mock := newAuditRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WithArgs(sqlmock.AnyArg(), 20, 0).
		WillReturnRows(sqlmock.NewRows(auditLogCols))

	w, _ := doJSON(t, r, http.MethodGet,
		"/api/admin/cms/audit-trail?startDate=2026-06-01T10%3A00%3A00Z", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
}

func TestListAuditTrail_InvalidDate(t *testing.T) {
	for _, param := range []string{"startDate", "endDate"} {
		t.Run(param, func(t *testing.T) {
			r, mock := newAuditRouter(t)

			w, resp := doJSON(t, r, http.MethodGet,
				"/api/admin/cms/audit-trail?"+param+"=not-a-date", "")

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if resp["success"] != false {
				t.Errorf("success = %v, want false", resp["success"])
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unexpected database access: %v", err)
			}
		})
	}
}

func TestListAuditTrail_DBError(t *testing.T) {
	r, mock := newAuditRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WillReturnError(errors.New("connection refused"))

	w, _ := doJSON(t, r, http.MethodGet, "/api/admin/cms/audit-trail", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// ---------------------------------------------------------------------------
// GetResourceAuditTrailHandler
// ---------------------------------------------------------------------------

func TestGetResourceAuditTrail(t *testing.T) {
	r, mock := newAuditRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WithArgs("Forum", "post-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WithArgs("Forum", "post-1", 20, 0).
		WillReturnRows(auditLogRow("log-1", "moderate"))

	w, resp := doJSON(t, r, http.MethodGet, "/api/admin/cms/audit-trail/resource/Forum/post-1", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	data, ok := resp["data"].([]interface{})
	if !ok || len(data) != 1 {
		t.Fatalf("data = %v, want one entry", resp["data"])
	}
	entry := data[0].(map[string]interface{})
	if entry["resource_id"] != "post-1" {
		t.Errorf("resource_id = %v, want post-1", entry["resource_id"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestGetResourceAuditTrail_Empty(t *testing.T) {
	r, mock := newAuditRouter(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM audit_logs`).
		WithArgs("Course", "c-404").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT (.+) FROM audit_logs").
		WithArgs("Course", "c-404", 20, 0).
		WillReturnRows(sqlmock.NewRows(auditLogCols))

	w, resp := doJSON(t, r, http.MethodGet, "/api/admin/cms/audit-trail/resource/Course/c-404", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200\nbody: %s", w.Code, w.Body.String())
	}
	// An unknown resource yields an empty list, not a 404
	data, ok := resp["data"].([]interface{})
	if !ok || len(data) != 0 {
		t.Errorf("data = %v, want empty list", resp["data"])
	}
}
