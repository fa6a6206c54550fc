package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/echosavvy/api/internal/constants"
	"github.com/echosavvy/api/internal/models"
	"github.com/echosavvy/api/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var loginLogTestSeq int64

func setupUserLoginLogServiceTest(t *testing.T) *UserLoginLogService {
	t.Helper()
	dsn := fmt.Sprintf("file:login_log_%d?mode=memory&cache=shared", atomic.AddInt64(&loginLogTestSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.UserLoginLog{}); err != nil {
		t.Fatalf("migrate user_login_logs failed: %v", err)
	}
	return NewUserLoginLogService(repository.NewUserLoginLogRepository(db))
}

func TestRecordAndListByUser(t *testing.T) {
	svc := setupUserLoginLogServiceTest(t)

	for i := 0; i < 3; i++ {
		if err := svc.Record(&models.UserLoginLog{
			UserID:   1,
			Username: "alice",
			Status:   constants.LoginStatusSuccess,
			ClientIP: "1.2.3.4",
		}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	if err := svc.Record(&models.UserLoginLog{
		UserID:     2,
		Username:   "bob",
		Status:     constants.LoginStatusFailed,
		FailReason: constants.LoginFailReasonBadCredentials,
	}); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	logs, total, err := svc.ListByUser(1, 1, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 {
		t.Fatalf("total want 3 got %d", total)
	}
	if len(logs) != 3 {
		t.Fatalf("logs want 3 got %d", len(logs))
	}
	for _, entry := range logs {
		if entry.UserID != 1 {
			t.Fatalf("entry user id want 1 got %d", entry.UserID)
		}
		if entry.LoginSource == "" {
			t.Fatalf("login source should default on record")
		}
	}
}

func TestListByUserPagination(t *testing.T) {
	svc := setupUserLoginLogServiceTest(t)

	for i := 0; i < 5; i++ {
		if err := svc.Record(&models.UserLoginLog{
			UserID:   1,
			Username: "alice",
			Status:   constants.LoginStatusSuccess,
		}); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	logs, total, err := svc.ListByUser(1, 2, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 5 {
		t.Fatalf("total want 5 got %d", total)
	}
	if len(logs) != 2 {
		t.Fatalf("page 2 want 2 entries got %d", len(logs))
	}
}
