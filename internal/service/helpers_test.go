package service

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/edupro-device-guard/internal/domain"
	"github.com/sandeepkv93/edupro-device-guard/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testStack struct {
	db         *gorm.DB
	devices    repository.DeviceRepository
	violations repository.ViolationRepository
	users      repository.UserRepository
	courses    repository.CourseRepository
	detector   *ViolationDetector
	deviceSvc  *DeviceService
	reviewSvc  *ViolationService
	clock      *testClock
}

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Course{}, &domain.DeviceRecord{}, &domain.ViolationCase{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clock := &testClock{t: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	st := &testStack{
		db:         db,
		devices:    repository.NewDeviceRepository(db),
		violations: repository.NewViolationRepository(db),
		users:      repository.NewUserRepository(db),
		courses:    repository.NewCourseRepository(db),
		clock:      clock,
	}
	st.detector = NewViolationDetector(st.devices, st.violations, discardLogger())
	st.deviceSvc = NewDeviceService(st.devices, st.courses, st.detector, DefaultDeviceRetention, discardLogger())
	st.deviceSvc.now = clock.Now
	st.reviewSvc = NewViolationService(st.violations, st.users, st.devices, discardLogger())
	st.reviewSvc.now = clock.Now
	return st
}

func laptop() RequestContext {
	return RequestContext{
		UserAgent:      "Mozilla/5.0 (X11; Linux x86_64) Firefox/126.0",
		AcceptLanguage: "en-US,en;q=0.9",
		AcceptEncoding: "gzip, deflate, br",
		IPAddress:      "203.0.113.7",
	}
}

func phone() RequestContext {
	return RequestContext{
		UserAgent:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0) Safari/604.1",
		AcceptLanguage: "en-GB",
		AcceptEncoding: "gzip",
		IPAddress:      "198.51.100.4",
	}
}
