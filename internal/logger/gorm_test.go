package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newCapturing(level gormlogger.LogLevel, slow time.Duration) (*GormLogger, *test.Hook) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	return &GormLogger{entry: base.WithField("component", "gorm"), level: level, slowThreshold: slow}, hook
}

func sql() (string, int64) { return "SELECT 1", 1 }

func TestGormLogger_Trace(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		level     gormlogger.LogLevel
		slow      time.Duration
		elapsed   time.Duration
		err       error
		wantLevel logrus.Level
		wantMsg   string
	}{
		{"error", gormlogger.Warn, 0, 0, errors.New("boom"), logrus.ErrorLevel, "SQL query failed"},
		{"slow", gormlogger.Warn, 10 * time.Millisecond, time.Second, nil, logrus.WarnLevel, "Slow SQL query"},
		{"info", gormlogger.Info, 0, 0, nil, logrus.DebugLevel, "SQL query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, hook := newCapturing(tt.level, tt.slow)
			l.Trace(ctx, time.Now().Add(-tt.elapsed), sql, tt.err)
			entry := hook.LastEntry()
			if entry == nil {
				t.Fatal("nothing logged")
			}
			if entry.Level != tt.wantLevel || entry.Message != tt.wantMsg {
				t.Errorf("got %v %q, want %v %q", entry.Level, entry.Message, tt.wantLevel, tt.wantMsg)
			}
			if entry.Data["sql"] != "SELECT 1" {
				t.Errorf("sql field = %v", entry.Data["sql"])
			}
		})
	}
}

func TestGormLogger_QuietCases(t *testing.T) {
	ctx := context.Background()

	l, hook := newCapturing(gormlogger.Warn, 0)
	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	l.Trace(ctx, time.Now(), sql, nil)
	if n := len(hook.AllEntries()); n != 0 {
		t.Errorf("logged %d entries for not-found and fast query", n)
	}

	silent := l.LogMode(gormlogger.Silent)
	silent.Trace(ctx, time.Now(), sql, errors.New("boom"))
	if n := len(hook.AllEntries()); n != 0 {
		t.Errorf("silent mode logged %d entries", n)
	}
	if l.level != gormlogger.Warn {
		t.Error("LogMode mutated the receiver")
	}
}
