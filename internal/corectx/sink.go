package corectx

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// errorRecord is the durable row shape for persisted Error records.
type errorRecord struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	Source    string `gorm:"index"`
	Code      string `gorm:"index"`
	Severity  string `gorm:"index"`
	Message   string
	Context   string
}

// TableName pins the table name regardless of gorm's pluralization rules.
func (errorRecord) TableName() string { return "polycall_errors" }

// GormSink persists error records to a SQL database via gorm, mirroring the
// teacher's control-plane persistence pattern. It is best-effort: Record
// never blocks the caller with anything other than normal write latency, and
// its errors are swallowed by CoreContext.SetError.
type GormSink struct {
	db *gorm.DB
}

// NewGormSink migrates the errorRecord table and returns a sink backed by db.
func NewGormSink(db *gorm.DB) (*GormSink, error) {
	if err := db.AutoMigrate(&errorRecord{}); err != nil {
		return nil, err
	}
	return &GormSink{db: db}, nil
}

// Record appends err as a row. Only warning-severity-and-above records are
// persisted; "info" (e.g. CodeCancelled) is expected high-volume noise and
// is not worth a durable row.
func (s *GormSink) Record(ctx context.Context, err *Error) error {
	if err.Severity == SeverityInfo {
		return nil
	}
	row := errorRecord{
		Source:   err.Source,
		Code:     string(err.Code),
		Severity: string(err.Severity),
		Message:  err.Message,
		Context:  err.Context,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}
