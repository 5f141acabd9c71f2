package holidays

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cybalencar96/medical-eletronic-secretary-back-sub000/pkg/logging"
)

const closuresKey = "clinic:closures"

// ClinicCalendar layers clinic-specific closure dates, kept in redis, on
// top of the national holiday calendar. Redis lookups are best-effort: if
// redis is down the calendar degrades to the national set instead of
// blocking slot generation.
type ClinicCalendar struct {
	national Calendar
	redis    *redis.Client
	logger   *logging.Logger
}

// NewClinicCalendar creates a calendar backed by redis. redisClient may be
// nil, in which case only national holidays apply.
func NewClinicCalendar(national Calendar, redisClient *redis.Client, logger *logging.Logger) *ClinicCalendar {
	if national == nil {
		national = NewNationalCalendar()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ClinicCalendar{national: national, redis: redisClient, logger: logger}
}

// IsHoliday reports whether date is a national holiday or a stored closure.
func (c *ClinicCalendar) IsHoliday(date time.Time) bool {
	if c.national.IsHoliday(date) {
		return true
	}
	if c.redis == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	closed, err := c.redis.SIsMember(ctx, closuresKey, date.Format(time.DateOnly)).Result()
	if err != nil {
		c.logger.Error("holidays: closure lookup failed, assuming open", "date", date.Format(time.DateOnly), "error", err)
		return false
	}
	return closed
}

// AddClosure stores a clinic closure date.
func (c *ClinicCalendar) AddClosure(ctx context.Context, date time.Time) error {
	if c.redis == nil {
		return fmt.Errorf("holidays: closure store not configured")
	}
	if err := c.redis.SAdd(ctx, closuresKey, date.Format(time.DateOnly)).Err(); err != nil {
		return fmt.Errorf("holidays: add closure: %w", err)
	}
	return nil
}

// RemoveClosure deletes a clinic closure date.
func (c *ClinicCalendar) RemoveClosure(ctx context.Context, date time.Time) error {
	if c.redis == nil {
		return fmt.Errorf("holidays: closure store not configured")
	}
	if err := c.redis.SRem(ctx, closuresKey, date.Format(time.DateOnly)).Err(); err != nil {
		return fmt.Errorf("holidays: remove closure: %w", err)
	}
	return nil
}

// ListClosures returns stored closure dates, sorted.
func (c *ClinicCalendar) ListClosures(ctx context.Context) ([]string, error) {
	if c.redis == nil {
		return nil, nil
	}
	dates, err := c.redis.SMembers(ctx, closuresKey).Result()
	if err != nil {
		return nil, fmt.Errorf("holidays: list closures: %w", err)
	}
	sort.Strings(dates)
	return dates, nil
}

var _ Calendar = (*ClinicCalendar)(nil)
