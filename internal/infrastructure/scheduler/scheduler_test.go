package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purplepatch/notify-hub/pkg/timeutil"
)

func TestDailySchedule_Next(t *testing.T) {
	sched := NewDailySchedule(22, 30, timeutil.DhakaTZ)

	t.Run("same day when the time has not passed", func(t *testing.T) {
		now := time.Date(2026, 8, 30, 9, 0, 0, 0, timeutil.DhakaTZ)
		next := sched.Next(now)
		assert.Equal(t, time.Date(2026, 8, 30, 22, 30, 0, 0, timeutil.DhakaTZ), next)
	})

	t.Run("next day when the time already passed", func(t *testing.T) {
		now := time.Date(2026, 8, 30, 23, 0, 0, 0, timeutil.DhakaTZ)
		next := sched.Next(now)
		assert.Equal(t, time.Date(2026, 8, 31, 22, 30, 0, 0, timeutil.DhakaTZ), next)
	})

	t.Run("exactly at fire time rolls to next day", func(t *testing.T) {
		now := time.Date(2026, 8, 30, 22, 30, 0, 0, timeutil.DhakaTZ)
		next := sched.Next(now)
		assert.Equal(t, time.Date(2026, 8, 31, 22, 30, 0, 0, timeutil.DhakaTZ), next)
	})

	t.Run("converts across zones", func(t *testing.T) {
		now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) // 18:00 Dhaka
		next := sched.Next(now)
		assert.Equal(t, time.Date(2026, 8, 30, 22, 30, 0, 0, timeutil.DhakaTZ), next)
	})
}

func TestParseDailySchedule(t *testing.T) {
	sched, err := ParseDailySchedule("09:05", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 9, sched.Hour)
	assert.Equal(t, 5, sched.Minute)

	_, err = ParseDailySchedule("25:99", time.UTC)
	assert.Error(t, err)
}
