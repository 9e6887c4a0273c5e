package prefs

import (
	"fmt"

	"github.com/hay-kot/criterio"

	"github.com/hay-kot/daygap/internal/core/timeutil"
)

func validMode(m AllDayMode) error {
	switch m {
	case "", AllDayIgnore, AllDayWorkday, AllDayWindow:
		return nil
	}
	return fmt.Errorf("must be one of ignore, workday, window")
}

func validPosition(p AllDayPosition) error {
	switch p {
	case "", PositionStart, PositionMiddle, PositionEnd:
		return nil
	}
	return fmt.Errorf("must be one of start, middle, end")
}

func validStrategy(s DedupeStrategy) error {
	switch s {
	case "", DedupeAuto, DedupePreferGoogle, DedupePreferDevice, DedupeNone:
		return nil
	}
	return fmt.Errorf("must be one of auto, prefer_google, prefer_device, none")
}

func validClockMinutes(m timeutil.Minutes) error {
	if !m.Valid() {
		return fmt.Errorf("must be between 00:00 and 24:00")
	}
	return nil
}

func nonNegative(m timeutil.Minutes) error {
	if m < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

// Validate checks that every preference field holds a representable value.
// It does not reject a reversed work window; that is clamped defensively at
// computation time instead.
func (p WorkPreferences) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("work_start", p.WorkStart, validClockMinutes),
		criterio.Run("work_end", p.WorkEnd, validClockMinutes),
		criterio.Run("min_gap_minutes", p.MinGapMinutes, nonNegative),
		criterio.Run("buffer_minutes", p.BufferMinutes, nonNegative),
		criterio.Run("all_day_block_mode", p.AllDayBlockMode, validMode),
		criterio.Run("all_day_block_minutes", p.AllDayBlockMinutes, nonNegative),
		criterio.Run("all_day_block_position", p.AllDayBlockPosition, validPosition),
		criterio.Run("dedupe_strategy", p.DedupeStrategy, validStrategy),
	)
}
