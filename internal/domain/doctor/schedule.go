package doctor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

var validDays = map[string]bool{
	"Monday": true, "Tuesday": true, "Wednesday": true, "Thursday": true,
	"Friday": true, "Saturday": true, "Sunday": true,
}

// ToMinutes converts an "HH:MM" string to minutes since midnight.
func ToMinutes(t string) (int, error) {
	if !timePattern.MatchString(t) {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", t)
	}
	parts := strings.SplitN(t, ":", 2)
	hours, _ := strconv.Atoi(parts[0])
	minutes, _ := strconv.Atoi(parts[1])
	return hours*60 + minutes, nil
}

// ValidateEntry checks day name, time format, window direction and slot count.
func ValidateEntry(e ScheduleEntry) error {
	if !validDays[e.Day] {
		return fmt.Errorf("invalid day %q", e.Day)
	}
	start, err := ToMinutes(e.StartTime)
	if err != nil {
		return err
	}
	end, err := ToMinutes(e.EndTime)
	if err != nil {
		return err
	}
	if start >= end {
		return fmt.Errorf("start time %s must be before end time %s", e.StartTime, e.EndTime)
	}
	if e.MaxSlots < 0 {
		return fmt.Errorf("max slots must not be negative")
	}
	return nil
}

// ConflictError reports a cross-clinic schedule collision.
type ConflictError struct {
	Entry ScheduleEntry
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("doctor is already scheduled at another clinic on %s from %s to %s",
		e.Entry.Day, e.Entry.StartTime, e.Entry.EndTime)
}

// FindConflict scans existing entries for one at a different clinic on the
// same day whose window overlaps the candidate's. Entries at the candidate's
// own clinic are skipped because they are about to be replaced. Returns the
// first overlapping entry in iteration order, or nil.
//
// Two windows overlap when the candidate starts inside the entry, ends
// inside the entry, or encloses it. The comparisons keep windows half open:
// touching boundaries do not overlap.
func FindConflict(existing []ScheduleEntry, cand ScheduleEntry) (*ScheduleEntry, error) {
	candStart, err := ToMinutes(cand.StartTime)
	if err != nil {
		return nil, err
	}
	candEnd, err := ToMinutes(cand.EndTime)
	if err != nil {
		return nil, err
	}

	for i := range existing {
		entry := &existing[i]
		if entry.ClinicID == cand.ClinicID {
			continue
		}
		if entry.Day != cand.Day {
			continue
		}
		entryStart, err := ToMinutes(entry.StartTime)
		if err != nil {
			return nil, err
		}
		entryEnd, err := ToMinutes(entry.EndTime)
		if err != nil {
			return nil, err
		}
		if (candStart >= entryStart && candStart < entryEnd) ||
			(candEnd > entryStart && candEnd <= entryEnd) ||
			(candStart <= entryStart && candEnd >= entryEnd) {
			return entry, nil
		}
	}
	return nil, nil
}

// CheckEntries validates each candidate and checks it against the doctor's
// entries at other clinics. The first failure aborts the whole batch.
func CheckEntries(existing []ScheduleEntry, candidates []ScheduleEntry) error {
	for _, cand := range candidates {
		if err := ValidateEntry(cand); err != nil {
			return err
		}
		hit, err := FindConflict(existing, cand)
		if err != nil {
			return err
		}
		if hit != nil {
			return &ConflictError{Entry: *hit}
		}
	}
	return nil
}

// EntryPatch carries a partial edit of one schedule entry. Nil fields keep
// their stored values.
type EntryPatch struct {
	Day       *string `json:"day"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	MaxSlots  *int    `json:"max_slots"`
}

// ApplyPatch overlays the supplied fields on the stored entry. Validation
// and conflict checks always run against this merged result, never against
// the raw patch.
func ApplyPatch(stored ScheduleEntry, patch EntryPatch) ScheduleEntry {
	merged := stored
	if patch.Day != nil {
		merged.Day = *patch.Day
	}
	if patch.StartTime != nil {
		merged.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		merged.EndTime = *patch.EndTime
	}
	if patch.MaxSlots != nil {
		merged.MaxSlots = *patch.MaxSlots
	}
	return merged
}
