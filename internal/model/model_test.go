package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Key Tests
// =============================================================================

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "medication:00000000000000000042", GenerateKey(PrefixMedication, 42))
	assert.Equal(t, "reminder:00000000000000000001", GenerateKey(PrefixReminder, 1))
}

func TestGenerateKeyOrdersByPrimaryKey(t *testing.T) {
	assert.Less(t, GenerateKey(PrefixReminder, 9), GenerateKey(PrefixReminder, 10))
	assert.Less(t, GenerateKey(PrefixReminder, 99), GenerateKey(PrefixReminder, 100))
}

func TestParseKey(t *testing.T) {
	pk, err := ParseKey(PrefixMedication, GenerateKey(PrefixMedication, 7))
	require.NoError(t, err)
	assert.Equal(t, int64(7), pk)

	_, err = ParseKey(PrefixMedication, GenerateKey(PrefixReminder, 7))
	assert.Error(t, err)

	_, err = ParseKey(PrefixMedication, "medication:abc")
	assert.Error(t, err)
}

func TestModelInterface(t *testing.T) {
	var _ Model = (*Medication)(nil)
	var _ Model = (*Reminder)(nil)

	med := &Medication{}
	med.SetKey(GenerateKey(PrefixMedication, 3))
	assert.Equal(t, int64(3), med.PrimaryKey)
	assert.Equal(t, GenerateKey(PrefixMedication, 3), med.GetKey())

	rem := &Reminder{}
	rem.SetKey(GenerateKey(PrefixReminder, 5))
	assert.Equal(t, int64(5), rem.PrimaryKey)
}

// =============================================================================
// Medication Tests
// =============================================================================

func TestNewMedication(t *testing.T) {
	med := NewMedication("Aspirin", "100mg", "2024-05-01 08:00")
	assert.Equal(t, "Aspirin", med.Name)
	assert.Equal(t, "100mg", med.Dosage)
	assert.False(t, med.IsPersisted())
	assert.False(t, med.CreatedAt.IsZero())
}

func TestMedicationAddReminderID(t *testing.T) {
	med := &Medication{}
	assert.True(t, med.AddReminderID(4))
	assert.False(t, med.AddReminderID(4))
	assert.True(t, med.AddReminderID(9))
	assert.Equal(t, []int64{4, 9}, med.ReminderIDs)
	assert.True(t, med.HasReminder(9))
	assert.False(t, med.HasReminder(1))
}

// =============================================================================
// Reminder Tests
// =============================================================================

func TestSplitDateTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		date    string
		clock   string
		wantErr bool
	}{
		{"simple", "2024-05-01 08:00", "2024-05-01", "08:00", false},
		{"extra_whitespace", "  2024-05-01   08:00 ", "2024-05-01", "08:00", false},
		{"tab_separator", "2024-05-01\t21:30", "2024-05-01", "21:30", false},
		{"missing_time", "2024-05-01", "", "", true},
		{"bad_date", "2024-13-01 08:00", "", "", true},
		{"bad_time", "2024-05-01 8am", "", "", true},
		{"empty", "", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, clock, err := SplitDateTime(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.date, date)
			assert.Equal(t, tt.clock, clock)
		})
	}
}

func TestNewMedicationReminder(t *testing.T) {
	r := NewMedicationReminder(12, "2024-05-01", "08:00")
	assert.Equal(t, ClassMedication, r.Classification)
	assert.Equal(t, DefaultIntervalIndex, r.IntervalIndex)
	assert.Equal(t, int64(12), r.OwnerKey)
	assert.Equal(t, "2024-05-01 08:00", r.DateTime())
}

func TestReminderNext(t *testing.T) {
	at := func(s string) time.Time {
		tm, err := time.ParseInLocation(DateTimeLayout, s, time.Local)
		require.NoError(t, err)
		return tm
	}

	tests := []struct {
		name     string
		interval int
		now      string
		want     string
	}{
		{"daily", 0, "2024-05-01 08:05", "2024-05-02 08:00"},
		{"every_12_hours", 1, "2024-05-01 08:05", "2024-05-01 20:00"},
		{"every_8_hours", 2, "2024-05-01 08:05", "2024-05-01 16:00"},
		{"weekly", 6, "2024-05-01 08:05", "2024-05-08 08:00"},
		{"monthly", 8, "2024-05-01 08:05", "2024-06-01 08:00"},
		{"daily_catches_up", 0, "2024-05-04 09:00", "2024-05-05 08:00"},
		{"daily_acknowledged_early", 0, "2024-04-30 22:00", "2024-05-02 08:00"},
		{"once_keeps_occurrence", 9, "2024-05-03 08:00", "2024-05-01 08:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Reminder{Date: "2024-05-01", Time: "08:00", IntervalIndex: tt.interval}
			next, err := r.Next(at(tt.now))
			require.NoError(t, err)
			assert.Equal(t, tt.want, next.Format(DateTimeLayout))
		})
	}
}

func TestReminderNextErrors(t *testing.T) {
	r := &Reminder{Date: "2024-05-01", Time: "08:00", IntervalIndex: 42}
	_, err := r.Next(time.Now())
	assert.Error(t, err)

	r = &Reminder{Date: "not-a-date", Time: "08:00"}
	_, err = r.Next(time.Now())
	assert.Error(t, err)
}

func TestIntervals(t *testing.T) {
	all := Intervals()
	require.NotEmpty(t, all)
	for i, interval := range all {
		assert.Equal(t, i, interval.Index)
		assert.NotEmpty(t, interval.Name)
	}

	assert.True(t, IsValidIntervalIndex(0))
	assert.False(t, IsValidIntervalIndex(-1))
	assert.False(t, IsValidIntervalIndex(len(all)))

	once, ok := IntervalAt(9)
	require.True(t, ok)
	assert.False(t, once.Recurs())
}

// =============================================================================
// Acknowledgement Tests
// =============================================================================

func TestAcknowledgementLog(t *testing.T) {
	r := &Reminder{PrimaryKey: 2, Date: "2024-05-01", Time: "08:00"}
	now := time.Date(2024, 5, 1, 8, 1, 0, 0, time.UTC)

	serialized, err := AppendAcknowledgement("", NewAcknowledgement(r, false, now))
	require.NoError(t, err)
	serialized, err = AppendAcknowledgement(serialized, NewAcknowledgement(r, true, now))
	require.NoError(t, err)

	log, err := ParseAcknowledgementLog(serialized)
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, AckAcknowledged, log[0].Status)
	assert.Equal(t, AckDismissed, log[1].Status)
	assert.Equal(t, "2024-05-01 08:00", log[0].Occurrence)
	assert.Equal(t, 1, log.Count(AckDismissed))
}

func TestParseAcknowledgementLogInvalid(t *testing.T) {
	_, err := ParseAcknowledgementLog("{not json")
	assert.Error(t, err)

	log, err := ParseAcknowledgementLog("")
	require.NoError(t, err)
	assert.Empty(t, log)
}

// =============================================================================
// Notification Tests
// =============================================================================

func TestNotificationForReminder(t *testing.T) {
	r := &Reminder{PrimaryKey: 3, Classification: ClassMedication, Date: "2024-05-01", Time: "08:00"}
	med := &Medication{Name: "Aspirin", Dosage: "100mg"}

	n := NotificationForReminder(r, med, time.Now())
	assert.Equal(t, NotifyMedication, n.Type)
	assert.Equal(t, int64(3), n.ReminderID)
	assert.Contains(t, n.Title, "Aspirin")
	assert.Equal(t, "2024-05-01 08:00", n.Fields["Due"])
	assert.Equal(t, "daily", n.Fields["Repeats"])

	orphan := NotificationForReminder(&Reminder{PrimaryKey: 4, Classification: ClassAppointment}, nil, time.Now())
	assert.Equal(t, NotifyAppointment, orphan.Type)
}
