package resolve

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
		ok   bool
	}{
		{
			name: "plain numeric date",
			in:   "O leilão será realizado no dia 15/03/2026",
			want: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "date with hour marker",
			in:   "15/03/2026, às 10h",
			want: time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "date with hour and minutes",
			in:   "Encerramento: 04/11/2026 às 14:30",
			want: time.Date(2026, 11, 4, 14, 30, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "uppercase time marker",
			in:   "DIA 07/08/2026 ÀS 9H",
			want: time.Date(2026, 8, 7, 9, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "date range keeps the first day",
			in:   "visitação de 10/03/2026 a 12/03/2026",
			want: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "single digit day and month",
			in:   "1/2/2026",
			want: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "written out month",
			in:   "no dia 15 de março de 2026",
			want: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "written out month without cedilla",
			in:   "15 de marco de 2026",
			want: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			ok:   true,
		},
		{
			name: "impossible calendar day",
			in:   "31/02/2026",
			ok:   false,
		},
		{
			name: "unknown written month",
			in:   "15 de brumário de 2026",
			ok:   false,
		},
		{
			name: "no date at all",
			in:   "edital de leilão público",
			ok:   false,
		},
		{
			name: "empty",
			in:   "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseDate_HourOutOfRangeFallsBackToMidnight(t *testing.T) {
	got, ok := ParseDate("15/03/2026 às 99h")
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), got)
}

func TestPlausible(t *testing.T) {
	now := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		want bool
	}{
		{name: "inside window", in: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), want: true},
		{name: "floor year", in: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), want: true},
		{name: "ceiling year", in: time.Date(2031, 12, 31, 0, 0, 0, 0, time.UTC), want: true},
		{name: "below floor", in: time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC), want: false},
		{name: "classic OCR artifact", in: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC), want: false},
		{name: "past the ceiling", in: time.Date(2032, 1, 1, 0, 0, 0, 0, time.UTC), want: false},
		{name: "zero time", in: time.Time{}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plausible(tt.in, now, 2020, 5))
		})
	}
}

func TestFirstPlausibleDate(t *testing.T) {
	now := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	text := "Processo autuado em 02/05/1999. O leilão ocorre em 15/03/2026, às 10h."
	got, ok := FirstPlausibleDate(text, now, 2020, 5)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC), got)
}

func TestFirstPlausibleDate_AllImplausible(t *testing.T) {
	now := time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC)

	_, ok := FirstPlausibleDate("referências: 01/01/1998 e 31/12/1999", now, 2020, 5)
	assert.False(t, ok)

	_, ok = FirstPlausibleDate("", now, 2020, 5)
	assert.False(t, ok)
}
