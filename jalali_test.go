package ledgerbulk

import (
	"testing"
	"time"
)

func TestIsJalaliLeap(t *testing.T) {
	tests := []struct {
		year int
		want bool
	}{
		{1395, true},
		{1396, false},
		{1399, true},
		{1400, false},
		{1402, false},
		{1403, true},
		{1404, false},
		{1408, true},
		{4000, false},
	}
	for _, tt := range tests {
		if got := IsJalaliLeap(tt.year); got != tt.want {
			t.Errorf("IsJalaliLeap(%d) = %v, want %v", tt.year, got, tt.want)
		}
	}
}

func TestJalaliToGregorian(t *testing.T) {
	tests := []struct {
		name    string
		y, m, d int
		want    time.Time
		wantErr bool
	}{
		{
			name: "dey",
			y:    1402, m: 10, d: 15,
			want: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "nowruz",
			y:    1402, m: 1, d: 1,
			want: time.Date(2023, 3, 21, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "nowruz after leap year",
			y:    1404, m: 1, d: 1,
			want: time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "leap day",
			y:    1403, m: 12, d: 30,
			want: time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "leap day 1399",
			y:    1399, m: 12, d: 30,
			want: time.Date(2021, 3, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "last day of shahrivar",
			y:    1370, m: 6, d: 31,
			want: time.Date(1991, 9, 22, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "30 esfand in common year",
			y:    1402, m: 12, d: 30,
			wantErr: true,
		},
		{
			name: "31 mehr",
			y:    1402, m: 7, d: 31,
			wantErr: true,
		},
		{
			name: "month 13",
			y:    1402, m: 13, d: 1,
			wantErr: true,
		},
		{
			name: "day zero",
			y:    1402, m: 1, d: 0,
			wantErr: true,
		},
		{
			name: "year out of range",
			y:    3200, m: 1, d: 1,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := JalaliToGregorian(tt.y, tt.m, tt.d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("JalaliToGregorian() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("JalaliToGregorian() = %v, want %v", got, tt.want)
			}
		})
	}
}
